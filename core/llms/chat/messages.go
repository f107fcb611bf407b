package chat

import (
	"github.com/invopop/jsonschema"
	"github.com/koscakluka/vocalis/core/llms"
)

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(instructions string, turns []llms.Turn) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}
	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}
		switch turn.Role {
		case llms.TurnRoleUser:
			messages = append(messages, message{Role: messageRoleUser, Content: turn.Content})
		case llms.TurnRoleAssistant:
			messages = append(messages, message{Role: messageRoleAssistant, Content: turn.Content})
		default:
			messages = append(messages, message{Role: messageRoleSystem, Content: turn.Content})
		}
	}
	return messages
}

type requestBody struct {
	Model          string              `json:"model"`
	Messages       []message           `json:"messages"`
	Stream         bool                `json:"stream"`
	Temperature    *float64            `json:"temperature,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	// Name is used to further identify the schema in the response.
	Name string `json:"name"`
	// Schema is the schema of the chat completion response format
	Schema *jsonschema.Schema `json:"schema"`
	// Strict determines whether to enforce the schema upon the
	// generated content.
	Strict bool `json:"strict"`
}

type responseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
