package llms

// Response is a single response from an LLM
type Response struct {
	Content string

	FinishReason string
	Usage        *Usage
}

// Turn is a single entry of the conversation history.
type Turn struct {
	Role TurnRole

	// Content is the content of the turn
	// In user's turn it is the prompt,
	// in assistant's turn it is the response,
	// in system turns it is context injected on the user's behalf (image
	// descriptions, document excerpts)
	Content string
}

type TurnRole string

const (
	TurnRoleSystem    TurnRole = "system"
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

func UserTurn(content string) Turn      { return Turn{Role: TurnRoleUser, Content: content} }
func AssistantTurn(content string) Turn { return Turn{Role: TurnRoleAssistant, Content: content} }
func SystemTurn(content string) Turn    { return Turn{Role: TurnRoleSystem, Content: content} }

type Usage struct {
	// InputTokens represents the number of input tokens.
	InputTokens int
	// OutputTokens represents the number of output tokens.
	OutputTokens int
	// TotalTokens represents the total number of tokens used.
	TotalTokens int
}
