package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/vocalis/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxErrorBody bounds how much of a failed response ends up in span
// attributes.
const maxErrorBody = 4 << 10

// Prompt sends the system prompt, turns and prompt as one chat completion
// request and returns the first choice.
func (c *Client) Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	options := llms.NewPromptOptions(opts...)

	messages := toMessages(options.Instructions, options.Turns)
	if prompt != "" {
		messages = append(messages, message{
			Role:    messageRoleUser,
			Content: prompt,
		})
	}

	reqBody := requestBody{
		Model:       c.model,
		Messages:    messages,
		Stream:      false,
		Temperature: options.Temperature,
	}
	if options.ResponseSchema != nil {
		reqBody.ResponseFormat = &chatResponseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   options.ResponseSchemaName,
				Schema: options.ResponseSchema,
				Strict: true,
			},
		}
	}

	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.Int("request.messages", len(messages)),
		attribute.Bool("request.structured", reqBody.ResponseFormat != nil),
	)

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fail(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, fail(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(span, fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); err != nil {
			span.RecordError(fmt.Errorf("error reading error body: %w", err))
		} else {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return nil, fail(span, fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	var body responseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fail(span, fmt.Errorf("error unmarshalling response: %w", err))
	}
	if len(body.Choices) == 0 {
		return nil, fail(span, fmt.Errorf("response contained no choices"))
	}

	response := &llms.Response{
		Content:      body.Choices[0].Message.Content,
		FinishReason: body.Choices[0].FinishReason,
	}
	if body.Usage != nil {
		response.Usage = &llms.Usage{
			InputTokens:  body.Usage.PromptTokens,
			OutputTokens: body.Usage.CompletionTokens,
			TotalTokens:  body.Usage.TotalTokens,
		}
		span.SetAttributes(attribute.Int("response.total_tokens", body.Usage.TotalTokens))
	}
	span.SetAttributes(attribute.String("response.finish_reason", response.FinishReason))
	c.logger.DebugContext(ctx, "llm prompt completed",
		"model", c.model, "finish_reason", response.FinishReason)

	return response, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
