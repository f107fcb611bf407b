package vision

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultModel     = openai.GPT4oMini
	DefaultMaxTokens = 300

	DefaultPrompt = "Describe this image for someone who cannot see it. " +
		"Mention the main subject, any readable text, people, colours and the layout of the scene. " +
		"Keep it to a few sentences."
)

// ChatCompleter is the part of the OpenAI client the describer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Describer turns images into short natural language descriptions using a
// vision capable chat model.
type Describer struct {
	client    ChatCompleter
	model     string
	prompt    string
	maxTokens int

	logger *slog.Logger
}

type DescriberOption func(*Describer)

func NewDescriber(client ChatCompleter, opts ...DescriberOption) *Describer {
	d := &Describer{
		client:    client,
		model:     DefaultModel,
		prompt:    DefaultPrompt,
		maxTokens: DefaultMaxTokens,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewOpenAIDescriber creates a describer talking to an OpenAI compatible API.
// An empty baseURL uses the OpenAI default.
func NewOpenAIDescriber(apiKey, baseURL string, opts ...DescriberOption) *Describer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	config.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	return NewDescriber(openai.NewClientWithConfig(config), opts...)
}

func WithModel(model string) DescriberOption {
	return func(d *Describer) {
		if model != "" {
			d.model = model
		}
	}
}

func WithPrompt(prompt string) DescriberOption {
	return func(d *Describer) {
		if prompt != "" {
			d.prompt = prompt
		}
	}
}

func WithMaxTokens(maxTokens int) DescriberOption {
	return func(d *Describer) {
		if maxTokens > 0 {
			d.maxTokens = maxTokens
		}
	}
}

func WithLogger(l *slog.Logger) DescriberOption {
	return func(d *Describer) {
		if l != nil {
			d.logger = l
		}
	}
}

// Describe returns a description of an encoded image (data URL or bare
// base64).
func (d *Describer) Describe(ctx context.Context, encodedImage string) (string, error) {
	ctx, span := tracer.Start(ctx, "describe image")
	defer span.End()

	img, err := DecodeImage(encodedImage)
	if err != nil {
		return "", fail(span, fmt.Errorf("invalid image: %w", err))
	}
	span.SetAttributes(
		attribute.String("request.model", d.model),
		attribute.String("request.content_type", img.ContentType),
		attribute.Int("request.image_bytes", len(img.Data)),
	)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: d.prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    img.DataURL(),
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fail(span, fmt.Errorf("failed to describe image: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fail(span, fmt.Errorf("image description contained no choices"))
	}

	description := strings.TrimSpace(resp.Choices[0].Message.Content)
	if description == "" {
		return "", fail(span, fmt.Errorf("image description was empty"))
	}
	span.SetAttributes(attribute.Int("response.description_length", len(description)))
	d.logger.DebugContext(ctx, "image described", "model", d.model)

	return description, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
