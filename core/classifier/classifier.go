package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/vocalis/core/documents"
	"github.com/koscakluka/vocalis/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxReportRunes bounds how much report text is sent to the model.
const DefaultMaxReportRunes = 12000

const promptTemplate = `
You are a medical disability classifier.

Analyze the report and return ONLY valid JSON.

Format EXACTLY like this:

{
  "primary_disability": "visual | hearing | cognitive | multiple | none",
  "confidence": number_between_0_and_100,
  "summary": "short explanation",
  "assistant_to_load": "visual_assistant | speech_assistant | learning_assistant | none"
}

Report:
%s
`

type LLM interface {
	Prompt(ctx context.Context, prompt string, opts ...llms.PromptOption) (*llms.Response, error)
}

// Classifier maps report text to a disability category and the assistant
// that should be loaded for it.
type Classifier struct {
	llm            LLM
	structured     bool
	maxReportRunes int
	logger         *slog.Logger
}

type Option func(*Classifier)

func New(llm LLM, opts ...Option) *Classifier {
	c := &Classifier{
		llm:            llm,
		maxReportRunes: DefaultMaxReportRunes,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithStructuredOutput additionally asks the model to enforce the analysis
// JSON schema. Output is still parsed leniently.
func WithStructuredOutput(enabled bool) Option {
	return func(c *Classifier) { c.structured = enabled }
}

func WithMaxReportRunes(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxReportRunes = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

var analysisSchema = (&jsonschema.Reflector{DoNotReference: true}).Reflect(Analysis{})

// Classify always returns a usable Analysis. When the model fails or its
// output cannot be parsed the Fallback analysis is returned together with the
// reason.
func (c *Classifier) Classify(ctx context.Context, reportText string) (Analysis, error) {
	ctx, span := tracer.Start(ctx, "classify report")
	defer span.End()

	text, truncated := documents.Excerpt(strings.TrimSpace(reportText), c.maxReportRunes)
	span.SetAttributes(
		attribute.Int("request.text_length", len(text)),
		attribute.Bool("request.truncated", truncated),
		attribute.Bool("request.structured", c.structured),
	)

	opts := []llms.PromptOption{llms.WithTemperature(0)}
	if c.structured {
		opts = append(opts, llms.WithResponseSchema("Analysis", analysisSchema))
	}

	resp, err := c.llm.Prompt(ctx, fmt.Sprintf(promptTemplate, text), opts...)
	if err != nil {
		return c.fallback(ctx, span, fmt.Errorf("classifier prompt failed: %w", err))
	}

	analysis, err := ParseAnalysis(resp.Content)
	if err != nil {
		return c.fallback(ctx, span, fmt.Errorf("classifier output unusable: %w", err))
	}

	span.SetAttributes(
		attribute.String("response.primary_disability", analysis.PrimaryDisability),
		attribute.Int("response.confidence", analysis.Confidence),
	)
	return analysis, nil
}

func (c *Classifier) fallback(ctx context.Context, span trace.Span, err error) (Analysis, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.WarnContext(ctx, "falling back to default analysis", "error", err)
	return Fallback(), err
}
