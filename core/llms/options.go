package llms

import (
	"slices"

	"github.com/invopop/jsonschema"
)

// PromptOptions is a struct that contains all the options for a prompt.
type PromptOptions struct {
	Instructions string
	Turns        []Turn

	// ResponseSchema asks the model to answer with JSON matching the schema.
	// Clients that cannot enforce a schema may ignore it, callers still have
	// to validate the output.
	ResponseSchema     *jsonschema.Schema
	ResponseSchemaName string

	Temperature *float64
}

// PromptOption is a function that can be used to modify the prompt options.
type PromptOption func(*PromptOptions)

// NewPromptOptions applies opts on top of the zero options.
func NewPromptOptions(opts ...PromptOption) PromptOptions {
	options := PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// WithSystemPrompt is a PromptOption that sets the system prompt for the
// prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = prompt
	}
}

// WithTurns is a PromptOption that adds turns information to the prompt.
// Repeating this option will sequentially add more turns.
func WithTurns(turns ...Turn) PromptOption {
	return func(opts *PromptOptions) {
		opts.Turns = append(slices.Clip(opts.Turns), turns...)
	}
}

// WithResponseSchema constrains the response to JSON described by schema.
func WithResponseSchema(name string, schema *jsonschema.Schema) PromptOption {
	return func(opts *PromptOptions) {
		opts.ResponseSchemaName = name
		opts.ResponseSchema = schema
	}
}

func WithTemperature(temperature float64) PromptOption {
	return func(opts *PromptOptions) {
		opts.Temperature = &temperature
	}
}
