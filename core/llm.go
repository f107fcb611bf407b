package orchestration

import (
	"context"
	"strings"

	"github.com/koscakluka/vocalis/core/llms"
)

// prompt asks the LLM for a reply to prompt given the system prompt and the
// whole history.
func (s *Session) prompt(ctx context.Context, prompt string) (string, error) {
	if s.llm == nil {
		return "", &StageError{Stage: StagePrompt, Err: ErrNotConfigured}
	}

	var reply string
	err := s.call(ctx, StagePrompt, s.timeouts.LLM, func(ctx context.Context) error {
		response, err := s.llm.Prompt(ctx, prompt,
			llms.WithSystemPrompt(s.systemPrompt),
			llms.WithTurns(s.history.Snapshot()...),
		)
		if err != nil {
			return err
		}
		if response == nil || strings.TrimSpace(response.Content) == "" {
			return errEmptyResponse
		}

		reply = strings.TrimSpace(response.Content)
		return nil
	})
	return reply, err
}
