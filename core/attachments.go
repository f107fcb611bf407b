package orchestration

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/koscakluka/vocalis/core/documents"
	"github.com/koscakluka/vocalis/core/events"
	"github.com/koscakluka/vocalis/core/llms"
)

// handleImage adds a description of the shared image to the history and asks
// the assistant to describe it.
func (s *Session) handleImage(ctx context.Context, event events.VisionImage) error {
	if err := s.emitStatus(ctx, statusAnalyzing); err != nil {
		return err
	}

	description, err := s.describe(ctx, event.Image)
	if err != nil {
		return err
	}
	s.history.Push(llms.SystemTurn(imageContext(description)))

	if err := s.emitStatus(ctx, statusDescribing); err != nil {
		return err
	}
	return s.respond(ctx, describeImagePrompt)
}

// handlePDF adds the start of the document to the history and asks the
// assistant for a spoken summary.
func (s *Session) handlePDF(ctx context.Context, event events.PDFUpload) error {
	data, err := base64.StdEncoding.DecodeString(event.Data)
	if err != nil {
		return &StageError{Stage: StageDecode, Err: fmt.Errorf("invalid pdf data: %w", err)}
	}

	if err := s.emitStatus(ctx, statusReadingPDF); err != nil {
		return err
	}

	text, err := s.extract(ctx, data)
	if err != nil {
		return err
	}
	excerpt, truncated := documents.Excerpt(text, pdfExcerptRunes)
	s.history.Push(llms.SystemTurn(pdfContext(excerpt, truncated)))

	if err := s.emitStatus(ctx, statusSummarizing); err != nil {
		return err
	}
	return s.respond(ctx, summarizePDFPrompt)
}

func (s *Session) describe(ctx context.Context, image string) (string, error) {
	if s.describer == nil {
		return "", &StageError{Stage: StageDescribe, Err: ErrNotConfigured}
	}

	var description string
	err := s.call(ctx, StageDescribe, s.timeouts.Vision, func(ctx context.Context) error {
		var err error
		description, err = s.describer.Describe(ctx, image)
		return err
	})
	return description, err
}

func (s *Session) extract(ctx context.Context, data []byte) (string, error) {
	if s.documents == nil {
		return "", &StageError{Stage: StageExtract, Err: ErrNotConfigured}
	}

	var text string
	err := s.call(ctx, StageExtract, s.timeouts.Documents, func(ctx context.Context) error {
		var err error
		if text, err = s.documents.ExtractPDF(ctx, data); err != nil {
			return err
		}
		if text == "" {
			return documents.ErrEmptyDocument
		}
		return nil
	})
	return text, err
}
