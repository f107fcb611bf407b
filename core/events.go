package orchestration

import (
	"context"

	"github.com/koscakluka/vocalis/core/events"
)

// Channel is the message transport of one session.
type Channel interface {
	// Read blocks until the next inbound frame arrives. It returns
	// ErrChannelClosed (or io.EOF) once the peer disconnected.
	Read(ctx context.Context) ([]byte, error)
	// Write sends one outbound event. Writes of a session never overlap.
	Write(ctx context.Context, event events.ServerEvent) error
}

func (s *Session) emit(ctx context.Context, event events.ServerEvent) error {
	if err := s.channel.Write(ctx, event); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (s *Session) emitStatus(ctx context.Context, message string) error {
	return s.emit(ctx, events.Status{Message: message})
}
