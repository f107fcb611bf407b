package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	orchestration "github.com/koscakluka/vocalis/core"
	"github.com/koscakluka/vocalis/core/events"
)

// webSocketChannel carries one session over a websocket connection. Gorilla
// connections allow one concurrent reader and one concurrent writer, which is
// all a session needs.
type webSocketChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *webSocketChannel) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
			websocket.CloseAbnormalClosure,
		) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %w", orchestration.ErrChannelClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *webSocketChannel) Write(ctx context.Context, event events.ServerEvent) error {
	data, err := events.EncodeServerEvent(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Kind(), err)
	}

	deadline := time.Now().Add(c.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		s.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxMessageBytes)

	ctx := r.Context()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	channel := &webSocketChannel{conn: conn, writeTimeout: s.writeTimeout}
	session := orchestration.NewSession(channel, s.sessionOptions()...)
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "session ended with error", "session_id", session.ID(), "error", err)
	}
}

func (s *Server) sessionOptions() []orchestration.SessionOption {
	opts := []orchestration.SessionOption{
		orchestration.WithLogger(s.logger),
		orchestration.WithObserver(s.metrics),
		orchestration.WithTimeouts(s.deps.Timeouts),
	}
	if s.deps.SpeechToText != nil {
		opts = append(opts, orchestration.WithSpeechToTextClient(s.deps.SpeechToText, s.deps.TranscriptionOptions...))
	}
	if s.deps.LLM != nil {
		opts = append(opts, orchestration.WithLLM(s.deps.LLM))
	}
	if s.deps.TextToSpeech != nil {
		opts = append(opts, orchestration.WithTextToSpeechClient(s.deps.TextToSpeech, s.deps.SynthesisOptions...))
	}
	if s.deps.Describer != nil {
		opts = append(opts, orchestration.WithImageDescriber(s.deps.Describer))
	}
	if s.deps.Documents != nil {
		opts = append(opts, orchestration.WithDocumentReader(s.deps.Documents))
	}
	if s.deps.SystemPrompt != "" {
		opts = append(opts, orchestration.WithSystemPrompt(s.deps.SystemPrompt))
	}
	return opts
}
