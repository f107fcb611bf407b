package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koscakluka/vocalis/core/events"
)

func TestConnRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan events.ClientEvent, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"mystery"}`))
		status, _ := events.EncodeServerEvent(events.Status{Message: "Connected to Vocalis"})
		_ = ws.WriteMessage(websocket.TextMessage, status)

		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Errorf("read failed: %v", err)
			return
		}
		event, err := events.DecodeClientEvent(data)
		if err != nil {
			t.Errorf("decode failed: %v", err)
			return
		}
		received <- event

		_, _, _ = ws.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	_, err = conn.Receive()
	var decodeErr *events.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Receive() error = %v, want a decode error", err)
	}

	event, err := conn.Receive()
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if event != (events.Status{Message: "Connected to Vocalis"}) {
		t.Fatalf("Receive() = %+v", event)
	}

	if err := conn.Send(events.Greeting{}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case got := <-received:
		if got != (events.Greeting{}) {
			t.Fatalf("server received %+v, want greeting", got)
		}
	case <-ctx.Done():
		t.Fatalf("server never received the greeting")
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}
