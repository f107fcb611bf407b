package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/vocalis/core/events"
)

// Conn is a client side Vocalis session.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

func (c *Conn) Send(event events.ClientEvent) error {
	data, err := events.EncodeClientEvent(event)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", event.Kind(), err)
	}
	return nil
}

// Receive blocks until the next server event. Frames that do not decode are
// returned as *events.DecodeError, the connection stays usable.
func (c *Conn) Receive() (events.ServerEvent, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return events.DecodeServerEvent(data)
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	closeErr := c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	if err := c.ws.Close(); err != nil {
		return err
	}
	if closeErr != nil && !errors.Is(closeErr, websocket.ErrCloseSent) {
		return closeErr
	}
	return nil
}
