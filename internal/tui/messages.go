package tui

import "github.com/koscakluka/vocalis/core/events"

// ServerEventMsg carries one event received from the session.
type ServerEventMsg struct {
	Event events.ServerEvent
}

// InvalidFrameMsg is sent for a frame that did not decode.
type InvalidFrameMsg struct {
	Err error
}

// DisconnectedMsg is sent once the session connection is gone.
type DisconnectedMsg struct {
	Err error
}

// SentMsg reports the outcome of sending one client event.
type SentMsg struct {
	Kind events.Kind
	Err  error
}

// CommandErrorMsg reports a failed input command, like an unreadable file.
type CommandErrorMsg struct {
	Err error
}
