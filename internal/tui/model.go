// Package tui is a terminal client for Vocalis sessions.
package tui

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/koscakluka/vocalis/core/audio"
	"github.com/koscakluka/vocalis/core/events"
	"github.com/koscakluka/vocalis/core/vision"

	tea "github.com/charmbracelet/bubbletea"
)

// Connection is the session the model talks to.
type Connection interface {
	Send(event events.ClientEvent) error
	Receive() (events.ServerEvent, error)
	Close() error
}

// AudioDevice records utterances and plays synthesized speech.
type AudioDevice interface {
	StartCapture() error
	StopCapture() ([]byte, error)
	CaptureEncodingInfo() audio.EncodingInfo
	Play(audio []byte) error
	ClearPlayback()
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
	roleInfo
)

type entry struct {
	role role
	text string
}

const helpText = "ctrl+r record/send speech · /image <path> · /pdf <path> · /greet · ctrl+c quit"

// listeningStatus is sent when an utterance held no speech.
const listeningStatus = "Listening..."

// Model is the root bubbletea model of the terminal client.
type Model struct {
	conn   Connection
	device AudioDevice

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	ready    bool
	width    int
	height   int

	entries   []entry
	status    string
	busy      bool
	recording bool
	connected bool
}

// New creates a model for an open connection. A nil device disables speech.
func New(conn Connection, device AudioDevice) Model {
	input := textinput.New()
	input.Placeholder = "/image photo.jpg"
	input.Prompt = "› "
	input.CharLimit = 1024
	input.Focus()

	return Model{
		conn:      conn,
		device:    device,
		input:     input,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		connected: true,
		entries:   []entry{{role: roleInfo, text: helpText}},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		receiveCmd(m.conn),
		sendCmd(m.conn, events.Greeting{}),
	)
}

// receiveCmd waits for the next server event. It is issued again after every
// event so exactly one read is outstanding.
func receiveCmd(conn Connection) tea.Cmd {
	return func() tea.Msg {
		event, err := conn.Receive()
		if err != nil {
			var decodeErr *events.DecodeError
			if errors.As(err, &decodeErr) {
				return InvalidFrameMsg{Err: err}
			}
			return DisconnectedMsg{Err: err}
		}
		return ServerEventMsg{Event: event}
	}
}

func sendCmd(conn Connection, event events.ClientEvent) tea.Cmd {
	return func() tea.Msg {
		return SentMsg{Kind: event.Kind(), Err: conn.Send(event)}
	}
}

// attachmentCmd reads a file and sends it as an image or PDF event.
func attachmentCmd(conn Connection, kind events.Kind, path string) tea.Cmd {
	return func() tea.Msg {
		event, err := LoadAttachment(kind, path)
		if err != nil {
			return CommandErrorMsg{Err: err}
		}
		return SentMsg{Kind: event.Kind(), Err: conn.Send(event)}
	}
}

// LoadAttachment builds the event carrying the file at path.
func LoadAttachment(kind events.Kind, path string) (events.ClientEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch kind {
	case events.KindVisionImage:
		contentType := http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("%s is not an image (%s)", path, contentType)
		}
		return events.VisionImage{Image: vision.DataURL(contentType, data)}, nil
	case events.KindPDFUpload:
		return events.PDFUpload{Data: base64.StdEncoding.EncodeToString(data)}, nil
	default:
		return nil, fmt.Errorf("unsupported attachment kind %q", kind)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			_ = m.conn.Close()
			return m, tea.Quit
		case "ctrl+r":
			cmds = append(cmds, m.toggleRecording())
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if cmd := m.runCommand(line); cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case ServerEventMsg:
		m.handleServerEvent(msg.Event)
		cmds = append(cmds, receiveCmd(m.conn))

	case InvalidFrameMsg:
		cmds = append(cmds, receiveCmd(m.conn))

	case DisconnectedMsg:
		m.connected = false
		m.busy = false
		m.status = "Disconnected"
		if msg.Err != nil {
			m.addEntry(roleError, "connection closed: "+msg.Err.Error())
		}

	case SentMsg:
		if msg.Err != nil {
			m.busy = false
			m.addEntry(roleError, msg.Err.Error())
		}

	case CommandErrorMsg:
		m.busy = false
		m.addEntry(roleError, msg.Err.Error())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) runCommand(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	if !m.connected {
		m.addEntry(roleError, "not connected")
		return nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/image", "/pdf":
		if arg == "" {
			m.addEntry(roleError, name+" needs a file path")
			return nil
		}
		kind := events.KindVisionImage
		if name == "/pdf" {
			kind = events.KindPDFUpload
		}
		m.busy = true
		m.addEntry(roleInfo, "sending "+arg)
		return attachmentCmd(m.conn, kind, arg)
	case "/greet":
		return sendCmd(m.conn, events.Greeting{})
	case "/ping":
		return sendCmd(m.conn, events.Ping{})
	case "/quit":
		_ = m.conn.Close()
		return tea.Quit
	default:
		m.addEntry(roleInfo, helpText)
		return nil
	}
}

func (m *Model) toggleRecording() tea.Cmd {
	if m.device == nil {
		m.addEntry(roleError, "audio is disabled")
		return nil
	}

	if !m.recording {
		if err := m.device.StartCapture(); err != nil {
			m.addEntry(roleError, err.Error())
			return nil
		}
		m.device.ClearPlayback()
		m.recording = true
		return nil
	}

	m.recording = false
	pcm, err := m.device.StopCapture()
	if err != nil {
		m.addEntry(roleError, err.Error())
		return nil
	}
	if len(pcm) == 0 {
		return nil
	}
	wav, err := audio.WAV(pcm, m.device.CaptureEncodingInfo())
	if err != nil {
		m.addEntry(roleError, err.Error())
		return nil
	}

	m.busy = true
	return sendCmd(m.conn, events.Audio{Data: base64.StdEncoding.EncodeToString(wav)})
}

func (m *Model) handleServerEvent(event events.ServerEvent) {
	switch e := event.(type) {
	case events.Status:
		m.status = e.Message
		m.busy = strings.HasSuffix(e.Message, "...") && e.Message != listeningStatus
	case events.Transcription:
		m.addEntry(roleUser, e.Text)
	case events.LLMResponse:
		m.busy = false
		m.status = ""
		m.addEntry(roleAssistant, e.Text)
	case events.TTSStart:
		if m.device != nil {
			m.device.ClearPlayback()
		}
	case events.TTSChunk:
		if m.device != nil {
			if err := m.device.Play(e.Audio); err != nil {
				m.addEntry(roleError, err.Error())
			}
		}
	case events.TTSEnd:
	case events.Error:
		m.busy = false
		m.status = ""
		m.addEntry(roleError, e.Message)
	}
}

func (m *Model) addEntry(r role, text string) {
	m.entries = append(m.entries, entry{role: r, text: text})
	if m.ready {
		m.viewport.SetContent(m.renderEntries())
		m.viewport.GotoBottom()
	}
}

const (
	headerHeight = 2
	footerHeight = 4
)

func (m *Model) resize() {
	height := max(m.height-headerHeight-footerHeight, 1)
	if !m.ready {
		m.viewport = viewport.New(m.width, height)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = height
	}
	m.input.Width = max(m.width-6, 10)
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

func (m Model) renderEntries() string {
	width := max(m.width-2, 20)

	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch e.role {
		case roleUser:
			b.WriteString(userLabelStyle.Render("You") + "\n")
		case roleAssistant:
			b.WriteString(assistantLabelStyle.Render("Vocalis") + "\n")
		case roleError:
			b.WriteString(errorLabelStyle.Render("Error") + "\n")
		case roleInfo:
			b.WriteString(infoStyle.Render(wordwrap.String(e.text, width)))
			continue
		}
		b.WriteString(wordwrap.String(e.text, width))
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	state := connectedStyle.Render("● connected")
	if !m.connected {
		state = disconnectedStyle.Render("● disconnected")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center, titleStyle.Render("Vocalis"), " ", state)

	var status string
	switch {
	case m.recording:
		status = recordingStyle.Render("● recording, ctrl+r to send")
	case m.busy:
		status = m.spinner.View() + " " + statusStyle.Render(m.status)
	default:
		status = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		status,
		inputBorderStyle.Width(max(m.width-2, 10)).Render(m.input.View()),
	)
}
