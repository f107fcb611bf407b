package events

import (
	"encoding/base64"
	"encoding/json"

	"github.com/koscakluka/vocalis/internal/utils"
)

// ServerEvent is an event sent to the client.
type ServerEvent interface {
	Event
	serverEvent()
}

// Status reports progress of the current response cycle.
type Status struct {
	Message string
}

// Transcription carries recognized user speech.
type Transcription struct {
	Text string
}

// LLMResponse carries the assistant reply text.
type LLMResponse struct {
	Text string
}

// TTSStart opens a synthesized utterance.
type TTSStart struct{}

// TTSChunk carries one piece of synthesized audio.
type TTSChunk struct {
	Audio []byte
}

// TTSEnd closes the utterance opened by the preceding TTSStart.
type TTSEnd struct{}

// Error reports a failed response cycle. Message is meant for end users.
type Error struct {
	Message string
}

func (Status) Kind() Kind        { return KindStatus }
func (Transcription) Kind() Kind { return KindTranscription }
func (LLMResponse) Kind() Kind   { return KindLLMResponse }
func (TTSStart) Kind() Kind      { return KindTTSStart }
func (TTSChunk) Kind() Kind      { return KindTTSChunk }
func (TTSEnd) Kind() Kind        { return KindTTSEnd }
func (Error) Kind() Kind         { return KindError }

func (Status) serverEvent()        {}
func (Transcription) serverEvent() {}
func (LLMResponse) serverEvent()   {}
func (TTSStart) serverEvent()      {}
func (TTSChunk) serverEvent()      {}
func (TTSEnd) serverEvent()        {}
func (Error) serverEvent()         {}

type serverEnvelope struct {
	Type       Kind    `json:"type"`
	Message    *string `json:"message,omitempty"`
	Text       *string `json:"text,omitempty"`
	AudioChunk *string `json:"audio_chunk,omitempty"`
}

// EncodeServerEvent serializes an outbound event.
func EncodeServerEvent(event ServerEvent) ([]byte, error) {
	envelope := serverEnvelope{Type: event.Kind()}
	switch e := event.(type) {
	case Status:
		envelope.Message = utils.Ptr(e.Message)
	case Error:
		envelope.Message = utils.Ptr(e.Message)
	case Transcription:
		envelope.Text = utils.Ptr(e.Text)
	case LLMResponse:
		envelope.Text = utils.Ptr(e.Text)
	case TTSChunk:
		envelope.AudioChunk = utils.Ptr(base64.StdEncoding.EncodeToString(e.Audio))
	}

	return json.Marshal(envelope)
}

// DecodeServerEvent parses an outbound event, as clients do.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var envelope serverEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}

	switch envelope.Type {
	case KindStatus:
		return Status{Message: utils.Deref(envelope.Message, "")}, nil
	case KindError:
		return Error{Message: utils.Deref(envelope.Message, "")}, nil
	case KindTranscription:
		return Transcription{Text: utils.Deref(envelope.Text, "")}, nil
	case KindLLMResponse:
		return LLMResponse{Text: utils.Deref(envelope.Text, "")}, nil
	case KindTTSStart:
		return TTSStart{}, nil
	case KindTTSEnd:
		return TTSEnd{}, nil
	case KindTTSChunk:
		audio, err := base64.StdEncoding.DecodeString(utils.Deref(envelope.AudioChunk, ""))
		if err != nil {
			return nil, badRequest("invalid audio chunk encoding", "audio_chunk")
		}
		return TTSChunk{Audio: audio}, nil
	case "":
		return nil, badRequest("missing message type", "type")
	default:
		return nil, unsupported("unknown message type", string(envelope.Type))
	}
}
