package events

import (
	"encoding/json"
	"strings"
)

// ClientEvent is an event sent by the client.
type ClientEvent interface {
	Event
	clientEvent()
}

// Ping keeps the connection alive.
type Ping struct{}

// Greeting starts a fresh conversation.
type Greeting struct{}

// Audio carries one recorded utterance. Data is still base64 encoded, decoding
// is part of processing the event.
type Audio struct {
	Data string
}

// VisionImage carries an encoded image, either a data URL or bare base64.
type VisionImage struct {
	Image string
}

// PDFUpload carries a base64 encoded PDF document.
type PDFUpload struct {
	Data string
}

func (Ping) Kind() Kind        { return KindPing }
func (Greeting) Kind() Kind    { return KindGreeting }
func (Audio) Kind() Kind       { return KindAudio }
func (VisionImage) Kind() Kind { return KindVisionImage }
func (PDFUpload) Kind() Kind   { return KindPDFUpload }

func (Ping) clientEvent()        {}
func (Greeting) clientEvent()    {}
func (Audio) clientEvent()       {}
func (VisionImage) clientEvent() {}
func (PDFUpload) clientEvent()   {}

type clientEnvelope struct {
	Type      Kind   `json:"type"`
	AudioData string `json:"audio_data,omitempty"`
	Image     string `json:"image,omitempty"`
	PDF       string `json:"pdf,omitempty"`
}

// DecodeClientEvent parses one inbound text frame.
func DecodeClientEvent(data []byte) (ClientEvent, error) {
	var envelope clientEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}

	switch Kind(strings.TrimSpace(string(envelope.Type))) {
	case "":
		return nil, badRequest("missing message type", "type")
	case KindPing:
		return Ping{}, nil
	case KindGreeting:
		return Greeting{}, nil
	case KindAudio:
		if envelope.AudioData == "" {
			return nil, badRequest("audio message without audio", "audio_data")
		}
		return Audio{Data: envelope.AudioData}, nil
	case KindVisionImage:
		if envelope.Image == "" {
			return nil, badRequest("vision message without image", "image")
		}
		return VisionImage{Image: envelope.Image}, nil
	case KindPDFUpload:
		if envelope.PDF == "" {
			return nil, badRequest("pdf message without document", "pdf")
		}
		return PDFUpload{Data: envelope.PDF}, nil
	default:
		return nil, unsupported("unknown message type", string(envelope.Type))
	}
}

// EncodeClientEvent serializes an event the way a client sends it.
func EncodeClientEvent(event ClientEvent) ([]byte, error) {
	envelope := clientEnvelope{Type: event.Kind()}
	switch e := event.(type) {
	case Audio:
		envelope.AudioData = e.Data
	case VisionImage:
		envelope.Image = e.Image
	case PDFUpload:
		envelope.PDF = e.Data
	}

	return json.Marshal(envelope)
}
