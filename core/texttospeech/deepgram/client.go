package deepgram

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/vocalis/core/audio"
)

const (
	DefaultBaseURL    = "wss://api.deepgram.com"
	DefaultSampleRate = 24000
)

// TextToSpeechClient synthesizes whole responses over the Deepgram speak
// websocket. Every call opens its own socket so the client can be shared
// between sessions.
type TextToSpeechClient struct {
	apiKey       string
	baseURL      string
	voice        deepgramVoice
	encodingInfo audio.EncodingInfo

	dialer *websocket.Dialer
	logger *slog.Logger
}

type ClientOption func(*TextToSpeechClient)

// NewTextToSpeechClient creates a client for voice. The api key defaults to
// DEEPGRAM_API_KEY.
func NewTextToSpeechClient(voice deepgramVoice, opts ...ClientOption) (*TextToSpeechClient, error) {
	client := &TextToSpeechClient{
		apiKey:       os.Getenv("DEEPGRAM_API_KEY"),
		baseURL:      DefaultBaseURL,
		voice:        defaultVoice,
		encodingInfo: audio.EncodingInfo{SampleRate: DefaultSampleRate, Format: audio.EncodingLinear16},
		dialer:       websocket.DefaultDialer,
		logger:       logger,
	}

	if voice != "" {
		if _, ok := ParseVoice(string(voice)); !ok {
			return nil, fmt.Errorf("invalid voice %q", voice)
		}
		client.voice = voice
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *TextToSpeechClient) SetVoice(voice deepgramVoice) {
	c.voice = voice
}

func (c *TextToSpeechClient) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TextToSpeechClient) {
		if apiKey != "" {
			c.apiKey = apiKey
		}
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *TextToSpeechClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithEncodingInfo sets the default output format, a zero value is ignored.
func WithEncodingInfo(encodingInfo audio.EncodingInfo) ClientOption {
	return func(c *TextToSpeechClient) {
		if !encodingInfo.IsZero() {
			c.encodingInfo = encodingInfo
		}
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TextToSpeechClient) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *TextToSpeechClient) {
		if l != nil {
			c.logger = l
		}
	}
}
