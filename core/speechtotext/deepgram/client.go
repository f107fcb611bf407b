package deepgram

import (
	"log/slog"
	"os"
	"strings"

	"github.com/gorilla/websocket"
)

const (
	DefaultBaseURL  = "wss://api.deepgram.com"
	DefaultModel    = "nova-3"
	DefaultLanguage = "en-US"
)

// TranscriptionClient transcribes complete utterances over the Deepgram
// listen websocket. Every call opens its own socket so the client can be
// shared between sessions.
type TranscriptionClient struct {
	apiKey   string
	baseURL  string
	model    string
	language string

	dialer *websocket.Dialer
	logger *slog.Logger
}

type ClientOption func(*TranscriptionClient)

// NewTranscriptionClient creates a client. The api key defaults to
// DEEPGRAM_API_KEY.
func NewTranscriptionClient(opts ...ClientOption) *TranscriptionClient {
	c := &TranscriptionClient{
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
		baseURL:  DefaultBaseURL,
		model:    DefaultModel,
		language: DefaultLanguage,
		dialer:   websocket.DefaultDialer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *TranscriptionClient) {
		if apiKey != "" {
			c.apiKey = apiKey
		}
	}
}

// WithBaseURL points the client at another host, mostly useful for tests and
// self-hosted deployments.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *TranscriptionClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithLanguage(language string) ClientOption {
	return func(c *TranscriptionClient) {
		if language != "" {
			c.language = language
		}
	}
}

func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *TranscriptionClient) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(c *TranscriptionClient) {
		if l != nil {
			c.logger = l
		}
	}
}
