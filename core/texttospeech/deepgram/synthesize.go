package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/vocalis/core/audio"
	"github.com/koscakluka/vocalis/core/texttospeech"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Synthesize speaks text and returns the complete audio buffer in the
// client's encoding.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	options := texttospeech.NewSynthesisOptions(opts...)
	if c.apiKey == "" {
		return nil, fail(span, fmt.Errorf("deepgram api key not found"))
	}
	if text == "" {
		return nil, fail(span, fmt.Errorf("nothing to synthesize"))
	}

	voice := c.voice
	if options.Voice != "" {
		v, ok := ParseVoice(options.Voice)
		if !ok {
			return nil, fail(span, fmt.Errorf("invalid voice %q", options.Voice))
		}
		voice = v
	}
	encodingInfo := c.encodingInfo
	if !options.EncodingInfo.IsZero() {
		encodingInfo = options.EncodingInfo
	}

	span.SetAttributes(
		attribute.String("request.voice", string(voice)),
		attribute.Int("request.text_length", len(text)),
	)

	conn, err := c.connectWebsocket(ctx, voice, encodingInfo)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to open websocket: %w", err))
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return nil, fail(span, fmt.Errorf("failed to send text to deepgram: %w", err))
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		return nil, fail(span, fmt.Errorf("failed to flush deepgram buffer: %w", err))
	}

	var speech bytes.Buffer
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fail(span, fmt.Errorf("synthesis interrupted: %w", ctxErr))
			}
			return nil, fail(span, fmt.Errorf("failed to read deepgram websocket message: %w", err))
		}

		if msgType == websocket.BinaryMessage {
			if len(msg) > 0 {
				speech.Write(msg)
				options.SpeechAudioCallback(msg)
			}
			continue
		}

		done, err := processControlMessage(msg)
		if err != nil {
			return nil, fail(span, err)
		}
		if done {
			break
		}
	}

	if err := conn.WriteJSON(closeMsg); err != nil {
		c.logger.DebugContext(ctx, "failed to send close message to deepgram", "error", err)
	}

	span.SetAttributes(attribute.Int("response.audio_bytes", speech.Len()))
	return speech.Bytes(), nil
}

func (c *TextToSpeechClient) connectWebsocket(ctx context.Context, voice deepgramVoice, encodingInfo audio.EncodingInfo) (*websocket.Conn, error) {
	speakUrl, err := url.Parse(c.baseURL + "/v1/speak")
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram base url: %w", err)
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")
	speakUrl.RawQuery = urlValues.Encode()

	conn, _, err := c.dialer.DialContext(ctx, speakUrl.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func processControlMessage(msg []byte) (bool, error) {
	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return false, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch parsedMsg.Type {
	case "Flushed":
		return true, nil
	case "Error":
		return false, errors.New("deepgram error: " + parsedMsg.Description)
	default:
		// Metadata, Warning and Cleared carry nothing needed here
		return false, nil
	}
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
