package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/vocalis/core/audio"
	"github.com/koscakluka/vocalis/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Message types the listen endpoint sends that are not covered by the
// response types used here.
const (
	typeMetadataResponse = "Metadata"
	typeErrorResponse    = "Error"
)

// sendChunkSize is the size of the binary frames the utterance is streamed in.
const sendChunkSize = 8 * audio.ChunkSize

// Transcribe streams one complete utterance to Deepgram and returns the
// concatenated final transcript. An utterance without speech returns an
// empty string and no error.
func (c *TranscriptionClient) Transcribe(ctx context.Context, data []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe audio")
	defer span.End()

	options := speechtotext.NewTranscriptionOptions(opts...)
	if c.apiKey == "" {
		return "", fail(span, fmt.Errorf("deepgram api key not found"))
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return "", fail(span, fmt.Errorf("invalid encoding: %w", err))
	}
	language := options.Language
	if language == "" {
		language = c.language
	}

	span.SetAttributes(
		attribute.Int("request.audio_bytes", len(data)),
		attribute.String("request.model", c.model),
		attribute.String("request.language", language),
	)

	conn, err := c.connectWebsocket(ctx, connectionOptions{
		encoding: encoding,
		model:    c.model,
		language: language,
	})
	if err != nil {
		return "", fail(span, fmt.Errorf("failed to open websocket: %w", err))
	}
	defer conn.Close()

	// Unblocks the read loop below once the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	writeErr := make(chan error, 1)
	go func() { writeErr <- sendAudio(conn, data) }()

	var segments []string
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fail(span, fmt.Errorf("transcription interrupted: %w", ctxErr))
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return "", fail(span, fmt.Errorf("failed to read deepgram websocket message: %w", err))
		}
		if msgType != websocket.TextMessage {
			continue
		}

		result, err := processMessage(msg)
		if err != nil {
			return "", fail(span, err)
		}
		if result.segment != "" {
			segments = append(segments, result.segment)
			options.PartialTranscriptionCallback(result.segment)
		}
		if result.done {
			break
		}
	}

	select {
	case err := <-writeErr:
		if err != nil {
			return "", fail(span, err)
		}
	default:
	}

	transcript := strings.Join(segments, " ")
	span.SetAttributes(attribute.Int("response.transcript_length", len(transcript)))
	c.logger.DebugContext(ctx, "transcription completed", "segments", len(segments))
	return transcript, nil
}

type connectionOptions struct {
	encoding *encodingInfo
	model    string
	language string
}

func (c *TranscriptionClient) connectWebsocket(ctx context.Context, options connectionOptions) (*websocket.Conn, error) {
	listenUrl, err := url.Parse(c.baseURL + "/v1/listen")
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram base url: %w", err)
	}
	queryParams := listenUrl.Query()
	if options.encoding != nil {
		queryParams.Set("encoding", options.encoding.Format)
		queryParams.Set("sample_rate", strconv.Itoa(options.encoding.SampleRate))
		queryParams.Set("channels", "1")
	}
	queryParams.Set("model", options.model)
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("punctuate", "true")

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := c.dialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// sendAudio writes the utterance and asks Deepgram to finalize it. The server
// answers with the remaining results and closes the socket.
func sendAudio(conn *websocket.Conn, data []byte) error {
	for chunk := range audio.Chunks(data, sendChunkSize) {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return fmt.Errorf("failed to write to deepgram client: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to finalize deepgram stream: %w", err)
	}
	return nil
}

type messageResult struct {
	segment string
	done    bool
}

func processMessage(msg []byte) (messageResult, error) {
	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return messageResult{}, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch parsedMsg.Type {
	case string(api.TypeMessageResponse):
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			return messageResult{}, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
		}
		if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
			return messageResult{}, nil
		}
		return messageResult{
			segment: strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript),
		}, nil
	case typeMetadataResponse:
		return messageResult{done: true}, nil
	case typeErrorResponse:
		return messageResult{}, errors.New("deepgram error: " + parsedMsg.Description)
	default:
		return messageResult{}, nil
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
