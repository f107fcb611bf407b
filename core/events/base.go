package events

type Kind string

type Event interface {
	Kind() Kind
}

const (
	KindPing        Kind = "ping"
	KindGreeting    Kind = "greeting"
	KindAudio       Kind = "audio"
	KindVisionImage Kind = "vision_image"
	KindPDFUpload   Kind = "pdf_upload"

	KindStatus        Kind = "status"
	KindTranscription Kind = "transcription"
	KindLLMResponse   Kind = "llm_response"
	KindTTSStart      Kind = "tts_start"
	KindTTSChunk      Kind = "tts_chunk"
	KindTTSEnd        Kind = "tts_end"
	KindError         Kind = "error"
)

// DecodeError reports a message that does not fit the wire contract.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Param == "" {
		return e.Message
	}
	return e.Message + " (" + e.Param + ")"
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}
