// Package events defines the typed wire contract of an assistant session.
//
// Every message on the channel is a JSON object with a "type" tag. Each
// direction is a closed set of kinds:
//
// client → server ([ClientEvent])
//
//   - Ping (ping): keep-alive, no payload.
//   - Greeting (greeting): resets the conversation and requests the welcome
//     utterance.
//   - Audio (audio): base64 raw audio in "audio_data".
//   - VisionImage (vision_image): encoded image in "image".
//   - PDFUpload (pdf_upload): base64 document in "pdf".
//
// server → client ([ServerEvent])
//
//   - Status (status): human readable progress in "message".
//   - Transcription (transcription): recognized user speech in "text".
//   - LLMResponse (llm_response): assistant reply in "text".
//   - TTSStart (tts_start): start of one synthesized utterance.
//   - TTSChunk (tts_chunk): base64 audio in "audio_chunk", at most 4096
//     decoded bytes.
//   - TTSEnd (tts_end): end of the utterance started by the last TTSStart.
//   - Error (error): human readable failure in "message".
//
// Unknown tags and envelopes missing their kind-specific payload are rejected
// with a [*DecodeError]; receivers drop such messages and keep going.
package events
