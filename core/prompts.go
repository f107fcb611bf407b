package orchestration

import "fmt"

// DefaultSystemPrompt frames every assistant reply unless overridden with
// WithSystemPrompt.
const DefaultSystemPrompt = "You are Vocalis, a specialized AI assistant for visually impaired users. \n" +
	"Your goal is to be their eyes and a helpful companion.\n" +
	"1. Be concise, clear, and warm. Avoid long lists unless asked.\n" +
	"2. Use descriptive language for visual elements.\n" +
	"3. If a user uploads a PDF or text, read it out clearly, summarizing long parts unless asked for full text.\n" +
	"4. Always confirm when you are listening or processing.\n" +
	"5. If the user seems lost, gently guide them on how to talk to you.\n"

// GreetingText is spoken in response to a greeting event.
const GreetingText = "Hello! I'm Vocalis, your AI assistant. I'm here to help you see and understand the world around you. What can I do for you?"

const (
	statusConnected    = "Connected to Vocalis"
	statusTranscribing = "Transcribing..."
	statusThinking     = "Thinking..."
	statusListening    = "Listening..."
	statusAnalyzing    = "Analyzing image..."
	statusDescribing   = "Describing..."
	statusReadingPDF   = "Reading PDF..."
	statusSummarizing  = "Summarizing PDF..."
)

const (
	describeImagePrompt = "Describe this image to me."
	summarizePDFPrompt  = "I have uploaded a PDF. Please read out a summary of its content in a natural way."

	// pdfExcerptRunes bounds how much of a document lands in the history.
	pdfExcerptRunes = 3000
)

func imageContext(description string) string {
	return fmt.Sprintf("[The user shared an image. Description: %s]", description)
}

func pdfContext(excerpt string, truncated bool) string {
	if truncated {
		excerpt += "..."
	}
	return fmt.Sprintf("[The user uploaded a PDF. Content: %s]", excerpt)
}
