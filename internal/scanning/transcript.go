package scanning

import "strings"

// noTextMarker is what the vision models are told to answer for blank pages
const noTextMarker = "NO_TEXT"

// transcribePrompt is the shared prompt used by all vision providers
const transcribePrompt = `You are transcribing a scanned invoice or receipt. Read all text in the image and reproduce it as plain text.

Rules:
- Output one printed line per line, top to bottom, in reading order
- Keep item descriptions and their prices on the same line, with the price at the end of the line (e.g. "Hotel accommodation 199.99")
- Write prices as plain decimals with two decimal places, without currency symbols
- Do not summarize, translate, or add commentary
- Do not use markdown code blocks
- If the image contains no readable text, answer exactly ` + noTextMarker

// cleanTranscript strips markdown fences a model may add around its answer
// and reports whether any text remains
func cleanTranscript(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```plaintext")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" || text == noTextMarker {
		return "", false
	}
	return text, true
}
