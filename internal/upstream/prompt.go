package upstream

import (
	"strings"
)

// Preamble opens every prompt.
const Preamble = `You are a neutral intelligence analyst covering force posture in the MENA (Middle East & North Africa) region.
- Be factual, concise, and objective.
- Every factual claim must cite at least one source from the provided data. Cite only provided URLs.
- If no provided source supports a claim, say "insufficient sources".
- Never speculate wildly; use "inferred" or "likely" for assessments.
- Do not give precise military specifics such as exact coordinates, unit strengths or movement timings.
- Maintain a professional, calm tone.
- Format responses in Markdown unless JSON is requested.`

// ChatTurn is one entry of caller-supplied conversation history.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=4000"`
}

// Prompt holds the parts of one upstream prompt. Empty parts are omitted.
type Prompt struct {
	Context  string
	Evidence string
	History  []ChatTurn
	Task     string
}

// String concatenates preamble, context, evidence, history and task in that
// order.
func (p Prompt) String() string {
	var b strings.Builder
	b.WriteString(Preamble)

	if p.Context != "" {
		b.WriteString("\n\nContext: ")
		b.WriteString(p.Context)
	}
	if p.Evidence != "" {
		b.WriteString("\n\nExternal Evidence: ")
		b.WriteString(p.Evidence)
	}
	if len(p.History) > 0 {
		b.WriteString("\n\nConversation so far:")
		for _, turn := range p.History {
			b.WriteString("\n")
			b.WriteString(turnLabel(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Content)
		}
	}
	if p.Task != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(p.Task))
	}

	return b.String()
}

func turnLabel(role string) string {
	if role == "assistant" {
		return "Assistant"
	}
	return "User"
}

// Request is immutable once built.
type Request struct {
	Model     string
	Prompt    string
	Streaming bool
}
