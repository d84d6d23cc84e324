package retrieval

import (
	"fmt"
	"strings"

	"github.com/poiesic/docqa/core"
)

// DefaultHistoryWindow is how many prior messages are rendered.
const DefaultHistoryWindow = 3

const roleFraming = "You are a professional document Q&A assistant. " +
	"Answer strictly from the references below and do not cite any other source."

const instructions = `Requirements:
1. Use only the references; do not invent information.
2. Keep the answer clear and concise, using key points where helpful.
3. When citing, include the source or reference number.
4. If the references are insufficient, say so and suggest a next step.`

const outputContract = `Output format (must be followed exactly):
- Output exactly one JSON object. Do not use a code fence or add any explanation.
- Fields:
  {"format":"structured_v1",
   "summary": string,
   "key_points": [string,...],  // answer points only, no sources or references
   "citations": [{"source": string, "snippet": string}, ...]
  }
- Do not output examples or hints; return only the JSON.
- If the references are insufficient, "summary" must say so, "key_points" may be empty and "citations" must be an empty array.`

// PromptInput is everything rendered into a generation prompt.
type PromptInput struct {
	Question string
	Results  []core.SearchResult
	// History is the conversation so far. A trailing user message equal to
	// Question is treated as the in-flight question and skipped.
	History []core.Message
	Profile *core.UserProfile
	// HistoryWindow caps rendered history. Zero means DefaultHistoryWindow;
	// negative disables history.
	HistoryWindow int
}

// AssemblePrompt renders the prompt blocks in a fixed order: role framing,
// profile, history, references, question, instructions, output contract.
func AssemblePrompt(in PromptInput) string {
	parts := []string{roleFraming}

	if line := profileLine(in.Profile); line != "" {
		parts = append(parts, line)
	}

	if lines := HistoryLines(in.History, in.Question, in.HistoryWindow); len(lines) > 0 {
		parts = append(parts, "\nConversation history:")
		parts = append(parts, strings.Join(lines, "\n"))
	}

	if len(in.Results) > 0 {
		parts = append(parts, "\nReferences:")
		for i, r := range in.Results {
			source := ""
			if s := resultSource(r); s != "" {
				source = fmt.Sprintf(" (source: %s)", s)
			}
			parts = append(parts, fmt.Sprintf("%d. %s%s", i+1, r.Document.Content, source))
		}
	}

	parts = append(parts, "\nQuestion: "+in.Question)
	parts = append(parts, "\n"+instructions)
	if in.Profile != nil && in.Profile.Language != "" {
		parts = append(parts, fmt.Sprintf("5. Answer in %s.", in.Profile.Language))
	}
	parts = append(parts, "\n"+outputContract)

	return strings.Join(parts, "\n")
}

// HistoryLines renders the most recent window messages as "User:" and
// "Assistant:" lines, excluding the in-flight question.
func HistoryLines(history []core.Message, question string, window int) []string {
	if window == 0 {
		window = DefaultHistoryWindow
	}
	if window < 0 || len(history) == 0 {
		return nil
	}

	if last := history[len(history)-1]; last.Role == core.RoleUser && last.Content == question {
		history = history[:len(history)-1]
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	lines := make([]string, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case core.RoleUser:
			lines = append(lines, "User: "+m.Content)
		case core.RoleAssistant:
			lines = append(lines, "Assistant: "+m.Content)
		}
	}
	return lines
}

func profileLine(p *core.UserProfile) string {
	if p == nil {
		return ""
	}
	var fields []string
	if p.UserID != "" {
		fields = append(fields, "user_id="+p.UserID)
	}
	if p.Language != "" {
		fields = append(fields, "language="+p.Language)
	}
	if len(fields) == 0 {
		return ""
	}
	return "User profile: " + strings.Join(fields, ", ")
}

func resultSource(r core.SearchResult) string {
	if r.Document.Source != "" {
		return r.Document.Source
	}
	s, _ := r.Document.Metadata["source"].(string)
	return s
}
