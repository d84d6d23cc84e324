package answer

import (
	"encoding/json"
	"strings"

	"github.com/poiesic/docqa/core"
)

// MaxKeyPoints caps the key points kept on either path.
const MaxKeyPoints = 6

// Outcome is the result of the structured parse stage. Answer is only
// meaningful when Parsed is true.
type Outcome struct {
	Parsed bool
	Answer core.StructuredAnswer
}

// Result is the post-processed answer.
type Result struct {
	Answer     string
	Structured core.StructuredAnswer
	Parsed     bool
}

// wireAnswer mirrors the output contract loosely so that wrong field types
// are tolerated instead of failing the whole decode.
type wireAnswer struct {
	Format    string `json:"format"`
	Summary   any    `json:"summary"`
	KeyPoints any    `json:"key_points"`
	Citations any    `json:"citations"`
}

// Process runs Parse and falls back to Extract when no structured answer is
// found. It never fails.
func Process(raw, question string) Result {
	outcome := Parse(raw)
	structured := outcome.Answer
	if !outcome.Parsed {
		structured = Extract(raw)
	}
	structured.Question = question

	return Result{
		Answer:     render(structured),
		Structured: structured,
		Parsed:     outcome.Parsed,
	}
}

// Parse extracts a structured_v1 object from raw model output. A surrounding
// code fence is removed and the text between the first '{' and the last '}'
// is decoded, with one repair attempt for unquoted keys.
func Parse(raw string) Outcome {
	blob, ok := jsonBlock(raw)
	if !ok {
		return Outcome{}
	}

	var wire wireAnswer
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		wire = wireAnswer{}
		if err := json.Unmarshal([]byte(repairJSON(blob)), &wire); err != nil {
			return Outcome{}
		}
	}
	if wire.Format != core.StructuredFormat {
		return Outcome{}
	}

	summary, _ := wire.Summary.(string)
	result := core.StructuredAnswer{
		Format:    core.StructuredFormat,
		Summary:   summary,
		KeyPoints: []string{},
		Citations: []core.Citation{},
		Raw:       raw,
	}

	if points, ok := wire.KeyPoints.([]any); ok {
		for _, p := range points {
			s, ok := p.(string)
			if !ok || !keepPoint(s) {
				continue
			}
			result.KeyPoints = append(result.KeyPoints, strings.TrimSpace(s))
			if len(result.KeyPoints) == MaxKeyPoints {
				break
			}
		}
	}

	citations, _ := wire.Citations.([]any)
	for _, c := range citations {
		fields, ok := c.(map[string]any)
		if !ok {
			continue
		}
		source, sok := fields["source"].(string)
		snippet, pok := fields["snippet"].(string)
		if sok && pok {
			result.Citations = append(result.Citations, core.Citation{Source: source, Snippet: snippet})
		}
	}

	return Outcome{Parsed: true, Answer: result}
}

// Extract derives an answer from free text. The first line is the summary.
// Key points are the list-like lines that pass the point filter, or the
// first filtered lines when none look like list items. Citations are empty.
func Extract(raw string) core.StructuredAnswer {
	var lines []string
	if raw != "" {
		for _, l := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
			lines = append(lines, strings.TrimSpace(l))
		}
	}

	var candidates, bullets []string
	for _, l := range lines {
		if !keepPoint(l) {
			continue
		}
		candidates = append(candidates, l)
		if isListItem(l) {
			bullets = append(bullets, l)
		}
	}

	points := candidates
	if len(bullets) > 0 {
		points = bullets
	}
	if len(points) > MaxKeyPoints {
		points = points[:MaxKeyPoints]
	}
	if points == nil {
		points = []string{}
	}

	summary := ""
	if len(lines) > 0 {
		summary = lines[0]
	}

	return core.StructuredAnswer{
		Format:    core.StructuredFormat,
		Summary:   summary,
		KeyPoints: points,
		Citations: []core.Citation{},
		Raw:       raw,
	}
}

func jsonBlock(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
		// drop the language tag line, e.g. "json"
		if _, rest, found := strings.Cut(cleaned, "\n"); found {
			cleaned = rest
		}
		cleaned = strings.TrimSpace(cleaned)
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

var rejectedPrefixes = []string{"source", "reference", "来源", "参考"}

// keepPoint reports whether a line is a usable answer point. Citation
// lines, quotes, fences and placeholders are rejected.
func keepPoint(text string) bool {
	s := strings.TrimSpace(text)
	if s == "" || strings.HasPrefix(s, ">") || strings.HasPrefix(s, "```") {
		return false
	}
	if s == ":" || s == "：" {
		return false
	}
	lower := strings.ToLower(s)
	for _, prefix := range rejectedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return !strings.Contains(s, "参考资料")
}

func isListItem(s string) bool {
	for _, marker := range []string{"-", "*", "•", "·"} {
		if strings.HasPrefix(s, marker) {
			return true
		}
	}
	return len(s) >= 2 && s[0] >= '1' && s[0] <= '9' && s[1] == '.'
}

func render(a core.StructuredAnswer) string {
	summary := strings.TrimSpace(a.Summary)
	points := strings.Join(a.KeyPoints, "\n")
	switch {
	case summary == "":
		return points
	case points == "":
		return summary
	default:
		return summary + "\n" + points
	}
}
