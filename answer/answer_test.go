package answer

import (
	"testing"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_Structured(t *testing.T) {
	raw := `{"format":"structured_v1","summary":"S","key_points":["A","B"],"citations":[]}`
	res := Process(raw, "what?")

	assert.True(t, res.Parsed)
	assert.Equal(t, "S\nA\nB", res.Answer)
	assert.Equal(t, "S", res.Structured.Summary)
	assert.Equal(t, []string{"A", "B"}, res.Structured.KeyPoints)
	assert.Empty(t, res.Structured.Citations)
	assert.Equal(t, raw, res.Structured.Raw)
	assert.Equal(t, "what?", res.Structured.Question)
	assert.Equal(t, core.StructuredFormat, res.Structured.Format)
}

func TestProcess_Fallback(t *testing.T) {
	res := Process("来源: foo\n- 要点一\n- 要点二", "q")

	assert.False(t, res.Parsed)
	assert.Equal(t, []string{"- 要点一", "- 要点二"}, res.Structured.KeyPoints)
	assert.Equal(t, "来源: foo", res.Structured.Summary)
	assert.Empty(t, res.Structured.Citations)
	assert.Equal(t, "来源: foo\n- 要点一\n- 要点二", res.Answer)
}

func TestParse(t *testing.T) {
	t.Run("code fence and surrounding prose", func(t *testing.T) {
		raw := "```json\n{\"format\":\"structured_v1\",\"summary\":\"ok\",\"key_points\":[],\"citations\":[]}\n```"
		out := Parse(raw)
		require.True(t, out.Parsed)
		assert.Equal(t, "ok", out.Answer.Summary)

		out = Parse(`Here you go: {"format":"structured_v1","summary":"inline"} thanks`)
		require.True(t, out.Parsed)
		assert.Equal(t, "inline", out.Answer.Summary)
	})

	t.Run("wrong format tag", func(t *testing.T) {
		assert.False(t, Parse(`{"format":"v2","summary":"S"}`).Parsed)
		assert.False(t, Parse(`{"summary":"S"}`).Parsed)
	})

	t.Run("no object", func(t *testing.T) {
		assert.False(t, Parse("plain text").Parsed)
		assert.False(t, Parse("} before {").Parsed)
		assert.False(t, Parse("").Parsed)
	})

	t.Run("points are filtered and capped", func(t *testing.T) {
		raw := `{"format":"structured_v1","summary":"S","key_points":[
			" one ", "", "> quoted", "Source: a.md", "References: b", "参考资料见上", "来源 x",
			"` + "```" + `", ":", 7, "two", "three", "four", "five", "six", "seven"],"citations":[]}`
		out := Parse(raw)
		require.True(t, out.Parsed)
		assert.Equal(t, []string{"one", "two", "three", "four", "five", "six"}, out.Answer.KeyPoints)
	})

	t.Run("non-list key points", func(t *testing.T) {
		out := Parse(`{"format":"structured_v1","summary":"S","key_points":"A"}`)
		require.True(t, out.Parsed)
		assert.Empty(t, out.Answer.KeyPoints)
	})

	t.Run("citations need string source and snippet", func(t *testing.T) {
		out := Parse(`{"format":"structured_v1","summary":"S","key_points":[],"citations":[
			{"source":"a.md","snippet":"x"},
			{"source":"b.md"},
			{"source":1,"snippet":"y"},
			"c.md"]}`)
		require.True(t, out.Parsed)
		assert.Equal(t, []core.Citation{{Source: "a.md", Snippet: "x"}}, out.Answer.Citations)
	})

	t.Run("non-list citations keep the structured path", func(t *testing.T) {
		for _, citations := range []string{`"none"`, `{"source":"a.md","snippet":"x"}`, `null`, `3`} {
			raw := `{"format":"structured_v1","summary":"S","key_points":["A","B"],"citations":` + citations + `}`
			out := Process(raw, "q")
			require.True(t, out.Parsed, citations)
			assert.Equal(t, "S\nA\nB", out.Answer, citations)
			assert.Empty(t, out.Structured.Citations, citations)
		}
	})

	t.Run("missing key quote is repaired", func(t *testing.T) {
		out := Parse(`{"format":"structured_v1", summary":"fixed","key_points":["A"]}`)
		require.True(t, out.Parsed)
		assert.Equal(t, "fixed", out.Answer.Summary)
		assert.Equal(t, []string{"A"}, out.Answer.KeyPoints)
	})
}

func TestExtract(t *testing.T) {
	t.Run("plain lines", func(t *testing.T) {
		a := Extract("S\nA\nB")
		assert.Equal(t, "S", a.Summary)
		assert.Equal(t, []string{"S", "A", "B"}, a.KeyPoints)
	})

	t.Run("list markers win", func(t *testing.T) {
		a := Extract("Summary\n1. first\nnoise\n* second\n• third\n· fourth")
		assert.Equal(t, []string{"1. first", "* second", "• third", "· fourth"}, a.KeyPoints)
	})

	t.Run("cap", func(t *testing.T) {
		a := Extract("a\nb\nc\nd\ne\nf\ng\nh")
		assert.Len(t, a.KeyPoints, MaxKeyPoints)
	})

	t.Run("empty", func(t *testing.T) {
		a := Extract("")
		assert.Equal(t, "", a.Summary)
		assert.Empty(t, a.KeyPoints)
		assert.Equal(t, "", render(a))
	})
}

func TestRender(t *testing.T) {
	assert.Equal(t, "S", render(core.StructuredAnswer{Summary: "S"}))
	assert.Equal(t, "A\nB", render(core.StructuredAnswer{KeyPoints: []string{"A", "B"}}))
	assert.Equal(t, "S\nA", render(core.StructuredAnswer{Summary: " S ", KeyPoints: []string{"A"}}))
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing quote after comma", `{"a":1, type":"x"}`, `{"a":1, "type":"x"}`},
		{"missing quote after brace", `{summary":"s"}`, `{"summary":"s"}`},
		{"valid input untouched", `{"a":[1,2],"b":true}`, `{"a":[1,2],"b":true}`},
		{"bare literal untouched", `{"a":1,true}`, `{"a":1,true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}
