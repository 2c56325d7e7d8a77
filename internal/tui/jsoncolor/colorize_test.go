package jsoncolor

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/pkg/tuitest"
)

func indented(t *testing.T, in string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Indent(&buf, []byte(in), "", "  "))
	return buf.String()
}

func TestColorize_KeepsIndentedText(t *testing.T) {
	tests := map[string]string{
		"empty object":   `{}`,
		"review summary": `{"summary":"2 issues","score":7.5,"approved":false,"labels":null}`,
		"comments": `{"comments":[{"file":"api/handler.go","line":-1,"severity":"major"},` +
			`{"file":"db/query.go","line":1e3,"severity":"nit"}]}`,
		"escaped quotes": `{"message":"prefer \"errors.Is\" over =="}`,
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, indented(t, in), tuitest.StripANSI(Colorize([]byte(in))))
		})
	}
}

func TestColorize_StylesKeysApartFromValues(t *testing.T) {
	out := Colorize([]byte(`{"severity":"major","line":12,"posted":true,"hint":null}`))

	assert.Contains(t, out, styles.TextPrimaryStyle.Render(`"severity"`))
	assert.Contains(t, out, styles.TextSuccessStyle.Render(`"major"`))
	assert.Contains(t, out, styles.TextWarningStyle.Render("12"))
	assert.Contains(t, out, styles.TextSecondaryStyle.Render("true"))
	assert.Contains(t, out, styles.TextMutedStyle.Render("null"))
}

func TestColorize_InvalidPassesThrough(t *testing.T) {
	for _, in := range []string{`model returned plain text`, `{"truncated":`} {
		assert.Equal(t, in, Colorize([]byte(in)))
	}
}

func TestFindStringEnd(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`"a.go"`, 5},
		{`"say \"hi\""`, 11},
		{`"dir\\"`, 6},
		{`""`, 1},
		{`"unterminated`, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, findStringEnd(tt.in, 0), tt.in)
	}
}

func TestExcerpt(t *testing.T) {
	input := []byte(`{"comments":[{"file":"a.go"},{"file":"b.go"}],"score":7}`)

	assert.Equal(t, Colorize(input), Excerpt(input, 0))
	assert.Equal(t, Colorize(input), Excerpt(input, 100))

	lines := strings.Split(tuitest.StripANSI(Excerpt(input, 3)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "… 8 more lines", lines[3])
}
