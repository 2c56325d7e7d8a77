// Package jsoncolor renders the structured output of review runs as
// indented, theme-colored JSON.
package jsoncolor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/colonyops/sage/internal/core/styles"
)

// Colorize pretty-prints JSON with syntax coloring. Invalid JSON is returned
// unchanged.
func Colorize(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	raw := buf.String()

	var out strings.Builder
	for i := 0; i < len(raw); {
		ch := raw[i]
		switch {
		case ch == '"':
			end := findStringEnd(raw, i)
			str := raw[i : end+1]
			// Keys are followed by a colon.
			if rest := strings.TrimLeft(raw[end+1:], " \t"); strings.HasPrefix(rest, ":") {
				out.WriteString(styles.TextPrimaryStyle.Render(str))
			} else {
				out.WriteString(styles.TextSuccessStyle.Render(str))
			}
			i = end + 1
		case ch == ':':
			out.WriteString(styles.TextMutedStyle.Render(":"))
			i++
		case ch >= '0' && ch <= '9' || ch == '-':
			end := i + 1
			for end < len(raw) && strings.IndexByte("0123456789.eE+-", raw[end]) >= 0 {
				end++
			}
			out.WriteString(styles.TextWarningStyle.Render(raw[i:end]))
			i = end
		case strings.HasPrefix(raw[i:], "true"):
			out.WriteString(styles.TextSecondaryStyle.Render("true"))
			i += 4
		case strings.HasPrefix(raw[i:], "false"):
			out.WriteString(styles.TextSecondaryStyle.Render("false"))
			i += 5
		case strings.HasPrefix(raw[i:], "null"):
			out.WriteString(styles.TextMutedStyle.Render("null"))
			i += 4
		case strings.IndexByte("{}[]", ch) >= 0:
			out.WriteString(styles.TextForegroundStyle.Render(string(ch)))
			i++
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String()
}

// Excerpt colorizes data and keeps at most maxLines lines, noting how many
// were cut. A non-positive maxLines keeps everything.
func Excerpt(data []byte, maxLines int) string {
	out := Colorize(data)
	if maxLines <= 0 {
		return out
	}
	lines := strings.Split(out, "\n")
	if len(lines) <= maxLines {
		return out
	}
	more := len(lines) - maxLines
	lines = append(lines[:maxLines], styles.TextMutedStyle.Render("… "+strconv.Itoa(more)+" more lines"))
	return strings.Join(lines, "\n")
}

// findStringEnd returns the index of the closing quote of the JSON string
// starting at pos.
func findStringEnd(s string, pos int) int {
	for i := pos + 1; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == '"' {
			return i
		}
	}
	return len(s) - 1
}
