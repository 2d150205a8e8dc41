// Package textnorm implements label justification for graph elements.
//
// Long labels are soft-wrapped by inserting Graphviz line escapes
// ("\n", "\l", "\r") at word boundaries. The escape letter selects how the
// preceding line is aligned: centered, left or right. Labels are stored with
// those markers embedded, so every comparison between labels goes through
// Normalize, which removes them again.
package textnorm

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Delimiter is the reserved field separator of the flat-file tables.
// It is removed from all user input before storage.
const Delimiter = '§'

// Justification is the alignment applied to wrapped label lines.
type Justification string

const (
	// Center aligns lines on the middle. Marker: \n.
	Center Justification = "center"

	// Left aligns lines on the left edge. Marker: \l.
	Left Justification = "left"

	// Right aligns lines on the right edge. Marker: \r.
	Right Justification = "right"
)

// markers lists every recognized soft-break marker.
var markers = []string{`\n`, `\l`, `\r`}

// ParseJustification accepts the long names and the single-letter forms
// ("n", "l", "r"). "none" is an alias for Center.
func ParseJustification(s string) (Justification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "centre", "none", "n":
		return Center, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return "", fmt.Errorf("unknown justification %q: must be center, left or right", s)
	}
}

// Marker returns the escape inserted at each forced line boundary.
func (j Justification) Marker() string {
	switch j {
	case Left:
		return `\l`
	case Right:
		return `\r`
	default:
		return `\n`
	}
}

// Letter returns the single-letter form used in persisted state ("n", "l", "r").
func (j Justification) Letter() string {
	return j.Marker()[1:]
}

// Valid reports whether j is one of the three known modes.
func (j Justification) Valid() bool {
	return j == Center || j == Left || j == Right
}

// Strip replaces every soft-break marker with a single space.
// Strip is idempotent.
func Strip(text string) string {
	for _, m := range markers {
		text = strings.ReplaceAll(text, m, " ")
	}
	return text
}

// Sanitize removes the table delimiter and raw line breaks from user input.
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if r == Delimiter || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, text)
}

// Normalize returns the comparison key of a label: markers stripped,
// whitespace runs collapsed, outer whitespace trimmed, NFC composed.
//
// Two labels denote the same element iff their Normalize values are equal.
func Normalize(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(Strip(text)), " "))
}

// Wrap soft-wraps text at word boundaries.
//
// The text is trimmed. If it has fewer than budget runes it is returned
// unchanged. Otherwise the first budget runes are taken, the cut is moved
// forward to the next space, and the marker for mode replaces that space.
// The trimmed remainder is processed the same way. When no space follows a
// cut, the remainder is kept whole; words are never split.
//
// A budget below 1 disables wrapping.
func Wrap(text string, budget int, mode Justification) string {
	s := []rune(strings.TrimSpace(text))
	if budget < 1 || len(s) < budget {
		return string(s)
	}

	marker := mode.Marker()
	var b strings.Builder
	start := 0
	for len(s)-start >= budget {
		cut := start + budget
		for cut < len(s) && s[cut] != ' ' {
			cut++
		}
		if cut == len(s) {
			break
		}
		b.WriteString(string(s[start:cut]))
		b.WriteString(marker)
		start = cut
		for start < len(s) && unicode.IsSpace(s[start]) {
			start++
		}
	}
	b.WriteString(string(s[start:]))
	return b.String()
}

// Justify is the single labeling rule applied wherever a label is stored:
// registration, renames and renormalization of both record and style tables.
//
// Existing markers are stripped, the text is trimmed and wrapped. Left and
// right modes also terminate the label with their marker, because Graphviz
// aligns each line by the escape that ends it; center mode does not, since a
// trailing \n would render an empty last line.
func Justify(text string, budget int, mode Justification) string {
	wrapped := Wrap(strings.TrimSpace(Strip(text)), budget, mode)
	if wrapped == "" || mode == Center || !mode.Valid() {
		return wrapped
	}
	return wrapped + mode.Marker()
}
