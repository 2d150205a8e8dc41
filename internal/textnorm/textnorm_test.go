package textnorm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_QuickBrownFoxLeft(t *testing.T) {
	got := Wrap("The quick brown fox jumps", 10, Left)

	assert.Equal(t, `The quick brown\lfox jumps`, got)

	segments := strings.Split(got, `\l`)
	require.Len(t, segments, 2)
	assert.GreaterOrEqual(t, len([]rune(segments[0])), 10, "break never happens before the budget")
	assert.NotContains(t, segments[1], `\`, "final segment carries no marker")
}

func TestWrap_ShorterThanBudgetUnchanged(t *testing.T) {
	assert.Equal(t, "Cat", Wrap("  Cat  ", 25, Center))
	assert.Equal(t, "exactly25charactersinword", Wrap("exactly25charactersinword", 25, Left))
}

func TestWrap_NoSpaceAfterCut(t *testing.T) {
	// The only space is before the cut point: nothing to break on.
	assert.Equal(t, "ab cdefghijklmnop", Wrap("ab cdefghijklmnop", 5, Right))
}

func TestWrap_MultipleBreaks(t *testing.T) {
	got := Wrap("one two three four five six", 5, Center)
	assert.Equal(t, `one two\nthree\nfour five\nsix`, got)
}

func TestWrap_NonPositiveBudget(t *testing.T) {
	assert.Equal(t, "a b c", Wrap(" a b c ", 0, Left))
}

func TestWrap_CountsRunes(t *testing.T) {
	// Seven runes, nine bytes: still below a budget of eight.
	assert.Equal(t, "ñandú á", Wrap("ñandú á", 8, Left))
	assert.Equal(t, `ñandú\lá`, Wrap("ñandú á", 3, Left))
}

func TestWrap_LongLabelIsIterative(t *testing.T) {
	long := strings.Repeat("word ", 20000)
	got := Wrap(long, 4, Left)
	assert.Equal(t, 19999, strings.Count(got, `\l`))
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "a b c d", Strip(`a\nb\lc\rd`))
	assert.Equal(t, Strip(`a\nb`), Strip(Strip(`a\nb`)), "idempotent")
	assert.Equal(t, "no markers", Strip("no markers"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "CatFish", Sanitize("Cat§\r\nFish"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "big red cat", Normalize(`  big\lred   cat\l`))
	// NFC: decomposed "é" compares equal to the precomposed form.
	assert.Equal(t, Normalize("caf\u00e9"), Normalize("cafe\u0301"))
}

func TestJustify_TrailingMarkerRule(t *testing.T) {
	text := "The quick brown fox jumps"

	assert.Equal(t, `The quick brown\nfox jumps`, Justify(text, 10, Center))
	assert.Equal(t, `The quick brown\lfox jumps\l`, Justify(text, 10, Left))
	assert.Equal(t, `The quick brown\rfox jumps\r`, Justify(text, 10, Right))

	// Short labels follow the same rule.
	assert.Equal(t, "Cat", Justify("Cat", 25, Center))
	assert.Equal(t, `Cat\l`, Justify("Cat", 25, Left))
	assert.Equal(t, "", Justify("   ", 25, Left))
}

func TestJustify_ReplacesExistingMarkers(t *testing.T) {
	left := Justify("The quick brown fox jumps", 10, Left)
	assert.Equal(t, `The quick brown\rfox jumps\r`, Justify(left, 10, Right))
	assert.Equal(t, "The quick brown fox jumps", Justify(left, 100, Center))
}

func TestProperty_NormalizeWrapRoundTrip(t *testing.T) {
	texts := []string{
		"",
		"Cat",
		"The quick brown fox jumps",
		"  padded   with  irregular    spacing and some more words  ",
		"averyveryverylongwordwithoutanyspaces and then short",
		"ñandú corre por la pampa argentina al atardecer",
	}
	modes := []Justification{Center, Left, Right}

	for _, text := range texts {
		for n := 1; n <= 30; n++ {
			for _, m := range modes {
				assert.Equal(t, Normalize(text), Normalize(Wrap(text, n, m)), "wrap %q n=%d %s", text, n, m)
				assert.Equal(t, Normalize(text), Normalize(Justify(text, n, m)), "justify %q n=%d %s", text, n, m)
			}
		}
	}
}

func TestProperty_RewrapIdempotent(t *testing.T) {
	texts := []string{
		"The quick brown fox jumps over the lazy dog",
		"short",
		"two  spaces  between words in this label",
	}
	for _, text := range texts {
		for n := 1; n <= 20; n++ {
			for _, m := range []Justification{Center, Left, Right} {
				once := Justify(text, n, m)
				assert.Equal(t, once, Justify(Strip(once), n, m), "%q n=%d %s", text, n, m)
				assert.Equal(t, once, Justify(once, n, m), "%q n=%d %s", text, n, m)
			}
		}
	}
}

func TestParseJustification(t *testing.T) {
	tests := []struct {
		in   string
		want Justification
	}{
		{"n", Center},
		{"none", Center},
		{"Center", Center},
		{"l", Left},
		{"LEFT", Left},
		{"r", Right},
		{" right ", Right},
	}
	for _, tt := range tests {
		got, err := ParseJustification(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseJustification("justify")
	assert.Error(t, err)
}

func TestJustification_Letter(t *testing.T) {
	assert.Equal(t, "n", Center.Letter())
	assert.Equal(t, "l", Left.Letter())
	assert.Equal(t, "r", Right.Letter())
}
