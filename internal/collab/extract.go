package collab

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"github.com/roach88/propmap/internal/textnorm"
)

// ErrExtractFailed is returned when no text could be obtained from a file.
var ErrExtractFailed = errors.New("no valid file selected")

// Extractor obtains the plain text of a document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

var blankRuns = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+\n`)

// TextExtractor reads plain-text (.txt) and HTML (.html, .htm) documents.
type TextExtractor struct {
	fs     hackpadfs.FS
	hostFS bool
}

// ExtractorOption configures a TextExtractor.
type ExtractorOption func(*TextExtractor)

// WithExtractorFS reads documents from fsys instead of the host filesystem.
func WithExtractorFS(fsys hackpadfs.FS) ExtractorOption {
	return func(e *TextExtractor) {
		if fsys != nil {
			e.fs = fsys
			e.hostFS = false
		}
	}
}

// NewTextExtractor creates an extractor over the host filesystem.
func NewTextExtractor(opts ...ExtractorOption) *TextExtractor {
	e := &TextExtractor{fs: osfs.NewFS(), hostFS: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the document's text with line endings normalized, the
// table delimiter removed and runs of blank lines collapsed to one.
// Unsupported or unreadable files yield ErrExtractFailed.
func (e *TextExtractor) Extract(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p := fsPath(name)
	if e.hostFS {
		var err error
		if p, err = hostPath(name); err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
		}
	}

	var parse func([]byte) (string, error)
	switch strings.ToLower(path.Ext(p)) {
	case ".txt":
		parse = func(data []byte) (string, error) { return string(data), nil }
	case ".html", ".htm":
		parse = htmlText
	default:
		return "", fmt.Errorf("%w: unsupported file type %q", ErrExtractFailed, path.Ext(p))
	}

	data, err := hackpadfs.ReadFile(e.fs, p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	text, err := parse(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractFailed, err)
	}
	return tidy(text), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()

	var lines []string
	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		lines = append(lines, strings.Split(s.Text(), "\n")...)
	})
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n"), nil
}

func tidy(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, string(textnorm.Delimiter), "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
