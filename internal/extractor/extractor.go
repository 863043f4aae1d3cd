// Package extractor turns uploaded file bytes into plain text. Extract
// reports failures as *ExtractionError; ExtractText never fails and
// returns a placeholder string instead, for use inside batch loops.
package extractor

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported marks a file type the extractor cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// ExtractionError describes why a file could not be read.
type ExtractionError struct {
	Filename string
	Ext      string
	Err      error
}

func (e *ExtractionError) Error() string {
	if errors.Is(e.Err, ErrUnsupported) {
		return fmt.Sprintf("[Unsupported file type: %s]", e.Ext)
	}
	return fmt.Sprintf("[Error extracting text from %s: %v]", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Ext returns the lowercased extension of filename including the dot.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

var plainExts = map[string]bool{
	".txt":  true,
	".csv":  true,
	".md":   true,
	".json": true,
	".html": true,
	".htm":  true,
}

// Supported reports whether filename has an extension Extract can read.
func Supported(filename string) bool {
	switch ext := Ext(filename); {
	case plainExts[ext]:
		return true
	case ext == ".docx", ext == ".pdf", ext == ".xlsx":
		return true
	}
	return false
}

// Extract dispatches on the lowercased file extension.
func Extract(data []byte, filename string) (string, error) {
	ext := Ext(filename)
	var (
		text string
		err  error
	)
	switch {
	case plainExts[ext]:
		text = decodeUTF8(data)
	case ext == ".docx":
		text, err = extractDOCX(data)
	case ext == ".pdf":
		text, err = extractPDF(data)
	case ext == ".xlsx":
		text, err = extractXLSX(data)
	default:
		err = ErrUnsupported
	}
	if err != nil {
		return "", &ExtractionError{Filename: filename, Ext: ext, Err: err}
	}
	return text, nil
}

// ExtractText is Extract with failures folded into a placeholder string.
func ExtractText(data []byte, filename string) string {
	text, err := Extract(data, filename)
	if err != nil {
		return Placeholder(filename, err)
	}
	return text
}

// Placeholder renders err as the user-facing placeholder for filename.
func Placeholder(filename string, err error) string {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Error()
	}
	return (&ExtractionError{Filename: filename, Ext: Ext(filename), Err: err}).Error()
}

// IsPlaceholder reports whether text is a placeholder produced by this
// package rather than real file content.
func IsPlaceholder(text string) bool {
	return strings.HasPrefix(text, "[Unsupported file type: ") ||
		strings.HasPrefix(text, "[Error extracting text from ")
}

// decodeUTF8 returns data as text, dropping a byte-order mark and
// replacing invalid sequences.
func decodeUTF8(data []byte) string {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
