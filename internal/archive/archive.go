// Package archive bundles rendered lesson documents into one zip file.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"lessonnotes/internal/render"
)

// ErrEmpty is returned when there is nothing to archive.
var ErrEmpty = errors.New("archive: no documents")

// Document is one file to place in the archive.
type Document struct {
	Name string
	Data []byte
	// LessonID disambiguates documents that share a name.
	LessonID string
	// Class and Week feed the archive name.
	Class string
	Week  string
}

// Result is a built archive.
type Result struct {
	Name  string
	Data  []byte
	Files []string
}

// Build zips docs. A name that is already taken first gets the cleaned
// lesson ID appended, then an increasing number, so the first document
// with a given name keeps it unchanged.
func Build(docs []Document, now time.Time) (*Result, error) {
	if len(docs) == 0 {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := make(map[string]bool, len(docs))
	files := make([]string, 0, len(docs))

	for _, d := range docs {
		name := UniqueName(used, d.Name, d.LessonID)
		used[strings.ToLower(name)] = true
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		if _, err := w.Write(d.Data); err != nil {
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		files = append(files, name)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive close: %w", err)
	}
	return &Result{Name: Name(docs[0], now), Data: buf.Bytes(), Files: files}, nil
}

// UniqueName returns a name not present in used (keys are lowercased).
func UniqueName(used map[string]bool, name, lessonID string) string {
	if name == "" {
		name = "lesson.docx"
	}
	if !used[strings.ToLower(name)] {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if id := CleanID(lessonID); id != "" {
		base = base + "-" + id
		if candidate := base + ext; !used[strings.ToLower(candidate)] {
			return candidate
		}
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n) + ext
		if !used[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// CleanID reduces an identifier to letters, digits and single hyphens.
func CleanID(id string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			sb.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(sb.String(), "-")
}

// Name derives "{ClassAbbr}_{WeekAbbr}.zip" from the first document, or a
// dated generic name when class or week is missing.
func Name(first Document, now time.Time) string {
	class := render.ClassAbbr(first.Class)
	week := render.WeekAbbr(first.Week)
	if class == "" || week == "" {
		return "lesson-notes-" + now.Format("2006-01-02") + ".zip"
	}
	return class + "_" + week + ".zip"
}
