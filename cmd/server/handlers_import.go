package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"lessonnotes/internal/catalog"
	"lessonnotes/internal/export"
	"lessonnotes/internal/extractor"
	"lessonnotes/internal/importer"
	"lessonnotes/internal/mapper"
	"lessonnotes/internal/store"
)

// ========== Extraction ==========

// handleExtract returns the text of an uploaded file, or of a remote file
// when the body is JSON {"url": ..., "filename": ...}. Failures come back
// as placeholder text with status 200 so callers can keep going.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var name, text string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			URL      string `json:"url"`
			Filename string `json:"filename"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			jsonErr(w, "url is required", http.StatusBadRequest)
			return
		}
		name = req.Filename
		if name == "" {
			name = req.URL
		}
		text = extractor.Fetch(r.Context(), s.fetchClient, req.URL, name)
	} else {
		files, err := uploadedFiles(r)
		if err != nil {
			jsonErr(w, err.Error(), uploadStatus(err))
			return
		}
		name = files[0].Name
		text = extractor.ExtractText(files[0].Data, name)
	}
	placeholder := extractor.IsPlaceholder(text)
	if placeholder {
		s.log.Warn("extraction failed", "file", name, "result", text)
	}
	jsonResp(w, map[string]interface{}{
		"filename":    name,
		"text":        text,
		"placeholder": placeholder,
	})
}

var errTooLarge = fmt.Errorf("file exceeds %d bytes", maxUploadBytes)

// readLimited reads r in full and fails with errTooLarge past limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errTooLarge
	}
	return data, nil
}

func uploadStatus(err error) int {
	if errors.Is(err, errTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// uploadedFiles reads every file under the "files" or "file" form keys.
func uploadedFiles(r *http.Request) ([]importer.File, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, errors.New("failed to parse upload: " + err.Error())
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, errors.New("no files uploaded")
	}
	files := make([]importer.File, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := readLimited(src, maxUploadBytes)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		files = append(files, importer.File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

// ========== Curriculum ==========

func (s *Server) handleImportCurriculum(w http.ResponseWriter, r *http.Request) {
	files, err := uploadedFiles(r)
	if err != nil {
		jsonErr(w, err.Error(), uploadStatus(err))
		return
	}
	opts := mapper.Options{
		Subject:  strings.TrimSpace(r.FormValue("subject")),
		IsPublic: s.public,
	}
	if v := r.FormValue("public"); v != "" {
		opts.IsPublic, _ = strconv.ParseBool(v)
	}

	total, perFile, err := s.importer.ImportCurriculumFiles(r.Context(), files, opts)
	if err != nil {
		s.log.Error("curriculum import failed", "error", err)
		jsonErr(w, "failed to save curriculum", http.StatusInternalServerError)
		return
	}
	if len(total.Failed) == len(files) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"total": total, "files": perFile})
		return
	}
	if err := s.refreshCatalog(r); err != nil {
		s.log.Warn("catalog refresh failed", "error", err)
	}
	jsonResp(w, map[string]interface{}{"total": total, "files": perFile})
}

func (s *Server) refreshCatalog(r *http.Request) error {
	records, err := s.curriculum.ListCurriculum(r.Context(), store.Filter{})
	if err != nil {
		return err
	}
	return s.catalog.Add(records...)
}

func (s *Server) handleListCurriculum(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := s.curriculum.ListCurriculum(r.Context(), store.Filter{
		GradeLevel: q.Get("grade"),
		Subject:    q.Get("subject"),
	})
	if err != nil {
		s.log.Error("list curriculum failed", "error", err)
		jsonErr(w, "failed to load curriculum", http.StatusInternalServerError)
		return
	}
	rows := make([]interface{}, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	jsonResp(w, rows)
}

func (s *Server) handleSearchCurriculum(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	hits, err := s.catalog.Search(r.Context(), catalog.Query{
		Text:       q.Get("q"),
		GradeLevel: q.Get("grade"),
		Subject:    q.Get("subject"),
		Limit:      limit,
	})
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	if hits == nil {
		hits = []catalog.Hit{}
	}
	jsonResp(w, hits)
}

// ========== Scheme of learning ==========

func (s *Server) handleImportScheme(w http.ResponseWriter, r *http.Request) {
	files, err := uploadedFiles(r)
	if err != nil {
		jsonErr(w, err.Error(), uploadStatus(err))
		return
	}
	rep, err := s.importer.ImportScheme(r.Context(), files[0])
	var pe *importer.ParseError
	switch {
	case errors.As(err, &pe):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(rep)
		return
	case err != nil:
		s.log.Error("scheme import failed", "error", err)
		jsonErr(w, "failed to save scheme", http.StatusInternalServerError)
		return
	}
	jsonResp(w, rep)
}

func (s *Server) handleListScheme(w http.ResponseWriter, r *http.Request) {
	items, err := s.scheme.ListScheme(r.Context())
	if err != nil {
		s.log.Error("list scheme failed", "error", err)
		jsonErr(w, "failed to load scheme", http.StatusInternalServerError)
		return
	}
	jsonResp(w, items)
}

func (s *Server) handleExportScheme(w http.ResponseWriter, r *http.Request) {
	items, err := s.scheme.ListScheme(r.Context())
	if err != nil {
		s.log.Error("list scheme failed", "error", err)
		jsonErr(w, "failed to load scheme", http.StatusInternalServerError)
		return
	}
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		download(w, export.Filename(items, "csv"), export.CSVContentType, export.CSV(items))
	case "xlsx":
		data, err := export.XLSX(items)
		if err != nil {
			s.log.Error("xlsx export failed", "error", err)
			jsonErr(w, "failed to build workbook", http.StatusInternalServerError)
			return
		}
		download(w, export.Filename(items, "xlsx"), export.XLSXContentType, data)
	default:
		jsonErr(w, "unknown format: "+format, http.StatusBadRequest)
	}
}

func (s *Server) handleSchemeTemplate(w http.ResponseWriter, r *http.Request) {
	download(w, "scheme-of-learning-template.csv", export.CSVContentType, export.Template())
}
