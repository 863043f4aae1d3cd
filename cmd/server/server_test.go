package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/llm"
	"lessonnotes/internal/platform/logger"
	"lessonnotes/internal/store"
)

const computingCSV = "Class,Subject,Strand,Sub-Strand,Content Standard,Indicators\n" +
	"Basic 4,Computing,Intro,Parts,B4.1.1.1: Parts of a computer,Identify input devices\n" +
	"Basic 4,Computing,Intro,Parts,B4.1.1.1: Parts of a computer,Identify output devices\n"

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, req llm.LessonRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	b, _ := json.Marshal(map[string]string{
		"subject":    req.Record.Subject,
		"class":      req.Record.GradeLevel,
		"weekNumber": req.Week,
		"strand":     req.Record.Strand,
	})
	return string(b), nil
}

func newTestServer(t *testing.T, gen llm.Generator) (*Server, *httptest.Server) {
	t.Helper()
	mem := store.NewMemoryStore()
	drafts, err := store.NewFileDraftStore(t.TempDir())
	if err != nil {
		t.Fatalf("draft store: %v", err)
	}
	srv, err := newServer(context.Background(), deps{
		log:        logger.Nop(),
		curriculum: mem,
		scheme:     mem,
		drafts:     drafts,
		generator:  gen,
		policy:     curriculum.PolicyCurriculum,
		batchSize:  2,
	})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func upload(t *testing.T, url, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// ========== Health ==========

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body map[string]interface{}
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" || body["generator"] != false {
		t.Errorf("status=%d body=%v", resp.StatusCode, body)
	}
}

// ========== Extraction ==========

func TestExtract_Upload(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := upload(t, ts.URL+"/api/extract", "notes.txt", "\ufeffhello")
	var body struct {
		Text        string `json:"text"`
		Placeholder bool   `json:"placeholder"`
	}
	decode(t, resp, &body)
	if body.Text != "hello" || body.Placeholder {
		t.Errorf("body = %+v", body)
	}
}

func TestExtract_UnsupportedIsPlaceholder(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := upload(t, ts.URL+"/api/extract", "photo.png", "x")
	var body struct {
		Text        string `json:"text"`
		Placeholder bool   `json:"placeholder"`
	}
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || !body.Placeholder || body.Text != "[Unsupported file type: .png]" {
		t.Errorf("status=%d body=%+v", resp.StatusCode, body)
	}
}

func TestReadLimited_RejectsOversize(t *testing.T) {
	data, err := readLimited(strings.NewReader("12345"), 5)
	if err != nil || string(data) != "12345" {
		t.Fatalf("at limit: data=%q err=%v", data, err)
	}
	_, err = readLimited(strings.NewReader("123456"), 5)
	if !errors.Is(err, errTooLarge) {
		t.Fatalf("err = %v, want errTooLarge", err)
	}
	if got := uploadStatus(fmt.Errorf("big.csv: %w", err)); got != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", got)
	}
	if got := uploadStatus(errors.New("no files uploaded")); got != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", got)
	}
}

// ========== Curriculum ==========

func TestImportCurriculum_ThenSearch(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := upload(t, ts.URL+"/api/curriculum/import", "b4.csv", computingCSV)
	var rep struct {
		Total struct {
			Created int `json:"created"`
			Merged  int `json:"merged"`
		} `json:"total"`
	}
	decode(t, resp, &rep)
	if resp.StatusCode != http.StatusOK || rep.Total.Created != 1 || rep.Total.Merged != 1 {
		t.Fatalf("status=%d report=%+v", resp.StatusCode, rep)
	}

	resp, err := http.Get(ts.URL + "/api/curriculum/search?q=output&grade=B4")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var hits []struct {
		Record curriculum.CurriculumRecord `json:"record"`
	}
	decode(t, resp, &hits)
	if len(hits) != 1 || len(hits[0].Record.LearningIndicators) != 2 {
		t.Errorf("hits = %+v", hits)
	}

	resp, err = http.Get(ts.URL + "/api/curriculum?subject=computing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var rows []curriculum.StoredRecord
	decode(t, resp, &rows)
	if len(rows) != 1 || rows[0].ContentStandards[0] != "B4.1.1.1: Parts of a computer" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestImportCurriculum_AllFilesFail(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := upload(t, ts.URL+"/api/curriculum/import", "bad.csv", "just one line")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

// ========== Scheme ==========

func TestScheme_ImportExport(t *testing.T) {
	_, ts := newTestServer(t, nil)
	csv := "Week,Subject,Class,Resources\nWeek 1,Science,B5,\"chalk, chart\"\n"
	resp := upload(t, ts.URL+"/api/scheme/import", "scheme.csv", csv)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/scheme/export?format=csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	if !strings.HasPrefix(buf.String(), "Week,Week Ending,Term,Subject") {
		t.Errorf("export = %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"Basic 5"`) || !strings.Contains(buf.String(), `"chalk, chart"`) {
		t.Errorf("export row missing: %q", buf.String())
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "scheme-of-learning") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestScheme_ExportUnknownFormat(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/scheme/export?format=pdf")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// ========== Lessons ==========

func TestParseLessons(t *testing.T) {
	_, ts := newTestServer(t, nil)
	text := "```json\n[{\"subject\": \"Science\"}, {\"subject\": \"Computing\"}]\n```"
	resp, err := http.Post(ts.URL+"/api/lessons/parse", "text/plain", strings.NewReader(text))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var body struct {
		Kind    string                      `json:"kind"`
		Lessons []curriculum.LessonDocument `json:"lessons"`
	}
	decode(t, resp, &body)
	if body.Kind != "many" || len(body.Lessons) != 2 {
		t.Errorf("body = %+v", body)
	}
}

func TestParseLessons_Malformed(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/lessons/parse", "text/plain", strings.NewReader("nothing here"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestRenderLessons(t *testing.T) {
	_, ts := newTestServer(t, nil)
	body := `{"lessons": [{"subject": "Religious and Moral Education", "class": "Basic 4", "weekNumber": "Week 2"}]}`
	resp, err := http.Post(ts.URL+"/api/lessons/render", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != docxContentType {
		t.Fatalf("status=%d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "B4-RME-WK2.docx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestGenerateWeek_NotConfigured(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/api/weeks/generate", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestGenerateWeek_FromStoredRecords(t *testing.T) {
	gen := &fakeGenerator{}
	_, ts := newTestServer(t, gen)
	upload(t, ts.URL+"/api/curriculum/import", "b4.csv", computingCSV).Body.Close()

	resp, err := http.Post(ts.URL+"/api/weeks/generate", "application/json",
		strings.NewReader(`{"week": "Week 2", "grade": "Basic 4", "subject": "Computing"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var res struct {
		BatchID    string   `json:"batch_id"`
		Succeeded  int      `json:"succeeded"`
		Files      []string `json:"files"`
		ArchiveURL string   `json:"archive_url"`
	}
	decode(t, resp, &res)
	if res.Succeeded != 1 || res.ArchiveURL == "" || len(res.Files) != 1 {
		t.Fatalf("result = %+v", res)
	}

	resp, err = http.Get(ts.URL + res.ArchiveURL)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "B4-COMP-WK2.docx" {
		t.Errorf("entries = %v", zr.File)
	}
}

func TestGenerateWeek_WebSocket(t *testing.T) {
	gen := &fakeGenerator{}
	_, ts := newTestServer(t, gen)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/weeks/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := map[string]interface{}{
		"week": "Week 1",
		"records": []curriculum.CurriculumRecord{
			{GradeLevel: "Basic 4", Subject: "Computing", ContentStandardCode: "B4.1.1.1"},
			{GradeLevel: "Basic 4", Subject: "Science", ContentStandardCode: "B4.2.1.1"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	var progress int
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "progress" {
			progress++
			continue
		}
		if msg.Type != "done" || msg.Result == nil {
			t.Fatalf("message = %+v", msg)
		}
		if msg.Result.Succeeded != 2 || msg.Result.ArchiveURL == "" {
			t.Errorf("result = %+v", msg.Result)
		}
		break
	}
	if progress != 2 {
		t.Errorf("progress messages = %d, want 2", progress)
	}
}

// ========== Drafts ==========

func TestDrafts_PutGetDelete(t *testing.T) {
	_, ts := newTestServer(t, nil)
	body := `{"scheme": [{"week": "Week 1", "subject": "Science"}]}`
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/drafts/term-1", strings.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/drafts/term-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var d store.Draft
	decode(t, resp, &d)
	if d.ID != "term-1" || len(d.Scheme) != 1 {
		t.Errorf("draft = %+v", d)
	}

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/drafts/term-1", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/drafts/term-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", resp.StatusCode)
	}
}

// ========== lruCache ==========

func TestLRUCache_Evicts(t *testing.T) {
	c := newLRUCache(2, logger.Nop())
	c.put("a", nil)
	c.put("b", nil)
	c.get("a")
	c.put("c", nil)
	if _, ok := c.get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Error("a should still be cached")
	}
}
