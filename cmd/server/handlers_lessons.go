package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/llm"
	"lessonnotes/internal/notes"
	"lessonnotes/internal/render"
	"lessonnotes/internal/store"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ========== Parse & render ==========

// handleParseLessons accepts raw model output, either as the request body
// or as JSON {"text": ...}.
func (s *Server) handleParseLessons(w http.ResponseWriter, r *http.Request) {
	body, err := readLimited(r.Body, maxUploadBytes)
	if err != nil {
		jsonErr(w, "failed to read body: "+err.Error(), uploadStatus(err))
		return
	}
	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err == nil && req.Text != "" {
			text = req.Text
		}
	}
	parsed, err := llm.ParseLessonJSON(text)
	if err != nil {
		jsonErr(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	jsonResp(w, map[string]interface{}{
		"kind":    parsed.Kind.String(),
		"lessons": parsed.Lessons,
	})
}

func (s *Server) handleRenderLessons(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lessons []curriculum.LessonDocument `json:"lessons"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	art, err := s.renderer.Render(req.Lessons)
	if errors.Is(err, render.ErrNoLessons) {
		jsonErr(w, "no lessons to render", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("render failed", "error", err)
		jsonErr(w, "failed to render document", http.StatusInternalServerError)
		return
	}
	download(w, art.Name, docxContentType, art.Data)
}

// ========== Generation ==========

type lessonRequestBody struct {
	Record     curriculum.CurriculumRecord `json:"record"`
	Term       string                      `json:"term"`
	Week       string                      `json:"week"`
	WeekEnding string                      `json:"week_ending"`
	Day        string                      `json:"day"`
	Duration   string                      `json:"duration"`
	ClassSize  string                      `json:"class_size"`
	Lessons    int                         `json:"lessons"`
}

func (s *Server) handleGenerateLessons(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		jsonErr(w, "lesson generation is not configured", http.StatusServiceUnavailable)
		return
	}
	var req lessonRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	lessons, err := s.notes.GenerateLessons(r.Context(), llm.LessonRequest{
		Record:     req.Record,
		Term:       req.Term,
		Week:       req.Week,
		WeekEnding: req.WeekEnding,
		Day:        req.Day,
		Duration:   req.Duration,
		ClassSize:  req.ClassSize,
		Lessons:    req.Lessons,
	})
	if err != nil {
		jsonErr(w, err.Error(), generationStatus(err))
		return
	}
	jsonResp(w, map[string]interface{}{"lessons": lessons})
}

func generationStatus(err error) int {
	switch {
	case errors.Is(err, llm.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, llm.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, llm.ErrMalformedOutput):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// weekBody is a week request. When Records is empty, the stored records
// matching Grade and Subject are used.
type weekBody struct {
	notes.WeekRequest
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
}

func (s *Server) weekRequest(ctx context.Context, body weekBody) (notes.WeekRequest, error) {
	req := body.WeekRequest
	if len(req.Records) > 0 {
		return req, nil
	}
	if body.Grade == "" && body.Subject == "" {
		return req, notes.ErrNoRecords
	}
	records, err := s.curriculum.ListCurriculum(ctx, store.Filter{GradeLevel: body.Grade, Subject: body.Subject})
	if err != nil {
		return req, err
	}
	req.Records = records
	return req, nil
}

type weekResponse struct {
	*notes.WeekResult
	ArchiveURL string `json:"archive_url,omitempty"`
}

func (s *Server) finishWeek(res *notes.WeekResult) weekResponse {
	out := weekResponse{WeekResult: res}
	if res.Archive != nil {
		s.archives.put(res.BatchID, res.Archive)
		out.ArchiveURL = "/api/weeks/" + res.BatchID + "/archive"
	}
	return out
}

func (s *Server) handleGenerateWeek(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		jsonErr(w, "lesson generation is not configured", http.StatusServiceUnavailable)
		return
	}
	var body weekBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonErr(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	req, err := s.weekRequest(r.Context(), body)
	if err == nil && len(req.Records) == 0 {
		err = notes.ErrNoRecords
	}
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := s.notes.GenerateWeek(r.Context(), req, nil)
	if err != nil {
		s.log.Error("week generation failed", "error", err)
		jsonErr(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Batch-Id", res.BatchID)
	jsonResp(w, s.finishWeek(res))
}

func (s *Server) handleWeekArchive(w http.ResponseWriter, r *http.Request) {
	ar, ok := s.archives.get(chi.URLParam(r, "batchID"))
	if !ok {
		jsonErr(w, "archive not found", http.StatusNotFound)
		return
	}
	download(w, ar.Name, "application/zip", ar.Data)
}

type wsMessage struct {
	Type     string          `json:"type"`
	Progress *notes.Progress `json:"progress,omitempty"`
	Result   *weekResponse   `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// handleGenerateWeekWS runs a week over a websocket. The client sends one
// week request, receives a progress message per finished record and a
// final "done" message. Closing the socket or sending {"type":"cancel"}
// stops records that have not started.
func (s *Server) handleGenerateWeekWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if s.notes == nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: "lesson generation is not configured"})
		return
	}
	var body weekBody
	if err := conn.ReadJSON(&body); err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: "invalid week request"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	req, err := s.weekRequest(ctx, body)
	if err == nil && len(req.Records) == 0 {
		err = notes.ErrNoRecords
	}
	if err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
		return
	}

	go func() {
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				cancel()
				return
			}
			if msg.Type == "cancel" {
				cancel()
			}
		}
	}()

	res, err := s.notes.GenerateWeek(ctx, req, func(p notes.Progress) {
		_ = conn.WriteJSON(wsMessage{Type: "progress", Progress: &p})
	})
	if err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
		return
	}
	out := s.finishWeek(res)
	_ = conn.WriteJSON(wsMessage{Type: "done", Result: &out})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
