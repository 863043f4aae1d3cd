package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lessonnotes/internal/store"
)

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.drafts.Load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		jsonErr(w, "draft not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResp(w, d)
}

func (s *Server) handlePutDraft(w http.ResponseWriter, r *http.Request) {
	var d store.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		jsonErr(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	d.ID = chi.URLParam(r, "id")
	if err := s.drafts.Save(r.Context(), &d); err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResp(w, d)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.drafts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		jsonErr(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
