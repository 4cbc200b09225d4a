/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"chainguard.dev/rubriceval/rubric"
	"chainguard.dev/rubriceval/rubric/schema"
	"github.com/chainguard-dev/clog"
	"github.com/go-chi/chi/v5"
)

type rubricResp struct {
	Name        string             `json:"name"`
	Criteria    []rubric.Criterion `json:"criteria"`
	TotalWeight float64            `json:"total_weight"`
	MaxPossible float64            `json:"max_possible"`
	Balanced    bool               `json:"balanced"`
}

func newRubricResp(r *rubric.Rubric) rubricResp {
	criteria := r.Criteria
	if criteria == nil {
		criteria = []rubric.Criterion{}
	}
	return rubricResp{
		Name:        r.Name,
		Criteria:    criteria,
		TotalWeight: rubric.TotalWeight(criteria),
		MaxPossible: rubric.MaxPossible(criteria),
		Balanced:    rubric.IsBalanced(criteria),
	}
}

func (s *Server) listRubrics(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"rubrics": names})
}

func (s *Server) getRubric(w http.ResponseWriter, r *http.Request) {
	rb, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRubricResp(rb))
}

func (s *Server) putRubric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var body struct {
		Criteria []rubric.Criterion `json:"criteria"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: decoding rubric: %w", errBadRequest, err))
		return
	}
	rb := &rubric.Rubric{Name: name, Criteria: body.Criteria}
	if err := rb.Validate(); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if err := s.store.Save(r.Context(), rb); err != nil {
		writeError(w, r, err)
		return
	}
	clog.FromContext(r.Context()).With("rubric", name).
		With("criteria", len(rb.Criteria)).
		Info("Saved rubric")
	writeJSON(w, http.StatusOK, newRubricResp(rb))
}

func (s *Server) duplicateRubric(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "name")
	var body struct {
		To string `json:"to"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if err := s.store.Duplicate(r.Context(), from, body.To); err != nil {
		writeError(w, r, err)
		return
	}
	rb, err := s.store.Load(r.Context(), body.To)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRubricResp(rb))
}

func (s *Server) deleteRubric(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) rubricSchema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, schema.Rubric())
}
