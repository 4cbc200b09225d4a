/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/document"
	"chainguard.dev/rubriceval/rubric"
	"chainguard.dev/rubriceval/rubric/store"
	"github.com/chainguard-dev/clog"
	"github.com/go-chi/chi/v5"
)

// roundLine is the final line of a streamed evaluation.
type roundLine struct {
	Type  string              `json:"type"`
	Round *orchestrator.Round `json:"round"`
}

// evaluate scores a document against the named rubric. The document is sent
// either as JSON {"document": "..."} or as a multipart upload in the "file"
// field. With "Accept: application/x-ndjson" progress events are streamed
// before the final round.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	log := clog.FromContext(ctx).With("rubric", name)

	text, err := readDocument(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	criteria, err := s.criteria(r, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := orchestrator.Validate(text, criteria); err != nil {
		writeError(w, r, err)
		return
	}

	names := make([]string, len(criteria))
	for i, c := range criteria {
		names[i] = c.Name
	}
	sinks := []progress.Sink{progress.NewMetrics(name), progress.Log(ctx, names)}

	var stream *progress.Stream
	if acceptsNDJSON(r) {
		w.Header().Set("Content-Type", ndjson)
		w.WriteHeader(http.StatusOK)
		stream = progress.NewStream(w)
		sinks = append(sinks, stream)
	}

	round, err := s.orch.RunRound(ctx, text, criteria, progress.Multi(sinks...))
	if err != nil {
		// Validation already passed, so this is unexpected.
		if stream == nil {
			writeError(w, r, err)
		} else {
			_ = stream.Encode(errResp{Error: err.Error()})
		}
		return
	}
	round.Rubric = name
	log.With("round", round.ID).
		With("weighted_total", round.WeightedTotal).
		Info("Evaluation finished")

	if stream != nil {
		if err := stream.Encode(roundLine{Type: "round", Round: round}); err != nil {
			log.With("error", err.Error()).Warn("Client went away before the round was delivered")
		}
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// criteria loads the rubric's criteria. A corrupt rubric yields no criteria,
// which the orchestrator rejects as invalid input.
func (s *Server) criteria(r *http.Request, name string) ([]rubric.Criterion, error) {
	rb, err := s.store.Load(r.Context(), name)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidName):
		return nil, err
	case err != nil:
		clog.FromContext(r.Context()).With("rubric", name).
			With("error", err.Error()).
			Warn("Rubric could not be loaded, treating it as empty")
		return nil, nil
	}
	return rb.Criteria, nil
}

const maxUpload = document.MaxSize + 1<<20

func readDocument(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}

	switch mediaType {
	case "application/json":
		var body struct {
			Document string `json:"document"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("%w: decoding request: %w", errBadRequest, err)
		}
		return body.Document, nil

	case "multipart/form-data":
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("%w: reading upload: %w", errBadRequest, err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("%w: reading upload: %w", errBadRequest, err)
		}
		text, err := document.Extract(hdr.Filename, data)
		switch {
		case errors.Is(err, document.ErrUnsupported):
			return "", fmt.Errorf("%w: %w", errUnsupportedMedia, err)
		case errors.Is(err, document.ErrNoText):
			return "", fmt.Errorf("%w: %w", orchestrator.ErrEmptyDocument, err)
		case err != nil:
			return "", fmt.Errorf("%w: %w", errBadRequest, err)
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %s", errUnsupportedMedia, mediaType)
}
