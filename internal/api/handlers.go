package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paperwire/arxiv-ingest/internal/ingest"
	"github.com/paperwire/arxiv-ingest/internal/runstore"
)

type triggerRequest struct {
	Category    string `json:"category"`
	ProcessDate string `json:"ProcessDate"`
}

type simplifyRequest struct {
	FileURL string `json:"file_url"`
}

// triggerRun starts the ingestion pipeline for a category/date pair
// and returns the run ID with a status URL.
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}
	if req.ProcessDate == "" {
		s.writeError(w, http.StatusBadRequest, "ProcessDate is required in the request body")
		return
	}
	if req.Category == "" {
		req.Category = s.cfg.Feed.DefaultCategory
	}

	runID, err := s.pipeline.Start(r.Context(), ingest.RunInput{
		Category:    req.Category,
		ProcessDate: req.ProcessDate,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("start run: %v", err))
		return
	}

	s.logger.Info("run triggered",
		zap.String("run_id", runID),
		zap.String("category", req.Category),
		zap.String("process_date", req.ProcessDate),
	)
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id":     runID,
		"status_url": "/api/arxiv/status/" + runID,
	})
}

// getRunStatus reports current phase, input, output, and timestamps
// for a run.
func (s *Server) getRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.pipeline.Runs().Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, runstore.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// simplifyAbstract reads a stored article record back from the blob
// store and rewrites its description in plain language.
func (s *Server) simplifyAbstract(w http.ResponseWriter, r *http.Request) {
	var req simplifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is required")
		return
	}
	if req.FileURL == "" {
		s.writeError(w, http.StatusBadRequest, "file_url is required in the request body")
		return
	}

	namespace, key, err := parseObjectLocation(req.FileURL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid file_url: %v", err))
		return
	}

	data, err := s.store.Get(r.Context(), namespace, key)
	if err != nil {
		s.logger.Warn("article record read failed",
			zap.String("file_url", req.FileURL),
			zap.Error(err),
		)
		s.writeError(w, http.StatusNotFound, "failed to read article metadata from the provided URL")
		return
	}
	record, err := ingest.DecodeRecord(data)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "failed to read article metadata from the provided URL")
		return
	}
	if record.Description == "" {
		s.writeError(w, http.StatusBadRequest, "no description found in the article metadata")
		return
	}

	simplified, err := s.simplifier.Simplify(r.Context(), record.Description)
	if err != nil {
		s.logger.Error("simplification failed",
			zap.String("identifier", record.Identifier),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "failed to simplify the description")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":                 "success",
		"simplified_description": simplified,
		"article_metadata":       record,
	})
}

// parseObjectLocation splits a stored-object address into namespace
// and key. Backend URIs (gs://bucket/key, memory://ns/key) carry the
// namespace as the host; HTTP(S) URLs carry it as the first path
// segment after the endpoint host.
func parseObjectLocation(location string) (namespace, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse location: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("expected <endpoint>/<namespace>/<key> form")
		}
		return parts[0], parts[1], nil
	case "":
		return "", "", fmt.Errorf("missing scheme")
	default:
		key = strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("expected <scheme>://<namespace>/<key> form")
		}
		return u.Host, key, nil
	}
}
