package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/thedivinememe/eoq-search-reranker/internal/model"
	"github.com/thedivinememe/eoq-search-reranker/internal/score"
)

type rerankRequest struct {
	Results []model.SearchResult `json:"results"`
}

type interactionRequest struct {
	URL    string                `json:"url,omitempty"`
	Domain string                `json:"domain,omitempty"`
	Kind   model.InteractionKind `json:"kind"`
	Value  float64               `json:"value,omitempty"`
}

type enhancementRequest struct {
	Enabled *bool `json:"enabled"`
}

type failuresResponse struct {
	Stats           model.FailureStats `json:"stats"`
	Recommendations []string           `json:"recommendations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"content_enhancement": s.svc.ContentEnhancement(),
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var result model.SearchResult
	if err := decode(w, r, &result); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(result.URL) == "" && strings.TrimSpace(result.Title) == "" {
		respondError(w, http.StatusBadRequest, "result needs a url or a title")
		return
	}
	respondJSON(w, http.StatusOK, s.svc.ScoreResult(r.Context(), result))
}

func (s *Server) handleRerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case len(req.Results) == 0:
		respondError(w, http.StatusBadRequest, "no results to rerank")
		return
	case len(req.Results) > s.cfg.MaxBatch:
		respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d exceeds the limit of %d", len(req.Results), s.cfg.MaxBatch))
		return
	}
	respondJSON(w, http.StatusOK, s.svc.Rerank(r.Context(), req.Results))
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	target := req.URL
	if target == "" {
		target = req.Domain
	}
	if err := s.svc.RecordInteraction(target, req.Kind, req.Value); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, s.svc.Reputation(target))
}

func (s *Server) handleEnhancement(w http.ResponseWriter, r *http.Request) {
	var req enhancementRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, `missing "enabled"`)
		return
	}
	s.svc.SetContentEnhancement(*req.Enabled)
	respondJSON(w, http.StatusOK, map[string]bool{"enabled": s.svc.ContentEnhancement()})
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	view := s.svc.Reputation(chi.URLParam(r, "domain"))
	if view.Domain == "unknown" {
		respondError(w, http.StatusBadRequest, "invalid domain")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.Stats())
}

func (s *Server) handleFailures(w http.ResponseWriter, _ *http.Request) {
	stats := s.svc.FailureStats()
	recs := score.Recommendations(stats)
	if recs == nil {
		recs = []string{}
	}
	respondJSON(w, http.StatusOK, failuresResponse{Stats: stats, Recommendations: recs})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.SessionStats())
}

func (s *Server) handleReputationStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.ReputationStats())
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
