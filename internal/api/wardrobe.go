package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ajitpratap0/closetlog/internal/analytics"
	"github.com/ajitpratap0/closetlog/internal/category"
	"github.com/ajitpratap0/closetlog/internal/recommend"
	"github.com/ajitpratap0/closetlog/internal/weather"
)

const (
	defaultLeaderboard = 5
	defaultTopNames    = 10
	defaultRecommend   = 5
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.Store.Snapshot()
	report := analytics.Compute(snap.Outfits, s.Store.Now(), s.Store.Location(), intParam(r, "top", defaultLeaderboard))
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSearchNames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"names": s.Names.Search(r.URL.Query().Get("q"))})
}

func (s *Server) handleTopNames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"names": s.Names.TopRecommendations(intParam(r, "n", defaultTopNames))})
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"categories": s.Categories.List()})
}

// categoryRequest is the body accepted by the category endpoints. Cascade on
// rename also relabels outfits filed under the old label.
type categoryRequest struct {
	Label   string `json:"label"`
	Cascade bool   `json:"cascade"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Categories.Add(r.Context(), req.Label); err != nil {
		s.categoryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string][]string{"categories": s.Categories.List()})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	from := r.PathValue("label")
	var req categoryRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Categories.Rename(r.Context(), from, req.Label); err != nil {
		s.categoryError(w, err)
		return
	}
	relabeled := 0
	if req.Cascade {
		n, err := s.Store.RenameCategory(r.Context(), from, strings.TrimSpace(req.Label))
		if err != nil {
			s.storeError(w, "failed to relabel outfits", err)
			return
		}
		relabeled = n
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": s.Categories.List(), "relabeled": relabeled})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.Categories.Remove(r.Context(), r.PathValue("label")); err != nil {
		s.categoryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"categories": s.Categories.List()})
}

func (s *Server) categoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, category.ErrEmpty):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, category.ErrDuplicate):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, category.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("failed to save categories", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save categories")
	}
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if s.Weather == nil {
		s.writeError(w, http.StatusServiceUnavailable, "weather not configured")
		return
	}
	info, err := s.Weather.Fetch(r.Context(), s.At)
	if err != nil {
		s.logger.Warn("weather fetch failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, weather.ErrNoAPIKey) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, "weather unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// recommendResponse is returned by GET /v1/recommendations.
type recommendResponse struct {
	Weather     *weather.Info              `json:"weather,omitempty"`
	Recommended string                     `json:"recommended_category"`
	Outfits     []recommend.Recommendation `json:"outfits"`
}

// handleRecommendations ranks outfits for today. The category query parameter
// overrides the weather; without either, ranking falls back to staleness and
// favorites only.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var resp recommendResponse
	resp.Recommended = r.URL.Query().Get("category")
	if resp.Recommended == "" && s.Weather != nil {
		info, err := s.Weather.Fetch(r.Context(), s.At)
		if err != nil {
			s.logger.Warn("weather fetch failed, ranking without it", "error", err)
		} else {
			resp.Weather = &info
			resp.Recommended = info.RecommendedCategory
		}
	}

	snap := s.Store.Snapshot()
	n := intParam(r, "n", defaultRecommend)
	resp.Outfits = s.Recommender.Top(snap.Outfits, resp.Recommended, s.Store.Now(), s.Store.Location(), n)
	if resp.Outfits == nil {
		resp.Outfits = []recommend.Recommendation{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
