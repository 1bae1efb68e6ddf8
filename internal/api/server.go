package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/closetlog/internal/autoname"
	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/category"
	"github.com/ajitpratap0/closetlog/internal/classifier"
	"github.com/ajitpratap0/closetlog/internal/imageutil"
	"github.com/ajitpratap0/closetlog/internal/metrics"
	"github.com/ajitpratap0/closetlog/internal/names"
	"github.com/ajitpratap0/closetlog/internal/recommend"
	"github.com/ajitpratap0/closetlog/internal/search"
	"github.com/ajitpratap0/closetlog/internal/store"
	"github.com/ajitpratap0/closetlog/internal/weather"
)

// maxImageBytes bounds image uploads.
const maxImageBytes = 20 << 20

// Deps are the components the API serves. Weather, Classifier, Namer and
// Images are optional.
type Deps struct {
	Store       *store.Store
	Blobs       blob.Store
	Images      *imageutil.DecodeCache
	Categories  *category.Manager
	Names       *names.Index
	Search      *search.Engine
	Recommender *recommend.Recommender
	Weather     weather.Source
	At          weather.Coordinates
	Classifier  classifier.Classifier
	Namer       autoname.Namer
}

// Server is an HTTP API server that exposes wardrobe operations.
type Server struct {
	Deps
	logger    *slog.Logger
	authToken string // empty = no auth required
}

// NewServer creates a new Server with the given dependencies.
func NewServer(deps Deps, logger *slog.Logger, authToken string) *Server {
	s := &Server{
		Deps:      deps,
		logger:    logger,
		authToken: authToken,
	}
	if s.Images != nil {
		s.Store.Subscribe(func(ev store.Event) {
			if ev.Kind == store.EventDeleted {
				s.Images.Invalidate(blob.RefFor(ev.OutfitID))
			}
		})
	}
	return s
}

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics: no auth required.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /v1/outfits", s.auth(s.handleListOutfits))
	mux.HandleFunc("POST /v1/outfits", s.auth(s.handleCreateOutfit))
	mux.HandleFunc("GET /v1/outfits/{id}", s.auth(s.handleGetOutfit))
	mux.HandleFunc("PATCH /v1/outfits/{id}", s.auth(s.handleUpdateOutfit))
	mux.HandleFunc("DELETE /v1/outfits/{id}", s.auth(s.handleDeleteOutfit))
	mux.HandleFunc("POST /v1/outfits/{id}/wear", s.auth(s.handleWear))
	mux.HandleFunc("DELETE /v1/outfits/{id}/wear", s.auth(s.handleUnwear))
	mux.HandleFunc("PUT /v1/outfits/{id}/favorite", s.auth(s.handleSetFavorite))
	mux.HandleFunc("POST /v1/outfits/{id}/favorite/toggle", s.auth(s.handleToggleFavorite))
	mux.HandleFunc("PUT /v1/outfits/{id}/image", s.auth(s.handlePutImage))
	mux.HandleFunc("GET /v1/outfits/{id}/image", s.auth(s.handleGetImage))
	mux.HandleFunc("GET /v1/outfits/{id}/thumbnail", s.auth(s.handleThumbnail))
	mux.HandleFunc("DELETE /v1/outfits/{id}/image", s.auth(s.handleDeleteImage))

	mux.HandleFunc("GET /v1/stats", s.auth(s.handleStats))
	mux.HandleFunc("GET /v1/names", s.auth(s.handleSearchNames))
	mux.HandleFunc("GET /v1/names/top", s.auth(s.handleTopNames))
	mux.HandleFunc("GET /v1/categories", s.auth(s.handleListCategories))
	mux.HandleFunc("POST /v1/categories", s.auth(s.handleAddCategory))
	mux.HandleFunc("PUT /v1/categories/{label}", s.auth(s.handleRenameCategory))
	mux.HandleFunc("DELETE /v1/categories/{label}", s.auth(s.handleRemoveCategory))
	mux.HandleFunc("GET /v1/weather", s.auth(s.handleWeather))
	mux.HandleFunc("GET /v1/recommendations", s.auth(s.handleRecommendations))

	return mux
}

// --- middleware ---

// auth wraps a handler with Bearer token authentication when authToken is set.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "outfits": s.Store.Len()})
}

// --- helpers ---

// writeJSON encodes v as JSON and writes it to w with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(v); encErr != nil {
		s.logger.Error("failed to encode response", "error", encErr)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body of at most 1 MB into dst.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	return json.NewDecoder(r.Body).Decode(dst)
}

// intParam parses a positive integer query parameter, returning def when it
// is absent or invalid.
func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Shutdown gracefully shuts down an http.Server with the given timeout.
// This is a convenience helper used by the serve command.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
