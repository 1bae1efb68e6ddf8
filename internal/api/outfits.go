package api

import (
	"bytes"
	"errors"
	"image/jpeg"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/imageutil"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/search"
	"github.com/ajitpratap0/closetlog/internal/store"
)

// outfitRequest is the body accepted by POST and PATCH /v1/outfits. Absent
// fields are left unchanged on PATCH.
type outfitRequest struct {
	Name       *string   `json:"name"`
	Category   *string   `json:"category"`
	Memo       *string   `json:"memo"`
	ItemNames  *[]string `json:"item_names"`
	IsFavorite *bool     `json:"is_favorite"`
}

// listResponse is returned by GET /v1/outfits.
type listResponse struct {
	Outfits []models.Outfit `json:"outfits"`
	Count   int             `json:"count"`
	Total   int             `json:"total"`
}

// queryFromRequest maps query parameters onto a search.Query:
// q, category (repeatable), favorites, unworn, recent, sort.
func queryFromRequest(r *http.Request) (search.Query, error) {
	v := r.URL.Query()
	sortBy, err := search.ParseSortOption(v.Get("sort"))
	if err != nil {
		return search.Query{}, err
	}
	flag := func(name string) bool {
		b, _ := strconv.ParseBool(v.Get(name))
		return b
	}
	return search.Query{
		Text:             v.Get("q"),
		Categories:       v["category"],
		FavoritesOnly:    flag("favorites"),
		UnwornOnly:       flag("unworn"),
		RecentlyWornOnly: flag("recent"),
		Sort:             sortBy,
	}, nil
}

func (s *Server) handleListOutfits(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := s.Store.Snapshot()
	out := s.Search.Run(snap.Outfits, snap.Revision, q, s.Store.Now())
	s.writeJSON(w, http.StatusOK, listResponse{Outfits: out, Count: len(out), Total: len(snap.Outfits)})
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func (s *Server) handleCreateOutfit(w http.ResponseWriter, r *http.Request) {
	var req outfitRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var o models.Outfit
	if req.Name != nil {
		o.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		o.Category = strings.TrimSpace(*req.Category)
	}
	if req.Memo != nil {
		o.Memo = *req.Memo
	}
	if req.ItemNames != nil {
		o.ItemNames = cleanItems(*req.ItemNames)
	}
	if req.IsFavorite != nil {
		o.IsFavorite = *req.IsFavorite
	}

	if o.Category == "" && s.Classifier != nil {
		o.Category = s.Classifier.Classify(o.Name, o.Memo, o.ItemNames)
	}
	if o.Category != "" && !s.Categories.Contains(o.Category) {
		s.writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	if o.Name == "" && s.Namer != nil {
		if name, err := s.Namer.Suggest(r.Context(), o); err == nil {
			o.Name = name
		}
	}

	added, err := s.Store.Add(r.Context(), o)
	if err != nil {
		s.storeError(w, "failed to save outfit", err)
		return
	}
	if err := s.Names.AddAll(r.Context(), added.ItemNames); err != nil {
		s.logger.Warn("recording item names", "id", added.ID, "error", err)
	}
	s.writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleGetOutfit(w http.ResponseWriter, r *http.Request) {
	o, ok := s.Store.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleUpdateOutfit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	o, ok := s.Store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	var req outfitRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	previous := o.ItemNames
	if req.Name != nil {
		o.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		c := strings.TrimSpace(*req.Category)
		if c != "" && c != o.Category && !s.Categories.Contains(c) {
			s.writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		o.Category = c
	}
	if req.Memo != nil {
		o.Memo = *req.Memo
	}
	if req.ItemNames != nil {
		o.ItemNames = cleanItems(*req.ItemNames)
	}
	if req.IsFavorite != nil {
		o.IsFavorite = *req.IsFavorite
	}

	if err := s.Store.Update(r.Context(), o); err != nil {
		s.storeError(w, "failed to save outfit", err)
		return
	}

	var added []string
	for _, n := range o.ItemNames {
		if !slices.Contains(previous, n) {
			added = append(added, n)
		}
	}
	if err := s.Names.AddAll(r.Context(), added); err != nil {
		s.logger.Warn("recording item names", "id", id, "error", err)
	}

	updated, _ := s.Store.Get(id)
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteOutfit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.storeError(w, "failed to delete outfit", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// wearResponse is returned by the wear endpoints.
type wearResponse struct {
	ID      string `json:"id"`
	Worn    bool   `json:"worn_today"`
	Changed bool   `json:"changed"`
	Wears   int    `json:"wear_count"`
}

func (s *Server) handleWear(w http.ResponseWriter, r *http.Request) {
	s.wear(w, r, true)
}

func (s *Server) handleUnwear(w http.ResponseWriter, r *http.Request) {
	s.wear(w, r, false)
}

func (s *Server) wear(w http.ResponseWriter, r *http.Request, on bool) {
	id := r.PathValue("id")
	if _, ok := s.Store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	op := s.Store.UnwearToday
	if on {
		op = s.Store.WearToday
	}
	changed, err := op(r.Context(), id)
	if err != nil {
		s.storeError(w, "failed to save wear", err)
		return
	}
	o, _ := s.Store.Get(id)
	s.writeJSON(w, http.StatusOK, wearResponse{
		ID:      id,
		Worn:    o.IsWornOn(s.Store.Now(), s.Store.Location()),
		Changed: changed,
		Wears:   o.WearCount(),
	})
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := s.Store.SetFavorite(r.Context(), id, req.Favorite); err != nil {
		s.storeError(w, "failed to save favorite", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": req.Favorite})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	fav, err := s.Store.ToggleFavorite(r.Context(), id)
	if err != nil {
		s.storeError(w, "failed to save favorite", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": fav})
}

func (s *Server) handlePutImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.Store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	ref, err := s.Store.SetImage(r.Context(), id, raw)
	if errors.Is(err, imageutil.ErrUnreadable) {
		s.writeError(w, http.StatusBadRequest, "unsupported image")
		return
	}
	if err != nil {
		s.storeError(w, "failed to save image", err)
		return
	}
	if s.Images != nil {
		s.Images.Invalidate(ref)
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"id": id, "ref": ref})
}

// imageBytes returns the stored image for o: the blob when referenced,
// otherwise legacy inline bytes.
func (s *Server) imageBytes(r *http.Request, o models.Outfit) ([]byte, error) {
	if o.ImageRef == "" {
		if len(o.ImageData) > 0 {
			return o.ImageData, nil
		}
		return nil, blob.ErrNotFound
	}
	return s.Blobs.Load(r.Context(), o.ImageRef)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	o, ok := s.Store.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	data, err := s.imageBytes(r, o)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			s.logger.Warn("image unreadable, serving as missing", "id", o.ID, "ref", o.ImageRef, "error", err)
		}
		s.writeError(w, http.StatusNotFound, "no image")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// handleThumbnail serves a downscaled JPEG through the decode cache. Missing
// or unreadable images yield 404 so clients draw a placeholder.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	o, ok := s.Store.Get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	if s.Images == nil {
		s.writeError(w, http.StatusNotImplemented, "thumbnails disabled")
		return
	}
	img := s.Images.Get(r.Context(), o.ImageRef)
	if img == nil {
		s.writeError(w, http.StatusNotFound, "no image")
		return
	}
	size := min(intParam(r, "size", 128), imageutil.DefaultTargetSize)
	thumb, err := imageutil.Resize(img, size, size)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: imageutil.DefaultQuality}); err != nil {
		s.logger.Error("failed to encode thumbnail", "id", o.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to encode thumbnail")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	o, ok := s.Store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "outfit not found")
		return
	}
	removed, err := s.Store.RemoveImage(r.Context(), id)
	if err != nil {
		s.storeError(w, "failed to remove image", err)
		return
	}
	if s.Images != nil && o.ImageRef != "" {
		s.Images.Invalidate(o.ImageRef)
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

// storeError maps store failures onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicateID):
		s.writeError(w, http.StatusConflict, "outfit already exists")
	default:
		s.logger.Error(msg, "error", err)
		s.writeError(w, http.StatusInternalServerError, msg)
	}
}
