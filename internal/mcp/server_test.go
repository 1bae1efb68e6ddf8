package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/names"
	"github.com/ajitpratap0/closetlog/internal/prefs"
	"github.com/ajitpratap0/closetlog/internal/store"
	"github.com/ajitpratap0/closetlog/internal/weather"
)

type stubWeather struct {
	info weather.Info
	err  error
}

func (s *stubWeather) Fetch(context.Context, weather.Coordinates) (weather.Info, error) {
	return s.info, s.err
}

var now = time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)

// newTestServer returns a Server over an in-memory store seeded with three outfits.
func newTestServer(t *testing.T) (*Server, *store.Store, *stubWeather) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p := prefs.NewMemoryStore()
	st := store.New(p, blob.NewMemoryStore(), store.Options{
		Location: time.UTC,
		Clock:    func() time.Time { return now },
		Logger:   logger,
	})
	require.NoError(t, st.Load(ctx))
	for _, o := range []models.Outfit{
		{ID: "parka", Name: "Snow day", Category: "Freezing", ItemNames: []string{"parka", "boots"}, CreatedAt: now.AddDate(0, -2, 0)},
		{ID: "coat", Name: "Commute", Category: "Cold", ItemNames: []string{"wool coat", "boots"}, IsFavorite: true, CreatedAt: now.AddDate(0, -1, 0),
			WearHistory: []time.Time{now.AddDate(0, 0, -3)}},
		{ID: "tee", Name: "Beach", Category: "Hot", ItemNames: []string{"tee"}, CreatedAt: now.AddDate(0, 0, -5)},
	} {
		_, err := st.Add(ctx, o)
		require.NoError(t, err)
	}

	idx := names.New(p, 0, logger)
	require.NoError(t, idx.Rebuild(ctx, st.Snapshot().Outfits))
	require.NoError(t, idx.AddAll(ctx, []string{"boots", "wool coat"}))

	sw := &stubWeather{info: weather.Info{TempMin: -2, TempMax: 3, RecommendedCategory: "Cold"}}
	srv := NewServer(Deps{Store: st, Names: idx, Weather: sw}, logger)
	return srv, st, sw
}

// makeReq builds a CallToolRequest with the given arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func decodeResult(t *testing.T, result *mcpgo.CallToolResult, dst any) {
	t.Helper()
	require.False(t, result.IsError, textContent(t, result))
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), dst))
}

type listResult struct {
	Outfits []outfitSummary `json:"outfits"`
	Matched int             `json:"matched"`
	Total   int             `json:"total"`
}

func TestList_FiltersAndSorts(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	res, err := srv.HandleList(ctx, makeReq("list_outfits", map[string]any{"query": "BOOTS", "sort": "name"}))
	require.NoError(t, err)
	var got listResult
	decodeResult(t, res, &got)
	assert.Equal(t, 2, got.Matched)
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Outfits, 2)
	assert.Equal(t, "Commute", got.Outfits[0].Name)
	assert.Equal(t, "Snow day", got.Outfits[1].Name)

	res, err = srv.HandleList(ctx, makeReq("list_outfits", map[string]any{"categories": "Hot, Cold", "limit": 1}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Equal(t, 2, got.Matched)
	require.Len(t, got.Outfits, 1)
	assert.Equal(t, "coat", got.Outfits[0].ID, "date added order")

	res, err = srv.HandleList(ctx, makeReq("list_outfits", map[string]any{"unworn_only": true}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Equal(t, 2, got.Matched)

	res, err = srv.HandleList(ctx, makeReq("list_outfits", map[string]any{"sort": "colour"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestWearAndUnwear(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()

	var got struct {
		Outfit  outfitSummary `json:"outfit"`
		Changed bool          `json:"changed"`
	}
	res, err := srv.HandleWear(ctx, makeReq("wear_outfit", map[string]any{"id": "tee"}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.True(t, got.Changed)
	assert.True(t, got.Outfit.WornToday)
	assert.Equal(t, 1, got.Outfit.WearCount)

	res, err = srv.HandleWear(ctx, makeReq("wear_outfit", map[string]any{"id": "tee"}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.False(t, got.Changed)

	res, err = srv.HandleUnwear(ctx, makeReq("unwear_outfit", map[string]any{"id": "tee"}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.True(t, got.Changed)
	o, _ := st.Get("tee")
	assert.Zero(t, o.WearCount())
}

func TestWear_Errors(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	res, err := srv.HandleWear(ctx, makeReq("wear_outfit", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = srv.HandleWear(ctx, makeReq("wear_outfit", map[string]any{"id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textContent(t, res), "not found")
}

func TestStats(t *testing.T) {
	srv, _, _ := newTestServer(t)
	res, err := srv.HandleStats(context.Background(), makeReq("wardrobe_stats", nil))
	require.NoError(t, err)

	var report struct {
		Overall struct {
			TotalOutfits int            `json:"totalOutfits"`
			TotalWears   int            `json:"totalWears"`
			MostWorn     *models.Outfit `json:"mostWornOutfit"`
		} `json:"overall"`
	}
	decodeResult(t, res, &report)
	assert.Equal(t, 3, report.Overall.TotalOutfits)
	assert.Equal(t, 1, report.Overall.TotalWears)
	require.NotNil(t, report.Overall.MostWorn)
	assert.Equal(t, "coat", report.Overall.MostWorn.ID)
}

func TestSuggestNames(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	var got struct {
		Names []string `json:"names"`
	}
	res, err := srv.HandleSuggestNames(ctx, makeReq("suggest_item_names", map[string]any{"query": "OO"}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Equal(t, []string{"boots", "wool coat"}, got.Names)

	res, err = srv.HandleSuggestNames(ctx, makeReq("suggest_item_names", map[string]any{}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Equal(t, []string{"wool coat", "boots"}, got.Names, "empty query returns recent names")

	var top struct {
		Names []names.Ranked `json:"names"`
	}
	res, err = srv.HandleSuggestNames(ctx, makeReq("suggest_item_names", map[string]any{"by_frequency": true, "limit": 1}))
	require.NoError(t, err)
	decodeResult(t, res, &top)
	require.Len(t, top.Names, 1)
	assert.Equal(t, names.Ranked{Name: "boots", Count: 3}, top.Names[0])
}

func TestRecommend(t *testing.T) {
	srv, _, sw := newTestServer(t)
	ctx := context.Background()

	var got struct {
		Weather     *weather.Info   `json:"weather"`
		Recommended string          `json:"recommended_category"`
		Outfits     []outfitSummary `json:"outfits"`
	}
	res, err := srv.HandleRecommend(ctx, makeReq("recommend_outfits", map[string]any{"limit": 1}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Equal(t, "Cold", got.Recommended)
	require.NotNil(t, got.Weather)
	require.Len(t, got.Outfits, 1)
	assert.Equal(t, "coat", got.Outfits[0].ID)
	assert.Positive(t, got.Outfits[0].FinalScore)

	sw.err = errors.New("offline")
	got.Weather = nil
	res, err = srv.HandleRecommend(ctx, makeReq("recommend_outfits", map[string]any{"category": "Hot"}))
	require.NoError(t, err)
	decodeResult(t, res, &got)
	assert.Nil(t, got.Weather)
	assert.Equal(t, "Hot", got.Recommended)
	assert.Equal(t, "tee", got.Outfits[0].ID)
}

func TestNilStore(t *testing.T) {
	srv := NewServer(Deps{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	for _, h := range []func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error){
		srv.HandleList, srv.HandleWear, srv.HandleStats, srv.HandleSuggestNames, srv.HandleRecommend,
	} {
		res, err := h(ctx, makeReq("x", map[string]any{"id": "a"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	}
	assert.NotNil(t, srv.MCPServer())
}
