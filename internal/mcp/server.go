// Package mcp implements the Model Context Protocol server for closetlog.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ajitpratap0/closetlog/internal/analytics"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/names"
	"github.com/ajitpratap0/closetlog/internal/recommend"
	"github.com/ajitpratap0/closetlog/internal/search"
	"github.com/ajitpratap0/closetlog/internal/store"
	"github.com/ajitpratap0/closetlog/internal/weather"
)

const (
	// defaultListLimit is the default number of outfits returned by list_outfits.
	defaultListLimit = 20

	// defaultSuggestLimit caps suggest_item_names results.
	defaultSuggestLimit = 10

	// defaultRecommendLimit is the default number of recommendations.
	defaultRecommendLimit = 3

	// defaultLeaderboard is the leaderboard length in wardrobe_stats.
	defaultLeaderboard = 5
)

// Deps are the components the tools operate on. Weather is optional.
type Deps struct {
	Store       *store.Store
	Names       *names.Index
	Search      *search.Engine
	Recommender *recommend.Recommender
	Weather     weather.Source
	At          weather.Coordinates
}

// Server wraps an MCPServer with closetlog dependencies.
type Server struct {
	mcp    *mcpserver.MCPServer
	deps   Deps
	logger *slog.Logger
}

// NewServer creates a new MCP server. If the store is nil, tool calls return
// an error response instead of panicking.
func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{deps: deps, logger: logger}
	if s.deps.Recommender == nil {
		s.deps.Recommender = recommend.NewRecommender(recommend.DefaultWeights(), logger)
	}
	if s.deps.Search == nil && deps.Store != nil {
		s.deps.Search = search.NewEngine(search.Options{}, deps.Store.Location())
	}

	mcpSrv := mcpserver.NewMCPServer(
		"closetlog",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildListTool(), s.handleList)
	mcpSrv.AddTool(buildWearTool(), s.handleWear)
	mcpSrv.AddTool(buildUnwearTool(), s.handleUnwear)
	mcpSrv.AddTool(buildStatsTool(), s.handleStats)
	mcpSrv.AddTool(buildSuggestNamesTool(), s.handleSuggestNames)
	mcpSrv.AddTool(buildRecommendTool(), s.handleRecommend)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// HandleList is the exported handler for the "list_outfits" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandleList(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleList(ctx, req)
}

// HandleWear is the exported handler for the "wear_outfit" tool.
func (s *Server) HandleWear(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleWear(ctx, req)
}

// HandleUnwear is the exported handler for the "unwear_outfit" tool.
func (s *Server) HandleUnwear(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUnwear(ctx, req)
}

// HandleStats is the exported handler for the "wardrobe_stats" tool.
func (s *Server) HandleStats(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleStats(ctx, req)
}

// HandleSuggestNames is the exported handler for the "suggest_item_names" tool.
func (s *Server) HandleSuggestNames(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleSuggestNames(ctx, req)
}

// HandleRecommend is the exported handler for the "recommend_outfits" tool.
func (s *Server) HandleRecommend(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRecommend(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// outfitSummary is the compact outfit shape returned to agents. Image bytes
// and full wear history are left out.
type outfitSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category,omitempty"`
	ItemNames  []string   `json:"item_names,omitempty"`
	Memo       string     `json:"memo,omitempty"`
	Favorite   bool       `json:"favorite,omitempty"`
	WearCount  int        `json:"wear_count"`
	LastWorn   *time.Time `json:"last_worn,omitempty"`
	HasImage   bool       `json:"has_image,omitempty"`
	WornToday  bool       `json:"worn_today,omitempty"`
	FinalScore float64    `json:"score,omitempty"`
}

func (s *Server) summarize(o *models.Outfit) outfitSummary {
	sum := outfitSummary{
		ID:        o.ID,
		Name:      o.Name,
		Category:  o.Category,
		ItemNames: o.ItemNames,
		Memo:      o.Memo,
		Favorite:  o.IsFavorite,
		WearCount: o.WearCount(),
		HasImage:  o.ImageRef != "" || len(o.ImageData) > 0,
		WornToday: o.IsWornOn(s.deps.Store.Now(), s.deps.Store.Location()),
	}
	if last, ok := o.LastWorn(); ok {
		sum.LastWorn = &last
	}
	return sum
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// --- tool definitions ---

func buildListTool() mcpgo.Tool {
	return mcpgo.NewTool("list_outfits",
		mcpgo.WithDescription("List saved outfits with optional text search, filters and sort order."),
		mcpgo.WithString("query",
			mcpgo.Description("Case-insensitive text matched against name, category, memo and item names"),
		),
		mcpgo.WithString("categories",
			mcpgo.Description("Comma-separated category labels to include"),
		),
		mcpgo.WithBoolean("favorites_only",
			mcpgo.Description("Only favorite outfits"),
		),
		mcpgo.WithBoolean("unworn_only",
			mcpgo.Description("Only outfits never worn"),
		),
		mcpgo.WithBoolean("recently_worn_only",
			mcpgo.Description("Only outfits worn in the last 7 days"),
		),
		mcpgo.WithString("sort",
			mcpgo.Description("Sort order: date_added, name, category, wear_count, last_worn (default: date_added)"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of outfits (default: 20)"),
		),
	)
}

func buildWearTool() mcpgo.Tool {
	return mcpgo.NewTool("wear_outfit",
		mcpgo.WithDescription("Record that an outfit is worn today. Repeated calls on the same day have no effect."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the outfit"),
		),
	)
}

func buildUnwearTool() mcpgo.Tool {
	return mcpgo.NewTool("unwear_outfit",
		mcpgo.WithDescription("Remove today's wear record for an outfit."),
		mcpgo.WithString("id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the outfit"),
		),
	)
}

func buildStatsTool() mcpgo.Tool {
	return mcpgo.NewTool("wardrobe_stats",
		mcpgo.WithDescription("Wardrobe analytics: totals, utilization, wear frequency bands, most worn, seasonal trends and unused outfits."),
		mcpgo.WithNumber("top",
			mcpgo.Description("Leaderboard length (default: 5)"),
		),
	)
}

func buildSuggestNamesTool() mcpgo.Tool {
	return mcpgo.NewTool("suggest_item_names",
		mcpgo.WithDescription("Suggest clothing item names previously used. Without a query, returns recently used names."),
		mcpgo.WithString("query",
			mcpgo.Description("Case-insensitive substring to match"),
		),
		mcpgo.WithBoolean("by_frequency",
			mcpgo.Description("Return the most frequently used names instead of searching"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of names (default: 10)"),
		),
	)
}

func buildRecommendTool() mcpgo.Tool {
	return mcpgo.NewTool("recommend_outfits",
		mcpgo.WithDescription("Recommend outfits for today using the weather forecast, staleness, favorites and wear frequency."),
		mcpgo.WithString("category",
			mcpgo.Description("Temperature category to target instead of today's weather"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Number of outfits (default: 3)"),
		),
	)
}

// --- tool handlers ---

// handleList filters and sorts the collection.
func (s *Server) handleList(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Store == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	sortBy, err := search.ParseSortOption(req.GetString("sort", ""))
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	q := search.Query{
		Text:             req.GetString("query", ""),
		Categories:       splitList(req.GetString("categories", "")),
		FavoritesOnly:    req.GetBool("favorites_only", false),
		UnwornOnly:       req.GetBool("unworn_only", false),
		RecentlyWornOnly: req.GetBool("recently_worn_only", false),
		Sort:             sortBy,
	}
	limit := req.GetInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}

	snap := s.deps.Store.Snapshot()
	matched := s.deps.Search.Run(snap.Outfits, snap.Revision, q, s.deps.Store.Now())

	out := make([]outfitSummary, 0, min(limit, len(matched)))
	for i := range matched {
		if len(out) == limit {
			break
		}
		out = append(out, s.summarize(&matched[i]))
	}

	return toolResultJSON(map[string]any{
		"outfits": out,
		"matched": len(matched),
		"total":   len(snap.Outfits),
	})
}

func (s *Server) handleWear(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.wear(ctx, req, true)
}

func (s *Server) handleUnwear(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.wear(ctx, req, false)
}

func (s *Server) wear(ctx context.Context, req mcpgo.CallToolRequest, on bool) (*mcpgo.CallToolResult, error) {
	if s.deps.Store == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}

	id := req.GetString("id", "")
	if strings.TrimSpace(id) == "" {
		return mcpgo.NewToolResultError("id is required and must not be empty"), nil
	}
	if _, ok := s.deps.Store.Get(id); !ok {
		return mcpgo.NewToolResultErrorf("outfit %q not found", id), nil
	}

	op := s.deps.Store.UnwearToday
	if on {
		op = s.deps.Store.WearToday
	}
	changed, err := op(ctx, id)
	if err != nil {
		return mcpgo.NewToolResultErrorf("saving wear failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: wear updated", "id", id, "worn", on, "changed", changed)

	o, _ := s.deps.Store.Get(id)
	return toolResultJSON(map[string]any{
		"outfit":  s.summarize(&o),
		"changed": changed,
	})
}

// handleStats returns the analytics report.
func (s *Server) handleStats(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Store == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	top := req.GetInt("top", defaultLeaderboard)
	if top <= 0 {
		top = defaultLeaderboard
	}
	snap := s.deps.Store.Snapshot()
	return toolResultJSON(analytics.Compute(snap.Outfits, s.deps.Store.Now(), s.deps.Store.Location(), top))
}

// handleSuggestNames searches the item-name index.
func (s *Server) handleSuggestNames(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Names == nil {
		return mcpgo.NewToolResultError("name index is unavailable"), nil
	}
	limit := req.GetInt("limit", defaultSuggestLimit)
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	if req.GetBool("by_frequency", false) {
		return toolResultJSON(map[string]any{"names": s.deps.Names.TopRecommendations(limit)})
	}

	found := s.deps.Names.Search(req.GetString("query", ""))
	if len(found) > limit {
		found = found[:limit]
	}
	if found == nil {
		found = []string{}
	}
	return toolResultJSON(map[string]any{"names": found})
}

// handleRecommend ranks outfits for today. A failed weather lookup degrades
// to ranking without a category.
func (s *Server) handleRecommend(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.deps.Store == nil {
		return mcpgo.NewToolResultError("store is unavailable"), nil
	}
	limit := req.GetInt("limit", defaultRecommendLimit)
	if limit <= 0 {
		limit = defaultRecommendLimit
	}

	result := map[string]any{}
	recommended := strings.TrimSpace(req.GetString("category", ""))
	if recommended == "" && s.deps.Weather != nil {
		info, err := s.deps.Weather.Fetch(ctx, s.deps.At)
		if err != nil {
			s.logger.Warn("mcp: weather unavailable, ranking without it", "error", err)
		} else {
			recommended = info.RecommendedCategory
			result["weather"] = info
		}
	}

	snap := s.deps.Store.Snapshot()
	ranked := s.deps.Recommender.Top(snap.Outfits, recommended, s.deps.Store.Now(), s.deps.Store.Location(), limit)
	out := make([]outfitSummary, 0, len(ranked))
	for i := range ranked {
		sum := s.summarize(&ranked[i].Outfit)
		sum.FinalScore = ranked[i].FinalScore
		out = append(out, sum)
	}
	result["recommended_category"] = recommended
	result["outfits"] = out
	return toolResultJSON(result)
}
