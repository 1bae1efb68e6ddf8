// Package autoname suggests display names for outfits that were saved
// without one.
package autoname

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/pkg/tokenizer"
	"github.com/ajitpratap0/closetlog/pkg/xmlutil"
)

// MaxNameRunes caps generated names.
const MaxNameRunes = 40

// Namer suggests a name for an outfit.
type Namer interface {
	Suggest(ctx context.Context, o models.Outfit) (string, error)
}

// HeuristicNamer builds "<Category> · <first items>" names without I/O.
type HeuristicNamer struct {
	// Items is how many item names to include. Zero means two.
	Items int
}

// Suggest never fails.
func (h HeuristicNamer) Suggest(_ context.Context, o models.Outfit) (string, error) {
	n := h.Items
	if n <= 0 {
		n = 2
	}
	var items []string
	for _, it := range o.ItemNames {
		if it = strings.TrimSpace(it); it != "" {
			items = append(items, it)
		}
		if len(items) == n {
			break
		}
	}

	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(o.Category); c != "" {
		parts = append(parts, c)
	}
	if len(items) > 0 {
		parts = append(parts, strings.Join(items, " + "))
	}
	if len(parts) == 0 {
		return "Outfit", nil
	}
	return clip(strings.Join(parts, " · ")), nil
}

// ClaudeNamer asks Claude for a short name and falls back to the heuristic
// on any failure.
type ClaudeNamer struct {
	client   *anthropic.Client
	model    string
	fallback Namer
	logger   *slog.Logger
}

// NewClaudeNamer creates a Claude-backed namer. Extra request options are
// passed to the Anthropic client.
func NewClaudeNamer(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *ClaudeNamer {
	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &ClaudeNamer{
		client:   &client,
		model:    model,
		fallback: HeuristicNamer{},
		logger:   logger,
	}
}

// promptBudget bounds the outfit description sent to Claude, in tokens.
const promptBudget = 300

// namingPromptTemplate receives the outfit as escaped XML elements so item
// names cannot act as instructions.
const namingPromptTemplate = `Suggest a short, friendly display name for a saved outfit in a personal wardrobe app.

Rules:
- At most 4 words and %d characters.
- Describe the look, not the weather.
- Output only the name, no quotes or punctuation around it.

%s
%s
%s`

// Suggest returns Claude's suggestion or the heuristic name.
func (c *ClaudeNamer) Suggest(ctx context.Context, o models.Outfit) (string, error) {
	name, err := c.ask(ctx, o)
	if err != nil {
		c.logger.Warn("claude naming failed, using heuristic", "id", o.ID, "error", err)
		return c.fallback.Suggest(ctx, o)
	}
	return name, nil
}

func namingPrompt(o models.Outfit) string {
	items, _ := tokenizer.JoinWithBudget(o.ItemNames, ", ", promptBudget/2)
	memo := tokenizer.TruncateToTokenBudget(o.Memo, promptBudget/4)
	return fmt.Sprintf(namingPromptTemplate, MaxNameRunes,
		xmlutil.Element("category", o.Category),
		xmlutil.Element("items", items),
		xmlutil.Element("memo", memo))
}

func (c *ClaudeNamer) ask(ctx context.Context, o models.Outfit) (string, error) {
	prompt := namingPrompt(o)

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 64,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: "You name outfits. Output only the name."},
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	name := cleanName(text)
	if name == "" {
		return "", fmt.Errorf("empty response from Claude")
	}
	c.logger.Debug("claude suggested name", "id", o.ID, "name", name)
	return name, nil
}

// cleanName keeps the first line, strips wrapping quotes and clips it.
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\"'`“”「」.")
	return clip(s)
}

func clip(s string) string {
	if utf8.RuneCountInString(s) <= MaxNameRunes {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:MaxNameRunes]))
}
