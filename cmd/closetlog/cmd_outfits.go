package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/search"
)

func addCmd() *cobra.Command {
	var (
		name      string
		category  string
		memo      string
		items     []string
		favorite  bool
		imagePath string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an outfit to the wardrobe",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			o := models.Outfit{
				Name:       name,
				Category:   category,
				Memo:       memo,
				ItemNames:  cleanList(items),
				IsFavorite: favorite,
			}
			if o.Category == "" {
				o.Category = a.classifier().Classify(o.Name, o.Memo, o.ItemNames)
			} else if !a.categories.Contains(o.Category) {
				return fmt.Errorf("add: unknown category %q", o.Category)
			}
			if strings.TrimSpace(o.Name) == "" {
				suggested, nameErr := a.namer().Suggest(ctx, o)
				if nameErr != nil {
					logger.Warn("naming failed", "error", nameErr)
				}
				o.Name = suggested
			}

			added, err := a.store.Add(ctx, o)
			if err != nil {
				return fmt.Errorf("add: saving outfit: %w", err)
			}
			if err := a.names.AddAll(ctx, added.ItemNames); err != nil {
				logger.Warn("updating item names failed", "error", err)
			}

			if imagePath != "" {
				raw, readErr := os.ReadFile(imagePath)
				if readErr != nil {
					return fmt.Errorf("add: reading image: %w", readErr)
				}
				if _, err := a.store.SetImage(ctx, added.ID, raw); err != nil {
					return fmt.Errorf("add: attaching image: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %q [%s] (id: %s)\n", added.Name, added.Category, added.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (suggested when empty)")
	cmd.Flags().StringVar(&category, "category", "", "category label (classified when empty)")
	cmd.Flags().StringVar(&memo, "memo", "", "free-text memo")
	cmd.Flags().StringSliceVar(&items, "item", nil, "item name (repeatable)")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "mark as favorite")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a photo of the outfit")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		text       string
		categories []string
		favorites  bool
		unworn     bool
		recent     bool
		sortBy     string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List outfits, optionally filtered and sorted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			sortOpt, err := search.ParseSortOption(sortBy)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("list: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			q := search.Query{
				Text:             text,
				Categories:       categories,
				FavoritesOnly:    favorites,
				UnwornOnly:       unworn,
				RecentlyWornOnly: recent,
				Sort:             sortOpt,
			}
			snap := a.store.Snapshot()
			matched := a.searchEngine().Run(snap.Outfits, snap.Revision, q, a.store.Now())

			out := cmd.OutOrStdout()
			shown := matched
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			for i := range shown {
				printOutfitLine(out, i+1, &shown[i], a)
			}

			if len(matched) == 0 {
				fmt.Fprintln(out, "No outfits found.")
			} else if len(shown) < len(matched) {
				fmt.Fprintf(out, "... %d more\n", len(matched)-len(shown))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "query", "q", "", "match name, memo or item names")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "filter by category (repeatable)")
	cmd.Flags().BoolVar(&favorites, "favorites", false, "favorites only")
	cmd.Flags().BoolVar(&unworn, "unworn", false, "never-worn outfits only")
	cmd.Flags().BoolVar(&recent, "recent", false, "worn in the last 7 days only")
	cmd.Flags().StringVar(&sortBy, "sort", string(search.SortDateAdded), "sort order: date_added, name, category, wear_count or last_worn")
	cmd.Flags().IntVar(&limit, "limit", 50, "max results (0 for all)")
	return cmd
}

func printOutfitLine(w io.Writer, n int, o *models.Outfit, a *app) {
	star := " "
	if o.IsFavorite {
		star = "*"
	}
	worn := ""
	if o.IsWornOn(a.store.Now(), a.loc) {
		worn = " (worn today)"
	}
	fmt.Fprintf(w, "[%d]%s %s [%s]%s\n", n, star, truncate(o.Name, 60), o.Category, worn)
	last := "never"
	if t, ok := o.LastWorn(); ok {
		last = t.In(a.loc).Format("2006-01-02")
	}
	fmt.Fprintf(w, "    ID: %s | Wears: %d | Last worn: %s\n", o.ID, o.WearCount(), last)
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a single outfit as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("get: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			o, ok := a.store.Get(args[0])
			if !ok {
				return fmt.Errorf("get: outfit %s not found", args[0])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(o)
		},
	}
}

func updateCmd() *cobra.Command {
	var (
		name     string
		category string
		memo     string
		items    []string
		favorite bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an outfit's name, category, memo, items or favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			id := args[0]

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("update: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			before, ok := a.store.Get(id)
			if !ok {
				return fmt.Errorf("update: outfit %s not found", id)
			}

			flags := cmd.Flags()
			if flags.Changed("category") && !a.categories.Contains(category) {
				return fmt.Errorf("update: unknown category %q", category)
			}
			if flags.Changed("name") {
				a.store.Rename(id, name)
			}
			if flags.Changed("memo") {
				a.store.SetMemo(id, memo)
			}
			if flags.Changed("category") {
				a.store.SetCategory(id, category)
			}
			if flags.Changed("item") {
				a.store.SetItemNames(id, items)
				if err := a.names.AddAll(ctx, newNames(before.ItemNames, cleanList(items))); err != nil {
					logger.Warn("updating item names failed", "error", err)
				}
			}
			if err := a.store.Flush(ctx); err != nil {
				return fmt.Errorf("update: saving: %w", err)
			}
			if flags.Changed("favorite") {
				if _, err := a.store.SetFavorite(ctx, id, favorite); err != nil {
					return fmt.Errorf("update: saving favorite: %w", err)
				}
			}

			after, _ := a.store.Get(id)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q [%s]\n", after.Name, after.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&category, "category", "", "new category label")
	cmd.Flags().StringVar(&memo, "memo", "", "new memo")
	cmd.Flags().StringSliceVar(&items, "item", nil, "replacement item names (repeatable)")
	cmd.Flags().BoolVar(&favorite, "favorite", false, "set the favorite flag")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an outfit and its image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			o, ok := a.store.Get(args[0])
			if !ok {
				return fmt.Errorf("delete: outfit %s not found", args[0])
			}
			if err := a.store.Delete(ctx, o.ID); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", o.Name)
			return nil
		},
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// newNames returns the names in after that were not in before.
func newNames(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, n := range before {
		seen[n] = true
	}
	var added []string
	for _, n := range after {
		if !seen[n] {
			added = append(added, n)
			seen[n] = true
		}
	}
	return added
}
