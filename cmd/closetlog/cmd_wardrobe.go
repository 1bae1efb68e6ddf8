package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/closetlog/internal/analytics"
)

func statsCmd() *cobra.Command {
	var (
		top    int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show wear statistics for the wardrobe",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			snap := a.store.Snapshot()
			report := analytics.Compute(snap.Outfits, a.store.Now(), a.loc, top)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			ov := report.Overall
			fmt.Fprintf(out, "Outfits:        %d\n", ov.TotalOutfits)
			fmt.Fprintf(out, "Total wears:    %d\n", ov.TotalWears)
			fmt.Fprintf(out, "Avg wears:      %.1f\n", ov.AverageWears)
			fmt.Fprintf(out, "Utilization:    %.0f%%\n", ov.UtilizationRate*100)
			fmt.Fprintf(out, "Never worn:     %d\n", report.Unused.TotalUnused)
			if ov.MostWorn != nil {
				fmt.Fprintf(out, "Most worn:      %s (%d)\n", ov.MostWorn.Name, ov.MostWorn.WearCount())
			}

			fmt.Fprintln(out, "\nWear bands:")
			for _, b := range report.Bands {
				fmt.Fprintf(out, "  %-14s %d\n", b.Band, b.Count)
			}

			if len(report.Leaderboard) > 0 {
				fmt.Fprintln(out, "\nMost worn:")
				for i, f := range report.Leaderboard {
					fmt.Fprintf(out, "  %d. %s (%d)\n", i+1, truncate(f.Outfit.Name, 50), f.WearCount)
				}
			}

			fmt.Fprintln(out, "\nBy season:")
			for _, s := range report.Seasons {
				fmt.Fprintf(out, "  %-7s %d wears\n", s.Season, s.TotalWears)
			}

			for _, tip := range report.Unused.Suggestions {
				fmt.Fprintf(out, "\nTip: %s", tip)
			}
			if len(report.Unused.Suggestions) > 0 {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "leaderboard size")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func namesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Search and maintain the item name index",
	}
	cmd.AddCommand(namesSearchCmd(), namesTopCmd(), namesRebuildCmd())
	return cmd
}

func namesSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Suggest item names; with no query, list recent names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("names: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			for _, n := range a.names.Search(query) {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func namesTopCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the most used item names",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("names: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			for _, r := range a.names.TopRecommendations(n) {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", r.Count, r.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 10, "number of names")
	return cmd
}

func namesRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recount item names from every outfit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("names: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			if err := a.names.Rebuild(ctx, a.store.Snapshot().Outfits); err != nil {
				return fmt.Errorf("names: rebuilding: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d item names\n", a.names.Len())
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "List and edit the ordered category list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCategories(cmd, func(*app) error { return nil })
		},
	}

	var cascade bool
	rename := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCategories(cmd, func(a *app) error {
				if err := a.categories.Rename(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				if !cascade {
					return nil
				}
				n, err := a.store.RenameCategory(cmd.Context(), args[0], strings.TrimSpace(args[1]))
				if err != nil {
					return fmt.Errorf("relabeling outfits: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Relabeled %d outfits\n", n)
				return nil
			})
		},
	}
	rename.Flags().BoolVar(&cascade, "cascade", false, "also relabel outfits filed under the old name")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print the category list in order",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCategories(cmd, func(*app) error { return nil })
			},
		},
		&cobra.Command{
			Use:   "add <label>",
			Short: "Append a category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCategories(cmd, func(a *app) error {
					return a.categories.Add(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "remove <label>",
			Short: "Remove a category; outfits keep their label",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCategories(cmd, func(a *app) error {
					return a.categories.Remove(cmd.Context(), args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "move <from> <to>",
			Short: "Move the category at position from to position to (1-based)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("categories: invalid position %q", args[0])
				}
				to, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("categories: invalid position %q", args[1])
				}
				return withCategories(cmd, func(a *app) error {
					return a.categories.Move(cmd.Context(), from-1, to-1)
				})
			},
		},
		rename,
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default categories",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withCategories(cmd, func(a *app) error {
					return a.categories.Reset(cmd.Context())
				})
			},
		},
	)
	return cmd
}

// withCategories runs fn against the opened app and prints the resulting list.
func withCategories(cmd *cobra.Command, fn func(a *app) error) error {
	logger := newLogger()
	ctx := cmd.Context()

	a, err := openApp(ctx, logger)
	if err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	defer func() { _ = a.Close(ctx) }()

	if err := fn(a); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	for i, c := range a.categories.List() {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, c)
	}
	return nil
}
