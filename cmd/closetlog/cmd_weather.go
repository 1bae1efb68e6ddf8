package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/closetlog/internal/weather"
)

func weatherCmd() *cobra.Command {
	var (
		refresh  bool
		lat, lon float64
	)

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Show today's weather and the matching category",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("weather: %w", err)
			}
			at := coordinates()
			if cmd.Flags().Changed("lat") {
				at.Lat = lat
			}
			if cmd.Flags().Changed("lon") {
				at.Lon = lon
			}

			client := newWeather(loc, logger)
			fetch := client.Fetch
			if refresh {
				fetch = client.Refresh
			}
			info, err := fetch(ctx, at)
			if err != nil {
				return fmt.Errorf("weather: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %.1f°C (today %.1f to %.1f°C)\n", info.Description, info.Temperature, info.TempMin, info.TempMax)
			fmt.Fprintf(out, "Suggested category: %s\n", info.RecommendedCategory)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the fetch throttle")
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude (defaults to weather.lat)")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude (defaults to weather.lon)")
	return cmd
}

func recommendCmd() *cobra.Command {
	var (
		category string
		n        int
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest outfits for today",
		Long: `Ranks outfits by how well their category fits today's weather, how long
since they were last worn, how often they are worn and whether they are
favorites. --category skips the weather lookup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			out := cmd.OutOrStdout()
			recommended := category
			if recommended == "" {
				info, werr := newWeather(a.loc, logger).Fetch(ctx, coordinates())
				switch {
				case werr == nil:
					recommended = info.RecommendedCategory
					fmt.Fprintf(out, "Weather: %s, %.1f to %.1f°C -> %s\n\n", info.Description, info.TempMin, info.TempMax, recommended)
				case errors.Is(werr, weather.ErrNoAPIKey):
					logger.Debug("no weather API key, ranking without weather")
				default:
					logger.Warn("weather unavailable, ranking without it", "error", werr)
				}
			}

			snap := a.store.Snapshot()
			recs := a.recommender().Top(snap.Outfits, recommended, a.store.Now(), a.loc, n)
			if len(recs) == 0 {
				fmt.Fprintln(out, "No outfits yet.")
				return nil
			}
			for i, r := range recs {
				fmt.Fprintf(out, "[%d] %s [%s] score %.2f\n", i+1, truncate(r.Outfit.Name, 60), r.Outfit.Category, r.FinalScore)
				fmt.Fprintf(out, "    ID: %s | category %.2f | staleness %.2f | frequency %.2f | favorite %.2f\n",
					r.Outfit.ID, r.CategoryScore, r.StalenessScore, r.FrequencyScore, r.FavoriteBoost)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "rank for this category instead of the weather")
	cmd.Flags().IntVarP(&n, "count", "n", 5, "number of suggestions")
	return cmd
}
