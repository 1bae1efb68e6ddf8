package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/ajitpratap0/closetlog/internal/autoname"
	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/category"
	"github.com/ajitpratap0/closetlog/internal/classifier"
	"github.com/ajitpratap0/closetlog/internal/config"
	"github.com/ajitpratap0/closetlog/internal/names"
	"github.com/ajitpratap0/closetlog/internal/prefs"
	"github.com/ajitpratap0/closetlog/internal/recommend"
	"github.com/ajitpratap0/closetlog/internal/search"
	"github.com/ajitpratap0/closetlog/internal/store"
	"github.com/ajitpratap0/closetlog/internal/weather"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := newRootCmd()
	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "closetlog",
		Short:         "closetlog: a personal wardrobe log",
		Long:          "Keep a log of your outfits, record what you wear each day, and get weather-aware suggestions and wear statistics.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		addCmd(),
		listCmd(),
		getCmd(),
		updateCmd(),
		deleteCmd(),
		wearCmd(),
		unwearCmd(),
		favoriteCmd(),
		imageCmd(),
		statsCmd(),
		namesCmd(),
		categoriesCmd(),
		exportCmd(),
		importCmd(),
		weatherCmd(),
		recommendCmd(),
		maintainCmd(),
		serveCmd(),
		mcpCmd(),
		healthCmd(),
	)
	return rootCmd
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// app bundles the opened local state shared by every command.
type app struct {
	logger     *slog.Logger
	prefs      prefs.Store
	blobs      blob.Store
	store      *store.Store
	categories *category.Manager
	names      *names.Index
	loc        *time.Location
	locale     language.Tag
}

// openApp opens the preference and blob stores and loads the collection,
// category list and name index. Unreadable data is logged and replaced by
// empty or default state so the command can continue.
func openApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	locale, err := cfg.LocaleTag()
	if err != nil {
		return nil, err
	}

	p, err := prefs.Open(prefs.Driver(cfg.Storage.Driver), cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening preference store: %w", err)
	}
	b, err := blob.Open(ctx, blob.Driver(cfg.Images.Driver), cfg.Images.Dir, cfg.BlobS3())
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("opening image store: %w", err)
	}

	st := store.New(p, b, store.Options{
		Debounce: cfg.Storage.Debounce,
		Location: loc,
		Image:    cfg.ImageOptions(),
		Logger:   logger,
	})
	if err := st.Load(ctx); err != nil {
		if !errors.Is(err, store.ErrCorrupt) {
			_ = p.Close()
			return nil, err
		}
		logger.Warn("continuing with an empty wardrobe", "error", err)
	}

	cats := category.NewManager(p, logger)
	if err := cats.Load(ctx); err != nil {
		logger.Warn("category list unreadable, using defaults", "error", err)
	}

	idx := names.New(p, cfg.Names.RecentCapacity, logger)
	if err := idx.Load(ctx); err != nil {
		logger.Warn("item name index partly unreadable", "error", err)
	}

	return &app{
		logger:     logger,
		prefs:      p,
		blobs:      b,
		store:      st,
		categories: cats,
		names:      idx,
		loc:        loc,
		locale:     locale,
	}, nil
}

// Close flushes pending edits and closes the preference store. The flush
// still runs when ctx was cancelled by a signal.
func (a *app) Close(ctx context.Context) error {
	flushErr := a.store.Close(context.WithoutCancel(ctx))
	return errors.Join(flushErr, a.prefs.Close())
}

func (a *app) searchEngine() *search.Engine {
	return search.NewEngine(search.Options{Locale: a.locale}, a.loc)
}

func (a *app) recommender() *recommend.Recommender {
	return recommend.NewRecommender(cfg.Recommend, a.logger)
}

func (a *app) classifier() classifier.Classifier {
	return classifier.NewClassifier(a.logger)
}

// namer uses Claude when an API key is configured.
func (a *app) namer() autoname.Namer {
	if cfg.Claude.APIKey == "" {
		return autoname.HeuristicNamer{}
	}
	return autoname.NewClaudeNamer(cfg.Claude.APIKey, cfg.Claude.Model, a.logger)
}

func newWeather(loc *time.Location, logger *slog.Logger) *weather.Client {
	return weather.NewClient(weather.Options{
		BaseURL:  cfg.Weather.BaseURL,
		APIKey:   cfg.Weather.APIKey,
		Lang:     cfg.Weather.Lang,
		Throttle: cfg.Weather.Throttle,
		Location: loc,
	}, logger)
}

func coordinates() weather.Coordinates {
	return weather.Coordinates{Lat: cfg.Weather.Lat, Lon: cfg.Weather.Lon}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
