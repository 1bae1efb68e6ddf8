package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/closetlog/internal/blob"
)

func wearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wear <id>",
		Short: "Record that an outfit was worn today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleWear(cmd, args[0], true)
		},
	}
}

func unwearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unwear <id>",
		Short: "Remove today's wear record for an outfit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleWear(cmd, args[0], false)
		},
	}
}

func toggleWear(cmd *cobra.Command, id string, on bool) error {
	logger := newLogger()
	ctx := cmd.Context()

	a, err := openApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	o, ok := a.store.Get(id)
	if !ok {
		return fmt.Errorf("outfit %s not found", id)
	}

	fn, verb := a.store.WearToday, "Wore"
	if !on {
		fn, verb = a.store.UnwearToday, "Unmarked"
	}
	changed, err := fn(ctx, id)
	if err != nil {
		return fmt.Errorf("saving wear history: %w", err)
	}

	o, _ = a.store.Get(id)
	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintf(out, "No change for %q (wears: %d)\n", o.Name, o.WearCount())
		return nil
	}
	fmt.Fprintf(out, "%s %q today (wears: %d)\n", verb, o.Name, o.WearCount())
	return nil
}

func favoriteCmd() *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle, or with --set assign, an outfit's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			id := args[0]

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("favorite: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			if _, ok := a.store.Get(id); !ok {
				return fmt.Errorf("favorite: outfit %s not found", id)
			}

			switch set {
			case "":
				if _, err := a.store.ToggleFavorite(ctx, id); err != nil {
					return fmt.Errorf("favorite: %w", err)
				}
			case "true", "false":
				if _, err := a.store.SetFavorite(ctx, id, set == "true"); err != nil {
					return fmt.Errorf("favorite: %w", err)
				}
			default:
				return fmt.Errorf("favorite: --set must be true or false, got %q", set)
			}

			o, _ := a.store.Get(id)
			fmt.Fprintf(cmd.OutOrStdout(), "%q favorite: %t\n", o.Name, o.IsFavorite)
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "assign true or false instead of toggling")
	return cmd
}

func imageCmd() *cobra.Command {
	var (
		remove bool
		out    string
	)

	cmd := &cobra.Command{
		Use:   "image <id> [path]",
		Short: "Attach, export or remove an outfit photo",
		Long: `With a path, the photo is cropped, resized and compressed before it is stored.
With --out, the stored photo is written to a file. With --remove, it is deleted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			id := args[0]

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("image: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			if _, ok := a.store.Get(id); !ok {
				return fmt.Errorf("image: outfit %s not found", id)
			}

			w := cmd.OutOrStdout()
			switch {
			case remove:
				changed, err := a.store.RemoveImage(ctx, id)
				if err != nil {
					return fmt.Errorf("image: %w", err)
				}
				if !changed {
					fmt.Fprintln(w, "No image to remove.")
					return nil
				}
				fmt.Fprintln(w, "Image removed.")
			case out != "":
				data, err := storedImage(ctx, a, id)
				if err != nil {
					return fmt.Errorf("image: %w", err)
				}
				if err := os.WriteFile(out, data, 0o600); err != nil {
					return fmt.Errorf("image: writing %s: %w", out, err)
				}
				fmt.Fprintf(w, "Wrote %d bytes to %s\n", len(data), out)
			case len(args) == 2:
				raw, err := os.ReadFile(args[1])
				if err != nil {
					return fmt.Errorf("image: reading %s: %w", args[1], err)
				}
				ref, err := a.store.SetImage(ctx, id, raw)
				if err != nil {
					return fmt.Errorf("image: %w", err)
				}
				fmt.Fprintf(w, "Image stored as %s\n", ref)
			default:
				return errors.New("image: give a path to attach, --out to export or --remove")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "remove the stored photo")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the stored photo to this file")
	return cmd
}

// storedImage returns the outfit's blob, or its legacy inline bytes when it
// has no reference yet.
func storedImage(ctx context.Context, a *app, id string) ([]byte, error) {
	o, _ := a.store.Get(id)
	if o.ImageRef == "" {
		if len(o.ImageData) > 0 {
			return o.ImageData, nil
		}
		return nil, fmt.Errorf("outfit %s has no image: %w", id, blob.ErrNotFound)
	}
	data, err := a.blobs.Load(ctx, o.ImageRef)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("image %s is missing: %w", o.ImageRef, err)
	}
	return data, err
}
