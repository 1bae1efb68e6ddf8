package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/closetlog/internal/models"
)

const dayLayout = "2006-01-02"

// csvHeader is the column order of CSV exports. Items and wear dates are
// joined with ";".
var csvHeader = []string{"id", "name", "category", "memo", "items", "favorite", "created_at", "wear_dates"}

// exportRecord is the interchange shape of an outfit. Images are not exported.
type exportRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Category  string   `json:"category" yaml:"category"`
	Memo      string   `json:"memo,omitempty" yaml:"memo,omitempty"`
	Items     []string `json:"items" yaml:"items"`
	Favorite  bool     `json:"favorite" yaml:"favorite"`
	CreatedAt string   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	WearDates []string `json:"wear_dates" yaml:"wear_dates"`
}

func toRecord(o *models.Outfit, loc *time.Location) exportRecord {
	rec := exportRecord{
		ID:        o.ID,
		Name:      o.Name,
		Category:  o.Category,
		Memo:      o.Memo,
		Items:     append([]string{}, o.ItemNames...),
		Favorite:  o.IsFavorite,
		WearDates: make([]string, 0, len(o.WearHistory)),
	}
	if !o.CreatedAt.IsZero() {
		rec.CreatedAt = o.CreatedAt.UTC().Format(time.RFC3339)
	}
	for _, t := range o.WearHistory {
		rec.WearDates = append(rec.WearDates, t.In(loc).Format(dayLayout))
	}
	return rec
}

// toOutfit parses a record. Wear dates become midnight in loc and repeated
// days collapse to one entry.
func (rec exportRecord) toOutfit(loc *time.Location) (models.Outfit, error) {
	o := models.Outfit{
		ID:         strings.TrimSpace(rec.ID),
		Name:       rec.Name,
		Category:   rec.Category,
		Memo:       rec.Memo,
		ItemNames:  cleanList(rec.Items),
		IsFavorite: rec.Favorite,
	}
	if rec.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, rec.CreatedAt)
		if err != nil {
			return models.Outfit{}, fmt.Errorf("outfit %q: created_at: %w", rec.Name, err)
		}
		o.CreatedAt = t
	}
	for _, d := range rec.WearDates {
		day, err := time.ParseInLocation(dayLayout, strings.TrimSpace(d), loc)
		if err != nil {
			return models.Outfit{}, fmt.Errorf("outfit %q: wear date: %w", rec.Name, err)
		}
		o.WearOn(day, loc)
	}
	return o, nil
}

func encodeOutfits(w io.Writer, format string, outfits []models.Outfit, loc *time.Location) error {
	records := make([]exportRecord, 0, len(outfits))
	for i := range outfits {
		records = append(records, toRecord(&outfits[i], loc))
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
		for _, r := range records {
			row := []string{
				r.ID,
				r.Name,
				r.Category,
				r.Memo,
				strings.Join(r.Items, ";"),
				strconv.FormatBool(r.Favorite),
				r.CreatedAt,
				strings.Join(r.WearDates, ";"),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported format %q (use json, yaml or csv)", format)
	}
}

func exportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all outfits to JSON, YAML or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			outfits := a.store.Snapshot().Outfits

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, createErr := os.Create(output)
				if createErr != nil {
					return fmt.Errorf("export: creating output file: %w", createErr)
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			if err := encodeOutfits(w, format, outfits, a.loc); err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d outfits to %s\n", len(outfits), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json, yaml or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file path (- for stdout)")
	return cmd
}
