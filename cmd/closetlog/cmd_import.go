package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/store"
)

func decodeOutfits(r io.Reader, format string, loc *time.Location) ([]models.Outfit, error) {
	var records []exportRecord
	switch strings.ToLower(format) {
	case "json":
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&records); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
	case "csv":
		var err error
		if records, err = readCSV(r); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q (use json, yaml or csv)", format)
	}

	outfits := make([]models.Outfit, 0, len(records))
	for _, rec := range records {
		o, err := rec.toOutfit(loc)
		if err != nil {
			return nil, err
		}
		outfits = append(outfits, o)
	}
	return outfits, nil
}

// readCSV maps columns by header name so column order and extra columns
// don't matter.
func readCSV(r io.Reader) ([]exportRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decoding CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, errors.New("decoding CSV: missing name column")
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	split := func(s string) []string {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return strings.Split(s, ";")
	}

	records := make([]exportRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec := exportRecord{
			ID:        field(row, "id"),
			Name:      field(row, "name"),
			Category:  field(row, "category"),
			Memo:      field(row, "memo"),
			Items:     split(field(row, "items")),
			CreatedAt: field(row, "created_at"),
			WearDates: split(field(row, "wear_dates")),
		}
		if fav := field(row, "favorite"); fav != "" {
			if rec.Favorite, err = strconv.ParseBool(fav); err != nil {
				return nil, fmt.Errorf("decoding CSV line %d: favorite: %w", n+2, err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func importCmd() *cobra.Command {
	var (
		filePath string
		format   string
		replace  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import outfits from a JSON, YAML or CSV file",
		Long: `Import outfits in the format written by export.

Outfits whose id already exists are skipped; with --replace they overwrite the
stored record and keep its image. Records without an id get a new one.

Use - as the file path to read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			r := cmd.InOrStdin()
			if filePath != "" && filePath != "-" {
				f, openErr := os.Open(filePath)
				if openErr != nil {
					return fmt.Errorf("import: opening file: %w", openErr)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			defer func() { _ = a.Close(ctx) }()

			outfits, err := decodeOutfits(r, format, a.loc)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			var imported, replaced, skipped int
			for _, o := range outfits {
				if existing, ok := a.store.Get(o.ID); ok && o.ID != "" {
					if !replace {
						skipped++
						continue
					}
					o.ImageRef, o.ImageData = existing.ImageRef, existing.ImageData
					if o.CreatedAt.IsZero() {
						o.CreatedAt = existing.CreatedAt
					}
					if err := a.store.Update(ctx, o); err != nil {
						return fmt.Errorf("import: updating %s: %w", o.ID, err)
					}
					replaced++
				} else {
					if _, err := a.store.Add(ctx, o); err != nil {
						if errors.Is(err, store.ErrDuplicateID) {
							skipped++
							continue
						}
						return fmt.Errorf("import: adding %q: %w", o.Name, err)
					}
					imported++
				}
				if err := a.names.AddAll(ctx, o.ItemNames); err != nil {
					logger.Warn("updating item names failed", "error", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, replaced %d, skipped %d\n", imported, replaced, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "-", "input file path (- for stdin)")
	cmd.Flags().StringVar(&format, "format", "json", "input format: json, yaml or csv")
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite outfits whose id already exists")
	return cmd
}
