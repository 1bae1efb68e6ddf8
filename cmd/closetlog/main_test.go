package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/closetlog/internal/models"
)

// setupHome points the config at an empty data directory and clears any
// service keys from the environment.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENWEATHERMAP_API_KEY", "")
	t.Setenv("CLOSETLOG_TIMEZONE", "UTC")
	return home
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

var addedID = regexp.MustCompile(`\(id: ([^)]+)\)`)

func mustAdd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", append([]string{"add"}, args...)...)
	require.NoError(t, err, out)
	m := addedID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	return m[1]
}

func TestCLI_OutfitLifecycle(t *testing.T) {
	home := setupHome(t)

	coat := mustAdd(t, "--name", "Rainy commute", "--category", "Cool", "--item", "trench coat", "--item", "boots")
	tee := mustAdd(t, "--name", "Beach day", "--item", "tee", "--item", "sandals", "--memo", "summer")
	assert.FileExists(t, filepath.Join(home, ".closetlog", "closetlog.db"))

	out, err := run(t, "", "wear", coat)
	require.NoError(t, err)
	assert.Contains(t, out, `Wore "Rainy commute" today (wears: 1)`)

	out, err = run(t, "", "wear", coat)
	require.NoError(t, err)
	assert.Contains(t, out, "No change", "second wear on the same day is a no-op")

	out, err = run(t, "", "list", "--sort", "wear_count")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Rainy commute"), strings.Index(out, "Beach day"))
	assert.Contains(t, out, "(worn today)")

	out, err = run(t, "", "list", "-q", "SANDAL")
	require.NoError(t, err)
	assert.Contains(t, out, "Beach day")
	assert.NotContains(t, out, "Rainy commute")

	_, err = run(t, "", "update", tee, "--name", "Beach", "--category", "Hot", "--favorite")
	require.NoError(t, err)

	out, err = run(t, "", "get", tee)
	require.NoError(t, err)
	var got models.Outfit
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Beach", got.Name)
	assert.Equal(t, "Hot", got.Category)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, "summer", got.Memo)

	out, err = run(t, "", "names", "top")
	require.NoError(t, err)
	assert.Contains(t, out, "boots")

	out, err = run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total wears:    1")

	out, err = run(t, "", "recommend", "--category", "Cool")
	require.NoError(t, err)
	assert.Contains(t, out, "Beach")
	assert.NotContains(t, out, "Rainy commute", "outfits worn today are not suggested")

	_, err = run(t, "", "delete", coat)
	require.NoError(t, err)
	_, err = run(t, "", "get", coat)
	assert.Error(t, err)
}

func TestCLI_AddRejectsUnknownCategory(t *testing.T) {
	setupHome(t)
	_, err := run(t, "", "add", "--name", "Gala", "--category", "Formal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")

	_, err = run(t, "", "categories", "add", "Formal")
	require.NoError(t, err)
	mustAdd(t, "--name", "Gala", "--category", "Formal")
}

func TestCLI_CategoryRenameCascade(t *testing.T) {
	setupHome(t)
	id := mustAdd(t, "--name", "Layers", "--category", "Cool")

	out, err := run(t, "", "categories", "rename", "Cool", "Chilly", "--cascade")
	require.NoError(t, err)
	assert.Contains(t, out, "Relabeled 1 outfits")
	assert.Contains(t, out, "3. Chilly")

	out, err = run(t, "", "get", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"category": "Chilly"`)
}

func TestCLI_ExportImport(t *testing.T) {
	setupHome(t)
	mustAdd(t, "--name", "Office", "--category", "Cool", "--item", "blazer")
	mustAdd(t, "--name", "Run", "--category", "Warm", "--item", "shorts")

	dump, err := run(t, "", "export", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, dump, "name: Office")

	// A fresh wardrobe imports both; importing again skips them.
	setupHome(t)
	out, err := run(t, dump, "import", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2, replaced 0, skipped 0")

	out, err = run(t, dump, "import", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0, replaced 0, skipped 2")

	out, err = run(t, "", "names", "search", "bla")
	require.NoError(t, err)
	assert.Equal(t, "blazer\n", out)
}

func TestEncodeDecode_CSV(t *testing.T) {
	loc := time.UTC
	day := time.Date(2025, 3, 4, 18, 30, 0, 0, loc)
	in := []models.Outfit{{
		ID:          "a1",
		Name:        "Spring, light",
		Category:    "Warm",
		Memo:        "line one\nline two",
		ItemNames:   []string{"linen shirt", "chinos"},
		IsFavorite:  true,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		WearHistory: []time.Time{day, day.AddDate(0, 0, 2)},
	}}

	var buf bytes.Buffer
	require.NoError(t, encodeOutfits(&buf, "csv", in, loc))
	assert.Contains(t, buf.String(), "2025-03-04;2025-03-06")
	assert.Contains(t, buf.String(), "linen shirt;chinos")

	out, err := decodeOutfits(&buf, "csv", loc)
	require.NoError(t, err)
	require.Len(t, out, 1)
	o := out[0]
	assert.Equal(t, "Spring, light", o.Name)
	assert.Equal(t, "line one\nline two", o.Memo)
	assert.Equal(t, []string{"linen shirt", "chinos"}, o.ItemNames)
	assert.True(t, o.IsFavorite)
	assert.Equal(t, in[0].CreatedAt, o.CreatedAt)
	require.Len(t, o.WearHistory, 2)
	assert.True(t, models.SameDay(day, o.WearHistory[0], loc))
}

func TestDecode_CSVColumnsByName(t *testing.T) {
	src := "wear_dates,name,extra\n2025-05-01;2025-05-01,Picnic,x\n"
	out, err := decodeOutfits(strings.NewReader(src), "csv", time.UTC)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Picnic", out[0].Name)
	assert.Equal(t, 1, out[0].WearCount(), "same-day dates collapse")

	_, err = decodeOutfits(strings.NewReader("id,category\n1,Hot\n"), "csv", time.UTC)
	assert.ErrorContains(t, err, "missing name column")

	_, err = decodeOutfits(strings.NewReader("name,wear_dates\nX,05/01/2025\n"), "csv", time.UTC)
	assert.ErrorContains(t, err, "wear date")
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	_, err := decodeOutfits(strings.NewReader(""), "xml", time.UTC)
	assert.ErrorContains(t, err, "unsupported format")
	assert.Error(t, encodeOutfits(os.Stdout, "xml", nil, time.UTC))
}
