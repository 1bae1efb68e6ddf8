package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/closetlog/internal/blob"
	"github.com/ajitpratap0/closetlog/internal/models"
	"github.com/ajitpratap0/closetlog/internal/prefs"
)

// failingPrefs wraps a MemoryStore and fails writes while fail is set.
type failingPrefs struct {
	*prefs.MemoryStore
	mu   sync.Mutex
	fail bool
}

func (f *failingPrefs) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *failingPrefs) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestStore(t *testing.T) (*Store, *prefs.MemoryStore, *blob.MemoryStore, *clock) {
	t.Helper()
	p := prefs.NewMemoryStore()
	b := blob.NewMemoryStore()
	c := &clock{now: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)}
	s := New(p, b, Options{Debounce: 20 * time.Millisecond, Location: time.UTC, Clock: c.Now})
	require.NoError(t, s.Load(context.Background()))
	return s, p, b, c
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoad_MissingSlotIsEmpty(t *testing.T) {
	s, _, _, _ := newTestStore(t)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Snapshot().Outfits)
}

func TestLoad_CorruptSlotFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	p := prefs.NewMemoryStore()
	require.NoError(t, p.Set(ctx, prefs.KeyOutfits, []byte("{not json")))

	s := New(p, blob.NewMemoryStore(), Options{})
	var notices []models.Notice
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventNotice {
			notices = append(notices, *ev.Notice)
		}
	})

	err := s.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Degraded())
	require.Len(t, notices, 1)

	// Still usable after a failed load.
	_, err = s.Add(ctx, models.Outfit{Name: "after"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestAdd_AssignsIDAndPersists(t *testing.T) {
	ctx := context.Background()
	s, p, _, c := newTestStore(t)

	o, err := s.Add(ctx, models.Outfit{Name: "  Navy blazer  ", Category: "Cool"})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "Navy blazer", o.Name)
	assert.True(t, o.CreatedAt.Equal(c.Now()))
	assert.Equal(t, 1, p.Writes(prefs.KeyOutfits))

	_, err = s.Add(ctx, models.Outfit{ID: o.ID})
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Len())
}

func TestRoundTrip_PreservesRecords(t *testing.T) {
	ctx := context.Background()
	s, p, b, _ := newTestStore(t)

	o, err := s.Add(ctx, models.Outfit{
		Name:      "Linen set",
		Category:  "Warm",
		Memo:      "beach",
		ItemNames: []string{"linen shirt", "shorts"},
	})
	require.NoError(t, err)
	_, err = s.WearToday(ctx, o.ID)
	require.NoError(t, err)
	_, err = s.SetFavorite(ctx, o.ID, true)
	require.NoError(t, err)

	reloaded := New(p, b, Options{Location: time.UTC})
	require.NoError(t, reloaded.Load(ctx))

	got, ok := reloaded.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, "Linen set", got.Name)
	assert.Equal(t, "Warm", got.Category)
	assert.Equal(t, "beach", got.Memo)
	assert.Equal(t, []string{"linen shirt", "shorts"}, got.ItemNames)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, 1, got.WearCount())
}

func TestLoad_ToleratesMissingFields(t *testing.T) {
	ctx := context.Background()
	p := prefs.NewMemoryStore()
	legacy := `[{"id":"a","name":"Old","category":"Hot","memo":"","wearHistory":[]}]`
	require.NoError(t, p.Set(ctx, prefs.KeyOutfits, []byte(legacy)))

	s := New(p, blob.NewMemoryStore(), Options{})
	require.NoError(t, s.Load(ctx))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.False(t, got.IsFavorite)
	assert.Empty(t, got.ItemNames)
	assert.True(t, got.CreatedAt.IsZero())
}

func TestWearToday_IsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	s, _, _, c := newTestStore(t)
	o, err := s.Add(ctx, models.Outfit{Name: "Tee"})
	require.NoError(t, err)

	changed, err := s.WearToday(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	c.Set(c.Now().Add(5 * time.Hour))
	changed, err = s.WearToday(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, _ := s.Get(o.ID)
	assert.Equal(t, 1, got.WearCount())

	c.Set(c.Now().Add(24 * time.Hour))
	changed, err = s.WearToday(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	got, _ = s.Get(o.ID)
	assert.Equal(t, 2, got.WearCount())
}

func TestUnwearToday_RemovesOnlyToday(t *testing.T) {
	ctx := context.Background()
	s, _, _, c := newTestStore(t)
	yesterday := c.Now().Add(-24 * time.Hour)
	o, err := s.Add(ctx, models.Outfit{
		Name:        "Tee",
		WearHistory: []time.Time{yesterday, c.Now()},
	})
	require.NoError(t, err)

	changed, err := s.UnwearToday(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := s.Get(o.ID)
	require.Len(t, got.WearHistory, 1)
	assert.True(t, models.SameDay(got.WearHistory[0], yesterday, time.UTC))

	changed, err = s.UnwearToday(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestWearThenUnwear_RestoresPriorHistory(t *testing.T) {
	ctx := context.Background()
	s, p, _, c := newTestStore(t)
	fresh, err := s.Add(ctx, models.Outfit{Name: "Never worn"})
	require.NoError(t, err)
	worn, err := s.Add(ctx, models.Outfit{
		Name:        "Worn before",
		WearHistory: []time.Time{models.StartOfDay(c.Now().Add(-48*time.Hour), time.UTC)},
	})
	require.NoError(t, err)
	persisted, err := p.Get(ctx, prefs.KeyOutfits)
	require.NoError(t, err)

	for _, o := range []models.Outfit{fresh, worn} {
		_, err = s.WearToday(ctx, o.ID)
		require.NoError(t, err)
		_, err = s.UnwearToday(ctx, o.ID)
		require.NoError(t, err)

		after, _ := s.Get(o.ID)
		assert.Equal(t, o.WearHistory, after.WearHistory, o.Name)
	}

	raw, err := p.Get(ctx, prefs.KeyOutfits)
	require.NoError(t, err)
	assert.JSONEq(t, string(persisted), string(raw))
}

func TestDelete_ReleasesBlobOnce(t *testing.T) {
	ctx := context.Background()
	s, _, b, _ := newTestStore(t)
	o, err := s.Add(ctx, models.Outfit{Name: "Coat"})
	require.NoError(t, err)

	ref, err := s.SetImage(ctx, o.ID, pngBytes(t, 64, 48))
	require.NoError(t, err)
	assert.Equal(t, blob.RefFor(o.ID), ref)

	require.NoError(t, s.Delete(ctx, o.ID))
	require.NoError(t, s.Delete(ctx, o.ID), "deleting twice is a no-op")

	assert.Equal(t, []string{ref}, b.Deleted())
	_, err = b.Load(ctx, ref)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestSetImage_BlobFailureLeavesRecord(t *testing.T) {
	ctx := context.Background()
	s, _, b, _ := newTestStore(t)
	o, err := s.Add(ctx, models.Outfit{Name: "Coat"})
	require.NoError(t, err)

	b.FailSave = true
	_, err = s.SetImage(ctx, o.ID, pngBytes(t, 32, 32))
	require.Error(t, err)

	got, _ := s.Get(o.ID)
	assert.Empty(t, got.ImageRef)
}

func TestSetImage_ClearsInlineBytes(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	o, err := s.Add(ctx, models.Outfit{Name: "Legacy", ImageData: []byte{1, 2, 3}})
	require.NoError(t, err)

	_, err = s.SetImage(ctx, o.ID, pngBytes(t, 32, 32))
	require.NoError(t, err)

	got, _ := s.Get(o.ID)
	assert.Nil(t, got.ImageData)
	assert.NotEmpty(t, got.ImageRef)

	removed, err := s.RemoveImage(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	got, _ = s.Get(o.ID)
	assert.Empty(t, got.ImageRef)
}

func TestPersist_FailureKeepsMemoryAndNotifies(t *testing.T) {
	ctx := context.Background()
	fp := &failingPrefs{MemoryStore: prefs.NewMemoryStore()}
	s := New(fp, blob.NewMemoryStore(), Options{})
	require.NoError(t, s.Load(ctx))

	var notices int
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventNotice {
			notices++
		}
	})

	fp.setFail(true)
	o, err := s.Add(ctx, models.Outfit{Name: "Kept"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 1, notices)

	_, ok := s.Get(o.ID)
	assert.True(t, ok, "in-memory state survives a failed write")

	fp.setFail(false)
	require.NoError(t, s.Persist(ctx))

	data, err := fp.Get(ctx, prefs.KeyOutfits)
	require.NoError(t, err)
	var stored []models.Outfit
	require.NoError(t, json.Unmarshal(data, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "Kept", stored[0].Name)
}

func TestDeferredEdits_Coalesce(t *testing.T) {
	ctx := context.Background()
	s, p, _, _ := newTestStore(t)
	o, err := s.Add(ctx, models.Outfit{Name: "Draft"})
	require.NoError(t, err)
	writes := p.Writes(prefs.KeyOutfits)

	for _, name := range []string{"D", "Dr", "Dre", "Dress"} {
		assert.True(t, s.Rename(o.ID, name))
	}
	assert.True(t, s.SetMemo(o.ID, "for dinner"))
	assert.True(t, s.Pending())
	assert.Equal(t, writes, p.Writes(prefs.KeyOutfits), "no write before the debounce window")

	require.Eventually(t, func() bool {
		return p.Writes(prefs.KeyOutfits) == writes+1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, s.Pending())

	reloaded := New(p, blob.NewMemoryStore(), Options{})
	require.NoError(t, reloaded.Load(ctx))
	got, _ := reloaded.Get(o.ID)
	assert.Equal(t, "Dress", got.Name)
	assert.Equal(t, "for dinner", got.Memo)
}

func TestFlush_WritesPendingImmediately(t *testing.T) {
	ctx := context.Background()
	p := prefs.NewMemoryStore()
	s := New(p, blob.NewMemoryStore(), Options{Debounce: time.Hour})
	require.NoError(t, s.Load(ctx))

	o, err := s.Add(ctx, models.Outfit{Name: "A"})
	require.NoError(t, err)
	assert.True(t, s.SetCategory(o.ID, "Hot"))
	assert.False(t, s.SetCategory(o.ID, "Hot"), "unchanged value is not an edit")
	assert.True(t, s.SetItemNames(o.ID, []string{" tank ", "", "sandals"}))

	require.NoError(t, s.Close(ctx))
	assert.False(t, s.Pending())
	assert.Equal(t, 2, p.Writes(prefs.KeyOutfits))

	reloaded := New(p, blob.NewMemoryStore(), Options{})
	require.NoError(t, reloaded.Load(ctx))
	got, _ := reloaded.Get(o.ID)
	assert.Equal(t, "Hot", got.Category)
	assert.Equal(t, []string{"tank", "sandals"}, got.ItemNames)
}

func TestImmediateWriteCancelsPendingDeferred(t *testing.T) {
	ctx := context.Background()
	p := prefs.NewMemoryStore()
	s := New(p, blob.NewMemoryStore(), Options{Debounce: time.Hour})
	require.NoError(t, s.Load(ctx))

	o, err := s.Add(ctx, models.Outfit{Name: "A"})
	require.NoError(t, err)
	s.Rename(o.ID, "B")
	assert.True(t, s.Pending())

	_, err = s.ToggleFavorite(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, s.Pending(), "immediate write carries the deferred edit")
}

func TestUpdate_UnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	s, p, _, _ := newTestStore(t)
	require.NoError(t, s.Update(ctx, models.Outfit{ID: "ghost", Name: "x"}))
	assert.False(t, s.UpdateDeferred(models.Outfit{ID: "ghost"}))
	assert.Equal(t, 0, p.Writes(prefs.KeyOutfits))
	assert.Equal(t, 0, s.Len())
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	o, err := s.Add(ctx, models.Outfit{Name: "A", ItemNames: []string{"hat"}})
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Outfits[0].ItemNames[0] = "mutated"
	snap.Outfits[0].Name = "mutated"

	got, _ := s.Get(o.ID)
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, []string{"hat"}, got.ItemNames)
}

func TestSubscribe_ReceivesEventsUntilCancelled(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)

	var kinds []EventKind
	cancel := s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	o, err := s.Add(ctx, models.Outfit{Name: "A"})
	require.NoError(t, err)
	_, err = s.WearToday(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, o.ID))

	cancel()
	_, err = s.Add(ctx, models.Outfit{Name: "B"})
	require.NoError(t, err)

	assert.Equal(t, []EventKind{EventAdded, EventUpdated, EventDeleted}, kinds)
}

func TestRenameCategory_RewritesMembers(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := newTestStore(t)
	for _, cat := range []string{"Cool", "Cool", "Hot"} {
		_, err := s.Add(ctx, models.Outfit{Name: "x", Category: cat})
		require.NoError(t, err)
	}

	n, err := s.RenameCategory(ctx, "Cool", "Chilly")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts := map[string]int{}
	for _, o := range s.Snapshot().Outfits {
		counts[o.Category]++
	}
	assert.Equal(t, map[string]int{"Chilly": 2, "Hot": 1}, counts)
}
