package category

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/closetlog/internal/prefs"
)

func newManager(t *testing.T) (*Manager, *prefs.MemoryStore) {
	t.Helper()
	p := prefs.NewMemoryStore()
	m := NewManager(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, m.Load(context.Background()))
	return m, p
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	m, _ := newManager(t)
	assert.Equal(t, []string{"Freezing", "Cold", "Cool", "Warm", "Hot", "Sweltering"}, m.List())
}

func TestLoad_CorruptFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	p := prefs.NewMemoryStore()
	require.NoError(t, p.Set(ctx, prefs.KeyCategories, []byte("nope")))

	m := NewManager(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, m.Load(ctx))
	assert.Equal(t, Defaults(), m.List())
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	m, p := newManager(t)

	require.NoError(t, m.Add(ctx, "  Rain  "))
	assert.True(t, m.Contains("Rain"))
	assert.ErrorIs(t, m.Add(ctx, "Rain"), ErrDuplicate)
	assert.ErrorIs(t, m.Add(ctx, "   "), ErrEmpty)
	assert.Equal(t, 1, p.Writes(prefs.KeyCategories))

	reloaded := NewManager(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, m.List(), reloaded.List())
}

func TestRemoveMoveRename(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	require.NoError(t, m.Remove(ctx, "Sweltering"))
	assert.ErrorIs(t, m.Remove(ctx, "Sweltering"), ErrNotFound)

	require.NoError(t, m.Move(ctx, 0, 4))
	assert.Equal(t, []string{"Cold", "Cool", "Warm", "Hot", "Freezing"}, m.List())
	assert.ErrorIs(t, m.Move(ctx, 0, 9), ErrNotFound)

	require.NoError(t, m.Rename(ctx, "Cool", "Mild"))
	assert.ErrorIs(t, m.Rename(ctx, "Mild", "Hot"), ErrDuplicate)
	assert.ErrorIs(t, m.Rename(ctx, "ghost", "x"), ErrNotFound)
	assert.Equal(t, []string{"Cold", "Mild", "Warm", "Hot", "Freezing"}, m.List())

	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, Defaults(), m.List())
}

func TestList_IsCopy(t *testing.T) {
	m, _ := newManager(t)
	l := m.List()
	l[0] = "changed"
	assert.Equal(t, "Freezing", m.List()[0])
}
