package entries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	s.now = func() time.Time { return now }
	return s, &now
}

func entryFor(host string) *Entry {
	return &Entry{
		UniqueID: host + ":3000",
		Title:    "Hypermind (" + host + ":3000)",
		Data:     map[string]any{"host": host, "port": 3000},
		Source:   SourceAPI,
	}
}

func TestStore_AddAssignsIDAndTimestamps(t *testing.T) {
	s, now := newTestStore(t)

	e, err := s.Add(entryFor("a"))
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, *now, e.CreatedAt)
	assert.Equal(t, *now, e.UpdatedAt)
	assert.NotNil(t, e.Options)

	got, ok := s.Get(e.ID)
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, s.Count())
}

func TestStore_AddRejectsDuplicateUniqueID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Add(entryFor("a"))
	require.NoError(t, err)

	_, err = s.Add(entryFor("a"))
	assert.ErrorIs(t, err, ErrAlreadyConfigured)
	assert.Equal(t, 1, s.Count())
}

func TestStore_AddCopiesInput(t *testing.T) {
	s, _ := newTestStore(t)
	in := entryFor("a")

	e, err := s.Add(in)
	require.NoError(t, err)

	in.Data["host"] = "mutated"
	assert.Equal(t, "a", e.Data["host"])
}

func TestStore_UpdateOptionsReplacesEntry(t *testing.T) {
	s, now := newTestStore(t)
	orig, err := s.Add(entryFor("a"))
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	updated, err := s.UpdateOptions(orig.ID, map[string]any{"scale_max": 500})
	require.NoError(t, err)

	assert.NotSame(t, orig, updated)
	assert.Empty(t, orig.Options, "previous entry value must not change")
	assert.Equal(t, 500, updated.Options["scale_max"])
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(orig.UpdatedAt))

	ep, err := updated.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, 500, ep.ScaleMax)
}

func TestStore_UpdateOptionsUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.UpdateOptions("missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RemoveFreesUniqueID(t *testing.T) {
	s, _ := newTestStore(t)
	e, err := s.Add(entryFor("a"))
	require.NoError(t, err)

	removed, ok := s.Remove(e.ID)
	require.True(t, ok)
	assert.Equal(t, e.ID, removed.ID)

	_, ok = s.GetByUniqueID("a:3000")
	assert.False(t, ok)

	_, err = s.Add(entryFor("a"))
	assert.NoError(t, err)

	_, ok = s.Remove("missing")
	assert.False(t, ok)
}

func TestStore_ListOrdered(t *testing.T) {
	s, now := newTestStore(t)
	for _, h := range []string{"c", "a", "b"} {
		_, err := s.Add(entryFor(h))
		require.NoError(t, err)
		*now = now.Add(time.Second)
	}

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "c:3000", list[0].UniqueID)
	assert.Equal(t, "a:3000", list[1].UniqueID)
	assert.Equal(t, "b:3000", list[2].UniqueID)
}
