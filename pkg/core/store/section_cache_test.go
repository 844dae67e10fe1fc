package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionCache_Files(t *testing.T) {
	ctx := context.Background()
	c := NewSectionCache(nil, t.TempDir())

	got, err := c.Get(ctx, "S100TEST", "2-4")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Put(ctx, SectionEntry{DocID: "S100TEST", SectionID: "2-4", MatchedTag: "BusinessRisksTextBlock", Text: "risk body"}))

	got, err = c.Get(ctx, "S100TEST", "2-4")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "risk body", got.Text)
	assert.Equal(t, "BusinessRisksTextBlock", got.MatchedTag)
	assert.False(t, got.ExtractedAt.IsZero())

	require.NoError(t, c.Put(ctx, SectionEntry{DocID: "S100TEST", SectionID: "2-4", Text: "updated"}))
	got, err = c.Get(ctx, "S100TEST", "2-4")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Text)
}

func TestSectionCache_CorruptAndNil(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewSectionCache(nil, dir)
	require.NoError(t, os.WriteFile(c.path("S1", "1-3"), []byte("garbage"), 0o644))

	got, err := c.Get(ctx, "S1", "1-3")
	require.NoError(t, err)
	assert.Nil(t, got)

	var none *SectionCache
	got, err = none.Get(ctx, "S1", "1-3")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, none.Put(ctx, SectionEntry{DocID: "S1"}))
}
