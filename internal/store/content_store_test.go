package store

import (
	"errors"
	"slices"
	"testing"
	"time"

	"studio/server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(s *ContentStore, f Filter) []int64 {
	var ids []int64
	for item := range s.Query(f) {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestAppendIsNewestFirst(t *testing.T) {
	s := NewContentStore()
	now := time.Now()
	a := model.NewMediaItem(s.NextID(now), model.VariantImage, "https://cdn/a.png", "dragon", now)
	b := model.NewTextItem(s.NextID(now), "body", "Marketing", "twitter", "casual", now)
	s.Append(a)
	s.Append(b)

	assert.Equal(t, []int64{b.ID, a.ID}, collect(s, Filter{}))
	assert.Equal(t, 2, s.Len())
}

func TestAppendNeverDeduplicates(t *testing.T) {
	s := NewContentStore()
	item := model.NewMediaItem(1, model.VariantImage, "u", "p", time.Now())
	s.Append(item)
	s.Append(item)
	assert.Equal(t, 2, s.Len())
}

func TestNextIDIsStrictlyIncreasing(t *testing.T) {
	s := NewContentStore()
	fixed := time.UnixMilli(1_700_000_000_000)
	first := s.NextID(fixed)
	second := s.NextID(fixed)
	earlier := s.NextID(fixed.Add(-time.Second))

	assert.Equal(t, int64(1_700_000_000_000), first)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second+1, earlier)
}

func TestQueryFilters(t *testing.T) {
	s := NewContentStore()
	now := time.Now()
	img := model.NewMediaItem(s.NextID(now), model.VariantImage, "u1", "Templo maya en la jungla", now)
	vid := model.NewMediaItem(s.NextID(now), model.VariantVideo, "u2", "robot drinking coffee", now)
	txt := model.NewTextItem(s.NextID(now), "En el mundo actual, la jungla...", "Viajes", "blog", "casual", now)
	for _, it := range []model.ContentItem{img, vid, txt} {
		s.Append(it)
	}

	assert.Equal(t, []int64{txt.ID, img.ID}, collect(s, Filter{Text: "JUNGLA"}))
	assert.Equal(t, []int64{vid.ID}, collect(s, Filter{Type: model.VariantVideo}))
	assert.Equal(t, []int64{txt.ID, vid.ID, img.ID}, collect(s, Filter{Type: "all"}))
	assert.Empty(t, collect(s, Filter{Text: "jungla", Type: model.VariantVideo}))
	assert.Equal(t, []int64{txt.ID}, collect(s, Filter{Text: "viajes"}))
}

func TestQueryIsRestartableSnapshot(t *testing.T) {
	s := NewContentStore()
	now := time.Now()
	s.Append(model.NewMediaItem(s.NextID(now), model.VariantImage, "u", "p", now))

	seq := s.Query(Filter{})
	s.Append(model.NewMediaItem(s.NextID(now), model.VariantImage, "u", "p", now))

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 1)
	assert.Equal(t, first, second)
}

func TestCountAndGet(t *testing.T) {
	s := NewContentStore()
	now := time.Now()
	for i := 0; i < 3; i++ {
		s.Append(model.NewMediaItem(s.NextID(now), model.VariantImage, "u", "p", now))
	}
	txt := model.NewTextItem(s.NextID(now), "c", "t", "instagram", "casual", now)
	s.Append(txt)

	assert.Equal(t, 3, s.CountByVariant(model.VariantImage))
	assert.Equal(t, 0, s.CountByVariant(model.VariantVideo))
	assert.Equal(t, 1, s.CountByVariant(model.VariantText))

	got, err := s.Get(txt.ID)
	require.NoError(t, err)
	assert.Equal(t, txt, got)

	_, err = s.Get(42)
	assert.True(t, errors.Is(err, ErrNotFound))
}
