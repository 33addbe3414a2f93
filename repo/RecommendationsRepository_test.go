package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecommendationsLifecycle(t *testing.T) {
	r := NewMemoryRecommendationsRepository(nil, zap.NewNop())
	ctx := context.Background()

	first, err := r.Save(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = r.Save(ctx, "alice", "carol")
	require.NoError(t, err)
	_, err = r.Save(ctx, "bob", "carol")
	require.NoError(t, err)

	recs, err := r.Get(ctx, "alice", 0, 50)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "bob", recs[0].RecommendedUser)
	assert.Equal(t, "carol", recs[1].RecommendedUser)

	page, err := r.Get(ctx, "alice", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "carol", page[0].RecommendedUser)

	total, err := r.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.NoError(t, r.Delete(ctx, first.ID))
	assert.ErrorIs(t, r.Delete(ctx, first.ID), ErrRecommendationNotFound)

	total, err = r.Total(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestRecommendationsAllowDuplicates(t *testing.T) {
	r := NewMemoryRecommendationsRepository(nil, zap.NewNop())
	ctx := context.Background()

	_, err := r.Save(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = r.Save(ctx, "alice", "bob")
	require.NoError(t, err)

	recs, err := r.Get(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
