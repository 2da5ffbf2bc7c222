package kb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatIndexSearchOrdering(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()

	err := idx.Build(ctx,
		[]int64{10, 20, 30},
		[][]float32{{5, 0}, {0, 0}, {2, 0}})
	require.NoError(t, err)

	ids, dists, err := idx.Search(ctx, []float32{0.4, 0}, 3)
	require.NoError(t, err)

	assert.Equal(t, []int64{20, 30, 10}, ids)
	require.Len(t, dists, 3)
	for n := 1; n < len(dists); n++ {
		assert.LessOrEqual(t, dists[n-1], dists[n])
	}
}

func TestFlatIndexTopKClamp(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()

	err := idx.Build(ctx, []int64{1, 2}, [][]float32{{0}, {1}})
	require.NoError(t, err)

	ids, _, err := idx.Search(ctx, []float32{0}, 10)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ids, _, err = idx.Search(ctx, []float32{0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	for _, k := range []int{0, -1} {
		ids, dists, err := idx.Search(ctx, []float32{0}, k)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Empty(t, dists)
	}
}

func TestFlatIndexEmpty(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()

	require.NoError(t, idx.Build(ctx, nil, nil))

	ids, dists, err := idx.Search(ctx, []float32{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, dists)
}

func TestFlatIndexBuildErrors(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()

	err := idx.Build(ctx, []int64{1}, [][]float32{{0}, {1}})
	assert.Error(t, err)

	err = idx.Build(ctx, []int64{1, 2}, [][]float32{{0, 1}, {1}})
	assert.Error(t, err)
}

func TestFlatIndexQueryDimMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewFlatIndex()

	require.NoError(t, idx.Build(ctx, []int64{1}, [][]float32{{0, 0}}))

	_, _, err := idx.Search(ctx, []float32{1}, 1)
	assert.Error(t, err)
}
