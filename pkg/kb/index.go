package kb

import (
	"context"
	"fmt"
	"sort"
)

// FlatIndex is an exhaustive in-memory nearest-neighbor index over squared
// Euclidean distance. It is rebuilt wholesale whenever the document set
// changes, which is fine for the corpus sizes involved.
type FlatIndex struct {
	dim  int
	ids  []int64
	vecs [][]float32
}

func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Build replaces the index contents with the given ids and vectors.
func (i *FlatIndex) Build(_ context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat index: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("flat index: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.ids = append([]int64(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	return nil
}

// Search returns up to k ids ordered by ascending squared Euclidean
// distance to the query.
func (i *FlatIndex) Search(_ context.Context, query []float32, k int) ([]int64, []float32, error) {
	if k <= 0 || i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("flat index: query dim %d != index dim %d", len(query), i.dim)
	}

	type scored struct {
		idx  int
		dist float32
	}
	scoreds := make([]scored, len(i.vecs))
	for j := range i.vecs {
		scoreds[j] = scored{idx: j, dist: sqDistance(query, i.vecs[j])}
	}
	sort.Slice(scoreds, func(a, b int) bool { return scoreds[a].dist < scoreds[b].dist })

	if k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]int64, k)
	outDists := make([]float32, k)
	for n := 0; n < k; n++ {
		outIDs[n] = i.ids[scoreds[n].idx]
		outDists[n] = scoreds[n].dist
	}
	return outIDs, outDists, nil
}

func (i *FlatIndex) Close() {}

func sqDistance(a, b []float32) float32 {
	var s float32
	for j := range a {
		d := a[j] - b[j]
		s += d * d
	}
	return s
}
