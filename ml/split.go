package ml

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// TrainTestSplit shuffles row indices 0..n-1 with seed and returns the train
// and test partitions. The test partition has ceil(n*testRatio) rows, kept
// within [1, n-1]. Each partition is returned in ascending order so the same
// seed and n always give identical membership and order.
func TrainTestSplit(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("split: need at least 2 rows, got %d", n)
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("split: test ratio %v outside (0, 1)", testRatio)
	}

	nTest := int(math.Ceil(float64(n)*testRatio - 1e-9))
	nTest = min(max(nTest, 1), n-1)

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = slices.Clone(perm[:nTest])
	train = slices.Clone(perm[nTest:])
	slices.Sort(test)
	slices.Sort(train)
	return train, test, nil
}

// SampleRows returns the indices of at most limit rows chosen with seed, in
// ascending order. limit <= 0 or limit >= n keeps every row.
func SampleRows(n, limit int, seed int64) []int {
	if limit <= 0 || limit >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := slices.Clone(rand.New(rand.NewSource(seed)).Perm(n)[:limit])
	slices.Sort(idx)
	return idx
}
