package ml

import (
	"math/rand"
	"slices"
)

// TreeNode is one node of a fitted regression tree stored in a flat slice.
// Leaves have Left == -1; internal nodes send x[Feature] <= Threshold left.
type TreeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// RegressionTree is a CART regressor that splits on squared-error reduction.
type RegressionTree struct {
	MaxDepth        int        `json:"-"`
	MinSamplesSplit int        `json:"-"`
	MinSamplesLeaf  int        `json:"-"`
	MaxFeatures     int        `json:"-"` // 0 => every column is tried at each split
	Seed            int64      `json:"-"`
	Nodes           []TreeNode `json:"nodes"`
}

func newRegressionTree(p Params, nFeatures int, seed int64) *RegressionTree {
	t := &RegressionTree{
		MaxDepth:        p.MaxDepth,
		MinSamplesSplit: max(p.MinSamplesSplit, 2),
		MinSamplesLeaf:  max(p.MinSamplesLeaf, 1),
		Seed:            seed,
	}
	if p.MaxFeatures > 0 && p.MaxFeatures < 1 {
		t.MaxFeatures = max(1, int(p.MaxFeatures*float64(nFeatures)))
	}
	return t
}

// fit grows the tree on the rows of X listed in idx. Rows may repeat, which
// is how bootstrap samples are expressed.
func (t *RegressionTree) fit(X [][]float64, y []float64, idx []int) {
	b := &treeBuilder{
		tree: t,
		X:    X,
		y:    y,
		rnd:  rand.New(rand.NewSource(t.Seed)),
	}
	t.Nodes = t.Nodes[:0]
	b.grow(slices.Clone(idx), 0)
}

// PredictRow walks the tree for a single encoded row.
func (t *RegressionTree) PredictRow(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	n := 0
	for t.Nodes[n].Left >= 0 {
		node := t.Nodes[n]
		if x[node.Feature] <= node.Threshold {
			n = node.Left
		} else {
			n = node.Right
		}
	}
	return t.Nodes[n].Value
}

type treeBuilder struct {
	tree *RegressionTree
	X    [][]float64
	y    []float64
	rnd  *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	pos       int // rows [0,pos) of the sorted index go left
	sse       float64
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	t := b.tree
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Left: -1, Right: -1, Value: sum / n})

	parentSSE := sumSq - sum*sum/n
	if len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) || parentSSE <= 1e-12 {
		return self
	}

	best, ok := b.bestSplit(idx, parentSSE)
	if !ok {
		return self
	}

	sortByFeature(b.X, idx, best.feature)
	left := slices.Clone(idx[:best.pos])
	right := slices.Clone(idx[best.pos:])

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	t.Nodes[self] = TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      l,
		Right:     r,
		Value:     sum / n,
	}
	return self
}

func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (split, bool) {
	t := b.tree
	nFeatures := len(b.X[0])
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < nFeatures {
		b.rnd.Shuffle(nFeatures, func(i, j int) { features[i], features[j] = features[j], features[i] })
		features = features[:t.MaxFeatures]
		slices.Sort(features)
	}

	best := split{sse: parentSSE - 1e-12}
	found := false
	sorted := slices.Clone(idx)
	n := len(sorted)

	for _, f := range features {
		sortByFeature(b.X, sorted, f)

		var totSum, totSq float64
		for _, i := range sorted {
			totSum += b.y[i]
			totSq += b.y[i] * b.y[i]
		}

		var lSum, lSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[sorted[k]]
			lSum += yi
			lSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			rSum, rSq := totSum-lSum, totSq-lSq
			sse := (lSq - lSum*lSum/float64(nl)) + (rSq - rSum*rSum/float64(nr))
			if sse < best.sse {
				best = split{feature: f, threshold: cur + (next-cur)/2, pos: nl, sse: sse}
				found = true
			}
		}
	}
	return best, found
}

// sortByFeature orders idx by column f, breaking ties by row index so the
// result does not depend on the input order.
func sortByFeature(X [][]float64, idx []int, f int) {
	slices.SortFunc(idx, func(a, b int) int {
		va, vb := X[a][f], X[b][f]
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		default:
			return a - b
		}
	})
}
