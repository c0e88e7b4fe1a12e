package forest

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Node is a flattened tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int32
	Right     int32
	Value     float64
}

// Tree is a CART regression tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes []Node
}

// Predict walks the tree for a single input row.
func (t *Tree) Predict(x []float64) float64 {
	i := int32(0)
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	nodes    []Node
}

// buildTree grows a regression tree over the rows selected by idx, which may
// contain duplicates (bootstrap samples).
func buildTree(x [][]float64, y []float64, idx []int, maxDepth, minLeaf int) Tree {
	if minLeaf < 1 {
		minLeaf = 1
	}
	b := &treeBuilder{x: x, y: y, maxDepth: maxDepth, minLeaf: minLeaf}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int32 {
	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{Feature: -1, Value: b.mean(idx)})

	if len(idx) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return id
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r
	return id
}

// bestSplit finds the split maximising the squared-error reduction. Comparing
// sumL²/nL + sumR²/nR is equivalent to minimising the children's SSE.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	var total float64
	for _, i := range idx {
		total += b.y[i]
	}
	bestScore := total * total / float64(n)
	const eps = 1e-9

	sorted := make([]int, n)
	for f := range b.x[idx[0]] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		var sumLeft float64
		for k := 0; k < n-1; k++ {
			sumLeft += b.y[sorted[k]]
			nl := k + 1
			nr := n - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			sumRight := total - sumLeft
			score := sumLeft*sumLeft/float64(nl) + sumRight*sumRight/float64(nr)
			if score > bestScore+eps*abs(bestScore) {
				bestScore = score
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

func (b *treeBuilder) mean(idx []int) float64 {
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = b.y[i]
	}
	return stat.Mean(vals, nil)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
