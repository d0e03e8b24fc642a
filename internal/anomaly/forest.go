package anomaly

import (
	"math"
	"math/rand"
)

const eulerGamma = 0.5772156649015329

// node is either an internal split or a leaf carrying the number of
// training samples that reached it.
type node struct {
	feature     int
	split       float64
	left, right *node
	size        int
}

func (n *node) leaf() bool { return n.left == nil }

type isolationTree struct {
	root *node
}

type forest struct {
	trees      []isolationTree
	sampleSize int
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// search in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

func fitForest(x [][]float64, trees int, rng *rand.Rand) *forest {
	sampleSize := len(x)
	if sampleSize > MaxSamples {
		sampleSize = MaxSamples
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	f := &forest{trees: make([]isolationTree, trees), sampleSize: sampleSize}
	for t := range f.trees {
		idx := rng.Perm(len(x))[:sampleSize]
		sample := make([][]float64, sampleSize)
		for i, j := range idx {
			sample[i] = x[j]
		}
		f.trees[t] = isolationTree{root: grow(sample, 0, maxDepth, rng)}
	}
	return f
}

func grow(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *node {
	if depth >= maxDepth || len(sample) <= 1 {
		return &node{size: len(sample)}
	}

	// Only features that vary inside the node can split it.
	dims := len(sample[0])
	var candidates []int
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo[d], hi[d] = sample[0][d], sample[0][d]
		for _, row := range sample[1:] {
			lo[d] = math.Min(lo[d], row[d])
			hi[d] = math.Max(hi[d], row[d])
		}
		if hi[d] > lo[d] {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(sample)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := lo[feature] + rng.Float64()*(hi[feature]-lo[feature])

	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &node{
		feature: feature,
		split:   split,
		left:    grow(left, depth+1, maxDepth, rng),
		right:   grow(right, depth+1, maxDepth, rng),
		size:    len(sample),
	}
}

func (t isolationTree) pathLength(p []float64) float64 {
	n := t.root
	depth := 0.0
	for !n.leaf() {
		if p[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + averagePathLength(n.size)
}

// score returns the anomaly score in (0, 1]; higher is more anomalous.
func (f *forest) score(p []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += t.pathLength(p)
	}
	mean := total / float64(len(f.trees))
	c := averagePathLength(f.sampleSize)
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/c)
}
