package forest

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a fitted tree, stored flat so the tree encodes with gob.
// Leaves have Feature == -1 and carry the class distribution in Value.
// Rows with x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
}

// Tree is a fitted CART classification tree.
type Tree struct {
	Nodes       []Node
	Importances []float64
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	nClasses        int
}

type treeBuilder struct {
	params treeParams
	x      [][]float64
	y      []int
	w      []float64
	rnd    *rand.Rand
	tree   *Tree
}

// fitTree grows a tree on the rows in idx. w holds the effective weight of every
// row of x: bootstrap multiplicity times class weight.
func fitTree(x [][]float64, y []int, w []float64, idx []int, params treeParams, rnd *rand.Rand) *Tree {
	nFeatures := len(x[0])
	b := &treeBuilder{
		params: params,
		x:      x,
		y:      y,
		w:      w,
		rnd:    rnd,
		tree:   &Tree{Importances: make([]float64, nFeatures)},
	}
	b.build(idx, 0)
	normalize(b.tree.Importances)
	return b.tree
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts, total := b.classWeights(idx)
	impurity := gini(counts, total)

	nodeID := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: -1})

	if b.shouldStop(idx, counts, depth) {
		b.tree.Nodes[nodeID].Value = distribution(counts, total)
		return nodeID
	}

	split, ok := b.bestSplit(idx, counts, total)
	if !ok || total*impurity-split.score <= 1e-12 {
		b.tree.Nodes[nodeID].Value = distribution(counts, total)
		return nodeID
	}
	b.tree.Importances[split.feature] += total*impurity - split.score

	left := make([]int, 0, split.nLeft)
	right := make([]int, 0, len(idx)-split.nLeft)
	for _, i := range idx {
		if b.x[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Nodes[nodeID] = Node{
		Feature:   split.feature,
		Threshold: split.threshold,
		Left:      l,
		Right:     r,
	}
	return nodeID
}

func (b *treeBuilder) shouldStop(idx []int, counts []float64, depth int) bool {
	n := len(idx)
	if n < b.params.minSamplesSplit || n < 2*b.params.minSamplesLeaf {
		return true
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return true
	}
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

type candidate struct {
	feature   int
	threshold float64
	score     float64
	nLeft     int
}

// bestSplit searches up to maxFeatures non-constant features, drawn in random
// order, and returns the split with the lowest weighted child impurity.
func (b *treeBuilder) bestSplit(idx []int, parent []float64, total float64) (candidate, bool) {
	nFeatures := len(b.x[0])
	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}
	b.rnd.Shuffle(nFeatures, func(i, j int) { features[i], features[j] = features[j], features[i] })

	limit := b.params.maxFeatures
	if limit <= 0 || limit > nFeatures {
		limit = nFeatures
	}

	best := candidate{feature: -1, score: math.Inf(1)}
	sorted := make([]int, len(idx))
	left := make([]float64, b.params.nClasses)
	right := make([]float64, b.params.nClasses)
	visited := 0

	for _, f := range features {
		if visited >= limit {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		for k := range left {
			left[k] = 0
		}
		leftW := 0.0
		for s := 0; s < len(sorted)-1; s++ {
			i := sorted[s]
			left[b.y[i]] += b.w[i]
			leftW += b.w[i]

			cur, next := b.x[i][f], b.x[sorted[s+1]][f]
			if next <= cur {
				continue
			}
			nLeft := s + 1
			if nLeft < b.params.minSamplesLeaf || len(sorted)-nLeft < b.params.minSamplesLeaf {
				continue
			}
			for k := range right {
				right[k] = parent[k] - left[k]
			}
			rightW := total - leftW
			score := leftW*gini(left, leftW) + rightW*gini(right, rightW)
			if score < best.score {
				thr := cur + (next-cur)/2
				if thr >= next {
					thr = cur
				}
				best = candidate{feature: f, threshold: thr, score: score, nLeft: nLeft}
			}
		}
	}
	return best, best.feature >= 0
}

func (b *treeBuilder) classWeights(idx []int) ([]float64, float64) {
	counts := make([]float64, b.params.nClasses)
	total := 0.0
	for _, i := range idx {
		counts[b.y[i]] += b.w[i]
		total += b.w[i]
	}
	return counts, total
}

// predict returns the leaf distribution for x. The slice must not be modified.
func (t *Tree) predict(x []float64) []float64 {
	n := 0
	for t.Nodes[n].Feature >= 0 {
		node := t.Nodes[n]
		if x[node.Feature] <= node.Threshold {
			n = node.Left
		} else {
			n = node.Right
		}
	}
	return t.Nodes[n].Value
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(n int) int
	walk = func(n int) int {
		node := t.Nodes[n]
		if node.Feature < 0 {
			return 0
		}
		return 1 + max(walk(node.Left), walk(node.Right))
	}
	return walk(0)
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / total
		sum += p * p
	}
	return 1 - sum
}

func distribution(counts []float64, total float64) []float64 {
	out := make([]float64, len(counts))
	if total <= 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}

func normalize(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
