package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrFeatureCount     = errors.New("feature count mismatch")
	ErrNonFinite        = errors.New("non-finite feature value")
	ErrNotFitted        = errors.New("model is not fitted")
)

// Params controls gradient boosting
type Params struct {
	Iterations     int     `json:"iterations"`
	MaxDepth       int     `json:"max_depth"`
	LearningRate   float64 `json:"learning_rate"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Bins           int     `json:"bins"`
}

// DefaultParams returns the parameters used when none are configured
func DefaultParams() Params {
	return Params{
		Iterations:     200,
		MaxDepth:       6,
		LearningRate:   0.1,
		MinSamplesLeaf: 20,
		Bins:           64,
	}
}

func (p Params) normalized() Params {
	d := DefaultParams()
	if p.Iterations <= 0 {
		p.Iterations = d.Iterations
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		p.LearningRate = d.LearningRate
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = 1
	}
	if p.Bins < 2 {
		p.Bins = 2
	}
	if p.Bins > math.MaxUint16 {
		p.Bins = math.MaxUint16
	}
	return p
}

// Node is one entry of a flattened regression tree. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int32   `json:"l,omitempty"`
	Right     int32   `json:"r,omitempty"`
	Value     float64 `json:"v,omitempty"`
}

// Tree is a regression tree with its root at Nodes[0]
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := int32(0)
	for {
		n := &t.Nodes[i]
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

// Regressor is a gradient-boosted ensemble of regression trees fitted on
// squared loss with histogram splits. Fitting is deterministic for a given input.
type Regressor struct {
	Params      Params    `json:"params"`
	NumFeatures int       `json:"num_features"`
	Base        float64   `json:"base"`
	Trees       []Tree    `json:"trees"`
	Importance  []float64 `json:"importance"`
}

// NewRegressor creates an unfitted regressor
func NewRegressor(p Params) *Regressor {
	return &Regressor{Params: p.normalized()}
}

// Fit trains the ensemble on X (rows of equal width) and targets y
func (m *Regressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyTrainingSet
	}
	if len(X) != len(y) {
		return fmt.Errorf("%d rows but %d targets", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return fmt.Errorf("%w: rows have no features", ErrFeatureCount)
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureCount, i, len(row), width)
		}
		if err := checkFinite(row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return fmt.Errorf("target %d: %w", i, ErrNonFinite)
		}
	}

	m.Params = m.Params.normalized()
	m.NumFeatures = width
	m.Trees = make([]Tree, 0, m.Params.Iterations)
	m.Importance = make([]float64, width)

	b := newBinner(X, m.Params.Bins)

	var sum float64
	for _, v := range y {
		sum += v
	}
	m.Base = sum / float64(len(y))

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.Base
	}
	residual := make([]float64, len(y))
	idx := make([]int, len(y))
	scratch := make([]int, len(y))

	for it := 0; it < m.Params.Iterations; it++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
			idx[i] = i
		}

		g := &grower{
			params:     m.Params,
			bins:       b,
			residual:   residual,
			importance: m.Importance,
			scratch:    scratch,
		}
		g.grow(idx, 0)
		tree := Tree{Nodes: g.nodes}

		if len(tree.Nodes) == 1 && math.Abs(tree.Nodes[0].Value) < 1e-12 {
			break
		}
		for i := range pred {
			pred[i] += tree.predict(X[i])
		}
		m.Trees = append(m.Trees, tree)
	}

	var total float64
	for _, v := range m.Importance {
		total += v
	}
	if total > 0 {
		for i := range m.Importance {
			m.Importance[i] = 100 * m.Importance[i] / total
		}
	}
	return nil
}

// Predict evaluates the ensemble on one feature row
func (m *Regressor) Predict(x []float64) (float64, error) {
	if m.NumFeatures == 0 {
		return 0, ErrNotFitted
	}
	if len(x) != m.NumFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), m.NumFeatures)
	}
	if err := checkFinite(x); err != nil {
		return 0, err
	}

	out := m.Base
	for i := range m.Trees {
		out += m.Trees[i].predict(x)
	}
	return out, nil
}

// PredictBatch evaluates every row of X
func (m *Regressor) PredictBatch(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		v, err := m.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func checkFinite(x []float64) error {
	for j, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w at feature %d", ErrNonFinite, j)
		}
	}
	return nil
}

// binner maps feature values onto quantile bins. A value v falls in bin b,
// the first b with v <= thresholds[b], or len(thresholds) past the last one.
type binner struct {
	thresholds [][]float64
	codes      [][]uint16 // codes[feature][row]
}

func newBinner(X [][]float64, bins int) *binner {
	width := len(X[0])
	b := &binner{
		thresholds: make([][]float64, width),
		codes:      make([][]uint16, width),
	}

	col := make([]float64, len(X))
	for f := 0; f < width; f++ {
		for i, row := range X {
			col[i] = row[f]
		}
		thr := quantileThresholds(col, bins)
		b.thresholds[f] = thr

		codes := make([]uint16, len(X))
		for i, row := range X {
			codes[i] = uint16(sort.SearchFloat64s(thr, row[f]))
		}
		b.codes[f] = codes
	}
	return b
}

// quantileThresholds returns at most bins-1 ascending split points, each the
// midpoint between two adjacent distinct values.
func quantileThresholds(values []float64, bins int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	uniq := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) < 2 {
		return nil
	}

	if len(uniq) <= bins {
		thr := make([]float64, len(uniq)-1)
		for i := range thr {
			thr[i] = (uniq[i] + uniq[i+1]) / 2
		}
		return thr
	}

	thr := make([]float64, 0, bins-1)
	for q := 1; q < bins; q++ {
		pos := sort.SearchFloat64s(uniq, sorted[q*len(sorted)/bins])
		if pos == 0 {
			continue
		}
		t := (uniq[pos-1] + uniq[pos]) / 2
		if len(thr) == 0 || t > thr[len(thr)-1] {
			thr = append(thr, t)
		}
	}
	return thr
}

// grower builds one tree over the current residuals
type grower struct {
	params     Params
	bins       *binner
	residual   []float64
	importance []float64
	nodes      []Node
	scratch    []int
}

type split struct {
	feature int
	bin     int
	gain    float64
}

// grow appends the subtree over rows idx and returns its root index
func (g *grower) grow(idx []int, depth int) int32 {
	var sum float64
	for _, i := range idx {
		sum += g.residual[i]
	}
	self := int32(len(g.nodes))
	g.nodes = append(g.nodes, Node{Feature: -1, Value: g.params.LearningRate * sum / float64(len(idx))})

	if depth >= g.params.MaxDepth || len(idx) < 2*g.params.MinSamplesLeaf {
		return self
	}

	best, ok := g.bestSplit(idx, sum)
	if !ok {
		return self
	}

	// stable partition: left rows stay in idx[:nLeft], right rows go through scratch
	codes := g.bins.codes[best.feature]
	right := g.scratch[:0]
	nLeft := 0
	for _, i := range idx {
		if int(codes[i]) <= best.bin {
			idx[nLeft] = i
			nLeft++
		} else {
			right = append(right, i)
		}
	}
	copy(idx[nLeft:], right)

	g.importance[best.feature] += best.gain
	g.nodes[self] = Node{
		Feature:   best.feature,
		Threshold: g.bins.thresholds[best.feature][best.bin],
	}

	l := g.grow(idx[:nLeft], depth+1)
	r := g.grow(idx[nLeft:], depth+1)
	g.nodes[self].Left = l
	g.nodes[self].Right = r
	return self
}

// bestSplit scans every feature histogram for the split with the largest
// reduction in squared error. Ties keep the lowest feature and bin.
func (g *grower) bestSplit(idx []int, total float64) (split, bool) {
	n := float64(len(idx))
	parent := total * total / n
	minLeaf := g.params.MinSamplesLeaf

	best := split{gain: 1e-12}
	found := false

	for f, thr := range g.bins.thresholds {
		if len(thr) == 0 {
			continue
		}
		sums := make([]float64, len(thr)+1)
		counts := make([]int, len(thr)+1)
		codes := g.bins.codes[f]
		for _, i := range idx {
			c := codes[i]
			sums[c] += g.residual[i]
			counts[c]++
		}

		var leftSum float64
		leftCount := 0
		for b := 0; b < len(thr); b++ {
			leftSum += sums[b]
			leftCount += counts[b]
			rightCount := len(idx) - leftCount
			if leftCount < minLeaf {
				continue
			}
			if rightCount < minLeaf {
				break
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount) - parent
			if gain > best.gain {
				best = split{feature: f, bin: b, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
