package pipeline

import (
	"math"
	"math/rand"
)

// Split holds row indices into the partitioned sequence
type Split struct {
	Train []int
	Test  []int
}

// TestCount returns ceil(fraction*n) clamped to [0, n]. The epsilon keeps
// fractions like 0.1*30 from rounding up to 4 through float error.
func TestCount(n int, fraction float64) int {
	if n <= 0 || fraction <= 0 {
		return 0
	}
	if fraction >= 1 {
		return n
	}
	k := int(math.Ceil(float64(n)*fraction - 1e-9))
	if k > n {
		return n
	}
	return k
}

// SplitRandom shuffles 0..n-1 with a source seeded by seed and takes the first
// TestCount indices as test. Same n, fraction and seed always give the same split.
func SplitRandom(n int, testFraction float64, seed int64) Split {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	k := TestCount(n, testFraction)
	return Split{Train: idx[k:], Test: idx[:k]}
}

// SplitPositional keeps order: train is the leading n-k indices, test the trailing k.
func SplitPositional(n int, testFraction float64) Split {
	k := TestCount(n, testFraction)
	cut := n - k

	s := Split{Train: make([]int, cut), Test: make([]int, k)}
	for i := 0; i < cut; i++ {
		s.Train[i] = i
	}
	for i := 0; i < k; i++ {
		s.Test[i] = cut + i
	}
	return s
}
