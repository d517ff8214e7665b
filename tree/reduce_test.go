package tree

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistogram(t *testing.T) *Histogram {
	t.Helper()
	h, err := NewHistogram("x", KindNumeric, 0, 10, HistogramParams{NBins: 10})
	require.NoError(t, err)
	return h
}

func fillRows(h *Histogram, vs, ys []float64) {
	h.Init()
	for i := range vs {
		h.AddRow(vs[i], ys[i], 1.0)
	}
}

func randomRows(seed uint64, n int) (vs, ys []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	vs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		vs[i] = rng.Float64() * 10
		ys[i] = rng.NormFloat64()
		if i%40 == 0 {
			vs[i] = math.NaN()
		}
	}
	return vs, ys
}

func TestMergeCommutativeAssociative(t *testing.T) {
	vsA, ysA := randomRows(1, 300)
	vsB, ysB := randomRows(2, 400)
	vsC, ysC := randomRows(3, 500)

	build := func(vs, ys []float64) *Histogram {
		h := newTestHistogram(t)
		fillRows(h, vs, ys)
		return h
	}

	// (A+B)+C
	left := build(vsA, ysA)
	left.Merge(build(vsB, ysB))
	left.Merge(build(vsC, ysC))

	// A+(B+C)
	bc := build(vsB, ysB)
	bc.Merge(build(vsC, ysC))
	right := build(vsA, ysA)
	right.Merge(bc)

	// B+A vs A+B for commutativity of counts
	ab := build(vsA, ysA)
	ab.Merge(build(vsB, ysB))
	ba := build(vsB, ysB)
	ba.Merge(build(vsA, ysA))

	for b := 0; b <= left.NBins(); b++ {
		assert.Equal(t, left.W(b), right.W(b), "associativity of counts, bin %d", b)
		assert.InDelta(t, left.WY(b), right.WY(b), 1e-9, "bin %d wy", b)
		assert.Equal(t, ab.W(b), ba.W(b), "commutativity of counts, bin %d", b)
	}
}

func TestPartitionInvariance(t *testing.T) {
	const n = 3000
	vs, ys := randomRows(7, n)
	ws := make([]float64, n)
	for i := range ws {
		ws[i] = 1.0
	}
	rows := makeRows(n)

	whole := newTestHistogram(t)
	whole.Init()
	whole.UpdateHisto(ws, nil, vs, ys, nil, rows, 0, n, nil)

	// Any disjoint partition of the rows must reduce to the same statistics.
	bounds := []int{0, 911, 1204, 2500, n}
	parts := make([]*Histogram, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		p := newTestHistogram(t)
		p.Init()
		p.UpdateHisto(ws, nil, vs, ys, nil, rows, bounds[i], bounds[i+1], nil)
		parts = append(parts, p)
	}
	merged := ReduceHistograms(parts)

	for b := 0; b <= whole.NBins(); b++ {
		assert.Equal(t, whole.W(b), merged.W(b), "bin %d count", b)
		assert.InDelta(t, whole.WY(b), merged.WY(b), 1e-9, "bin %d wy", b)
		assert.InDelta(t, whole.WYY(b), merged.WYY(b), 1e-9, "bin %d wyy", b)
	}
	assert.Equal(t, whole.FindMin(), merged.FindMin())
	assert.Equal(t, whole.FindMaxIn(), merged.FindMaxIn())
}

func TestMergeUninitializedIntoPopulated(t *testing.T) {
	vs, ys := randomRows(5, 200)
	populated := newTestHistogram(t)
	fillRows(populated, vs, ys)

	before := make([]float64, populated.NBins()+1)
	for b := range before {
		before[b] = populated.W(b)
	}

	empty := newTestHistogram(t) // never initialized, all-zero side
	populated.Merge(empty)

	for b := 0; b <= populated.NBins(); b++ {
		assert.Equal(t, before[b], populated.W(b), "merge with the zero side is the identity")
	}
}

func TestMergeAdoptsIntoUninitialized(t *testing.T) {
	vs, ys := randomRows(5, 200)
	populated := newTestHistogram(t)
	fillRows(populated, vs, ys)

	dst := newTestHistogram(t)
	require.False(t, dst.Initialized())
	dst.Merge(populated)

	require.True(t, dst.Initialized())
	for b := 0; b <= dst.NBins(); b++ {
		assert.Equal(t, populated.W(b), dst.W(b), "bin %d adopted", b)
	}
	assert.Equal(t, populated.FindMin(), dst.FindMin())
	assert.Equal(t, populated.FindMaxIn(), dst.FindMaxIn())

	// Adoption keeps bin lookups working on the merged result.
	assert.Equal(t, populated.Bin(5.0), dst.Bin(5.0))
}

func TestMergeMismatchedLayoutPanics(t *testing.T) {
	a := newTestHistogram(t)
	a.Init()
	b, err := NewHistogram("x", KindNumeric, 0, 10, HistogramParams{NBins: 20})
	require.NoError(t, err)
	b.Init()
	b.AddRow(1, 1, 1)

	assert.Panics(t, func() { a.Merge(b) })
}

func TestReduceHistogramsManyPartials(t *testing.T) {
	const n = 4000
	const parts = 7
	vs, ys := randomRows(13, n)

	whole := newTestHistogram(t)
	fillRows(whole, vs, ys)

	partials := make([]*Histogram, parts)
	for p := 0; p < parts; p++ {
		partials[p] = newTestHistogram(t)
		partials[p].Init()
	}
	for i := range vs {
		partials[i%parts].AddRow(vs[i], ys[i], 1.0)
	}
	merged := ReduceHistograms(partials)

	for b := 0; b <= whole.NBins(); b++ {
		assert.Equal(t, whole.W(b), merged.W(b), "bin %d count", b)
		assert.InDelta(t, whole.WY(b), merged.WY(b), 1e-2, "bin %d wy", b)
	}
}

func TestReduceHistogramsToleratesNil(t *testing.T) {
	vs, ys := randomRows(21, 100)
	h := newTestHistogram(t)
	fillRows(h, vs, ys)

	merged := ReduceHistograms([]*Histogram{nil, h, nil})
	require.NotNil(t, merged)
	assert.Equal(t, h.W(0), merged.W(0))

	assert.Nil(t, ReduceHistograms(nil))
}
