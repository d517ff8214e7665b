package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/BlueTea88/h2o-3/pkg/errors"
)

func TestResolveHistogramType(t *testing.T) {
	assert.Equal(t, TypeUniformAdaptive, resolveHistogramType(TypeAuto, 1))
	assert.Equal(t, TypeRandom, resolveHistogramType(TypeRandom, 1))
	assert.Equal(t, TypeQuantilesGlobal, resolveHistogramType(TypeQuantilesGlobal, 1))
}

func TestResolveRoundRobinIsDeterministic(t *testing.T) {
	first := resolveHistogramType(TypeRoundRobin, 1234)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, resolveHistogramType(TypeRoundRobin, 1234))
	}
	assert.NotEqual(t, TypeRoundRobin, first)
	assert.NotEqual(t, TypeAuto, first)

	// Different seeds eventually pick different strategies.
	seen := map[HistogramType]bool{}
	for seed := uint64(0); seed < 64; seed++ {
		seen[resolveHistogramType(TypeRoundRobin, seed)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestDegenerateRangeError(t *testing.T) {
	// The full float64 range makes maxEx-min overflow to +Inf and the step
	// collapse to zero: the column is unusable, not fatal.
	_, err := NewHistogram("huge", KindNumeric, -math.MaxFloat64, math.MaxFloat64, HistogramParams{NBins: 20})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRangeError(err))
	assert.Contains(t, err.Error(), "huge")

	_, err = NewHistogram("nan", KindNumeric, math.NaN(), 1, HistogramParams{NBins: 20})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRangeError(err))

	// Inverted bounds give a negative step.
	_, err = NewHistogram("inverted", KindNumeric, 5, 1, HistogramParams{NBins: 20})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRangeError(err))
}

func TestRandomSplitPointsReproducible(t *testing.T) {
	mk := func(seed uint64) *Histogram {
		h, err := NewHistogram("x", KindNumeric, 0, 1, HistogramParams{
			NBins: 16,
			Type:  TypeRandom,
			Seed:  seed,
		})
		require.NoError(t, err)
		h.Init()
		return h
	}

	a, b := mk(5), mk(5)
	require.Equal(t, TypeRandom, a.Type())
	require.NotNil(t, a.splitPts)
	assert.Equal(t, a.splitPts, b.splitPts, "same layout and seed makes the same points")

	c := mk(6)
	assert.NotEqual(t, a.splitPts, c.splitPts)

	assert.Equal(t, 0.0, a.splitPts[0], "first point pinned to the range start")
	for i := 1; i < len(a.splitPts); i++ {
		assert.LessOrEqual(t, a.splitPts[i-1], a.splitPts[i])
		assert.Less(t, a.splitPts[i], float64(a.NBins()))
	}

	// Random points live in bin space; binning still covers every value.
	for _, v := range []float64{0, 0.25, 0.5, 0.999} {
		bin := a.Bin(v)
		assert.GreaterOrEqual(t, bin, 0)
		assert.Less(t, bin, a.NBins())
	}
}

func TestQuantileBinning(t *testing.T) {
	store := NewQuantileStore()
	store.Put("col", []float64{1.0, 2.0, 3.0})

	h, err := NewHistogram("col", KindNumeric, 1.0, 4.0, HistogramParams{
		NBins:        3,
		Type:         TypeQuantilesGlobal,
		Quantiles:    store,
		QuantilesKey: "col",
	})
	require.NoError(t, err)
	h.Init()

	require.True(t, h.HasQuantiles())
	assert.Equal(t, 3, h.NBins())
	assert.Equal(t, 0, h.Bin(1.0))
	assert.Equal(t, 0, h.Bin(1.9))
	assert.Equal(t, 1, h.Bin(2.0))
	assert.Equal(t, 1, h.Bin(2.9))
	assert.Equal(t, 2, h.Bin(3.7))
	assert.Equal(t, 1.0, h.BinAt(0))
	assert.Equal(t, 3.0, h.BinAt(2))
}

func TestQuantileSinglePointFallsBackToUniform(t *testing.T) {
	store := NewQuantileStore()
	store.Put("col", []float64{2.5})

	h, err := NewHistogram("col", KindNumeric, 1.0, 4.0, HistogramParams{
		NBins:        3,
		Type:         TypeQuantilesGlobal,
		Quantiles:    store,
		QuantilesKey: "col",
	})
	require.NoError(t, err)
	h.Init()

	assert.False(t, h.HasQuantiles())
	assert.Equal(t, TypeUniformAdaptive, h.Type())
	assert.Equal(t, 3, h.NBins())
	assert.Equal(t, 1, h.Bin(2.5), "uniform binning in effect")
}

func TestQuantileMissingKeyFallsBackToUniform(t *testing.T) {
	h, err := NewHistogram("col", KindNumeric, 0, 1, HistogramParams{
		NBins:        4,
		Type:         TypeQuantilesGlobal,
		Quantiles:    NewQuantileStore(),
		QuantilesKey: "absent",
	})
	require.NoError(t, err)
	h.Init()

	assert.False(t, h.HasQuantiles())
	assert.Nil(t, h.splitPts)
	assert.Equal(t, 4, h.NBins())
}

func TestQuantileClipAndPad(t *testing.T) {
	store := NewQuantileStore()
	// Points outside [10, 20) must be clipped away; the survivors padded up
	// to the requested bin count.
	store.Put("col", []float64{-5, 10, 14, 18, 25, 30})

	h, err := NewHistogram("col", KindNumeric, 10, 20, HistogramParams{
		NBins:        6,
		Type:         TypeQuantilesGlobal,
		Quantiles:    store,
		QuantilesKey: "col",
	})
	require.NoError(t, err)
	h.Init()

	require.True(t, h.HasQuantiles())
	assert.Equal(t, 6, h.NBins())
	for i := 1; i < len(h.splitPts); i++ {
		assert.Less(t, h.splitPts[i-1], h.splitPts[i])
	}
	assert.GreaterOrEqual(t, h.splitPts[0], 10.0)
	assert.Less(t, h.splitPts[len(h.splitPts)-1], 20.0)
}

func TestNegativeZeroSplitPointCanonicalized(t *testing.T) {
	negZero := math.Copysign(0, -1)
	store := NewQuantileStore()
	store.Put("col", []float64{-0.5, negZero, 0.5})

	h, err := NewHistogram("col", KindNumeric, -1, 1, HistogramParams{
		NBins:        3,
		Type:         TypeQuantilesGlobal,
		Quantiles:    store,
		QuantilesKey: "col",
	})
	require.NoError(t, err)
	h.Init()

	require.True(t, h.HasQuantiles())
	assert.Equal(t, 1, h.zeroSplitPos)
	assert.False(t, math.Signbit(h.splitPts[1]), "negative zero rewritten to +0")
	assert.Equal(t, 1, h.Bin(0.0))
	assert.Equal(t, 1, h.Bin(negZero))
}

func TestLimitToRange(t *testing.T) {
	sorted := []float64{1, 3, 5, 7, 9}

	assert.Equal(t, []float64{3, 5, 7}, limitToRange(sorted, 3, 9))
	// No exact match at min: one point below is kept to cover [4, 5).
	assert.Equal(t, []float64{3, 5, 7}, limitToRange(sorted, 4, 8))
	assert.Equal(t, []float64{1, 3, 5, 7, 9}, limitToRange(sorted, 0, 100))
	// Entirely above the points: the last one is still kept as the floor.
	assert.Equal(t, []float64{9}, limitToRange(sorted, 100, 200))
}

func TestPadUniformly(t *testing.T) {
	pts := padUniformly([]float64{0, 10}, 5)
	assert.Len(t, pts, 5)
	for i := 1; i < len(pts); i++ {
		assert.Less(t, pts[i-1], pts[i])
	}
	assert.Equal(t, 0.0, pts[0])
	assert.Equal(t, 10.0, pts[len(pts)-1])

	// Already long enough: unchanged.
	same := padUniformly([]float64{0, 1, 2}, 3)
	assert.Equal(t, []float64{0, 1, 2}, same)
}

func TestValidationErrors(t *testing.T) {
	_, err := NewHistogram("x", KindNumeric, 0, 1, HistogramParams{NBins: -2})
	require.Error(t, err)
	var ve *pkgerrors.ValidationError
	assert.True(t, pkgerrors.As(err, &ve))

	_, err = NewHistogram("x", KindInteger, 0.5, 1.5, HistogramParams{NBins: 20})
	require.Error(t, err, "integer histogram minimum must be whole")
}
