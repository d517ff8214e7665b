package tree

import (
	"math"
	"math/rand/v2"
	"sort"
)

// HistogramType selects the binning strategy used for split-point search.
type HistogramType int

const (
	// TypeAuto lets the engine choose; it always resolves to
	// TypeUniformAdaptive today.
	TypeAuto HistogramType = iota

	// TypeUniformAdaptive bins values into equal-width intervals between the
	// declared bounds. Successive tree levels re-bin with tightened bounds,
	// so a log number of splits approaches any fixed fancy binning.
	TypeUniformAdaptive

	// TypeRandom places split points at reproducible pseudo-random positions.
	TypeRandom

	// TypeQuantilesGlobal uses precomputed global quantiles as split points,
	// falling back to uniform-adaptive when none are usable.
	TypeQuantilesGlobal

	// TypeRoundRobin is a request token only: construction resolves it to one
	// of the concrete strategies before first use.
	TypeRoundRobin
)

// String returns the strategy name used in logs.
func (t HistogramType) String() string {
	switch t {
	case TypeAuto:
		return "auto"
	case TypeUniformAdaptive:
		return "uniform_adaptive"
	case TypeRandom:
		return "random"
	case TypeQuantilesGlobal:
		return "quantiles_global"
	case TypeRoundRobin:
		return "round_robin"
	default:
		return "unknown"
	}
}

// resolveHistogramType maps the requested strategy onto a concrete one.
// TypeRoundRobin picks a concrete strategy pseudo-randomly from the seed, so
// every worker constructing the same histogram resolves identically.
func resolveHistogramType(requested HistogramType, seed uint64) HistogramType {
	switch requested {
	case TypeAuto:
		return TypeUniformAdaptive
	case TypeRoundRobin:
		concrete := []HistogramType{TypeUniformAdaptive, TypeRandom, TypeQuantilesGlobal}
		rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
		return concrete[rng.IntN(len(concrete))]
	default:
		return requested
	}
}

// randomSplitSeed hashes the histogram layout and the model seed into the
// RNG seed for random split points. Every node with the same layout and seed
// generates the same points.
func randomSplitSeed(step, min, maxEx float64, nbin int, kind ColumnKind, seed uint64) uint64 {
	h := math.Float64bits((step+0.324)*min + 8.3425 + 89.342*maxEx)
	return h + 0xDECAF*uint64(nbin) + 0xC0FFEE*uint64(kind) + seed
}

// makeRandomSplitPoints generates nbin ascending split positions in
// [0, nbin), the first fixed at 0 so the leftmost bin starts at min.
func makeRandomSplitPoints(nbin int, rng *rand.Rand) []float64 {
	splitPts := make([]float64, nbin)
	splitPts[0] = 0
	for i := 1; i < nbin; i++ {
		splitPts[i] = rng.Float64() * float64(nbin)
	}
	sort.Float64s(splitPts)
	return splitPts
}

// limitToRange returns the subrange of sorted split points relevant for
// [min, maxEx). One point at or below min is retained when it exists, so
// every value in [min, maxEx) falls at or after the first returned point.
func limitToRange(sorted []float64, min, maxEx float64) []float64 {
	start := sort.SearchFloat64s(sorted, min)
	if start == len(sorted) || sorted[start] > min {
		// No exact match; keep the preceding point to cover [min, next).
		if start > 0 {
			start--
		}
	}
	end := sort.SearchFloat64s(sorted, maxEx)
	out := make([]float64, end-start)
	copy(out, sorted[start:end])
	return out
}

// padUniformly grows a split-point array to n points by repeatedly
// subdividing the currently widest interval at its midpoint. Deterministic,
// keeps the original points, result stays sorted.
func padUniformly(pts []float64, n int) []float64 {
	out := make([]float64, len(pts), n)
	copy(out, pts)
	for len(out) < n {
		widest := 0
		width := math.Inf(-1)
		for i := 0; i+1 < len(out); i++ {
			if w := out[i+1] - out[i]; w > width {
				width = w
				widest = i
			}
		}
		mid := out[widest] + width/2
		if mid <= out[widest] || mid >= out[widest+1] {
			break // intervals too narrow to subdivide further
		}
		out = append(out, 0)
		copy(out[widest+2:], out[widest+1:])
		out[widest+1] = mid
	}
	return out
}

// canonicalizeZero converts a negative-zero split point to positive zero and
// returns the index of zero, or -1 when no zero point exists. Binary search
// treats -0.0 and 0.0 as equal, but the cached index keeps the zero lookup
// off the search path entirely.
func canonicalizeZero(splitPts []float64) int {
	i := sort.SearchFloat64s(splitPts, 0.0)
	if i == len(splitPts) || splitPts[i] != 0.0 {
		return -1
	}
	if math.Signbit(splitPts[i]) {
		splitPts[i] = 0.0
	}
	return i
}
