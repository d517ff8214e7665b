package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/BlueTea88/h2o-3/core/atomics"
	pkgerrors "github.com/BlueTea88/h2o-3/pkg/errors"
)

// ColumnKind classifies a predictor column for binning purposes.
type ColumnKind byte

const (
	// KindNumeric is a float column.
	KindNumeric ColumnKind = iota
	// KindInteger is an integer-valued column.
	KindInteger
	// KindCategorical is a categorical column encoded as small integers.
	KindCategorical
)

// NoUpliftGroup marks a row with no treatment/control assignment. It is
// passed for the uplift group whenever uplift mode is off.
const NoUpliftGroup = -1

// HistogramParams bundles the construction-time knobs shared by every
// histogram of one tree-growing iteration.
type HistogramParams struct {
	// NBins is the requested bin count for numeric columns (default 20).
	NBins int

	// NBinsCats is the requested bin count for categorical columns
	// (default 1024).
	NBinsCats int

	// MinSplitImprovement is carried for the split-gain evaluator.
	MinSplitImprovement float64

	// Type is the requested binning strategy.
	Type HistogramType

	// Seed drives round-robin strategy resolution and random split points.
	Seed uint64

	// QuantilesKey locates this column's precomputed split points inside
	// Quantiles. Empty means no quantiles are available.
	QuantilesKey string

	// Quantiles is the shared split-point lookup, may be nil.
	Quantiles *QuantileStore

	// HasMissing declares whether the column was observed to contain
	// missing values before any row is scanned.
	HasMissing bool

	// Constraints enables the monotonic-constraint auxiliary channels.
	Constraints *Constraints

	// UseUplift enables the treatment/control channels.
	UseUplift bool
}

// UpliftStats holds the treatment/control accumulators used when the tree
// estimates a treatment effect. Each slice has one trailing slot for the
// missing bucket, like the primary channels.
type UpliftStats struct {
	TreatNum []float64 // per-bin treatment numerator (group * wy)
	TreatDen []float64 // per-bin treatment denominator (group)
	CtrlNum  []float64 // per-bin control numerator ((1-group) * wy)
	CtrlDen  []float64 // per-bin control denominator (1-group)
}

func newUpliftStats(nbin int) *UpliftStats {
	return &UpliftStats{
		TreatNum: make([]float64, nbin+1),
		TreatDen: make([]float64, nbin+1),
		CtrlNum:  make([]float64, nbin+1),
		CtrlDen:  make([]float64, nbin+1),
	}
}

// Histogram accumulates per-bin split-search statistics for one column at
// one tree node. Bins run from min to maxEx in uniform widths unless a
// split-point strategy is active; a dedicated trailing bucket collects rows
// with missing values.
//
// Histograms are shared across worker goroutines and updated atomically.
// The accumulator slices are allocated lazily by Init because many candidate
// columns are discarded before any row is scanned. Merge folds same-layout
// partials produced by parallel tasks or distributed workers.
type Histogram struct {
	name string
	kind ColumnKind

	nbin  int
	step  float64
	min   float64 // conservative inclusive lower bound
	maxEx float64 // conservative exclusive upper bound

	initNA              bool
	minSplitImprovement float64

	// Candidate fallback predictions for monotonic bound checking.
	pred1, pred2 float64
	dist         *Distribution

	hasPreds bool // squared-error channels against pred1/pred2
	hasDenom bool // gamma denominator channel
	hasNum   bool // gamma numerator channel

	histoType    HistogramType
	seed         uint64
	quantilesKey string
	quantiles    *QuantileStore
	splitPts     []float64
	zeroSplitPos int
	hasQuantiles bool

	// Observed bounds, shared and atomically updated. min2 only decreases
	// and maxIn only increases, which is what makes the lock-free
	// compare-and-retry update in setMin/setMaxIn safe.
	min2  float64
	maxIn float64

	// Primary channels, one trailing slot each for the missing bucket.
	w   []float64 // weighted count
	wy  []float64 // weighted response sum
	wyy []float64 // weighted squared-response sum

	// Auxiliary channels, allocated only when constraints require them.
	seP1 []float64 // squared error against pred1
	seP2 []float64 // squared error against pred2
	den  []float64 // gamma denominator
	num  []float64 // gamma numerator

	uplift *UpliftStats
}

// NewHistogram builds a histogram shell for one column: bounds and layout
// only, no accumulator allocation. A RangeError is returned when the
// declared bounds produce a degenerate bin step; the caller should treat the
// column as unusable for this node and continue with the remaining columns.
func NewHistogram(name string, kind ColumnKind, min, maxEx float64, p HistogramParams) (*Histogram, error) {
	if p.NBins == 0 {
		p.NBins = 20
	}
	if p.NBinsCats == 0 {
		p.NBinsCats = 1024
	}
	if p.NBins < 1 {
		return nil, pkgerrors.NewValidationError("NBins", "must be at least 1", p.NBins)
	}
	if p.NBinsCats < 1 {
		return nil, pkgerrors.NewValidationError("NBinsCats", "must be at least 1", p.NBinsCats)
	}

	h := &Histogram{
		name:                name,
		kind:                kind,
		min:                 min,
		maxEx:               maxEx,
		initNA:              p.HasMissing,
		minSplitImprovement: p.MinSplitImprovement,
		pred1:               math.NaN(),
		pred2:               math.NaN(),
		histoType:           resolveHistogramType(p.Type, p.Seed),
		seed:                p.Seed,
		quantilesKey:        p.QuantilesKey,
		quantiles:           p.Quantiles,
		zeroSplitPos:        -1,
		min2:                math.MaxFloat64,
		maxIn:               -math.MaxFloat64,
	}
	if cs := p.Constraints; cs != nil {
		h.pred1 = cs.Min
		h.pred2 = cs.Max
		h.dist = cs.Dist
		switch {
		case !cs.NeedsGammaDenom() && !cs.NeedsGammaNum():
			h.hasPreds = !math.IsNaN(h.pred1) || !math.IsNaN(h.pred2)
		case !cs.NeedsGammaNum():
			h.hasPreds, h.hasDenom = true, true
		default:
			h.hasPreds, h.hasDenom, h.hasNum = true, true, true
		}
	}
	if p.UseUplift {
		h.uplift = &UpliftStats{} // slices allocated by Init
	}

	// Fewer unique values than requested bins is common for boolean columns
	// and near leaves: shrink to one bin per distinct value.
	xbins := p.NBins
	if kind == KindCategorical {
		xbins = p.NBinsCats
	}
	if kind != KindNumeric && maxEx-min <= float64(xbins) {
		if float64(int64(min)) != min {
			return nil, pkgerrors.NewValidationError("min", "integer/categorical histogram minimum must be a whole number", min)
		}
		xbins = int(int64(maxEx) - int64(min))
		h.step = 1.0
	} else {
		h.step = float64(xbins) / (maxEx - min)
		if h.step <= 0 || math.IsInf(h.step, 0) || math.IsNaN(h.step) {
			return nil, pkgerrors.NewRangeError(name, h.step, xbins, min, maxEx)
		}
	}
	if xbins < 1 {
		return nil, pkgerrors.NewRangeError(name, h.step, xbins, min, maxEx)
	}
	h.nbin = xbins
	return h, nil
}

// Init allocates the accumulator arrays and materializes the split points of
// the active strategy. Construction keeps histograms cheap so the driver can
// discard unpromising columns before paying for the big arrays; Init is
// called once per histogram that will actually be scanned. Calling Init on
// an initialized histogram is a no-op.
func (h *Histogram) Init() {
	if h.w != nil {
		return
	}
	switch h.histoType {
	case TypeRandom:
		// Every node with the same layout makes the same split points.
		rng := rand.New(rand.NewPCG(randomSplitSeed(h.step, h.min, h.maxEx, h.nbin, h.kind, h.seed), 0xDECAF))
		h.splitPts = makeRandomSplitPoints(h.nbin, rng)
	case TypeQuantilesGlobal:
		h.initQuantiles()
	}
	if h.splitPts != nil {
		h.zeroSplitPos = canonicalizeZero(h.splitPts)
	}
	h.allocate()
}

// initQuantiles fetches and refines the global split points. Any degenerate
// outcome silently downgrades to uniform-adaptive binning: quantile binning
// is an optimization, not a correctness requirement.
func (h *Histogram) initQuantiles() {
	if h.quantiles == nil || h.quantilesKey == "" {
		return
	}
	pts, ok := h.quantiles.Get(h.quantilesKey)
	if !ok || pts == nil {
		return
	}
	pts = limitToRange(pts, h.min, h.maxEx)
	if len(pts) > 1 && len(pts) < h.nbin {
		pts = padUniformly(pts, h.nbin)
	}
	if len(pts) <= 1 {
		h.histoType = TypeUniformAdaptive
		return
	}
	h.splitPts = pts
	h.hasQuantiles = true
	h.nbin = len(pts)
}

func (h *Histogram) allocate() {
	n := h.nbin + 1 // trailing missing bucket
	h.w = make([]float64, n)
	h.wy = make([]float64, n)
	h.wyy = make([]float64, n)
	if h.hasPreds {
		h.seP1 = make([]float64, n)
		h.seP2 = make([]float64, n)
	}
	if h.hasDenom {
		h.den = make([]float64, n)
	}
	if h.hasNum {
		h.num = make([]float64, n)
	}
	if h.uplift != nil {
		h.uplift = newUpliftStats(h.nbin)
	}
}

// Initialized reports whether the accumulator arrays have been allocated.
func (h *Histogram) Initialized() bool { return h.w != nil }

// Name returns the column name (diagnostic only).
func (h *Histogram) Name() string { return h.name }

// Kind returns the column kind.
func (h *Histogram) Kind() ColumnKind { return h.kind }

// Type returns the resolved binning strategy.
func (h *Histogram) Type() HistogramType { return h.histoType }

// HasQuantiles reports whether global quantile split points are in effect.
func (h *Histogram) HasQuantiles() bool { return h.hasQuantiles }

// Step returns the linear interpolation step per bin.
func (h *Histogram) Step() float64 { return h.step }

// Min returns the declared inclusive lower bound.
func (h *Histogram) Min() float64 { return h.min }

// MaxEx returns the declared exclusive upper bound.
func (h *Histogram) MaxEx() float64 { return h.maxEx }

// MinSplitImprovement returns the minimum gain carried for the split-gain
// evaluator.
func (h *Histogram) MinSplitImprovement() float64 { return h.minSplitImprovement }

// NBins returns the number of bins excluding the missing bucket.
func (h *Histogram) NBins() int { return h.nbin }

// ActNBins returns the number of bins including the missing bucket when it
// is (or is declared to be) occupied.
func (h *Histogram) ActNBins() int {
	if h.HasNABin() {
		return h.nbin + 1
	}
	return h.nbin
}

// HasNABin reports whether the missing bucket is relevant. Before any data
// is scanned this is the caller's declaration (speculative, used to size
// downstream structures conservatively); after scanning it is authoritative:
// true iff the missing bucket holds positive weight.
func (h *Histogram) HasNABin() bool {
	if h.w == nil {
		return h.initNA
	}
	return h.WNA() > 0
}

// W returns the weighted count of bin b.
func (h *Histogram) W(b int) float64 { return h.w[b] }

// WY returns the weighted response sum of bin b.
func (h *Histogram) WY(b int) float64 { return h.wy[b] }

// WYY returns the weighted squared-response sum of bin b.
func (h *Histogram) WYY(b int) float64 { return h.wyy[b] }

// SEP1 returns bin b's squared error against the first candidate prediction.
func (h *Histogram) SEP1(b int) float64 { return h.seP1[b] }

// SEP2 returns bin b's squared error against the second candidate prediction.
func (h *Histogram) SEP2(b int) float64 { return h.seP2[b] }

// Denom returns bin b's gamma denominator.
func (h *Histogram) Denom(b int) float64 { return h.den[b] }

// Num returns bin b's gamma numerator.
func (h *Histogram) Num(b int) float64 { return h.num[b] }

// Missing bucket accessors.
func (h *Histogram) WNA() float64   { return h.w[h.nbin] }
func (h *Histogram) WYNA() float64  { return h.wy[h.nbin] }
func (h *Histogram) WYYNA() float64 { return h.wyy[h.nbin] }

// SEP1NA returns the missing bucket's squared error against the first
// candidate prediction.
func (h *Histogram) SEP1NA() float64 { return h.seP1[h.nbin] }

// SEP2NA returns the missing bucket's squared error against the second
// candidate prediction.
func (h *Histogram) SEP2NA() float64 { return h.seP2[h.nbin] }

// DenomNA returns the missing bucket's gamma denominator.
func (h *Histogram) DenomNA() float64 { return h.den[h.nbin] }

// NumNA returns the missing bucket's gamma numerator.
func (h *Histogram) NumNA() float64 { return h.num[h.nbin] }

// Uplift returns the treatment/control accumulators, or nil when uplift mode
// is off.
func (h *Histogram) Uplift() *UpliftStats { return h.uplift }

// Bin interpolates a column value to its bin index. NaN maps to the missing
// bucket, infinities to the edge bins. Finite values must satisfy
// min <= v < maxEx; anything else is a precondition violation by the caller
// and panics.
func (h *Histogram) Bin(v float64) int {
	if math.IsNaN(v) {
		return h.nbin // missing bucket
	}
	if math.IsInf(v, 0) {
		if v < 0 {
			return 0
		}
		return h.nbin - 1
	}
	if v < h.min || v >= h.maxEx {
		panic(fmt.Sprintf("tree: column %s: value %v out of declared range [%v, %v)", h.name, v, h.min, h.maxEx))
	}

	// Quantile split points live in value space; everything else is scaled
	// into bin space first.
	pos := v
	if !h.hasQuantiles {
		pos = (v - h.min) * h.step
	}
	var idx int
	if h.splitPts != nil {
		if pos == 0.0 && h.zeroSplitPos >= 0 {
			idx = h.zeroSplitPos
		} else {
			i := sort.SearchFloat64s(h.splitPts, pos)
			if i == len(h.splitPts) || h.splitPts[i] != pos {
				i-- // insertion point minus one
			}
			idx = i
		}
	} else {
		idx = int(pos)
	}
	if idx == h.nbin {
		idx-- // roundoff can hit the upper bound exactly
	}
	if idx < 0 || idx >= h.nbin {
		panic(fmt.Sprintf("tree: column %s: bin index %d outside [0, %d)", h.name, idx, h.nbin))
	}
	return idx
}

// BinAt returns the lower boundary of bin b in value space.
func (h *Histogram) BinAt(b int) float64 {
	if h.hasQuantiles {
		return h.splitPts[b]
	}
	if h.splitPts != nil {
		return h.min + h.splitPts[b]/h.step
	}
	return h.min + float64(b)/h.step
}

// setMin atomically lowers the observed minimum. Safe lock-free because the
// update is monotone: any value a racing writer installed ahead of ours
// already satisfies our postcondition.
func (h *Histogram) setMin(v float64) {
	atomics.StoreMin(&h.min2, v)
}

// setMaxIn atomically raises the observed inclusive maximum.
func (h *Histogram) setMaxIn(v float64) {
	atomics.StoreMax(&h.maxIn, v)
}

// FindMin returns the observed inclusive minimum.
func (h *Histogram) FindMin() float64 { return atomics.Load(&h.min2) }

// FindMaxIn returns the observed inclusive maximum.
func (h *Histogram) FindMaxIn() float64 { return atomics.Load(&h.maxIn) }

// FindMaxEx returns the smallest exclusive upper bound above the observed
// maximum, used to tighten the next split level's declared range.
func (h *Histogram) FindMaxEx() float64 {
	return FindMaxExFor(h.FindMaxIn(), h.kind)
}

// FindMaxExFor widens an inclusive maximum to the smallest usable exclusive
// bound: one ulp for float columns, at least one whole unit for integer and
// categorical columns.
func FindMaxExFor(maxIn float64, kind ColumnKind) float64 {
	ulp := ulp64(maxIn)
	if kind != KindNumeric && ulp < 1 {
		ulp = 1
	}
	res := maxIn + ulp
	if math.IsInf(res, 0) {
		return maxIn
	}
	return res
}

func ulp64(x float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return math.Inf(1)
	}
	next := math.Nextafter(math.Abs(x), math.Inf(1))
	return next - math.Abs(x)
}

// AddRow adds a single observation: value v, working response y, weight w.
// The bin's count always advances; the response channels advance only for
// non-zero weighted response, stored in reduced precision to keep parallel
// runs reproducible. Missing values go to the missing bucket.
func (h *Histogram) AddRow(v, y, w float64) {
	if math.IsNaN(v) {
		h.addNAsAtomic(w, w*y, w*y*y, NoUpliftGroup)
		return
	}
	b := h.Bin(v)
	atomics.AddFloat64(h.w, b, w)
	if !math.IsInf(v, 0) {
		h.setMin(v)
		h.setMaxIn(v)
	}
	if y != 0 && w != 0 {
		h.addWYAtomic(b, y, w)
	}
}

// addWYAtomic bumps the response channels of bin b. Contributions are
// truncated to float32 before the atomic add; summation order varies with
// the thread partitioning, and dropping the least significant mantissa bits
// at write time keeps the result reproducible across parallelism degrees.
func (h *Histogram) addWYAtomic(b int, y, w float64) {
	atomics.AddFloat64(h.wy, b, float64(float32(w*y)))
	atomics.AddFloat64(h.wyy, b, float64(float32(w*y*y)))
}

// AddWAtomic bumps only the weighted count of bin b.
func (h *Histogram) AddWAtomic(b int, wDelta float64) {
	atomics.AddFloat64(h.w, b, wDelta)
}

// addFloat32Truncated atomically adds v to s[i] after dropping v's least
// significant mantissa bits, the write-time half of the reproducibility
// policy.
func addFloat32Truncated(s []float64, i int, v float64) {
	atomics.AddFloat64(s, i, float64(float32(v)))
}

// addNAsAtomic adds one missing-value row to the missing bucket.
// upliftGroup is the row's treatment indicator, or NoUpliftGroup when uplift
// mode is off.
func (h *Histogram) addNAsAtomic(w, wy, wyy, upliftGroup float64) {
	na := h.nbin
	atomics.AddFloat64(h.w, na, w)
	atomics.AddFloat64(h.wy, na, wy)
	atomics.AddFloat64(h.wyy, na, wyy)
	if h.uplift != nil && upliftGroup != NoUpliftGroup {
		atomics.AddFloat64(h.uplift.TreatNum, na, upliftGroup*wy)
		atomics.AddFloat64(h.uplift.TreatDen, na, upliftGroup)
		atomics.AddFloat64(h.uplift.CtrlNum, na, (1-upliftGroup)*wy)
		atomics.AddFloat64(h.uplift.CtrlDen, na, 1-upliftGroup)
	}
}

// updateExtendedAtomic accumulates the auxiliary constraint channels for one
// in-range row. These are always routed through the atomic path, never the
// staging buffer: constraint checking is an optional cold path and staging
// it would not pay for the extra buffer width.
func (h *Histogram) updateExtendedAtomic(b int, weight, y, resp, pred float64) {
	if !h.hasPreds || math.IsNaN(resp) {
		return
	}
	if h.dist != nil && h.dist.Family == DistQuantile {
		atomics.AddFloat64(h.seP1, b, h.dist.Deviance(weight, y, h.pred1))
		atomics.AddFloat64(h.seP2, b, h.dist.Deviance(weight, y, h.pred2))
	} else {
		atomics.AddFloat64(h.seP1, b, weight*(h.pred1-y)*(h.pred1-y))
		atomics.AddFloat64(h.seP2, b, weight*(h.pred2-y)*(h.pred2-y))
	}
	if h.hasDenom {
		atomics.AddFloat64(h.den, b, h.dist.GammaDenom(weight, resp, y, pred))
		if h.hasNum {
			atomics.AddFloat64(h.num, b, h.dist.GammaNum(weight, resp, y, pred))
		}
	}
}

// updateUpliftAtomic accumulates the treatment/control channels for one
// in-range row.
func (h *Histogram) updateUpliftAtomic(b int, group, wy float64) {
	atomics.AddFloat64(h.uplift.TreatNum, b, group*wy)
	atomics.AddFloat64(h.uplift.TreatDen, b, group)
	atomics.AddFloat64(h.uplift.CtrlNum, b, (1-group)*wy)
	atomics.AddFloat64(h.uplift.CtrlDen, b, 1-group)
}

// Mean returns the weighted response mean of bin b, or 0 for an empty bin.
func (h *Histogram) Mean(b int) float64 {
	n := h.w[b]
	if n > 0 {
		return h.wy[b] / n
	}
	return 0
}

// Var returns the sample variance of bin b (Bessel's correction), floored at
// zero to absorb floating-point cancellation. Bins with weight <= 1 report 0.
func (h *Histogram) Var(b int) float64 {
	n := h.w[b]
	if n <= 1 {
		return 0
	}
	return math.Max(0, (h.wyy[b]-h.wy[b]*h.wy[b]/n)/(n-1))
}

// ReducePrecision truncates the response channels of every bin except the
// missing bucket to float32 precision. Floating-point summation order varies
// across thread and worker partitionings; dropping the bits most affected by
// that makes final results reproducible across parallelism degrees.
// Idempotent.
func (h *Histogram) ReducePrecision() {
	if h.w == nil {
		return
	}
	for b := 0; b < h.nbin; b++ {
		h.wy[b] = float64(float32(h.wy[b]))
		h.wyy[b] = float64(float32(h.wyy[b]))
	}
}

// String pretty-prints the histogram layout and, when initialized, the
// per-bin count, mean and variance.
func (h *Histogram) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%v-%v step=%v nbins=%d actNBins=%d kind=%d type=%s",
		h.name, h.min, h.maxEx, 1/h.step, h.NBins(), h.ActNBins(), h.kind, h.histoType)
	if h.w != nil {
		for b := 0; b < h.nbin; b++ {
			fmt.Fprintf(&sb, "\ncnt=%f, [%f - %f], mean/var=%6.2f/%6.2f,",
				h.w[b], h.min+float64(b)/h.step, h.min+float64(b+1)/h.step, h.Mean(b), h.Var(b))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// NASplitDir is the split direction assigned to missing values once a split
// is chosen. Kept with the histogram because the missing bucket's statistics
// decide it.
type NASplitDir int

const (
	// NASplitNone is the initial state; never saw missing values.
	NASplitNone NASplitDir = iota
	// NASplitNAvsRest splits non-missing (left) against missing (right).
	NASplitNAvsRest
	// NASplitLeft routes missing values left.
	NASplitLeft
	// NASplitRight routes missing values right.
	NASplitRight
	// NASplitLeftAll routes test-time missing values left even though none
	// were seen in training.
	NASplitLeftAll
	// NASplitRightAll routes test-time missing values right even though none
	// were seen in training.
	NASplitRightAll
)
