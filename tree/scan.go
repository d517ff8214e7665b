package tree

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/BlueTea88/h2o-3/core/parallel"
	pkgerrors "github.com/BlueTea88/h2o-3/pkg/errors"
	mllog "github.com/BlueTea88/h2o-3/pkg/log"
)

// UpdateHisto accumulates a row range without synchronization. Not thread
// safe: the histogram is assumed to be a private copy owned by the caller,
// typically one per worker task that is merged afterwards.
//
// ws are observation weights, resp the outer model's response column (needed
// for the gamma channels), cs the column data, ys the working response of
// the regression tree (for example boosting residuals), preds the current
// model predictions (only read when the gamma channels are active), rows the
// row indices sorted by leaf assignment, and uplift the treatment indicator
// (nil when uplift mode is off). Rows rows[lo:hi] are processed.
func (h *Histogram) UpdateHisto(ws, resp, cs, ys, preds []float64, rows []int, lo, hi int, uplift []float64) {
	for r := lo; r < hi; r++ {
		k := rows[r]
		weight := ws[k]
		if weight == 0 {
			continue
		}
		v := cs[k]
		if v < h.min2 {
			h.min2 = v
		}
		if v > h.maxIn {
			h.maxIn = v
		}
		y := ys[k]
		if math.IsNaN(y) {
			panic("tree: working response must not be NaN")
		}
		wy := weight * y
		wyy := wy * y
		b := h.Bin(v) // NaN lands on the missing bucket
		h.w[b] += weight
		h.wy[b] += wy
		h.wyy[b] += wyy
		if h.hasPreds && !math.IsNaN(resp[k]) {
			if h.dist != nil && h.dist.Family == DistQuantile {
				h.seP1[b] += h.dist.Deviance(weight, y, h.pred1)
				h.seP2[b] += h.dist.Deviance(weight, y, h.pred2)
			} else {
				h.seP1[b] += weight * (h.pred1 - y) * (h.pred1 - y)
				h.seP2[b] += weight * (h.pred2 - y) * (h.pred2 - y)
			}
			if h.hasDenom {
				h.den[b] += h.dist.GammaDenom(weight, resp[k], y, preds[k])
				if h.hasNum {
					h.num[b] += h.dist.GammaNum(weight, resp[k], y, preds[k])
				}
			}
		}
		if h.uplift != nil && uplift != nil {
			h.uplift.TreatNum[b] += uplift[k] * wy
			h.uplift.TreatDen[b] += uplift[k]
			h.uplift.CtrlNum[b] += (1 - uplift[k]) * wy
			h.uplift.CtrlDen[b] += 1 - uplift[k]
		}
	}
}

// UpdateSharedAndReset scans rows[lo:hi] through a per-worker staging buffer
// and flushes the touched bins into the shared histogram, leaving the buffer
// cleared. The primary channels are hot (every in-range row touches exactly
// one bin) and go through the buffer; missing rows and the observed bounds
// are rare or cheap and go straight to the shared histogram's atomic path.
func (h *Histogram) UpdateSharedAndReset(lh *LocalHistogram, ws, cs, ys []float64, rows []int, lo, hi int, uplift []float64) {
	lo2, hi2 := h.FindMin(), h.FindMaxIn()
	for r := lo; r < hi; r++ {
		k := rows[r]
		weight := ws[k]
		if weight == 0 {
			continue
		}
		v := cs[k]
		if v < lo2 {
			lo2 = v
		}
		if v > hi2 {
			hi2 = v
		}
		y := ys[k]
		if math.IsNaN(y) {
			panic("tree: working response must not be NaN")
		}
		wy := weight * y
		wyy := wy * y
		group := float64(NoUpliftGroup)
		if uplift != nil {
			group = uplift[k]
		}
		if math.IsNaN(v) {
			// Separate bucket for missing values, atomically added to the
			// shared histogram.
			h.addNAsAtomic(weight, wy, wyy, group)
			continue
		}
		b := h.Bin(v)
		lh.AddW(b, weight)
		lh.AddWY(b, wy)
		lh.AddWYY(b, wyy)
	}
	h.setMin(lo2)
	h.setMaxIn(hi2)
	h.flushLocal(lh)
}

// flushLocal folds a staging buffer into the shared accumulators, one atomic
// add per touched bin per channel, and clears the buffer. The response
// channels are truncated to float32 at flush time; see ReducePrecision for
// the end-of-scan counterpart.
func (h *Histogram) flushLocal(lh *LocalHistogram) {
	for b := 0; b < h.nbin; b++ {
		if lh.w[b] != 0 {
			h.AddWAtomic(b, lh.w[b])
			lh.w[b] = 0
		}
		if lh.wy[b] != 0 {
			addFloat32Truncated(h.wy, b, lh.wy[b])
			lh.wy[b] = 0
		}
		if lh.wyy[b] != 0 {
			addFloat32Truncated(h.wyy, b, lh.wyy[b])
			lh.wyy[b] = 0
		}
	}
}

// AccumulateParallel scans all rows with the given worker count. Each worker
// owns a contiguous row range and a private staging buffer for the primary
// channels. The auxiliary constraint channels and the uplift channels bypass
// the buffer and are added atomically per row; they are cold paths and
// staging them would widen every buffer for modes that are usually off.
//
// resp, preds and uplift may be nil when the corresponding mode is off.
func (h *Histogram) AccumulateParallel(ws, resp, cs, ys, preds []float64, rows []int, uplift []float64, workers int) {
	h.Init()
	parallel.ParallelizeWithWorkers(len(rows), workers, func(_, start, end int) {
		lh := NewLocalHistogram(h.nbin)
		lo2, hi2 := h.FindMin(), h.FindMaxIn()
		for r := start; r < end; r++ {
			k := rows[r]
			weight := ws[k]
			if weight == 0 {
				continue
			}
			v := cs[k]
			y := ys[k]
			wy := weight * y
			wyy := wy * y
			group := float64(NoUpliftGroup)
			if uplift != nil {
				group = uplift[k]
			}
			if math.IsNaN(v) {
				h.addNAsAtomic(weight, wy, wyy, group)
				continue
			}
			if v < lo2 {
				lo2 = v
			}
			if v > hi2 {
				hi2 = v
			}
			b := h.Bin(v)
			lh.AddW(b, weight)
			lh.AddWY(b, wy)
			lh.AddWYY(b, wyy)
			if h.hasPreds && resp != nil {
				pred := 0.0
				if preds != nil {
					pred = preds[k]
				}
				h.updateExtendedAtomic(b, weight, y, resp[k], pred)
			}
			if h.uplift != nil && uplift != nil {
				h.updateUpliftAtomic(b, group, wy)
			}
		}
		h.setMin(lo2)
		h.setMaxIn(hi2)
		h.flushLocal(lh)
	})
}

// InitialHistograms sets up one histogram shell per column of X from the
// column rollups (observed min/max, missing count). Columns that are
// constant, all-missing, or whose range degenerates the bin step come back
// nil and are skipped by the split search; a degenerate range is logged and
// ignored, matching the non-fatal contract of RangeError.
//
// quantileKeys may be nil; otherwise it holds one store key per column.
func InitialHistograms(X *mat.Dense, names []string, kinds []ColumnKind, quantileKeys []string, p HistogramParams) ([]*Histogram, error) {
	rows, cols := X.Dims()
	hs := make([]*Histogram, cols)
	for c := 0; c < cols; c++ {
		minIn := math.Inf(1)
		maxIn := math.Inf(-1)
		naCnt := 0
		for r := 0; r < rows; r++ {
			v := X.At(r, c)
			if math.IsNaN(v) {
				naCnt++
				continue
			}
			if v < minIn {
				minIn = v
			}
			if v > maxIn {
				maxIn = v
			}
		}
		if naCnt == rows || minIn == maxIn {
			continue // all-missing or constant column carries no split
		}
		minIn = math.Max(minIn, -math.MaxFloat64)
		maxIn = math.Min(maxIn, math.MaxFloat64)
		maxEx := FindMaxExFor(maxIn, kinds[c])

		colParams := p
		colParams.HasMissing = naCnt > 0
		if quantileKeys != nil {
			colParams.QuantilesKey = quantileKeys[c]
		}
		h, err := NewHistogram(names[c], kinds[c], minIn, maxEx, colParams)
		if err != nil {
			if pkgerrors.IsRangeError(err) {
				slog.Warn("column has step out of range and is ignored",
					mllog.ErrAttr(err),
					slog.String(mllog.ColumnKey, names[c]),
					slog.Float64(mllog.MinKey, minIn),
					slog.Float64(mllog.MaxExKey, maxEx),
				)
				continue
			}
			return nil, err
		}
		hs[c] = h
	}
	return hs, nil
}
