package tree

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/BlueTea88/h2o-3/core/parallel"
	pkgerrors "github.com/BlueTea88/h2o-3/pkg/errors"
)

// Merge folds another histogram describing the same column and layout into
// this one. Associative and commutative on the accumulator contents.
//
// Merging is assumed single-writer per destination: callers must never run
// two merges into the same histogram concurrently. A binary reduction tree
// satisfies this naturally, so no locking is needed. When the destination
// was never initialized the source's accumulator arrays are adopted
// directly, a zero-copy shortcut for the all-zero side.
//
// Mismatched layouts are a programming error in the surrounding reduction
// logic and panic.
func (h *Histogram) Merge(other *Histogram) {
	if other == nil || other.w == nil {
		return
	}
	if h.w == nil {
		h.adopt(other)
	} else {
		h.assertSameLayout(other)
		floats.Add(h.w, other.w)
		floats.Add(h.wy, other.wy)
		floats.Add(h.wyy, other.wyy)
		if h.seP1 != nil {
			floats.Add(h.seP1, other.seP1)
			floats.Add(h.seP2, other.seP2)
		}
		if h.den != nil {
			floats.Add(h.den, other.den)
		}
		if h.num != nil {
			floats.Add(h.num, other.num)
		}
		if h.uplift != nil && other.uplift != nil {
			floats.Add(h.uplift.TreatNum, other.uplift.TreatNum)
			floats.Add(h.uplift.TreatDen, other.uplift.TreatDen)
			floats.Add(h.uplift.CtrlNum, other.uplift.CtrlNum)
			floats.Add(h.uplift.CtrlDen, other.uplift.CtrlDen)
		}
	}
	// Componentwise fold of the observed bounds. Plain reads are fine here:
	// merge runs after the scans quiesce.
	if h.min2 > other.min2 {
		h.min2 = other.min2
	}
	if h.maxIn < other.maxIn {
		h.maxIn = other.maxIn
	}
}

// adopt takes over the accumulator arrays of an initialized same-layout
// histogram, including the materialized split points so bin lookups keep
// working on the merged result.
func (h *Histogram) adopt(other *Histogram) {
	h.nbin = other.nbin
	h.splitPts = other.splitPts
	h.zeroSplitPos = other.zeroSplitPos
	h.hasQuantiles = other.hasQuantiles
	h.histoType = other.histoType
	h.w = other.w
	h.wy = other.wy
	h.wyy = other.wyy
	h.seP1 = other.seP1
	h.seP2 = other.seP2
	h.den = other.den
	h.num = other.num
	h.uplift = other.uplift
}

func (h *Histogram) assertSameLayout(other *Histogram) {
	if h.kind != other.kind || h.nbin != other.nbin || h.step != other.step ||
		h.min != other.min || h.maxEx != other.maxEx {
		detail := fmt.Sprintf("nbin %d!=%d step %v!=%v range [%v,%v)!=[%v,%v)",
			h.nbin, other.nbin, h.step, other.step, h.min, h.maxEx, other.min, other.maxEx)
		panic(pkgerrors.NewLayoutMismatchError(h.name, detail))
	}
}

// ReduceHistograms folds partial histograms for one (node, column) pair into
// hs[0] through a binary reduction tree. Every round merges disjoint pairs,
// so each destination has exactly one writer per round and Merge needs no
// locking. Nil partials (skipped columns) are tolerated.
func ReduceHistograms(hs []*Histogram) *Histogram {
	n := len(hs)
	if n == 0 {
		return nil
	}
	for stride := 1; stride < n; stride *= 2 {
		pairs := 0
		for i := 0; i+stride < n; i += 2 * stride {
			pairs++
		}
		step := 2 * stride
		parallel.ParallelizeWithThreshold(pairs, 4, func(start, end int) {
			for p := start; p < end; p++ {
				i := p * step
				if hs[i] == nil {
					hs[i] = hs[i+stride]
				} else {
					hs[i].Merge(hs[i+stride])
				}
			}
		})
	}
	return hs[0]
}
