// Package h2o3 hosts the split-search statistics engine used while growing
// distributed tree ensembles.
//
// The interesting code lives in the subpackages:
//
//   - tree: per-column per-node histograms with atomic accumulation, staged
//     scanning, merge/reduce, binning strategies and the auxiliary channels
//     for monotonic constraints and uplift modeling
//   - core/atomics: lock-free float64 add and monotone min/max primitives
//   - core/parallel: contiguous row-range fan-out across workers
//   - pkg/errors: structured error types with stack traces
//   - pkg/log: slog setup with stack-trace extraction
//
// # Quick Start
//
// Build a histogram for one column, scan rows in parallel and read the
// per-bin statistics:
//
//	h, err := tree.NewHistogram("age", tree.KindNumeric, 18, 95, tree.HistogramParams{NBins: 20})
//	if err != nil {
//	    // degenerate column range: skip this column
//	}
//	h.AccumulateParallel(weights, nil, col, residuals, nil, rows, nil, runtime.NumCPU())
//	h.ReducePrecision()
//	for b := 0; b < h.NBins(); b++ {
//	    fmt.Println(h.W(b), h.Mean(b), h.Var(b))
//	}
//
// Partial histograms produced by separate tasks or workers fold together
// with tree.ReduceHistograms.
package h2o3
