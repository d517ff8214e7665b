// Package tree implements the split-search statistics engine used while
// growing decision trees inside a distributed tree-ensemble trainer.
//
// For every candidate predictor column at every active tree node, a
// Histogram bins the column's values and accumulates, per bin, a weighted
// count, a weighted response sum and a weighted squared-response sum, from
// which split gain (variance reduction) follows in O(1) per boundary without
// re-scanning raw rows. A dedicated trailing bucket collects rows whose
// value is missing, and the true observed min/max is tracked so the next
// split level can re-bin with tightened bounds.
//
// Histograms are shared across worker goroutines and updated with lock-free
// atomic adds; a per-worker LocalHistogram stages the hot channels so a
// whole row slice costs one atomic add per touched bin. Partial histograms
// from parallel tasks or distributed workers fold together with Merge,
// driven through a binary reduction tree by ReduceHistograms.
//
// Three binning strategies are supported: uniform-adaptive (equal width
// between the declared bounds), quantiles-global (precomputed split points
// from a QuantileStore, with uniform fallback), and random (reproducible
// pseudo-random split points). Optional modes add auxiliary channels for
// monotonic-constraint bound checking (with gamma numerator/denominator
// channels for some loss families) and for uplift modeling.
package tree
