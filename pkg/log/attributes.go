package log

// Standard attribute keys for histogram operations. Using these consistently
// makes logs from parallel scans and distributed reductions filterable by
// column, node and strategy.

// Column and layout context.
const (
	// ColumnKey identifies the predictor column the histogram describes.
	ColumnKey = "histo.column"

	// NodeKey identifies the tree node whose split is being searched.
	NodeKey = "histo.node"

	// BinsKey is the realized bin count (excluding the missing bucket).
	BinsKey = "histo.bins"

	// StrategyKey is the resolved binning strategy.
	// Values: "uniform_adaptive", "quantiles_global", "random".
	StrategyKey = "histo.strategy"

	// MinKey and MaxExKey are the declared inclusive/exclusive bounds.
	MinKey   = "histo.min"
	MaxExKey = "histo.max_ex"
)

// Scan and reduction context.
const (
	// RowsKey is the number of rows scanned by an operation.
	RowsKey = "scan.rows"

	// WorkersKey is the number of goroutines used by a parallel scan.
	WorkersKey = "scan.workers"

	// PartialsKey is the number of partial histograms folded by a reduction.
	PartialsKey = "reduce.partials"

	// DurationMsKey is the elapsed wall time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)
