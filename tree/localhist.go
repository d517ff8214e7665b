package tree

// LocalHistogram is a per-worker staging buffer for the primary channels.
// A worker fills it while scanning its contiguous slice of rows, then
// flushes the touched bins into the shared histogram with one atomic add per
// channel per bin, amortizing atomic contention over the whole slice.
//
// It carries no missing bucket: missing rows are rare enough that they go
// straight to the shared histogram's atomic path. A LocalHistogram must
// never be shared between goroutines.
type LocalHistogram struct {
	w   []float64
	wy  []float64
	wyy []float64
}

// NewLocalHistogram creates a staging buffer with the given bin count,
// matching the parent histogram's layout.
func NewLocalHistogram(nbin int) *LocalHistogram {
	return &LocalHistogram{
		w:   make([]float64, nbin),
		wy:  make([]float64, nbin),
		wyy: make([]float64, nbin),
	}
}

// NBins returns the staged bin count.
func (lh *LocalHistogram) NBins() int { return len(lh.w) }

// AddW stages a weighted count increment for bin b.
func (lh *LocalHistogram) AddW(b int, w float64) { lh.w[b] += w }

// AddWY stages a weighted response increment for bin b.
func (lh *LocalHistogram) AddWY(b int, wy float64) { lh.wy[b] += wy }

// AddWYY stages a weighted squared-response increment for bin b.
func (lh *LocalHistogram) AddWYY(b int, wyy float64) { lh.wyy[b] += wyy }

// W returns the staged weighted count of bin b.
func (lh *LocalHistogram) W(b int) float64 { return lh.w[b] }

// WY returns the staged weighted response sum of bin b.
func (lh *LocalHistogram) WY(b int) float64 { return lh.wy[b] }

// WYY returns the staged weighted squared-response sum of bin b.
func (lh *LocalHistogram) WYY(b int) float64 { return lh.wyy[b] }
