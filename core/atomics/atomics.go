// Package atomics provides lock-free float64 primitives for concurrent
// histogram accumulation.
//
// Go has no native atomic float64, so every operation here is expressed as a
// compare-and-swap on the value's IEEE-754 bit pattern. Two idioms are
// exposed: unconditional add (retries until the CAS lands) and monotone
// min/max update (retries until the CAS lands or a racing writer has already
// satisfied the postcondition). The monotone form is only correct because the
// update direction never reverses; do not reuse it for fields that can move
// both ways.
package atomics

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AddFloat64 atomically adds delta to s[i].
func AddFloat64(s []float64, i int, delta float64) {
	addr := (*uint64)(unsafe.Pointer(&s[i]))
	for {
		old := atomic.LoadUint64(addr)
		cur := math.Float64frombits(old)
		if atomic.CompareAndSwapUint64(addr, old, math.Float64bits(cur+delta)) {
			return
		}
	}
}

// Add atomically adds delta to the float64 at addr.
func Add(addr *float64, delta float64) {
	p := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(p)
		cur := math.Float64frombits(old)
		if atomic.CompareAndSwapUint64(p, old, math.Float64bits(cur+delta)) {
			return
		}
	}
}

// Load atomically loads the float64 at addr.
func Load(addr *float64) float64 {
	p := (*uint64)(unsafe.Pointer(addr))
	return math.Float64frombits(atomic.LoadUint64(p))
}

// Store atomically stores v at addr.
func Store(addr *float64, v float64) {
	p := (*uint64)(unsafe.Pointer(addr))
	atomic.StoreUint64(p, math.Float64bits(v))
}

// StoreMin atomically lowers the float64 at addr to v if v is smaller.
// The loop terminates as soon as the current value is already <= v, so a
// racing writer that got there first with a smaller value counts as success.
func StoreMin(addr *float64, v float64) {
	p := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(p)
		if v >= math.Float64frombits(old) {
			return
		}
		if atomic.CompareAndSwapUint64(p, old, math.Float64bits(v)) {
			return
		}
	}
}

// StoreMax atomically raises the float64 at addr to v if v is larger.
func StoreMax(addr *float64, v float64) {
	p := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(p)
		if v <= math.Float64frombits(old) {
			return
		}
		if atomic.CompareAndSwapUint64(p, old, math.Float64bits(v)) {
			return
		}
	}
}
