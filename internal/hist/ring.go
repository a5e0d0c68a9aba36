// Package hist provides fixed-size history buffers for per-step values.
package hist

// Ring is a circular buffer holding the most recent samples.
// A nil *Ring is a valid, disabled history: Save is a no-op and
// Values returns nil.
type Ring struct {
	buf  []float64
	next int
	full bool
}

// New returns a ring holding up to size samples, or nil when size <= 0.
func New(size int) *Ring {
	if size <= 0 {
		return nil
	}
	return &Ring{buf: make([]float64, size)}
}

// Save appends v, overwriting the oldest sample once the ring is full.
func (r *Ring) Save(v float64) {
	if r == nil {
		return
	}
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of stored samples.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Cap returns the ring size.
func (r *Ring) Cap() int {
	if r == nil {
		return 0
	}
	return len(r.buf)
}

// Last returns the most recently saved sample.
func (r *Ring) Last() (float64, bool) {
	if r.Len() == 0 {
		return 0, false
	}
	idx := r.next - 1
	if idx < 0 {
		idx = len(r.buf) - 1
	}
	return r.buf[idx], true
}

// Values returns a copy of the stored samples, oldest first.
func (r *Ring) Values() []float64 {
	if r.Len() == 0 {
		return nil
	}
	if !r.full {
		out := make([]float64, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]float64, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Reset drops all samples.
func (r *Ring) Reset() {
	if r == nil {
		return
	}
	r.next = 0
	r.full = false
}
