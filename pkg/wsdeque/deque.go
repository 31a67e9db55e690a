// Package wsdeque implements a lock-free, single-producer/multi-consumer
// work-stealing deque: the Chase-Lev deque, as described in "Correct and
// Efficient Work-Stealing for Weak Memory Models" and "Dynamic Circular
// Work-Stealing Deque". Exactly one goroutine (the owner) may call Push and
// Pop; any number of other goroutines (thieves) may call Steal concurrently.
// The owner sees LIFO (stack) ordering; thieves see FIFO (queue) ordering.
package wsdeque

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidCapacity is returned by NewChecked when the requested capacity
// is not a positive power of two.
var ErrInvalidCapacity = errors.New("wsdeque: capacity must be a positive power of two")

// DefaultCapacity is the initial capacity used by New.
const DefaultCapacity = 1024

// retiredCap is the number of retired buffer slots to pre-reserve, amortising
// the cost of repeated growth. Matches the riften::Deque hint of 32.
const retiredCap = 32

// Deque is a lock-free work-stealing deque of elements of type E. The zero
// value is not usable; construct one with New or NewChecked. A *Deque must
// never be copied by value.
type Deque[E any] struct {
	// top and bottom sit on their own cache lines: top is written by every
	// thief via CAS and bottom is written only by the owner, so keeping
	// them apart avoids false sharing between a busy thief and a busy
	// owner on adjacent cores, the same concern the teacher's
	// pkg/turboqueue/turboqueue.go and pkg/fastmpmc/fastmpmc.go address by
	// padding their position counters.
	top    atomic.Int64
	_pad0  [7]uint64
	bottom atomic.Int64
	_pad1  [7]uint64

	buf atomic.Pointer[ringBuffer[E]]

	// retired is owner-exclusive: only Push's growth path appends to it,
	// only Close drains it. No thief ever reads it.
	retired []*ringBuffer[E]
}

// New constructs a deque with the given initial capacity, which must be a
// positive power of two; DefaultCapacity is used if capacity <= 0. New
// panics if capacity is positive but not a power of two, matching the
// "detect via debug assertion" latitude spec.md grants for this misuse.
func New[E any](capacity int) *Deque[E] {
	d, err := NewChecked[E](capacity)
	if err != nil {
		panic(err)
	}
	return d
}

// NewChecked is the fallible counterpart to New, for callers that accept a
// caller- or config-supplied capacity and want an error instead of a panic.
func NewChecked[E any](capacity int) (*Deque[E], error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := uint64(capacity)
	if !isPow2(c) {
		return nil, ErrInvalidCapacity
	}
	d := &Deque[E]{retired: make([]*ringBuffer[E], 0, retiredCap)}
	d.buf.Store(newRingBuffer[E](c))
	return d, nil
}

// Push appends x to the bottom of the deque. Push must only be called by the
// deque's owner goroutine, and never concurrently with Pop or another Push.
func (d *Deque[E]) Push(x E) {
	b := d.bottom.Load()
	t := d.top.Load()
	buf := d.buf.Load()

	if buf.capacity() < uint64(b-t)+1 {
		// Full: grow before constructing the new element. Nothing
		// observable (bottom, the buffer pointer) changes until both the
		// new buffer and the retired-list append have succeeded, so if
		// make() inside grow panics the deque is left exactly as it was
		// — the Go expression of the strong exception guarantee spec.md
		// requires here.
		grown := buf.grow(uint64(b), uint64(t))
		d.retired = append(d.retired, buf)
		buf = grown
		d.buf.Store(buf)
	}

	buf.store(uint64(b), x)

	// atomic.Int64.Store is sequentially consistent under the Go memory
	// model, which subsumes the release-fence-then-relaxed-store pairing
	// spec.md specifies here: any goroutine that later Loads bottom sees
	// the slot write above.
	d.bottom.Store(b + 1)
}

// Pop removes and returns the bottommost element. Pop must only be called by
// the deque's owner goroutine. It returns (zero, false) if the deque is
// empty.
func (d *Deque[E]) Pop() (E, bool) {
	var zero E

	b := d.bottom.Load() - 1
	buf := d.buf.Load()
	d.bottom.Store(b)

	// The sequentially-consistent Load below is the Go realization of
	// spec.md's seq_cst fence between the bottom decrement and the top
	// load: Go's sync/atomic has no separate fence call, and none is
	// needed, because every atomic operation already participates in one
	// global total order.
	t := d.top.Load()

	if t > b {
		// Already empty: a thief had advanced top past the old bottom.
		d.bottom.Store(b + 1)
		return zero, false
	}

	x := buf.load(uint64(b))

	if t == b {
		// Exactly one element remains: race the thieves for it via CAS.
		if !d.top.CompareAndSwap(t, t+1) {
			// Lost the race: a thief took it first.
			d.bottom.Store(b + 1)
			return zero, false
		}
		d.bottom.Store(b + 1)
		return x, true
	}

	// t < b: uncontended, nobody else can reach this slot.
	return x, true
}

// Steal attempts to remove and return the topmost element. Steal may be
// called by any goroutine at any time. A (zero, false) result does not imply
// the deque is empty — it may mean this call lost a race with another
// thief's CAS, or with the owner's Pop; callers that need to keep trying
// must retry until they get a value or independently observe Empty().
func (d *Deque[E]) Steal() (E, bool) {
	var zero E

	t := d.top.Load()
	b := d.bottom.Load()

	if t >= b {
		return zero, false
	}

	// Must read the slot before the CAS: once the CAS below succeeds, the
	// owner is free to overwrite this slot with a new Push.
	buf := d.buf.Load()
	x := buf.load(uint64(t))

	if !d.top.CompareAndSwap(t, t+1) {
		return zero, false
	}
	return x, true
}

// Size returns an instantaneous estimate of the number of elements in the
// deque. It is not synchronised with any other observer.
func (d *Deque[E]) Size() int {
	b := d.bottom.Load()
	t := d.top.Load()
	if b < t {
		return 0
	}
	return int(b - t)
}

// Capacity returns the active buffer's capacity at the instant of the call.
func (d *Deque[E]) Capacity() int {
	return int(d.buf.Load().capacity())
}

// Empty reports whether Size() == 0 at the instant of the call.
func (d *Deque[E]) Empty() bool {
	return d.Size() == 0
}

// Close drains the deque via repeated Pop and releases the active and
// retired buffers for garbage collection. The caller must guarantee that no
// thief is still accessing the deque; Close does not, and cannot, verify
// this. Close does not insert an extra fence before draining: every atomic
// operation Pop performs already carries full sequential consistency under
// the Go memory model, so a bare fence ahead of it would add nothing.
func (d *Deque[E]) Close() {
	for {
		if _, ok := d.Pop(); !ok {
			break
		}
	}
	d.buf.Store(nil)
	d.retired = nil
}
