package queue

// minRingSize is the first allocation for a ring created without a capacity hint.
const minRingSize = 16

// ring is a growable circular buffer of payloads in FIFO order.
// It is not safe for concurrent use; the owning channel serialises access.
type ring struct {
	buf  [][]byte
	head int // index of the oldest element
	n    int // number of live elements
}

func newRing(capacity int) *ring {
	if capacity < 0 {
		capacity = 0
	}
	return &ring{buf: make([][]byte, capacity)}
}

// Len returns the number of buffered payloads.
func (r *ring) Len() int { return r.n }

// Cap returns the current size of the backing array.
func (r *ring) Cap() int { return len(r.buf) }

// Push appends p at the tail, doubling the backing array when full.
func (r *ring) Push(p []byte) {
	if r.n == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.n)%len(r.buf)] = p
	r.n++
}

// Pop removes and returns the head. ok is false when the ring is empty.
func (r *ring) Pop() (p []byte, ok bool) {
	if r.n == 0 {
		return nil, false
	}
	p = r.buf[r.head]
	r.buf[r.head] = nil // release the payload for GC
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	if r.n == 0 {
		r.head = 0
	}
	return p, true
}

// grow reallocates the backing array at twice its size and unwraps the
// elements so that head is 0 again.
func (r *ring) grow() {
	size := len(r.buf) * 2
	if size < minRingSize {
		size = minRingSize
	}
	buf := make([][]byte, size)
	k := copy(buf, r.buf[r.head:])
	copy(buf[k:], r.buf[:r.head])
	r.buf = buf
	r.head = 0
}
