package queue

import (
	"strconv"
	"testing"
)

func TestRing_PushPopOrder(t *testing.T) {
	r := newRing(0)
	for i := 0; i < 100; i++ {
		r.Push([]byte(strconv.Itoa(i)))
	}
	if r.Len() != 100 {
		t.Fatalf("Len: want 100, got %d", r.Len())
	}
	for i := 0; i < 100; i++ {
		p, ok := r.Pop()
		if !ok {
			t.Fatalf("Pop %d: ring reported empty", i)
		}
		if string(p) != strconv.Itoa(i) {
			t.Fatalf("Pop %d: got %q", i, p)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("Pop on drained ring should report empty")
	}
}

// Growing while the live window wraps past the end of the backing array must
// keep FIFO order.
func TestRing_GrowWhileWrapped(t *testing.T) {
	r := newRing(4)
	next, want := 0, 0

	push := func(n int) {
		for i := 0; i < n; i++ {
			r.Push([]byte(strconv.Itoa(next)))
			next++
		}
	}
	pop := func(n int) {
		for i := 0; i < n; i++ {
			p, ok := r.Pop()
			if !ok {
				t.Fatalf("unexpected empty ring at %d", want)
			}
			if string(p) != strconv.Itoa(want) {
				t.Fatalf("want %d, got %q", want, p)
			}
			want++
		}
	}

	push(4)
	pop(3)
	push(3) // wraps: head=3
	if r.Cap() != 4 {
		t.Fatalf("Cap before grow: want 4, got %d", r.Cap())
	}
	push(5) // forces growth from a wrapped state
	if r.Cap() < 9 {
		t.Fatalf("Cap after grow: want >= 9, got %d", r.Cap())
	}
	pop(r.Len())
	if want != next {
		t.Fatalf("drained %d of %d", want, next)
	}
}

func TestRing_CapacityHintIsNotALimit(t *testing.T) {
	r := newRing(2)
	for i := 0; i < 10; i++ {
		r.Push([]byte{byte(i)})
	}
	if r.Len() != 10 {
		t.Fatalf("Len: want 10, got %d", r.Len())
	}
}

func TestRing_NegativeCapacity(t *testing.T) {
	r := newRing(-5)
	if r.Cap() != 0 {
		t.Fatalf("Cap: want 0, got %d", r.Cap())
	}
	r.Push([]byte("x"))
	if r.Cap() != minRingSize {
		t.Fatalf("Cap after first push: want %d, got %d", minRingSize, r.Cap())
	}
}
