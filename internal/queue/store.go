// Package queue implements the in-memory, multi-channel FIFO store behind smq.
//
// A Store maps channel names to independent FIFO sequences of opaque
// payloads. Channels are created lazily by the first Enqueue that names them
// and live for the lifetime of the process. Nothing is persisted.
//
// Locking:
//   - Store.mu (RW) guards the name → channel map. Lookups take the read lock;
//     creation re-checks under the write lock so a name never maps to two
//     sequences.
//   - channel.mu guards one sequence. Every Enqueue/Dequeue on the same
//     channel is serialised, which gives strict per-channel FIFO. Operations
//     on different channels do not contend.
package queue

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrEmpty is returned by Dequeue when the channel has never been written to
// or currently holds no messages. It is an expected outcome, not a failure.
var ErrEmpty = errors.New("no message")

// IsEmpty reports whether err signals an empty (or unknown) channel.
func IsEmpty(err error) bool { return errors.Is(err, ErrEmpty) }

// channel is one named FIFO sequence.
type channel struct {
	mu     sync.Mutex
	items  *ring
	pushed int64
	popped int64
}

// ChannelStats is a point-in-time snapshot of a single channel.
type ChannelStats struct {
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Pushed   int64  `json:"pushed"`
	Popped   int64  `json:"popped"`
	Capacity int    `json:"capacity"`
}

// Store is a concurrent mapping from channel name to FIFO sequence.
// The zero value is not usable; construct with NewStore.
//
// All methods are safe for concurrent use.
type Store struct {
	mu              sync.RWMutex
	channels        map[string]*channel
	initialCapacity int
}

// NewStore returns an empty Store. initialCapacity pre-sizes the backing
// storage of every channel the store creates; it is a hint and never limits
// how many messages a channel can hold. Negative values are treated as 0.
func NewStore(initialCapacity int) *Store {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	return &Store{
		channels:        make(map[string]*channel),
		initialCapacity: initialCapacity,
	}
}

// InitialCapacity returns the effective per-channel capacity hint.
func (s *Store) InitialCapacity() int { return s.initialCapacity }

// Enqueue appends payload to the tail of the named channel, creating the
// channel first if needed. The store keeps payload as given; callers must not
// modify it afterwards.
func (s *Store) Enqueue(name string, payload []byte) {
	c := s.getOrCreate(name)

	c.mu.Lock()
	c.items.Push(payload)
	c.pushed++
	c.mu.Unlock()
}

// Dequeue removes and returns the oldest payload of the named channel.
// It returns an error wrapping ErrEmpty when the channel is unknown or drained.
// Dequeue never blocks waiting for a message.
func (s *Store) Dequeue(name string) ([]byte, error) {
	c := s.get(name)
	if c == nil {
		return nil, fmt.Errorf("%w: channel %q", ErrEmpty, name)
	}

	c.mu.Lock()
	p, ok := c.items.Pop()
	if ok {
		c.popped++
	}
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: channel %q", ErrEmpty, name)
	}
	return p, nil
}

// Len returns the number of messages waiting on the named channel.
// Unknown channels report 0.
func (s *Store) Len(name string) int {
	c := s.get(name)
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// ChannelCount returns the number of channels created so far.
func (s *Store) ChannelCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}

// Stats returns a snapshot of every channel, sorted by name.
// Each channel is read under its own lock, so the snapshot is per-channel
// consistent but not a global atomic view.
func (s *Store) Stats() []ChannelStats {
	s.mu.RLock()
	snap := make(map[string]*channel, len(s.channels))
	for name, c := range s.channels {
		snap[name] = c
	}
	s.mu.RUnlock()

	out := make([]ChannelStats, 0, len(snap))
	for name, c := range snap {
		c.mu.Lock()
		out = append(out, ChannelStats{
			Name:     name,
			Depth:    c.items.Len(),
			Pushed:   c.pushed,
			Popped:   c.popped,
			Capacity: c.items.Cap(),
		})
		c.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) get(name string) *channel {
	s.mu.RLock()
	c := s.channels[name]
	s.mu.RUnlock()
	return c
}

func (s *Store) getOrCreate(name string) *channel {
	if c := s.get(name); c != nil {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have created it between the two locks.
	if c, ok := s.channels[name]; ok {
		return c
	}
	c := &channel{items: newRing(s.initialCapacity)}
	s.channels[name] = c
	return c
}
