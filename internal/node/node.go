// Package node identifies a running smq process.
//
// smq keeps nothing on disk, so the identity is generated fresh on every start
// unless the operator pins one in config. The same ULID source also mints
// request ids for the HTTP layer.
package node

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID string that uniquely identifies an smq process.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool { return id == "" }

// Node holds the identity of this server instance.
type Node struct {
	id        ID
	startedAt time.Time
}

// New returns a Node. If override is "auto" or empty a new ULID is generated,
// otherwise override must itself be a valid ULID.
func New(override string) (*Node, error) {
	if override != "" && override != "auto" {
		if err := validateULID(override); err != nil {
			return nil, fmt.Errorf("node: invalid id override %q: %w", override, err)
		}
		return &Node{id: ID(override), startedAt: time.Now()}, nil
	}

	id, err := generateULID()
	if err != nil {
		return nil, fmt.Errorf("node: generate id: %w", err)
	}
	return &Node{id: id, startedAt: time.Now()}, nil
}

// ID returns the node's ULID.
func (n *Node) ID() ID { return n.id }

// StartedAt returns when the Node was created.
func (n *Node) StartedAt() time.Time { return n.startedAt }

// Uptime returns the time elapsed since the Node was created.
func (n *Node) Uptime() time.Duration { return time.Since(n.startedAt) }

// monoEntropy is shared by every generateULID call so that ids minted within
// the same millisecond still sort in creation order.
var (
	monoMu      sync.Mutex
	monoEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

func generateULID() (ID, error) {
	monoMu.Lock()
	defer monoMu.Unlock()
	ms := ulid.Timestamp(time.Now())
	id, err := ulid.New(ms, monoEntropy)
	if err != nil {
		return "", err
	}
	return ID(id.String()), nil
}

func validateULID(s string) error {
	_, err := ulid.ParseStrict(s)
	return err
}

// NewID generates a fresh ULID.
func NewID() (string, error) {
	id, err := generateULID()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
