package metrics

import "sync/atomic"

// Value returns the current count for key (0 if never touched).
func (lc *labelCounter) Value(key string) int64 {
	if v, ok := lc.vals.Load(key); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}
