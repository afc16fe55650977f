package state

import "sync/atomic"

var globalIDCounter uint64

// nextID returns a process-unique computation ID. IDs are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
