package state

import "runtime"

// goroutineID returns a unique identifier for the current goroutine by
// parsing the runtime stack header ("goroutine <id> ..."). It backs the
// engine's re-entrant lock: computations run under the engine lock and
// call Get/Set from the same goroutine.
// Note: this is an implementation detail and must not leak externally.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
