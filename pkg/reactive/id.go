package reactive

import "sync/atomic"

// globalIDCounter is the source of unique IDs for all signals.
// Signals may be created on different runtimes (and so different
// goroutines), hence the atomic.
var globalIDCounter uint64

// nextID returns the next unique signal ID. IDs are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
