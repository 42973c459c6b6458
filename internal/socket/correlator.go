// Timestamp correlator table, per spec.md §4.9: maps a monotonically
// increasing local counter assigned at send time to a kernel TX
// timestamp notification arriving later, out of band, on the error
// queue.
package socket

import (
	"sync"
	"time"
)

// TimestampClass ranks the usable kernel timestamp classes, earliest
// (least accurate) first, per spec.md's "earliest usable timestamp
// class ... surfaced via metrics".
type TimestampClass int

const (
	TimestampSchedulerQueued TimestampClass = iota
	TimestampSoftwareTransmitted
	TimestampHardwareTransmitted
)

// Correlator maps outgoing send counters to the callback id they
// belong to, so a later kernel notification carrying a counter and a
// timestamp can be routed back to the right completion.
type Correlator struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]uint64 // counter -> callback id
}

// NewCorrelator returns an empty Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[uint64]uint64)}
}

// Track records that counter now belongs to callbackID, returning the
// assigned counter. Counters start at 0 and increment by one per call,
// matching the kernel's own SOF_TIMESTAMPING_OPT_ID/zero-copy sequence
// numbering so a Track call issued immediately before each timestamped
// or zero-copy send lines up with the id the kernel later reports.
func (c *Correlator) Track(callbackID uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	counter := c.next
	c.next++
	c.pending[counter] = callbackID
	return counter
}

// Resolve looks up and removes the callback id for counter. ok is
// false for unmatched notifications, which spec.md §4.9 says to drop.
func (c *Correlator) Resolve(counter uint64) (callbackID uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	callbackID, ok = c.pending[counter]
	if ok {
		delete(c.pending, counter)
	}
	return callbackID, ok
}

// KernelTimestamp is one notification read back from the kernel,
// carrying the class and the wall-clock time it reports.
type KernelTimestamp struct {
	Class TimestampClass
	At    time.Time
}
