// Zero-copy send accounting, per spec.md §4.9: when the kernel retains
// a send's buffers past the syscall (MSG_ZEROCOPY), the socket tracks
// a kernel-assigned sequence number for each outstanding send and
// releases buffers, firing completions, as "zero-copy complete"
// notifications arrive on the error queue.
package socket

import "sync"

// ZeroCopyEntry is one outstanding zero-copy-retained send.
type ZeroCopyEntry struct {
	Sequence   uint32
	Payload    []byte
	Completion func(fellBackToCopy bool)
}

// ZeroCopyTable indexes outstanding zero-copy sends by kernel sequence
// number.
type ZeroCopyTable struct {
	mu      sync.Mutex
	entries map[uint32]*ZeroCopyEntry
}

// NewZeroCopyTable returns an empty table.
func NewZeroCopyTable() *ZeroCopyTable {
	return &ZeroCopyTable{entries: make(map[uint32]*ZeroCopyEntry)}
}

// Track records a new outstanding zero-copy send.
func (t *ZeroCopyTable) Track(entry *ZeroCopyEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[entry.Sequence] = entry
}

// Complete releases every tracked entry with sequence <= seq (the
// kernel reports completion up to and including seq, batching
// multiple sends per notification) and fires their completions.
func (t *ZeroCopyTable) Complete(seq uint32, fellBackToCopy bool) {
	t.mu.Lock()
	var fired []*ZeroCopyEntry
	for s, entry := range t.entries {
		if s <= seq {
			fired = append(fired, entry)
			delete(t.entries, s)
		}
	}
	t.mu.Unlock()

	for _, entry := range fired {
		entry.Completion(fellBackToCopy)
	}
}

// Outstanding reports how many sends are still retained by the
// kernel.
func (t *ZeroCopyTable) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
