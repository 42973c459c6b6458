package reactor

import "sync"

// Strand is a FIFO serializer for callbacks: it guarantees that no two
// closures submitted to the same Strand ever run concurrently, per
// spec.md §5. It is the generalized form of the teacher's per-purpose
// goroutine engines (startRxEngine/startTxEngine/startPollEngine in
// internal/protocol/dns_conn.go) — one worker goroutine draining an
// ordered queue, instead of one goroutine per hardcoded concern.
type Strand struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

// NewStrand returns a ready-to-use Strand.
func NewStrand() *Strand {
	return &Strand{}
}

// Post enqueues fn for execution on this strand. If the strand is
// idle, Post starts the drain loop on a new goroutine; otherwise fn
// joins the queue behind whatever is already running.
func (s *Strand) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	go s.drain()
}

func (s *Strand) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}
