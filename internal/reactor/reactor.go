// Package reactor implements the process-wide event demultiplexer
// described in spec.md §2 and §5: a pool of threads, each running a
// poll loop (epoll on Linux, poll(2) elsewhere), dispatching readability/writability/error events to
// registered sockets. Strand serializes callbacks the way the
// teacher's packet-conn engines serialize work onto per-purpose
// goroutines (internal/protocol/dns_conn.go's startRxEngine /
// startTxEngine split), generalized here into an explicit FIFO queue
// instead of one goroutine per concern.
package reactor

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Interest is a bitmask of the events a registered fd cares about.
type Interest int

const (
	InterestNone  Interest = 0
	InterestRead  Interest = 1 << iota
	InterestWrite
	InterestError
)

// Handler receives event notifications for one registered fd. All
// three methods are invoked on the strand the fd was registered with.
type Handler interface {
	OnReadable()
	OnWritable()
	OnError(err error)
}

// Reactor owns a set of file descriptors and dispatches readiness
// events to registered Handlers. The concrete polling primitive is
// platform-specific (see poller_linux.go and poller_other.go); this file holds the
// portable bookkeeping: the fd table, strand binding, and the
// registration API.
type Reactor struct {
	mu        sync.Mutex
	poller    poller
	registry  map[int]*registration
	nextToken int
}

type registration struct {
	fd       int
	interest Interest
	handler  Handler
	strand   *Strand
}

// New constructs a Reactor backed by the platform poller.
func New() (*Reactor, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	r := &Reactor{
		poller:   p,
		registry: make(map[int]*registration),
	}
	return r, nil
}

// Register attaches fd to the reactor with the given interest set.
// Events for fd are delivered to handler, serialized through strand.
// A nil strand gets a private strand of its own, matching the
// teacher's "one goroutine per connection-scoped concern" idiom.
func (r *Reactor) Register(fd int, interest Interest, handler Handler, strand *Strand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strand == nil {
		strand = NewStrand()
	}
	reg := &registration{fd: fd, interest: interest, handler: handler, strand: strand}
	if err := r.poller.add(fd, interest); err != nil {
		return err
	}
	r.registry[fd] = reg
	return nil
}

// Modify changes the interest set for an already-registered fd.
func (r *Reactor) Modify(fd int, interest Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.registry[fd]
	if !ok {
		return nil
	}
	reg.interest = interest
	return r.poller.modify(fd, interest)
}

// Deregister removes fd from the reactor. Events polled for fd after
// this call are dropped by RunOnce's lookup miss; closures RunOnce has
// already posted to fd's strand still run.
func (r *Reactor) Deregister(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry[fd]; !ok {
		return nil
	}
	delete(r.registry, fd)
	return r.poller.remove(fd)
}

// RunOnce blocks until the poller reports at least one event, or
// timeoutMillis elapses (-1 blocks indefinitely), then dispatches.
func (r *Reactor) RunOnce(timeoutMillis int) error {
	events, err := r.poller.wait(timeoutMillis)
	if err != nil {
		return err
	}

	for _, ev := range events {
		r.mu.Lock()
		reg, ok := r.registry[ev.fd]
		r.mu.Unlock()
		if !ok {
			continue
		}

		ev := ev
		reg.strand.Post(func() {
			if ev.errored {
				reg.handler.OnError(ev.err)
				return
			}
			if ev.readable {
				reg.handler.OnReadable()
			}
			if ev.writable {
				reg.handler.OnWritable()
			}
		})
	}
	return nil
}

// Run drives RunOnce in a loop until stop is closed. Callers typically
// launch one Run per reactor thread in the pool (spec.md §5's "fd to
// thread assignment may be static or dynamic").
func (r *Reactor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if err := r.RunOnce(250); err != nil {
			log.Warn().Err(err).Msg("reactor poll failed")
		}
	}
}

// Close releases the underlying poller resource.
func (r *Reactor) Close() error {
	return r.poller.close()
}

type pollEvent struct {
	fd       int
	readable bool
	writable bool
	errored  bool
	err      error
}

type poller interface {
	add(fd int, interest Interest) error
	modify(fd int, interest Interest) error
	remove(fd int) error
	wait(timeoutMillis int) ([]pollEvent, error)
	close() error
}
