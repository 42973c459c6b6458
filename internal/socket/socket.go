// Package socket implements the reactor-integrated datagram socket
// core described in spec.md §4.9: lifecycle management, rate-limited
// send/receive queues, per-operation deadlines and cancellation,
// zero-copy accounting, and kernel timestamp correlation. The engine
// split (separate goroutine-backed send/receive paths feeding
// bounded queues) follows the teacher's DnsPacketConn
// (internal/protocol/dns_conn.go's startTxEngine/startRxEngine), but
// generalized: this core targets any UDP peer rather than one
// hardcoded resolver, and routes callbacks through a reactor.Strand
// instead of ad hoc goroutines.
package socket

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/ipv4"

	"reactornet/internal/ratelimit"
	"reactornet/internal/reactor"
	"reactornet/internal/sockqueue"
	"reactornet/nterr"
)

// errUnsupported is shared by the per-platform sockopt shims.
var errUnsupported = nterr.New("socket", nterr.Unsupported)

// Transport names the datagram transport kind, per spec.md §3.
type Transport int

const (
	TransportUDPv4 Transport = iota
	TransportUDPv6
	TransportLocalDgram
)

// DefaultMaxDatagramSize is the default per-datagram receive buffer
// size named in spec.md §4.9.
const DefaultMaxDatagramSize = 65527

// Options configures a Socket's per-send/receive behavior.
type Options struct {
	Deadline time.Time
	Priority sockqueue.Priority
}

// SendCompletionFunc is invoked exactly once per send, per spec.md's
// "at-most-once completion" testable property.
type SendCompletionFunc func(bytesWritten int, err error)

// Socket is a reactor-integrated UDP endpoint implementing the subset
// of spec.md §4.9's contract covering open/bind/connect/send/receive/
// shutdown/close/cancel.
type Socket struct {
	mu sync.Mutex

	transport Transport
	conn      *net.UDPConn
	remote    *net.UDPAddr

	reactor *reactor.Reactor
	strand  *reactor.Strand

	sendQueue    *sockqueue.SendQueue
	receiveQueue *sockqueue.ReceiveQueue

	sendLimiter    *ratelimit.Limiter
	receiveLimiter *ratelimit.Limiter

	sendFlow    *FlowState
	receiveFlow *FlowState

	shutdownState ShutdownState
	detachState   DetachState

	zeroCopy    *ZeroCopyTable
	zeroCopyOn  bool
	zeroCopyMin int
	correlator  *Correlator
	tsOutgoing  bool
	tsIncoming  bool

	bytesSent     uint64
	bytesReceived uint64

	maxDatagramSize int
	closeCallback   func()

	fd          int
	fdAttached  bool
	curInterest reactor.Interest

	pktConn     *ipv4.PacketConn
	lastDstAddr net.IP
	lastIfIndex int

	// zeroCopySeq mirrors the kernel's own per-socket MSG_ZEROCOPY
	// completion counter (starting at 0, one increment per successful
	// zero-copy send) so ZeroCopyTable lookups by sequence line up with
	// what drainErrorQueue later reports.
	zeroCopySeq uint32

	// nextTimestampID identifies each send tracked in correlator, for
	// the structured log line resolveTimestamp emits on completion.
	nextTimestampID uint64
}

// New constructs a Socket bound to no handle yet; call Open to
// allocate the OS resource and Attach to register it with a reactor.
func New(transport Transport, r *reactor.Reactor) *Socket {
	return &Socket{
		transport:       transport,
		reactor:         r,
		strand:          reactor.NewStrand(),
		sendQueue:       sockqueue.NewSendQueue(8, 256),
		receiveQueue:    sockqueue.NewReceiveQueue(8, 256),
		sendFlow:        NewFlowState(),
		receiveFlow:     NewFlowState(),
		zeroCopy:        NewZeroCopyTable(),
		zeroCopyMin:     32 * 1024,
		correlator:      NewCorrelator(),
		maxDatagramSize: DefaultMaxDatagramSize,
	}
}

// Open allocates the socket handle. It does not register the handle
// with the reactor; Attach does that, with read and error interest.
func (s *Socket) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nterr.New("socket.Open", nterr.Invalid)
	}

	network := "udp4"
	if s.transport == TransportUDPv6 {
		network = "udp6"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nterr.Wrap("socket.Open", nterr.OsError, err)
	}
	s.conn = conn
	s.attachPacketConn(network)
	log.Debug().Str("network", network).Msg("socket opened")
	return nil
}

// attachPacketConn wraps an IPv4 UDP handle in an ipv4.PacketConn and
// requests destination-address/interface-index control messages,
// following the teacher's ipv4.PacketConn wrapping in
// internal/network/socket.go (there used for multicast group
// control; here used to recover the kernel-reported destination
// address and arrival interface for each datagram).
func (s *Socket) attachPacketConn(network string) {
	if network != "udp4" {
		s.pktConn = nil
		return
	}
	p := ipv4.NewPacketConn(s.conn)
	if err := p.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
		log.Debug().Err(err).Msg("enabling IPv4 control messages failed")
		s.pktConn = nil
		return
	}
	s.pktConn = p
}

// Bind passes endpoint (a host name or an address) to resolve and binds
// to the result. Binding a *net.UDPConn post-creation isn't directly
// possible in the standard library, so Bind always closes any existing
// handle and opens a new one bound to the resolved local address.
func (s *Socket) Bind(endpoint string, resolve func(string) (*net.UDPAddr, error)) error {
	addr, err := resolve(endpoint)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
	conn, dialErr := net.ListenUDP("udp", addr)
	if dialErr != nil {
		return nterr.Wrap("socket.Bind", nterr.OsError, dialErr)
	}
	s.conn = conn
	network := "udp4"
	if addr.IP != nil && addr.IP.To4() == nil {
		network = "udp6"
	}
	s.attachPacketConn(network)
	return nil
}

// Connect stores remote as the socket's default destination for
// subsequent sends without an explicit address.
func (s *Socket) Connect(remote *net.UDPAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = remote
}

// FileDescriptor returns the underlying OS socket handle, for
// registering this Socket with a Reactor.
func (s *Socket) FileDescriptor() (int, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return 0, nterr.New("socket.FileDescriptor", nterr.Invalid)
	}
	rc, err := conn.SyscallConn()
	if err != nil {
		return 0, nterr.Wrap("socket.FileDescriptor", nterr.OsError, err)
	}
	var fd int
	if walkErr := rc.Control(func(h uintptr) { fd = int(h) }); walkErr != nil {
		return 0, nterr.Wrap("socket.FileDescriptor", nterr.OsError, walkErr)
	}
	return fd, nil
}

// Attach registers this socket with r for readability and error
// events, dispatched through strand (a private strand if nil). Write
// interest is added and removed on demand by requestWritable/
// DrainSendQueue as the send queue fills and drains.
func (s *Socket) Attach(r *reactor.Reactor, handler reactor.Handler, strand *reactor.Strand) error {
	fd, err := s.FileDescriptor()
	if err != nil {
		return err
	}
	interest := reactor.InterestRead | reactor.InterestError
	if regErr := r.Register(fd, interest, handler, strand); regErr != nil {
		return regErr
	}
	s.mu.Lock()
	s.reactor = r
	s.fd = fd
	s.fdAttached = true
	s.curInterest = interest
	s.mu.Unlock()
	return nil
}

// Detach removes this socket's fd from its reactor, if attached.
func (s *Socket) Detach() error {
	s.mu.Lock()
	r := s.reactor
	fd := s.fd
	attached := s.fdAttached
	s.fdAttached = false
	s.mu.Unlock()
	if !attached || r == nil {
		return nil
	}
	return r.Deregister(fd)
}

// LocalAddr returns the bound local address.
func (s *Socket) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Send enqueues data for transmission to dest (or the connected
// remote if dest is nil), per spec.md §4.9's send path: when the queue
// is empty, send flow control is relaxed and the rate limiter admits
// the datagram, it is written directly; otherwise it is queued and
// send-side flow control is applied. An error from the direct write is
// passed to cb; the datagram is not then queued.
func (s *Socket) Send(data []byte, dest net.Addr, opts Options, cb SendCompletionFunc) error {
	s.mu.Lock()

	if s.shutdownState != StateOpen && s.shutdownState != StateReceiveShut {
		s.mu.Unlock()
		return nterr.New("socket.Send", nterr.Invalid)
	}

	target := dest
	if target == nil {
		target = s.remote
	}
	if target == nil {
		s.mu.Unlock()
		return nterr.New("socket.Send", nterr.Invalid)
	}

	now := time.Now()
	queueEmpty := s.sendQueue.Len() == 0
	rateBlocked := s.sendLimiter != nil && s.sendLimiter.WouldExceed(now, len(data))

	if queueEmpty && !s.sendFlow.Applied() && !rateBlocked {
		s.mu.Unlock()
		n, err := s.writeDirect(data, target)
		if err == nil && s.sendLimiter != nil {
			s.sendLimiter.Submit(now, len(data))
		}
		if cb != nil {
			cb(n, err)
		}
		return nil
	}

	entry := &sockqueue.SendEntry{
		Dest:       target,
		Payload:    data,
		EnqueuedAt: now,
		Deadline:   opts.Deadline,
		Priority:   opts.Priority,
		Completion: func(n int, err error) {
			if cb != nil {
				cb(n, err)
			}
		},
	}
	crossedHigh := s.sendQueue.Push(entry, func(e *sockqueue.SendEntry) {
		s.onSendDeadline(e)
	})

	// Rate-limit blocking and queue backpressure are independent flow
	// control reasons: a rate-limited send still arms a timer for the
	// estimated replenishment time (spec.md §4.2), relaxing only that
	// reason on fire, same as any other direction with multiple
	// simultaneous reasons applied.
	if rateBlocked {
		wait := s.sendLimiter.EstimateTimeUntil(now, len(data))
		s.sendFlow.Apply(ReasonRateLimit)
		s.sendFlow.ArmRateLimitTimer(wait, func() { s.onRateLimitExpiry() })
	}
	if !queueEmpty || rateBlocked {
		s.sendFlow.Apply(ReasonBackpressure)
	}
	s.mu.Unlock()

	if crossedHigh {
		log.Warn().Msg("send queue high watermark reached")
	}
	s.requestWritable()
	return nil
}

// onRateLimitExpiry fires when the send-side rate limiter's estimated
// replenishment timer elapses: it relaxes the rate-limit reason (but
// not backpressure, if the queue is still non-empty) and resumes
// draining.
func (s *Socket) onRateLimitExpiry() {
	s.strand.Post(func() {
		s.mu.Lock()
		s.sendFlow.Relax(ReasonRateLimit)
		s.mu.Unlock()
		s.DrainSendQueue()
	})
}

// writeDirect issues one datagram write, attempting MSG_ZEROCOPY first
// when enabled and data is large enough to be worth the kernel's
// buffer-pinning overhead (spec.md §4.9), and tracking a kernel TX
// timestamp counter when timestamping is on. Both completions are
// resolved later, out of band, from the socket error queue (see
// OnError/resolveTimestamp).
func (s *Socket) writeDirect(data []byte, dest net.Addr) (int, error) {
	udpAddr, _ := dest.(*net.UDPAddr)
	if udpAddr == nil {
		return 0, nterr.New("socket.writeDirect", nterr.Invalid)
	}

	s.mu.Lock()
	fd := s.fd
	fdAttached := s.fdAttached
	tryZeroCopy := fdAttached && s.zeroCopyOn && len(data) >= s.zeroCopyMin
	tsOn := s.tsOutgoing
	s.mu.Unlock()

	var n int
	var err error
	usedZeroCopy := false

	if tryZeroCopy {
		n, err = sendZeroCopy(fd, data, udpAddr)
		switch {
		case err == nil:
			usedZeroCopy = true
		case err == errUnsupported:
			// Platform or kernel doesn't support MSG_ZEROCOPY; fall
			// back to a normal copying write below.
		default:
			return n, nterr.Wrap("socket.writeDirect", nterr.OsError, err)
		}
	}

	if !usedZeroCopy {
		n, err = s.conn.WriteToUDP(data, udpAddr)
		if err != nil {
			return n, nterr.Wrap("socket.writeDirect", nterr.OsError, err)
		}
	}

	s.mu.Lock()
	s.bytesSent += uint64(n)
	if usedZeroCopy {
		seq := s.zeroCopySeq
		s.zeroCopySeq++
		s.zeroCopy.Track(&ZeroCopyEntry{
			Sequence: seq,
			Payload:  data,
			Completion: func(fellBack bool) {
				if fellBack {
					log.Debug().Uint32("seq", seq).Msg("zero-copy send fell back to a copy")
				}
			},
		})
	}
	if tsOn {
		callbackID := s.nextTimestampID
		s.nextTimestampID++
		counter := s.correlator.Track(callbackID)
		log.Debug().Uint64("send_id", callbackID).Uint64("counter", counter).Msg("tracking send for kernel tx timestamp")
	}
	s.mu.Unlock()
	return n, nil
}

func (s *Socket) onSendDeadline(e *sockqueue.SendEntry) {
	s.strand.Post(func() {
		s.mu.Lock()
		_, err := s.sendQueue.Cancel(e.ID)
		s.mu.Unlock()
		if err != nil {
			return // already sent, cancelled or drained: completion has fired
		}
		e.Completion(0, nterr.New("socket.send", nterr.DeadlineExceeded))
	})
}

// requestWritable asks the reactor to notify this socket's fd when it
// becomes writable, if the socket is attached to one.
func (s *Socket) requestWritable() {
	s.mu.Lock()
	r := s.reactor
	fd := s.fd
	attached := s.fdAttached
	already := s.curInterest&reactor.InterestWrite != 0
	if attached && !already {
		s.curInterest |= reactor.InterestWrite
	}
	want := s.curInterest
	s.mu.Unlock()

	if attached && !already && r != nil {
		if err := r.Modify(fd, want); err != nil {
			log.Warn().Err(err).Msg("requesting writable interest failed")
		}
	}
}

// clearWritable drops write interest once the send queue empties,
// avoiding a storm of spurious writable callbacks.
func (s *Socket) clearWritable() {
	s.mu.Lock()
	r := s.reactor
	fd := s.fd
	attached := s.fdAttached
	already := s.curInterest&reactor.InterestWrite != 0
	if attached && already {
		s.curInterest &^= reactor.InterestWrite
	}
	want := s.curInterest
	s.mu.Unlock()

	if attached && already && r != nil {
		if err := r.Modify(fd, want); err != nil {
			log.Warn().Err(err).Msg("clearing writable interest failed")
		}
	}
}

// DrainSendQueue is invoked from the reactor's writable callback (or
// from the rate-limit timer): it dequeues and transmits entries in
// priority order until the queue is empty or a write fails. It does not
// consult the send rate limiter, and drained sends are not charged to it.
func (s *Socket) DrainSendQueue() {
	for {
		s.mu.Lock()
		if s.sendQueue.Len() == 0 {
			s.mu.Unlock()
			s.clearWritable()
			return
		}
		entry, crossedLow := s.sendQueue.Pop()
		if s.sendQueue.Len() == 0 {
			s.sendFlow.Relax(ReasonBackpressure)
		}
		s.mu.Unlock()

		n, err := s.writeDirect(entry.Payload, entry.Dest)
		entry.Completion(n, err)

		if crossedLow {
			log.Debug().Msg("send queue drained to low watermark")
		}
		if err != nil {
			return
		}
	}
}

// Receive implements the synchronous dequeue path of spec.md §4.9.
func (s *Socket) Receive() (sockqueue.Datagram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dg, crossedLow, err := s.receiveQueue.TryReceive()
	if err == nil && crossedLow {
		s.receiveFlow.Relax(ReasonBackpressure)
	}
	return dg, err
}

// ReceiveAsync implements the asynchronous receive(opts, cb) path.
func (s *Socket) ReceiveAsync(token string, opts Options, cb sockqueue.ReceiveCompletionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiveQueue.QueueReceive(&sockqueue.PendingReceive{
		Token:      token,
		Deadline:   opts.Deadline,
		Completion: cb,
	}, s.onReceiveDeadline)
}

func (s *Socket) onReceiveDeadline(p *sockqueue.PendingReceive) {
	s.strand.Post(func() {
		s.mu.Lock()
		_, err := s.receiveQueue.CancelPending(p.Token)
		s.mu.Unlock()
		if err != nil {
			return // already satisfied, cancelled or drained
		}
		p.Completion(sockqueue.Datagram{}, nterr.New("socket.receive", nterr.DeadlineExceeded))
	})
}

// OnReadable is the reactor readability callback. It decodes one
// datagram per invocation; under the level-triggered epoll poller in
// poller_linux.go, readability keeps firing as long as the kernel
// receive buffer is non-empty, which is what gives this the "loop
// until WouldBlock" behavior spec.md §4.9 describes without this
// method itself needing to loop.
func (s *Socket) OnReadable() {
	s.mu.Lock()
	conn := s.conn
	pktConn := s.pktConn
	size := s.maxDatagramSize
	s.mu.Unlock()
	if conn == nil {
		return
	}

	buf := make([]byte, size)

	var n int
	var addr net.Addr
	var err error
	var dstAddr net.IP
	var ifIndex int
	if pktConn != nil {
		var rn int
		var cm *ipv4.ControlMessage
		var src net.Addr
		rn, cm, src, err = pktConn.ReadFrom(buf)
		n, addr = rn, src
		if cm != nil {
			dstAddr = cm.Dst
			ifIndex = cm.IfIndex
		}
	} else {
		n, addr, err = conn.ReadFromUDP(buf)
	}
	if err != nil {
		return
	}

	payload := make([]byte, n)
	copy(payload, buf[:n])
	dg := sockqueue.Datagram{Source: addr, Payload: payload, ArrivedAt: time.Now()}

	s.mu.Lock()
	s.bytesReceived += uint64(n)
	if dstAddr != nil {
		s.lastDstAddr = dstAddr
		s.lastIfIndex = ifIndex
	}
	crossedHigh := s.receiveQueue.Deliver(dg)
	if crossedHigh {
		s.receiveFlow.Apply(ReasonBackpressure)
	}
	s.mu.Unlock()

	if crossedHigh {
		log.Warn().Msg("receive queue high watermark reached")
	}
}

// OnWritable is the reactor writability callback.
func (s *Socket) OnWritable() { s.DrainSendQueue() }

// OnError is the reactor's error-interest callback. A readable socket
// error queue (zero-copy completions, TX timestamps) looks identical
// to a fatal socket error from the reactor's point of view, so this
// first drains and routes any ancillary notifications; only a fd with
// nothing queued on its error queue is treated as the fatal error path
// of spec.md §7 ("fatal transport errors ... transition the socket to
// shutdown and fail all queued operations").
func (s *Socket) OnError(err error) {
	s.mu.Lock()
	fd := s.fd
	fdAttached := s.fdAttached
	s.mu.Unlock()

	if fdAttached && drainErrorQueue(fd, s.zeroCopy, s.resolveTimestamp) > 0 {
		return
	}

	s.mu.Lock()
	s.shutdownState = StateSendReceiveShut
	pending := s.sendQueue.Drain()
	receives := s.receiveQueue.DrainPending()
	s.mu.Unlock()

	for _, e := range pending {
		e.Completion(0, err)
	}
	for _, p := range receives {
		p.Completion(sockqueue.Datagram{}, err)
	}
}

// resolveTimestamp matches a kernel TX timestamp notification's id
// back to the send that requested it and surfaces the result as a
// structured log line, standing in for spec.md §4.9's "earliest usable
// timestamp class ... surfaced via metrics." An unmatched id is
// dropped, per spec.md.
func (s *Socket) resolveTimestamp(id uint32) {
	callbackID, ok := s.correlator.Resolve(uint64(id))
	if !ok {
		return
	}
	log.Debug().Uint64("send_id", callbackID).Msg("kernel tx timestamp resolved")
}

// SetSendRateLimiter installs (or clears, with nil) the send-side
// rate limiter.
func (s *Socket) SetSendRateLimiter(l *ratelimit.Limiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLimiter = l
}

// SetReceiveRateLimiter installs (or clears) the receive-side rate
// limiter.
func (s *Socket) SetReceiveRateLimiter(l *ratelimit.Limiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiveLimiter = l
}

// SetSendWatermarks mutates the send queue's low/high watermarks.
func (s *Socket) SetSendWatermarks(low, high int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.sendQueue
	s.sendQueue = sockqueue.NewSendQueue(low, high)
	for _, e := range old.Drain() {
		s.sendQueue.Push(e, s.onSendDeadline)
	}
}

// Cancel removes a queued send by id. Best-effort: returns NotFound
// if the send has already been handed to the kernel.
func (s *Socket) Cancel(id uint64) error {
	s.mu.Lock()
	entry, err := s.sendQueue.Cancel(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	entry.Completion(0, nterr.New("socket.Cancel", nterr.Cancelled))
	return nil
}

// Shutdown transitions the shutdown state machine, per spec.md §4.9.
// Graceful leaves queued sends in place for later drains of the send
// queue; Immediate completes them with Cancelled. Shutdown returns
// without waiting for either.
func (s *Socket) Shutdown(dir ShutdownDirection, mode ShutdownMode) error {
	s.mu.Lock()
	s.shutdownState = advanceShutdown(s.shutdownState, dir)
	if dir == ShutdownSend || dir == ShutdownBoth {
		s.sendFlow.Apply(ReasonManual)
		if mode == ShutdownImmediate {
			drained := s.sendQueue.Drain()
			s.mu.Unlock()
			for _, e := range drained {
				e.Completion(0, nterr.New("socket.Shutdown", nterr.Cancelled))
			}
			return nil
		}
	}
	if dir == ShutdownReceive || dir == ShutdownBoth {
		s.receiveFlow.Apply(ReasonManual)
	}
	s.mu.Unlock()
	return nil
}

// Close runs the detach/close orchestration of spec.md §4.9: it applies
// bidirectional flow control, completes every queued send and pending
// receive with Cancelled, deregisters the fd from the reactor, closes
// the handle, and then invokes cb. Close has no graceful mode: queued
// sends are cancelled, never drained.
func (s *Socket) Close(cb func()) error {
	s.mu.Lock()
	if s.shutdownState == StateClosed || s.detachState != Attached {
		s.mu.Unlock()
		return nterr.New("socket.Close", nterr.Invalid)
	}
	s.shutdownState = StateDetaching
	s.detachState = DetachRequested
	s.sendFlow.Apply(ReasonClose)
	s.receiveFlow.Apply(ReasonClose)

	pending := s.sendQueue.Drain()
	receives := s.receiveQueue.DrainPending()
	conn := s.conn
	s.closeCallback = cb
	s.mu.Unlock()

	for _, e := range pending {
		e.Completion(0, nterr.New("socket.Close", nterr.Cancelled))
	}
	for _, p := range receives {
		p.Completion(sockqueue.Datagram{}, nterr.New("socket.Close", nterr.Cancelled))
	}

	if err := s.Detach(); err != nil {
		log.Warn().Err(err).Msg("detaching socket from reactor")
	}
	if conn != nil {
		conn.Close()
	}

	s.mu.Lock()
	s.detachState = Detached
	s.shutdownState = StateClosed
	done := s.closeCallback
	s.mu.Unlock()

	if done != nil {
		done()
	}
	return nil
}

// TimestampOutgoing requests (or clears) kernel TX timestamping. Once
// enabled, writeDirect assigns each send a correlator counter and
// OnError's error-queue drain resolves the matching notification back
// to it (resolveTimestamp).
func (s *Socket) TimestampOutgoing(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		rc, err := s.conn.SyscallConn()
		if err != nil {
			return nterr.Wrap("socket.TimestampOutgoing", nterr.OsError, err)
		}
		var sockErr error
		if walkErr := rc.Control(func(fd uintptr) { sockErr = enableTimestamping(fd) }); walkErr != nil {
			return nterr.Wrap("socket.TimestampOutgoing", nterr.OsError, walkErr)
		}
		if sockErr != nil {
			return sockErr
		}
	}
	s.tsOutgoing = enabled
	return nil
}

// TimestampIncoming records whether RX timestamping is wanted. It sets
// no socket option, and received datagrams carry no kernel timestamp
// (Datagram.Timestamp stays zero).
func (s *Socket) TimestampIncoming(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tsIncoming = enabled
	return nil
}

// EnableZeroCopy turns on SO_ZEROCOPY for sends at or above minBytes.
// Once enabled, writeDirect attempts MSG_ZEROCOPY for qualifying sends
// and tracks them in the zero-copy table; OnError's error-queue drain
// releases them as the kernel reports completion.
func (s *Socket) EnableZeroCopy(minBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, err := s.conn.SyscallConn()
	if err != nil {
		return nterr.Wrap("socket.EnableZeroCopy", nterr.OsError, err)
	}
	var sockErr error
	if walkErr := rc.Control(func(fd uintptr) { sockErr = enableZeroCopy(fd) }); walkErr != nil {
		return nterr.Wrap("socket.EnableZeroCopy", nterr.OsError, walkErr)
	}
	if sockErr != nil {
		return sockErr
	}
	s.zeroCopyOn = true
	s.zeroCopyMin = minBytes
	return nil
}

// BytesSent and BytesReceived report the socket's lifetime counters.
func (s *Socket) BytesSent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesSent
}

func (s *Socket) BytesReceived() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesReceived
}

// LastDestination reports the kernel-supplied destination address and
// arrival interface index for the most recently received datagram, or
// a nil address if no IPv4 control message has been seen yet (for
// example on a udp6 or unconnected non-packet-conn socket).
func (s *Socket) LastDestination() (net.IP, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDstAddr, s.lastIfIndex
}
