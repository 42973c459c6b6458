// Package dnsclient implements the per-nameserver transaction layer
// described in spec.md §4.7: transaction-id multiplexing, response
// classification and failover, and search-list expansion. Sending and
// receiving wire bytes is abstracted behind the Transport interface so
// the transaction logic can be exercised against a fake nameserver in
// tests, the way the teacher tests its packet handling against an
// in-memory Reassembler rather than a live socket
// (internal/protocol/dns_conn.go's reassembler).
package dnsclient

import (
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"

	"reactornet/internal/dnswire"
	"reactornet/internal/rescache"
	"reactornet/nterr"
)

// Family filters answer records by address family.
type Family int

const (
	FamilyAny Family = iota
	FamilyV4
	FamilyV6
)

// Transport sends an encoded DNS query to a nameserver address. The
// client learns of responses through Deliver, not a return value
// here, matching the reactor's callback-driven receive path.
type Transport interface {
	SendTo(server string, data []byte) error
}

// Config holds the per-client tunables of spec.md §6's resolver
// configuration table that apply at this layer. Timeout is stored but
// not read: this package arms no per-attempt timer, so a query that is
// never answered stays outstanding and its operation never completes.
type Config struct {
	Servers    []string
	SearchList []string
	Attempts   int
	Timeout    time.Duration
}

// Result is delivered to an IPCallback on completion.
type Result struct {
	Addresses []net.IP
	TTL       time.Duration
	Server    string
}

type IPCallback func(Result, error)
type PTRCallback func(name string, err error)

type opKind int

const (
	opAddress opKind = iota
	opPTR
)

type operation struct {
	kind       opKind
	queryName  string // current name under query (search-expanded)
	userName   string // original user-supplied name
	servers    []string
	serverIdx  int
	searchList []string
	searchIdx  int
	family     Family
	attemptsLeft int
	addrCb     IPCallback
	ptrCb      PTRCallback
	ptrAddr    net.IP
	done       bool
}

func (op *operation) currentServer() (string, bool) {
	if op.serverIdx >= len(op.servers) {
		return "", false
	}
	return op.servers[op.serverIdx], true
}

type transaction struct {
	id uint16
	op *operation
}

type nameServerState struct {
	addr    string
	txByID  map[uint16]*transaction
	nextID  uint16
}

// Client is the DNS client transaction layer.
type Client struct {
	cfg       Config
	transport Transport
	cache     *rescache.Cache
	servers   map[string]*nameServerState
}

// New constructs a Client. cache may be nil to disable cache updates
// on answer delivery.
func New(cfg Config, transport Transport, cache *rescache.Cache) *Client {
	c := &Client{
		cfg:       cfg,
		transport: transport,
		cache:     cache,
		servers:   make(map[string]*nameServerState),
	}
	for _, s := range cfg.Servers {
		c.servers[s] = &nameServerState{addr: s, txByID: make(map[uint16]*transaction)}
	}
	return c
}

func expandSearchList(name string, suffixes []string) []string {
	if strings.HasSuffix(name, ".") {
		return []string{name}
	}
	var list []string
	if strings.Contains(name, ".") {
		list = append(list, name)
	}
	for _, suf := range suffixes {
		list = append(list, name+"."+suf)
	}
	if len(list) == 0 {
		list = append(list, name)
	}
	return list
}

// Resolve initiates a recursive get-ip-address operation, per
// spec.md §4.7/§4.8.
func (c *Client) Resolve(name string, family Family, cb IPCallback) error {
	search := expandSearchList(name, c.cfg.SearchList)
	op := &operation{
		kind:         opAddress,
		userName:     name,
		queryName:    search[0],
		servers:      c.cfg.Servers,
		searchList:   search,
		family:       family,
		attemptsLeft: maxInt(c.cfg.Attempts, 1),
		addrCb:       cb,
	}
	return c.send(op)
}

// ResolvePTR initiates a recursive get-domain-name operation.
func (c *Client) ResolvePTR(addr net.IP, cb PTRCallback) error {
	name, err := reversePointerName(addr)
	if err != nil {
		cb("", err)
		return nil
	}
	op := &operation{
		kind:         opPTR,
		queryName:    name,
		ptrAddr:      addr,
		servers:      c.cfg.Servers,
		attemptsLeft: maxInt(c.cfg.Attempts, 1),
		ptrCb:        cb,
	}
	return c.send(op)
}

// reversePointerName builds the in-addr.arpa/ip6.arpa query name.
// Per spec.md §9 Open Question (b), IPv6 reverse-pointer construction
// is explicitly unsupported, preserving the source's known gap.
func reversePointerName(addr net.IP) (string, error) {
	if v4 := addr.To4(); v4 != nil {
		return dns.Fqdn(reverseIPv4(v4)), nil
	}
	return "", nterr.New("dnsclient.reversePointerName", nterr.Unsupported)
}

func reverseIPv4(ip net.IP) string {
	return strings.Join([]string{
		itoa(ip[3]), itoa(ip[2]), itoa(ip[1]), itoa(ip[0]), "in-addr.arpa",
	}, ".")
}

func itoa(b byte) string {
	const digits = "0123456789"
	if b < 10 {
		return string(digits[b])
	}
	if b < 100 {
		return string(digits[b/10]) + string(digits[b%10])
	}
	return string(digits[b/100]) + string(digits[(b/10)%10]) + string(digits[b%10])
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// send allocates a transaction id on the operation's current server
// and transmits the query, per spec.md §4.7's "operation initiation".
func (c *Client) send(op *operation) error {
	server, ok := op.currentServer()
	if !ok {
		c.fail(op, nterr.New("dnsclient.send", nterr.EndOfInput))
		return nil
	}

	ns, ok := c.servers[server]
	if !ok {
		ns = &nameServerState{addr: server, txByID: make(map[uint16]*transaction)}
		c.servers[server] = ns
	}

	id, err := ns.allocateID()
	if err != nil {
		c.fail(op, err)
		return nil
	}
	ns.txByID[id] = &transaction{id: id, op: op}

	msg := buildQuery(id, op)
	var buf []byte
	if encErr := dnswire.Encode(msg, &buf); encErr != nil {
		delete(ns.txByID, id)
		c.fail(op, encErr)
		return nil
	}

	if sendErr := c.transport.SendTo(server, buf); sendErr != nil {
		delete(ns.txByID, id)
		c.failover(op)
		return nil
	}
	return nil
}

// allocateID returns the next transaction id for this nameserver,
// wrapping a 16-bit counter at 65535 and skipping 0, per spec.md §4.7.
// A collision with a still-outstanding id fails with Invalid rather
// than overwriting, per the spec's collision policy.
func (ns *nameServerState) allocateID() (uint16, error) {
	ns.nextID++
	if ns.nextID == 0 {
		ns.nextID = 1
	}
	if _, busy := ns.txByID[ns.nextID]; busy {
		return 0, nterr.New("dnsclient.allocateID", nterr.Invalid)
	}
	return ns.nextID, nil
}

func buildQuery(id uint16, op *operation) *dnswire.Message {
	qtype := uint16(dns.TypeA)
	if op.kind == opPTR {
		qtype = dns.TypePTR
	} else if op.family == FamilyV6 {
		qtype = dns.TypeAAAA
	}
	return &dnswire.Message{
		ID: id,
		Flags: dnswire.Flags{
			RecursionDesired: true,
		},
		Questions: []dnswire.Question{
			{Name: op.queryName, Type: qtype, Class: dns.ClassINET},
		},
	}
}

// Deliver decodes one response received from server and classifies
// it per spec.md §4.7's response-code table.
func (c *Client) Deliver(server string, raw []byte) {
	ns, ok := c.servers[server]
	if !ok {
		return
	}

	msg, err := dnswire.Decode(raw)
	if err != nil {
		return
	}

	tx, ok := ns.txByID[msg.ID]
	if !ok {
		return // unknown id: drop
	}
	delete(ns.txByID, msg.ID)

	op := tx.op
	switch {
	case msg.Flags.Rcode == dns.RcodeSuccess && !msg.Flags.Truncated:
		c.deliverAnswer(op, msg, server)

	case msg.Flags.Rcode == dns.RcodeSuccess && msg.Flags.Truncated:
		// TCP fallback is out of scope for this core (spec.md §9 Open
		// Question (a)): treat as a failover trigger.
		c.failover(op)

	case msg.Flags.Rcode == dns.RcodeNameError:
		if op.searchIdx+1 < len(op.searchList) {
			op.searchIdx++
			op.queryName = op.searchList[op.searchIdx]
			c.send(op)
		} else {
			c.failover(op)
		}

	case msg.Flags.Rcode == dns.RcodeRefused,
		msg.Flags.Rcode == dns.RcodeServerFailure,
		msg.Flags.Rcode == dns.RcodeNotImplemented:
		c.failover(op)

	case msg.Flags.Rcode == dns.RcodeFormatError:
		c.fail(op, nterr.New("dnsclient.Deliver", nterr.Invalid))

	default:
		c.fail(op, nterr.New("dnsclient.Deliver", nterr.Invalid))
	}
}

// failover advances to the next server, wrapping around for another
// full pass over the list as long as attemptsLeft permits (spec.md
// §6's Config.Attempts is the number of full passes, not the number of
// servers tried). The operation fails with EndOfInput once the last
// pass over the last server is exhausted.
func (c *Client) failover(op *operation) {
	op.serverIdx++
	if _, ok := op.currentServer(); !ok {
		op.attemptsLeft--
		if op.attemptsLeft <= 0 {
			c.fail(op, nterr.New("dnsclient.failover", nterr.EndOfInput))
			return
		}
		op.serverIdx = 0
	}
	op.searchIdx = 0
	if len(op.searchList) > 0 {
		op.queryName = op.searchList[0]
	}
	c.send(op)
}

func (c *Client) deliverAnswer(op *operation, msg *dnswire.Message, server string) {
	if op.done {
		return
	}
	op.done = true

	switch op.kind {
	case opPTR:
		for _, a := range msg.Answers {
			if a.Type == dns.TypePTR && a.PTRName != "" {
				if op.ptrCb != nil {
					op.ptrCb(a.PTRName, nil)
				}
				return
			}
		}
		if op.ptrCb != nil {
			op.ptrCb("", nterr.New("dnsclient.deliverAnswer", nterr.NotFound))
		}

	case opAddress:
		var addrs []net.IP
		var minTTL uint32
		var ttlSeen bool
		var mismatch bool
		for _, a := range msg.Answers {
			if a.Address == nil {
				continue
			}
			if op.family == FamilyV4 && a.Type != dns.TypeA {
				continue
			}
			if op.family == FamilyV6 && a.Type != dns.TypeAAAA {
				continue
			}
			addrs = append(addrs, a.Address)
			if !ttlSeen {
				minTTL = a.TTL
				ttlSeen = true
			} else if a.TTL != minTTL {
				mismatch = true
				if a.TTL < minTTL {
					minTTL = a.TTL
				}
			}
		}
		if mismatch {
			log.Warn().Str("name", op.queryName).Msg("answer records disagree on TTL, using minimum")
		}

		ttl := time.Duration(minTTL) * time.Second
		if c.cache != nil {
			now := time.Now()
			for _, addr := range addrs {
				c.cache.UpdateHost(op.queryName, addr, server, ttl, now)
				if op.queryName != op.userName {
					c.cache.UpdateHost(op.userName, addr, server, ttl, now)
				}
			}
		}

		if op.addrCb != nil {
			op.addrCb(Result{Addresses: addrs, TTL: ttl, Server: server}, nil)
		}
	}
}

func (c *Client) fail(op *operation, err error) {
	if op.done {
		return
	}
	op.done = true
	switch op.kind {
	case opAddress:
		if op.addrCb != nil {
			op.addrCb(Result{}, err)
		}
	case opPTR:
		if op.ptrCb != nil {
			op.ptrCb("", err)
		}
	}
}
