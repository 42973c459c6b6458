// Package resolver implements the façade described in spec.md §4.8: a
// fixed lookup chain (overrides -> static database -> cache -> DNS
// client -> system resolver) exposed as get_ip_address,
// get_domain_name, get_port, get_service_name, and get_endpoint.
package resolver

import (
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"reactornet/internal/dnsclient"
	"reactornet/internal/hostsdb"
	"reactornet/internal/rescache"
	"reactornet/nterr"
)

// Source tags where a completed lookup's answer came from, recorded
// on every completion per spec.md §4.8.
type Source int

const (
	SourceOverride Source = iota
	SourceDatabase
	SourceCache
	SourceClient
	SourceSystem
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "Override"
	case SourceDatabase:
		return "Database"
	case SourceCache:
		return "Cache"
	case SourceClient:
		return "Client"
	case SourceSystem:
		return "System"
	default:
		return "Unknown"
	}
}

// Options carries the per-call knobs named in spec.md §4.7/§4.8.
type Options struct {
	Family dnsclient.Family
	Index  int // selector index: reduces a multi-address result deterministically
}

// AddressResult is delivered to GetIPAddress's callback.
type AddressResult struct {
	Addresses []net.IP
	Source    Source
	Latency   time.Duration
	TTL       time.Duration
}

// NameResult is delivered to GetDomainName's callback.
type NameResult struct {
	Name    string
	Source  Source
	Latency time.Duration
	TTL     time.Duration
}

// Config enables/disables each stage of the lookup chain, mirroring
// spec.md §6's resolver configuration table.
type Config struct {
	HostDatabaseEnabled bool
	PortDatabaseEnabled bool
	PositiveCacheEnabled bool
	ClientEnabled       bool
	SystemEnabled       bool
}

// SystemResolveFunc calls the OS's synchronous forward resolver;
// Facade runs it on a small dedicated worker pool per spec.md §4.8.
type SystemResolveFunc func(name string) ([]net.IP, error)

// SystemReverseResolveFunc calls the OS's synchronous reverse
// resolver (net.LookupAddr and friends), completing GetDomainName's
// chain with the same system-resolver stage GetIPAddress has.
type SystemReverseResolveFunc func(addr net.IP) (string, error)

// Facade is the resolver entry point.
type Facade struct {
	cfg           Config
	overrides     *Overrides
	db            *hostsdb.DB
	cache         *rescache.Cache
	client        *dnsclient.Client
	system        SystemResolveFunc
	systemReverse SystemReverseResolveFunc

	systemWork chan func()
}

// New constructs a Facade. Any of db/cache/client/system/systemReverse
// may be nil, in which case that stage of the chain is skipped
// regardless of cfg's enable flags.
func New(cfg Config, db *hostsdb.DB, cache *rescache.Cache, client *dnsclient.Client, system SystemResolveFunc, systemReverse SystemReverseResolveFunc) *Facade {
	f := &Facade{
		cfg:           cfg,
		overrides:     NewOverrides(),
		db:            db,
		cache:         cache,
		client:        client,
		system:        system,
		systemReverse: systemReverse,
		systemWork:    make(chan func(), 64),
	}
	for i := 0; i < 4; i++ {
		go f.systemWorker()
	}
	return f
}

func (f *Facade) systemWorker() {
	for fn := range f.systemWork {
		fn()
	}
}

// Overrides returns the facade's in-memory override table for direct
// installation, per spec.md §4.8's "user-installed in-memory table
// (authoritative, no TTL)".
func (f *Facade) Overrides() *Overrides { return f.overrides }

// GetIPAddress resolves name to addresses, consulting overrides, the
// static database, the cache, the DNS client, and the system resolver
// in that order, stopping at the first source with a result.
func (f *Facade) GetIPAddress(name string, opts Options, cb func(AddressResult, error)) {
	start := time.Now()

	if addrs, ok := f.overrides.GetAddresses(name); ok {
		f.completeAddresses(cb, selectAddresses(addrs, opts.Index), SourceOverride, start, 0)
		return
	}

	if f.cfg.HostDatabaseEnabled && f.db != nil {
		if addr, err := f.db.GetAddress(name); err == nil {
			f.completeAddresses(cb, []net.IP{addr}, SourceDatabase, start, 0)
			return
		}
	}

	if f.cfg.PositiveCacheEnabled && f.cache != nil {
		if addrs, err := f.cache.GetAddresses(name, time.Now()); err == nil {
			f.completeAddresses(cb, selectAddresses(addrs, opts.Index), SourceCache, start, 0)
			return
		}
	}

	if f.cfg.ClientEnabled && f.client != nil {
		f.client.Resolve(name, opts.Family, func(r dnsclient.Result, err error) {
			if err != nil {
				f.fallToSystem(name, cb, start, err)
				return
			}
			f.completeAddresses(cb, selectAddresses(r.Addresses, opts.Index), SourceClient, start, r.TTL)
		})
		return
	}

	f.fallToSystem(name, cb, start, nterr.New("resolver.GetIPAddress", nterr.NotFound))
}

func (f *Facade) fallToSystem(name string, cb func(AddressResult, error), start time.Time, chainErr error) {
	if !f.cfg.SystemEnabled || f.system == nil {
		cb(AddressResult{}, chainErr)
		return
	}
	f.systemWork <- func() {
		addrs, err := f.system(name)
		if err != nil {
			cb(AddressResult{}, err)
			return
		}
		f.completeAddresses(cb, addrs, SourceSystem, start, 0)
	}
}

func (f *Facade) completeAddresses(cb func(AddressResult, error), addrs []net.IP, src Source, start time.Time, ttl time.Duration) {
	cb(AddressResult{Addresses: addrs, Source: src, Latency: time.Since(start), TTL: ttl}, nil)
}

func selectAddresses(addrs []net.IP, index int) []net.IP {
	if index <= 0 || len(addrs) == 0 {
		return addrs
	}
	return []net.IP{addrs[index%len(addrs)]}
}

// GetDomainName resolves addr to a name through the same chain as
// GetIPAddress.
func (f *Facade) GetDomainName(addr net.IP, cb func(NameResult, error)) {
	start := time.Now()

	if name, ok := f.overrides.GetName(addr); ok {
		cb(NameResult{Name: name, Source: SourceOverride, Latency: time.Since(start)}, nil)
		return
	}

	if f.cfg.HostDatabaseEnabled && f.db != nil {
		if name, err := f.db.GetName(addr); err == nil {
			cb(NameResult{Name: name, Source: SourceDatabase, Latency: time.Since(start)}, nil)
			return
		}
	}

	if f.cfg.PositiveCacheEnabled && f.cache != nil {
		if name, err := f.cache.GetName(addr, time.Now()); err == nil {
			cb(NameResult{Name: name, Source: SourceCache, Latency: time.Since(start)}, nil)
			return
		}
	}

	if f.cfg.ClientEnabled && f.client != nil {
		f.client.ResolvePTR(addr, func(name string, err error) {
			if err != nil {
				log.Debug().Err(err).Str("addr", addr.String()).Msg("PTR lookup failed")
				f.fallToSystemReverse(addr, cb, start, err)
				return
			}
			cb(NameResult{Name: name, Source: SourceClient, Latency: time.Since(start)}, nil)
		})
		return
	}

	f.fallToSystemReverse(addr, cb, start, nterr.New("resolver.GetDomainName", nterr.NotFound))
}

// fallToSystemReverse completes the 5-stage get_domain_name chain of
// spec.md §4.8 with the same system-resolver stage GetIPAddress's
// fallToSystem provides for forward lookups.
func (f *Facade) fallToSystemReverse(addr net.IP, cb func(NameResult, error), start time.Time, chainErr error) {
	if !f.cfg.SystemEnabled || f.systemReverse == nil {
		cb(NameResult{}, chainErr)
		return
	}
	f.systemWork <- func() {
		name, err := f.systemReverse(addr)
		if err != nil {
			cb(NameResult{}, err)
			return
		}
		cb(NameResult{Name: name, Source: SourceSystem, Latency: time.Since(start)}, nil)
	}
}

// GetPort resolves a service name to a port via the static database
// only; ports are never queried over DNS, per spec.md §4.8.
func (f *Facade) GetPort(service string, proto hostsdb.Protocol) (int, error) {
	if !f.cfg.PortDatabaseEnabled || f.db == nil {
		return 0, nterr.New("resolver.GetPort", nterr.NotFound)
	}
	return f.db.GetPort(service, proto)
}

// GetServiceName is GetPort's symmetric counterpart.
func (f *Facade) GetServiceName(port int, proto hostsdb.Protocol) (string, error) {
	if !f.cfg.PortDatabaseEnabled || f.db == nil {
		return "", nterr.New("resolver.GetServiceName", nterr.NotFound)
	}
	return f.db.GetServiceName(port, proto)
}

// Close releases the system-resolver worker pool.
func (f *Facade) Close() {
	close(f.systemWork)
}
