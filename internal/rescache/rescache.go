// Package rescache implements the resolver's TTL-bounded positive and
// negative cache described in spec.md §4.6: a mapping from domain name
// to the set of addresses observed for it, and the symmetric mapping
// from address to domain name. It stores entries in
// github.com/patrickmn/go-cache the way the teacher's SessionManager
// does (internal/server/session.go), but the expiry check itself is
// driven by the caller-supplied `now` rather than the cache's own
// clock, so a lookup against an already-expired entry is never
// returned regardless of when the garbage-collecting sweep runs.
package rescache

import (
	"net"
	"time"

	cache "github.com/patrickmn/go-cache"

	"reactornet/nterr"
)

// Config holds the cache's tunables named in spec.md §4.6.
type Config struct {
	PositiveEnable bool
	NegativeEnable bool
	MinTTL         time.Duration
	MaxTTL         time.Duration
}

// AddressEntry is one observed (address, source, expiry) fact about a
// domain name.
type AddressEntry struct {
	Address net.IP
	Source  string
	Expiry  time.Time
	Negative bool
}

// NameEntry is the symmetric fact about an address.
type NameEntry struct {
	Name     string
	Source   string
	Expiry   time.Time
	Negative bool
}

// Cache is the bidirectional resolver cache. Use New; the zero value
// is not ready to use.
type Cache struct {
	cfg     Config
	forward *cache.Cache // domain name -> []AddressEntry
	reverse *cache.Cache // address.String() -> NameEntry
}

// New returns a ready-to-use Cache. The backing go-cache instances
// never expire entries on their own clock: expiry is enforced against
// the `now` passed into each operation, and swept eagerly on lookup.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:     cfg,
		forward: cache.New(cache.NoExpiration, 10*time.Minute),
		reverse: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// clampTTL implements the spec's "stored TTL = clamp(observed_ttl,
// min, max)" rule.
func (c *Cache) clampTTL(observed time.Duration) time.Duration {
	ttl := observed
	if c.cfg.MinTTL > 0 && ttl < c.cfg.MinTTL {
		ttl = c.cfg.MinTTL
	}
	if c.cfg.MaxTTL > 0 && ttl > c.cfg.MaxTTL {
		ttl = c.cfg.MaxTTL
	}
	return ttl
}

// UpdateHost records a positive observation: name resolves to addr per
// source, valid for ttl starting at now.
func (c *Cache) UpdateHost(name string, addr net.IP, source string, ttl time.Duration, now time.Time) {
	if !c.cfg.PositiveEnable {
		return
	}
	expiry := now.Add(c.clampTTL(ttl))

	entries, _ := c.forward.Get(name)
	list, _ := entries.([]AddressEntry)
	list = upsertAddress(list, AddressEntry{Address: addr, Source: source, Expiry: expiry})
	c.forward.Set(name, list, cache.NoExpiration)

	c.reverse.Set(addr.String(), NameEntry{Name: name, Source: source, Expiry: expiry}, cache.NoExpiration)
}

// RecordNegative records a negative (NXDOMAIN / no-such-record)
// observation for name, honoring the negative-cache enable knob.
func (c *Cache) RecordNegative(name string, source string, ttl time.Duration, now time.Time) {
	if !c.cfg.NegativeEnable {
		return
	}
	expiry := now.Add(c.clampTTL(ttl))
	c.forward.Set(name, []AddressEntry{{Source: source, Expiry: expiry, Negative: true}}, cache.NoExpiration)
}

// RecordNameNegative is RecordNegative's symmetric counterpart for
// reverse (address -> name) lookups.
func (c *Cache) RecordNameNegative(addr net.IP, source string, ttl time.Duration, now time.Time) {
	if !c.cfg.NegativeEnable {
		return
	}
	expiry := now.Add(c.clampTTL(ttl))
	c.reverse.Set(addr.String(), NameEntry{Source: source, Expiry: expiry, Negative: true}, cache.NoExpiration)
}

func upsertAddress(list []AddressEntry, entry AddressEntry) []AddressEntry {
	for i, e := range list {
		if e.Address.Equal(entry.Address) {
			list[i] = entry
			return list
		}
	}
	return append(list, entry)
}

// GetAddresses implements spec.md §4.6's get_addresses(name, options,
// now). It returns Miss when there is no entry, every entry has
// expired, or the only entry present is a negative one; a negative hit
// still evicts the expired-or-not entry as appropriate.
func (c *Cache) GetAddresses(name string, now time.Time) ([]net.IP, error) {
	const op = "rescache.GetAddresses"

	val, found := c.forward.Get(name)
	if !found {
		return nil, nterr.New(op, nterr.NotFound)
	}
	list := val.([]AddressEntry)

	live := make([]AddressEntry, 0, len(list))
	for _, e := range list {
		if e.Expiry.After(now) {
			live = append(live, e)
		}
	}
	if len(live) == 0 {
		c.forward.Delete(name)
		return nil, nterr.New(op, nterr.NotFound)
	}
	c.forward.Set(name, live, cache.NoExpiration)

	if live[0].Negative {
		return nil, nterr.New(op, nterr.NotFound)
	}

	addrs := make([]net.IP, 0, len(live))
	for _, e := range live {
		if !e.Negative {
			addrs = append(addrs, e.Address)
		}
	}
	if len(addrs) == 0 {
		return nil, nterr.New(op, nterr.NotFound)
	}
	return addrs, nil
}

// GetName implements spec.md §4.6's get_name(addr, options, now).
func (c *Cache) GetName(addr net.IP, now time.Time) (string, error) {
	const op = "rescache.GetName"

	val, found := c.reverse.Get(addr.String())
	if !found {
		return "", nterr.New(op, nterr.NotFound)
	}
	entry := val.(NameEntry)
	if !entry.Expiry.After(now) {
		c.reverse.Delete(addr.String())
		return "", nterr.New(op, nterr.NotFound)
	}
	if entry.Negative {
		return "", nterr.New(op, nterr.NotFound)
	}
	return entry.Name, nil
}
