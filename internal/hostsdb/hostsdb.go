// Package hostsdb parses the static host and port database text
// formats described in spec.md §6 and serves the name/port lookups
// that sit above it in the resolver's fixed chain (spec.md §4.8).
package hostsdb

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"

	"reactornet/nterr"
)

// Protocol is the transport half of a service->port mapping.
type Protocol int

const (
	TCP Protocol = iota
	UDP
)

func (p Protocol) String() string {
	if p == UDP {
		return "udp"
	}
	return "tcp"
}

type hostEntry struct {
	addr    net.IP
	aliases []string
}

type serviceKey struct {
	name string
	proto Protocol
}

// DB is a static, in-memory host/port database. The zero value is an
// empty database ready for ParseHosts/ParseServices or direct lookups.
type DB struct {
	hostsByName map[string]hostEntry
	namesByAddr map[string][]string
	ports       map[serviceKey]int
	names       map[string]string // "port/proto" -> service name
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		hostsByName: make(map[string]hostEntry),
		namesByAddr: make(map[string][]string),
		ports:       make(map[serviceKey]int),
		names:       make(map[string]string),
	}
}

// ParseHosts loads entries in the format:
//
//	<ipv4-or-ipv6>  <name> [<alias>...]
//
// Blank lines and '#'-prefixed comments are ignored.
func (d *DB) ParseHosts(r io.Reader) error {
	const op = "hostsdb.ParseHosts"

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nterr.New(op, nterr.Invalid)
		}
		addr := net.ParseIP(fields[0])
		if addr == nil {
			return nterr.New(op, nterr.Invalid)
		}
		name := fields[1]
		aliases := fields[2:]

		d.hostsByName[name] = hostEntry{addr: addr, aliases: aliases}
		for _, alias := range aliases {
			d.hostsByName[alias] = hostEntry{addr: addr}
		}
		d.namesByAddr[addr.String()] = append(d.namesByAddr[addr.String()], name)
	}
	if err := scanner.Err(); err != nil {
		return nterr.Wrap(op, nterr.Invalid, err)
	}
	return nil
}

// ParseServices loads entries in the format:
//
//	<service>  <port>/<tcp|udp>
func (d *DB) ParseServices(r io.Reader) error {
	const op = "hostsdb.ParseServices"

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nterr.New(op, nterr.Invalid)
		}
		name := fields[0]
		portProto := strings.SplitN(fields[1], "/", 2)
		if len(portProto) != 2 {
			return nterr.New(op, nterr.Invalid)
		}
		port, err := strconv.Atoi(portProto[0])
		if err != nil {
			return nterr.Wrap(op, nterr.Invalid, err)
		}
		var proto Protocol
		switch strings.ToLower(portProto[1]) {
		case "tcp":
			proto = TCP
		case "udp":
			proto = UDP
		default:
			return nterr.New(op, nterr.Invalid)
		}

		d.ports[serviceKey{name: name, proto: proto}] = port
		d.names[portKey(port, proto)] = name
	}
	if err := scanner.Err(); err != nil {
		return nterr.Wrap(op, nterr.Invalid, err)
	}
	return nil
}

func portKey(port int, proto Protocol) string {
	return strconv.Itoa(port) + "/" + proto.String()
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// GetAddress returns the address configured for name, or NotFound.
func (d *DB) GetAddress(name string) (net.IP, error) {
	e, ok := d.hostsByName[name]
	if !ok {
		return nil, nterr.New("hostsdb.GetAddress", nterr.NotFound)
	}
	return e.addr, nil
}

// GetName returns the first configured name for addr, or NotFound.
func (d *DB) GetName(addr net.IP) (string, error) {
	names, ok := d.namesByAddr[addr.String()]
	if !ok || len(names) == 0 {
		return "", nterr.New("hostsdb.GetName", nterr.NotFound)
	}
	return names[0], nil
}

// GetPort returns the configured port for (service, proto), or NotFound.
func (d *DB) GetPort(service string, proto Protocol) (int, error) {
	port, ok := d.ports[serviceKey{name: service, proto: proto}]
	if !ok {
		return 0, nterr.New("hostsdb.GetPort", nterr.NotFound)
	}
	return port, nil
}

// GetServiceName returns the configured service name for (port, proto),
// or NotFound.
func (d *DB) GetServiceName(port int, proto Protocol) (string, error) {
	name, ok := d.names[portKey(port, proto)]
	if !ok {
		return "", nterr.New("hostsdb.GetServiceName", nterr.NotFound)
	}
	return name, nil
}
