package resolver

import (
	"net"
	"strconv"
	"strings"

	"reactornet/internal/hostsdb"
	"reactornet/nterr"
)

// Endpoint is the result of get_endpoint, per spec.md §4.8.
type Endpoint struct {
	IP   net.IP
	Port int
}

// splitSpec implements the get_endpoint parser states from spec.md
// §4.8, returning the raw host and port substrings still needing
// resolution.
func splitSpec(spec string) (host, port string, err error) {
	switch {
	case spec == "":
		return "", "", nil

	case isAllDigits(spec):
		return "", spec, nil

	case strings.HasPrefix(spec, "["):
		end := strings.IndexByte(spec, ']')
		if end < 0 {
			return "", "", nterr.New("resolver.splitSpec", nterr.Invalid)
		}
		host = spec[1:end]
		rest := spec[end+1:]
		if rest == "" {
			return host, "", nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", "", nterr.New("resolver.splitSpec", nterr.Invalid)
		}
		return host, rest[1:], nil

	default:
		colons := strings.Count(spec, ":")
		switch colons {
		case 0:
			return spec, "", nil
		case 1:
			parts := strings.SplitN(spec, ":", 2)
			return parts[0], parts[1], nil
		default:
			// Multiple colons with no brackets: the whole string is an
			// IPv6 literal, no port component.
			return spec, "", nil
		}
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// GetEndpoint parses spec and resolves any unqualified components
// (a bare host name, a named service) back through the facade's
// lookup chain, falling back to fallback's IP/port for any component
// spec leaves unspecified.
func (f *Facade) GetEndpoint(spec string, fallback Endpoint, cb func(Endpoint, error)) {
	host, port, err := splitSpec(spec)
	if err != nil {
		cb(Endpoint{}, err)
		return
	}

	f.resolveEndpointPort(host, port, fallback, cb)
}

func (f *Facade) resolveEndpointPort(host, port string, fallback Endpoint, cb func(Endpoint, error)) {
	resolvedPort := fallback.Port
	if port != "" {
		if n, convErr := strconv.Atoi(port); convErr == nil {
			resolvedPort = n
		} else if p, lookupErr := f.GetPort(port, hostsdb.TCP); lookupErr == nil {
			resolvedPort = p
		} else {
			cb(Endpoint{}, nterr.Wrap("resolver.GetEndpoint", nterr.Invalid, lookupErr))
			return
		}
	}

	if host == "" {
		if fallback.IP == nil {
			cb(Endpoint{}, nterr.New("resolver.GetEndpoint", nterr.Invalid))
			return
		}
		cb(Endpoint{IP: fallback.IP, Port: resolvedPort}, nil)
		return
	}

	if ip := net.ParseIP(host); ip != nil {
		cb(Endpoint{IP: ip, Port: resolvedPort}, nil)
		return
	}

	f.GetIPAddress(host, Options{}, func(res AddressResult, err error) {
		if err != nil {
			cb(Endpoint{}, err)
			return
		}
		if len(res.Addresses) == 0 {
			cb(Endpoint{}, nterr.New("resolver.GetEndpoint", nterr.NotFound))
			return
		}
		cb(Endpoint{IP: res.Addresses[0], Port: resolvedPort}, nil)
	})
}
