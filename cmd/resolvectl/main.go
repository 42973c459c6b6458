// Command resolvectl drives the resolver façade from the command
// line: load a hosts/services database, install overrides, and run a
// single lookup. Flag parsing and log setup follow the teacher's
// cmd/server and cmd/client CLIs: stdlib flag with a custom
// multi-value stringSlice type, and a zerolog ConsoleWriter switched
// by a --log-level flag.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reactornet/internal/dnsclient"
	"reactornet/internal/hostsdb"
	"reactornet/internal/rescache"
	"reactornet/internal/resolver"
)

// stringSlice is a custom flag type for multiple string values,
// matching the teacher's cmd/server/main.go.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ", ") }

func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type udpTransport struct {
	conn *net.UDPConn
}

func (t *udpTransport) SendTo(server string, data []byte) error {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(data, addr)
	return err
}

func main() {
	var servers stringSlice
	flag.Var(&servers, "server", "Nameserver address (can be specified multiple times)")
	var searchList stringSlice
	flag.Var(&searchList, "search", "Search-list suffix (can be specified multiple times)")

	hostsFile := flag.String("hosts-file", "", "Path to a hosts database file")
	servicesFile := flag.String("services-file", "", "Path to a services database file")
	lookupKind := flag.String("kind", "address", "Lookup kind: address|name|endpoint")
	query := flag.String("query", "", "Name, address, or host:port spec to resolve")
	timeout := flag.Duration("timeout", 2*time.Second, "How long to wait for the lookup result (one second is added)")
	attempts := flag.Int("attempts", 2, "Max attempts per nameserver")
	systemFallback := flag.Bool("system-fallback", false, "Fall back to the OS resolver once every other stage misses")
	logLevel := flag.String("log-level", "info", "Log level: debug/info/warn/error")

	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch *logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if *query == "" {
		log.Fatal().Msg("-query is required")
	}

	db := hostsdb.New()
	if *hostsFile != "" {
		f, err := os.Open(*hostsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("opening hosts file")
		}
		defer f.Close()
		if err := db.ParseHosts(f); err != nil {
			log.Fatal().Err(err).Msg("parsing hosts file")
		}
	}
	if *servicesFile != "" {
		f, err := os.Open(*servicesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("opening services file")
		}
		defer f.Close()
		if err := db.ParseServices(f); err != nil {
			log.Fatal().Err(err).Msg("parsing services file")
		}
	}

	cache := rescache.New(rescache.Config{
		PositiveEnable: true,
		NegativeEnable: true,
		MinTTL:         5 * time.Second,
		MaxTTL:         time.Hour,
	})

	var client *dnsclient.Client
	if len(servers) > 0 {
		conn, err := net.ListenUDP("udp", nil)
		if err != nil {
			log.Fatal().Err(err).Msg("opening query socket")
		}
		transport := &udpTransport{conn: conn}
		client = dnsclient.New(dnsclient.Config{
			Servers:    servers,
			SearchList: searchList,
			Attempts:   *attempts,
			Timeout:    *timeout,
		}, transport, cache)

		go func() {
			buf := make([]byte, 65527)
			for {
				n, addr, err := conn.ReadFromUDP(buf)
				if err != nil {
					return
				}
				client.Deliver(addr.String(), append([]byte(nil), buf[:n]...))
			}
		}()
	}

	var systemResolve resolver.SystemResolveFunc
	var systemReverseResolve resolver.SystemReverseResolveFunc
	if *systemFallback {
		systemResolve = func(name string) ([]net.IP, error) { return net.LookupIP(name) }
		systemReverseResolve = func(addr net.IP) (string, error) {
			names, err := net.LookupAddr(addr.String())
			if err != nil {
				return "", err
			}
			if len(names) == 0 {
				return "", fmt.Errorf("no PTR records for %s", addr)
			}
			return names[0], nil
		}
	}

	facade := resolver.New(resolver.Config{
		HostDatabaseEnabled:  *hostsFile != "",
		PortDatabaseEnabled:  *servicesFile != "",
		PositiveCacheEnabled: true,
		ClientEnabled:        client != nil,
		SystemEnabled:        *systemFallback,
	}, db, cache, client, systemResolve, systemReverseResolve)
	defer facade.Close()

	done := make(chan struct{})
	switch *lookupKind {
	case "address":
		facade.GetIPAddress(*query, resolver.Options{}, func(res resolver.AddressResult, err error) {
			if err != nil {
				log.Error().Err(err).Msg("lookup failed")
			} else {
				fmt.Printf("%s -> %v (source=%s, ttl=%s)\n", *query, res.Addresses, res.Source, res.TTL)
			}
			close(done)
		})

	case "name":
		facade.GetDomainName(net.ParseIP(*query), func(res resolver.NameResult, err error) {
			if err != nil {
				log.Error().Err(err).Msg("lookup failed")
			} else {
				fmt.Printf("%s -> %s (source=%s)\n", *query, res.Name, res.Source)
			}
			close(done)
		})

	case "endpoint":
		facade.GetEndpoint(*query, resolver.Endpoint{}, func(ep resolver.Endpoint, err error) {
			if err != nil {
				log.Error().Err(err).Msg("endpoint parse failed")
			} else {
				fmt.Printf("%s -> %s:%d\n", *query, ep.IP, ep.Port)
			}
			close(done)
		})

	default:
		log.Fatal().Str("kind", *lookupKind).Msg("unknown -kind")
	}

	select {
	case <-done:
	case <-time.After(*timeout + time.Second):
		log.Error().Msg("lookup timed out")
	}
}
