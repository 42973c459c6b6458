package dnsclient_test

import (
	"net"
	"testing"

	"github.com/miekg/dns"

	"reactornet/internal/dnsclient"
	"reactornet/internal/dnswire"
)

// stubTransport simulates a set of nameservers by intercepting SendTo
// calls and invoking a handler that produces the wire response,
// delivered straight back into the client synchronously — standing in
// for the reactor's readable callback in these transaction-layer
// tests.
type stubTransport struct {
	client  *dnsclient.Client
	respond func(server string, query *dnswire.Message) *dnswire.Message
}

func (s *stubTransport) SendTo(server string, data []byte) error {
	q, err := dnswire.Decode(data)
	if err != nil {
		return err
	}
	resp := s.respond(server, q)
	if resp == nil {
		return nil
	}
	var buf []byte
	if err := dnswire.Encode(resp, &buf); err != nil {
		return err
	}
	s.client.Deliver(server, buf)
	return nil
}

func TestSearchListExpansionVisitsEachSuffixOnce(t *testing.T) {
	const (
		server1 = "10.0.0.1:53"
	)

	seen := map[string]int{}
	stub := &stubTransport{}
	stub.respond = func(server string, q *dnswire.Message) *dnswire.Message {
		name := q.Questions[0].Name
		seen[name]++
		if name == "www.example.net." {
			return &dnswire.Message{
				ID:    q.ID,
				Flags: dnswire.Flags{Rcode: dns.RcodeSuccess},
				Answers: []dnswire.Record{
					{Name: name, Type: dns.TypeA, TTL: 60, Address: net.ParseIP("203.0.113.7")},
				},
			}
		}
		return &dnswire.Message{ID: q.ID, Flags: dnswire.Flags{Rcode: dns.RcodeNameError}}
	}

	client := dnsclient.New(dnsclient.Config{
		Servers:    []string{server1},
		SearchList: []string{"corp.example", "example.net"},
		Attempts:   1,
	}, stub, nil)
	stub.client = client

	var result dnsclient.Result
	var gotErr error
	done := false
	client.Resolve("www", dnsclient.FamilyV4, func(r dnsclient.Result, err error) {
		result = r
		gotErr = err
		done = true
	})

	if !done {
		t.Fatal("callback was not invoked")
	}
	if gotErr != nil {
		t.Fatalf("resolve error: %v", gotErr)
	}
	if len(result.Addresses) != 1 || !result.Addresses[0].Equal(net.ParseIP("203.0.113.7")) {
		t.Fatalf("addresses = %v", result.Addresses)
	}
	for name, count := range seen {
		if count != 1 {
			t.Fatalf("suffix %q visited %d times, want 1", name, count)
		}
	}
}

func TestFailoverExhaustsEveryServer(t *testing.T) {
	servers := []string{"10.0.0.1:53", "10.0.0.2:53", "10.0.0.3:53"}
	attempted := map[string]int{}

	stub := &stubTransport{}
	stub.respond = func(server string, q *dnswire.Message) *dnswire.Message {
		attempted[server]++
		return &dnswire.Message{ID: q.ID, Flags: dnswire.Flags{Rcode: dns.RcodeServerFailure}}
	}

	client := dnsclient.New(dnsclient.Config{Servers: servers, Attempts: 1}, stub, nil)
	stub.client = client

	var gotErr error
	client.Resolve("example.com.", dnsclient.FamilyV4, func(r dnsclient.Result, err error) {
		gotErr = err
	})

	if gotErr == nil {
		t.Fatal("expected EndOfInput after exhausting every server")
	}
	for _, s := range servers {
		if attempted[s] != 1 {
			t.Fatalf("server %s attempted %d times, want exactly 1", s, attempted[s])
		}
	}
}

func TestAttemptsGovernsFullPassesOverServerList(t *testing.T) {
	servers := []string{"10.0.0.1:53", "10.0.0.2:53"}
	attempted := map[string]int{}

	stub := &stubTransport{}
	stub.respond = func(server string, q *dnswire.Message) *dnswire.Message {
		attempted[server]++
		return &dnswire.Message{ID: q.ID, Flags: dnswire.Flags{Rcode: dns.RcodeServerFailure}}
	}

	client := dnsclient.New(dnsclient.Config{Servers: servers, Attempts: 3}, stub, nil)
	stub.client = client

	var gotErr error
	client.Resolve("example.com.", dnsclient.FamilyV4, func(r dnsclient.Result, err error) {
		gotErr = err
	})

	if gotErr == nil {
		t.Fatal("expected EndOfInput after exhausting every pass")
	}
	for _, s := range servers {
		if attempted[s] != 3 {
			t.Fatalf("server %s attempted %d times, want exactly 3 (one per pass)", s, attempted[s])
		}
	}
}

func TestFormatErrorTerminatesWithInvalid(t *testing.T) {
	stub := &stubTransport{}
	stub.respond = func(server string, q *dnswire.Message) *dnswire.Message {
		return &dnswire.Message{ID: q.ID, Flags: dnswire.Flags{Rcode: dns.RcodeFormatError}}
	}

	client := dnsclient.New(dnsclient.Config{Servers: []string{"10.0.0.1:53"}, Attempts: 1}, stub, nil)
	stub.client = client

	var gotErr error
	client.Resolve("example.com.", dnsclient.FamilyV4, func(r dnsclient.Result, err error) {
		gotErr = err
	})
	if gotErr == nil {
		t.Fatal("expected Invalid on FORMAT_ERROR")
	}
}

func TestResolvePTRIPv6IsUnsupported(t *testing.T) {
	stub := &stubTransport{respond: func(string, *dnswire.Message) *dnswire.Message { return nil }}
	client := dnsclient.New(dnsclient.Config{Servers: []string{"10.0.0.1:53"}, Attempts: 1}, stub, nil)
	stub.client = client

	var gotErr error
	client.ResolvePTR(net.ParseIP("2001:db8::1"), func(name string, err error) {
		gotErr = err
	})
	if gotErr == nil {
		t.Fatal("expected Unsupported for IPv6 reverse-pointer lookups")
	}
}
