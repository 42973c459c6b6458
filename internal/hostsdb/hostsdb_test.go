package hostsdb_test

import (
	"net"
	"strings"
	"testing"

	"reactornet/internal/hostsdb"
	"reactornet/nterr"
)

const hostsFixture = `
# comment line
192.168.0.100  test.example.net
2001:db8::1 sixhost.example   alias1 alias2

10.0.0.1 onlyaddr
`

const servicesFixture = `
# comment
http 80/tcp
domain 53/udp
`

func TestParseHostsAndLookup(t *testing.T) {
	db := hostsdb.New()
	if err := db.ParseHosts(strings.NewReader(hostsFixture)); err != nil {
		t.Fatalf("ParseHosts: %v", err)
	}

	addr, err := db.GetAddress("test.example.net")
	if err != nil {
		t.Fatalf("GetAddress: %v", err)
	}
	if !addr.Equal(net.ParseIP("192.168.0.100")) {
		t.Fatalf("addr = %v", addr)
	}

	name, err := db.GetName(net.ParseIP("192.168.0.100"))
	if err != nil {
		t.Fatalf("GetName: %v", err)
	}
	if name != "test.example.net" {
		t.Fatalf("name = %q", name)
	}

	if _, err := db.GetAddress("alias1"); err != nil {
		t.Fatalf("GetAddress(alias1): %v", err)
	}
}

func TestParseHostsUnknownIsNotFound(t *testing.T) {
	db := hostsdb.New()
	if _, err := db.GetAddress("nope.example."); !nterr.Is(err, nterr.NotFound) {
		t.Fatalf("GetAddress = %v, want NotFound", err)
	}
}

func TestParseServicesAndLookup(t *testing.T) {
	db := hostsdb.New()
	if err := db.ParseServices(strings.NewReader(servicesFixture)); err != nil {
		t.Fatalf("ParseServices: %v", err)
	}

	port, err := db.GetPort("http", hostsdb.TCP)
	if err != nil {
		t.Fatalf("GetPort: %v", err)
	}
	if port != 80 {
		t.Fatalf("port = %d", port)
	}

	name, err := db.GetServiceName(53, hostsdb.UDP)
	if err != nil {
		t.Fatalf("GetServiceName: %v", err)
	}
	if name != "domain" {
		t.Fatalf("name = %q", name)
	}
}

func TestParseServicesRejectsMalformedPort(t *testing.T) {
	db := hostsdb.New()
	err := db.ParseServices(strings.NewReader("broken notaport\n"))
	if !nterr.Is(err, nterr.Invalid) {
		t.Fatalf("ParseServices = %v, want Invalid", err)
	}
}
