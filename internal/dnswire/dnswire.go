// Package dnswire encodes and decodes DNS messages against a
// caller-provided contiguous buffer per spec.md §4.5. It narrows
// github.com/miekg/dns's general-purpose dns.Msg down to the question,
// A/AAAA/PTR answer, and standard-flag surface the resolver needs,
// while preserving any other record type opaquely on decode instead
// of rejecting it.
package dnswire

import (
	"net"

	"github.com/miekg/dns"

	"reactornet/nterr"
)

// Flags mirrors the standard DNS header bits named in spec.md §4.5.
type Flags struct {
	Authoritative      bool
	AuthenticatedData  bool
	CheckingDisabled   bool
	RecursionAvailable bool
	RecursionDesired   bool
	Truncated          bool
	Rcode              int
}

// Question is one entry of a message's question section.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Record is one answer-section resource record. For the natively
// supported types (A, AAAA, PTR) Address/PTRName carries the decoded
// value. For any other type, Opaque carries the underlying miekg/dns
// RR unchanged, so a decoder that doesn't understand a record still
// round-trips it on re-encode.
type Record struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32

	Address net.IP // set for Type == dns.TypeA or dns.TypeAAAA
	PTRName string // set for Type == dns.TypePTR

	Opaque dns.RR // set when Type is none of the above
}

// Message is the codec's narrowed view of a DNS message.
type Message struct {
	ID        uint16
	Flags     Flags
	Questions []Question
	Answers   []Record
}

// Encode packs msg into the standard DNS wire format and appends the
// result to *out. It returns Invalid if a native record is missing the
// data its type requires, and Unsupported if asked to encode a
// question type the resolver never issues.
func Encode(msg *Message, out *[]byte) error {
	const op = "dnswire.Encode"

	m := new(dns.Msg)
	m.Id = msg.ID
	m.Response = true
	m.Authoritative = msg.Flags.Authoritative
	m.AuthenticatedData = msg.Flags.AuthenticatedData
	m.CheckingDisabled = msg.Flags.CheckingDisabled
	m.RecursionAvailable = msg.Flags.RecursionAvailable
	m.RecursionDesired = msg.Flags.RecursionDesired
	m.Truncated = msg.Flags.Truncated
	m.Rcode = msg.Flags.Rcode

	for _, q := range msg.Questions {
		switch q.Type {
		case dns.TypeA, dns.TypeAAAA, dns.TypePTR:
		default:
			return nterr.New(op, nterr.Unsupported)
		}
		m.Question = append(m.Question, dns.Question{
			Name:   dns.Fqdn(q.Name),
			Qtype:  q.Type,
			Qclass: q.Class,
		})
	}

	for _, a := range msg.Answers {
		rr, err := encodeRecord(op, &a)
		if err != nil {
			return err
		}
		m.Answer = append(m.Answer, rr)
	}

	buf, err := m.Pack()
	if err != nil {
		return nterr.Wrap(op, nterr.Invalid, err)
	}
	*out = append(*out, buf...)
	return nil
}

func encodeRecord(op string, a *Record) (dns.RR, error) {
	hdr := dns.RR_Header{
		Name:   dns.Fqdn(a.Name),
		Rrtype: a.Type,
		Class:  a.Class,
		Ttl:    a.TTL,
	}

	switch a.Type {
	case dns.TypeA:
		ip4 := a.Address.To4()
		if ip4 == nil {
			return nil, nterr.New(op, nterr.Invalid)
		}
		return &dns.A{Hdr: hdr, A: ip4}, nil

	case dns.TypeAAAA:
		ip6 := a.Address.To16()
		if ip6 == nil || a.Address.To4() != nil {
			return nil, nterr.New(op, nterr.Invalid)
		}
		return &dns.AAAA{Hdr: hdr, AAAA: ip6}, nil

	case dns.TypePTR:
		if a.PTRName == "" {
			return nil, nterr.New(op, nterr.Invalid)
		}
		return &dns.PTR{Hdr: hdr, Ptr: dns.Fqdn(a.PTRName)}, nil

	default:
		if a.Opaque == nil {
			return nil, nterr.New(op, nterr.Unsupported)
		}
		return a.Opaque, nil
	}
}

// Decode unpacks a standard-wire-format DNS message from in. It
// returns Invalid on malformed length prefixes or truncated input;
// record types outside A/AAAA/PTR are preserved opaquely rather than
// rejected.
func Decode(in []byte) (*Message, error) {
	const op = "dnswire.Decode"

	m := new(dns.Msg)
	if err := m.Unpack(in); err != nil {
		return nil, nterr.Wrap(op, nterr.Invalid, err)
	}

	out := &Message{
		ID: m.Id,
		Flags: Flags{
			Authoritative:      m.Authoritative,
			AuthenticatedData:  m.AuthenticatedData,
			CheckingDisabled:   m.CheckingDisabled,
			RecursionAvailable: m.RecursionAvailable,
			RecursionDesired:   m.RecursionDesired,
			Truncated:          m.Truncated,
			Rcode:              m.Rcode,
		},
	}

	for _, q := range m.Question {
		out.Questions = append(out.Questions, Question{
			Name:  q.Name,
			Type:  q.Qtype,
			Class: q.Qclass,
		})
	}

	for _, rr := range m.Answer {
		out.Answers = append(out.Answers, decodeRecord(rr))
	}

	return out, nil
}

func decodeRecord(rr dns.RR) Record {
	hdr := rr.Header()
	rec := Record{
		Name:  hdr.Name,
		Type:  hdr.Rrtype,
		Class: hdr.Class,
		TTL:   hdr.Ttl,
	}

	switch v := rr.(type) {
	case *dns.A:
		rec.Address = v.A
	case *dns.AAAA:
		rec.Address = v.AAAA
	case *dns.PTR:
		rec.PTRName = v.Ptr
	default:
		rec.Opaque = rr
	}

	return rec
}
