package kihost

import (
	"encoding/binary"
	"fmt"
	"net"
)

// notify.go - notification parsing. The module multiplexes three kinds of
// asynchronous events over the notification frame class: ping replies,
// inbound UDP datagrams, and destination-unreachable signals. The named
// variants of the first two prepend a fixed 32-byte domain name field.
//
// This is expressed as a tagged union with one decode function per
// variant, dispatched by function code, rather than the label-fallthrough
// the original switch-case used for the shared named/unnamed layout: each
// variant decodes its own domain prefix (or not) and then calls the common
// tail parser explicitly, so there is no implicit fallthrough to reason
// about.

const domainFieldLen = 32

// PingReply is the parsed payload of a PINGREPLY/NPINGREPLY notification.
type PingReply struct {
	Domain string // empty unless this was a named ping reply
	Addr   net.IP
	ID     uint16
	Seq    uint16
	Bytes  uint16
}

// SockRecv is the parsed payload of a SOCKRECV/NSOCKRECV notification.
type SockRecv struct {
	Domain   string // empty unless this was a named socket receive
	DstPort  uint16
	SrcPort  uint16
	SrcAddr  net.IP
	Payload  []byte
}

// DstUnreach is the parsed payload of a destination-unreachable
// notification.
type DstUnreach struct {
	Addr net.IP
}

// parseDomain reads the fixed 32-byte domain field, trimming trailing
// NUL padding, and returns the remaining tail.
func parseDomain(payload []byte) (string, []byte, error) {
	if len(payload) < domainFieldLen {
		return "", nil, fmt.Errorf("kihost: notification too short for domain field")
	}
	end := domainFieldLen
	for end > 0 && payload[end-1] == 0 {
		end--
	}
	return string(payload[:end]), payload[domainFieldLen:], nil
}

func decodePingReplyTail(tail []byte) (*PingReply, error) {
	const fixedLen = 16 + 2 + 2 + 2
	if len(tail) < fixedLen {
		return nil, fmt.Errorf("kihost: ping reply notification too short")
	}
	return &PingReply{
		Addr:  net.IP(append([]byte(nil), tail[0:16]...)),
		ID:    binary.BigEndian.Uint16(tail[16:18]),
		Seq:   binary.BigEndian.Uint16(tail[18:20]),
		Bytes: binary.BigEndian.Uint16(tail[20:22]),
	}, nil
}

// DecodePingReply decodes an unnamed PINGREPLY notification payload.
func DecodePingReply(payload []byte) (*PingReply, error) {
	return decodePingReplyTail(payload)
}

// DecodeNamedPingReply decodes a NPINGREPLY notification payload, which
// prepends a 32-byte domain field to the unnamed layout.
func DecodeNamedPingReply(payload []byte) (*PingReply, error) {
	domain, tail, err := parseDomain(payload)
	if err != nil {
		return nil, err
	}
	r, err := decodePingReplyTail(tail)
	if err != nil {
		return nil, err
	}
	r.Domain = domain
	return r, nil
}

// decodeSockRecvHeader reads the leading dport/sport fields shared by
// SOCKRECV and NSOCKRECV, returning them along with the remaining tail
// (the domain field for the named variant, or srcaddr+payload directly for
// the unnamed one). dport/sport precede the optional domain field in both
// variants - the domain is not a uniform prefix over the whole payload.
func decodeSockRecvHeader(payload []byte) (dport, sport uint16, tail []byte, err error) {
	const headerLen = 2 + 2
	if len(payload) < headerLen {
		return 0, 0, nil, fmt.Errorf("kihost: socket receive notification too short")
	}
	dport = binary.BigEndian.Uint16(payload[0:2])
	sport = binary.BigEndian.Uint16(payload[2:4])
	return dport, sport, payload[headerLen:], nil
}

func decodeSockRecvTail(dport, sport uint16, tail []byte) (*SockRecv, error) {
	const fixedLen = 16
	if len(tail) < fixedLen {
		return nil, fmt.Errorf("kihost: socket receive notification too short")
	}
	r := &SockRecv{
		DstPort: dport,
		SrcPort: sport,
		SrcAddr: net.IP(append([]byte(nil), tail[0:16]...)),
	}
	r.Payload = append([]byte(nil), tail[16:]...)
	return r, nil
}

// DecodeSockRecv decodes an unnamed SOCKRECV notification payload:
// [dport:2][sport:2][srcaddr:16][payload].
func DecodeSockRecv(payload []byte) (*SockRecv, error) {
	dport, sport, tail, err := decodeSockRecvHeader(payload)
	if err != nil {
		return nil, err
	}
	return decodeSockRecvTail(dport, sport, tail)
}

// DecodeNamedSockRecv decodes an NSOCKRECV notification payload:
// [dport:2][sport:2][domain:32][srcaddr:16][payload]. The domain field sits
// between sport and srcaddr, not ahead of dport/sport.
func DecodeNamedSockRecv(payload []byte) (*SockRecv, error) {
	dport, sport, rest, err := decodeSockRecvHeader(payload)
	if err != nil {
		return nil, err
	}
	domain, tail, err := parseDomain(rest)
	if err != nil {
		return nil, err
	}
	r, err := decodeSockRecvTail(dport, sport, tail)
	if err != nil {
		return nil, err
	}
	r.Domain = domain
	return r, nil
}

// DecodeDstUnreach decodes a destination-unreachable notification payload.
func DecodeDstUnreach(payload []byte) (*DstUnreach, error) {
	if len(payload) < 16 {
		return nil, fmt.Errorf("kihost: destination-unreachable notification too short")
	}
	return &DstUnreach{Addr: net.IP(append([]byte(nil), payload[0:16]...))}, nil
}
