package kihost

import (
	"bytes"
	"net"
	"testing"
)

func TestDecodeNamedSockRecvFieldOrder(t *testing.T) {
	var payload []byte
	payload = append(payload, 0x1D, 0x39) // dport 7481
	payload = append(payload, 0x9C, 0x40) // sport 40000
	domain := make([]byte, domainFieldLen)
	copy(domain, "example.thread")
	payload = append(payload, domain...)
	payload = append(payload, net.ParseIP("fd00::1").To16()...)
	payload = append(payload, []byte("hello")...)

	r, err := DecodeNamedSockRecv(payload)
	if err != nil {
		t.Fatalf("DecodeNamedSockRecv: %v", err)
	}
	if r.DstPort != 7481 {
		t.Errorf("DstPort = %d, want 7481", r.DstPort)
	}
	if r.SrcPort != 40000 {
		t.Errorf("SrcPort = %d, want 40000", r.SrcPort)
	}
	if r.Domain != "example.thread" {
		t.Errorf("Domain = %q, want %q", r.Domain, "example.thread")
	}
	if !r.SrcAddr.Equal(net.ParseIP("fd00::1")) {
		t.Errorf("SrcAddr = %v, want fd00::1", r.SrcAddr)
	}
	if !bytes.Equal(r.Payload, []byte("hello")) {
		t.Errorf("Payload = %q, want %q", r.Payload, "hello")
	}
}

func TestDecodePingReplyFieldOrder(t *testing.T) {
	var payload []byte
	payload = append(payload, net.ParseIP("fd00::2").To16()...)
	payload = append(payload, 0x00, 0x05) // id 5
	payload = append(payload, 0x00, 0x2A) // seq 42
	payload = append(payload, 0x00, 0x10) // bytes 16

	r, err := DecodePingReply(payload)
	if err != nil {
		t.Fatalf("DecodePingReply: %v", err)
	}
	if r.Seq != 42 {
		t.Errorf("Seq = %d, want 42", r.Seq)
	}
	if r.Bytes != 16 {
		t.Errorf("Bytes = %d, want 16", r.Bytes)
	}
	if r.ID != 5 {
		t.Errorf("ID = %d, want 5", r.ID)
	}
}
