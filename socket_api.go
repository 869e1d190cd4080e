package kihost

import (
	"encoding/binary"
	"fmt"
	"net"
)

// socket_api.go - the public socket operations built on top of Session.Cmd
// and the socket registry: connect/bind/send/close.

// SocketConnect opens a UDP-like socket filtered to a specific peer. If
// locPort is 0 the module assigns an ephemeral port. Returns the assigned
// local port.
func (s *Session) SocketConnect(locPort, peerPort uint16, peerName string, handler SocketHandler) (uint16, error) {
	s.mu.Lock()
	slot := s.sockets.alloc()
	s.mu.Unlock()
	if slot < 0 {
		return 0, ErrSocketsExhausted
	}

	var payload []byte
	if locPort != 0 {
		payload = make([]byte, 2)
		binary.BigEndian.PutUint16(payload, locPort)
	}

	resp, err := s.Cmd(FuncWrite, SOCKET_OPEN_CLOSE, payload)
	if err != nil {
		return 0, err
	}
	if resp.Func != FuncValue || len(resp.Payload) < 2 {
		return 0, fmt.Errorf("kihost: SOCKET_OPEN_CLOSE did not return an assigned port")
	}
	assigned := binary.BigEndian.Uint16(resp.Payload[0:2])

	s.mu.Lock()
	s.sockets.set(slot, socketRecord{locPort: assigned, peerPort: peerPort, peerName: peerName, handler: handler})
	s.mu.Unlock()
	return assigned, nil
}

// SocketBind opens a socket that accepts datagrams from any peer.
func (s *Session) SocketBind(locPort uint16, handler SocketHandler) (uint16, error) {
	return s.SocketConnect(locPort, 0, "", handler)
}

// SocketSend transmits payload from locPort to (peerPort, peerName). If
// peerName is empty, both peerPort and peerName fall back to the socket's
// own registered peer together - a caller-supplied peerName always carries
// its own peerPort, even when that peerPort is 0, rather than letting the
// stored port leak in underneath an explicit peer name. peerName that
// parses as an IPv6 address uses SOCKET_SEND; otherwise NAMED_SOCKET_SEND
// is used with a 32-byte zero-padded domain field.
func (s *Session) SocketSend(locPort, peerPort uint16, peerName string, payload []byte) error {
	s.mu.Lock()
	rec := s.sockets.find(locPort)
	s.mu.Unlock()
	if rec == nil {
		return ErrSocketUnknown
	}
	if peerName == "" {
		peerName = rec.peerName
		peerPort = rec.peerPort
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[0:2], locPort)
	binary.BigEndian.PutUint16(header[2:4], peerPort)

	if ip := net.ParseIP(peerName); ip != nil {
		ip16 := ip.To16()
		buf := make([]byte, 0, 4+16+len(payload))
		buf = append(buf, header...)
		buf = append(buf, ip16...)
		buf = append(buf, payload...)
		_, err := s.Cmd(FuncWrite, SOCKET_SEND, buf)
		return err
	}

	domain := make([]byte, domainFieldLen)
	copy(domain, peerName)
	buf := make([]byte, 0, 4+domainFieldLen+len(payload))
	buf = append(buf, header...)
	buf = append(buf, domain...)
	buf = append(buf, payload...)
	_, err := s.Cmd(FuncWrite, NAMED_SOCKET_SEND, buf)
	return err
}

// SocketClose deletes the socket bound to locPort, both at the module and
// in the local registry.
func (s *Session) SocketClose(locPort uint16) error {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, locPort)
	_, err := s.Cmd(FuncDelete, SOCKET_OPEN_CLOSE, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sockets.free(locPort)
	s.mu.Unlock()
	return nil
}
