package kihost

import "strings"

// socket.go - the UDP socket registry: a fixed-capacity table mapping
// local ports to handler callbacks and a peer filter. Modeled on the
// teacher's RxRegistryProgram/RxRegistryAddress registries, generalized
// from program-ID/address keys to local-port keys with a peer prefix
// filter.

// SocketHandler is invoked for every inbound datagram matching a
// registered socket.
type SocketHandler func(locPort, peerPort uint16, peerAddr string, payload []byte)

// socketRecord is one row of the registry. A zero locPort marks the slot
// free.
type socketRecord struct {
	locPort  uint16
	peerPort uint16
	peerName string
	handler  SocketHandler
}

// PeerMatches reports whether an inbound datagram from (srcAddr, srcPort)
// should be delivered to this socket.
//
// The match against peerName is an address-prefix comparison, not full
// equality: a socket bound against a mesh-local prefix is expected to
// accept any peer within that prefix rather than one exact address.
func (s *socketRecord) PeerMatches(srcAddr string, srcPort uint16) bool {
	if s.peerPort != 0 && s.peerPort != srcPort {
		return false
	}
	if s.peerName == "" {
		return true
	}
	return strings.HasPrefix(srcAddr, s.peerName)
}

// socketRegistry is the fixed-capacity table of open sockets.
type socketRegistry struct {
	rows []socketRecord
}

func newSocketRegistry(capacity int) *socketRegistry {
	return &socketRegistry{rows: make([]socketRecord, capacity)}
}

// alloc returns the index of a free slot, or -1 if none remain. The slot
// is not marked as taken; it stays free until set fills it.
func (r *socketRegistry) alloc() int {
	for i := range r.rows {
		if r.rows[i].locPort == 0 {
			return i
		}
	}
	return -1
}

func (r *socketRegistry) set(i int, rec socketRecord) {
	r.rows[i] = rec
}

// find returns the record bound to locPort, or nil.
func (r *socketRegistry) find(locPort uint16) *socketRecord {
	for i := range r.rows {
		if r.rows[i].locPort == locPort {
			return &r.rows[i]
		}
	}
	return nil
}

// free clears the record bound to locPort, if any.
func (r *socketRegistry) free(locPort uint16) {
	for i := range r.rows {
		if r.rows[i].locPort == locPort {
			r.rows[i] = socketRecord{}
			return
		}
	}
}
