package kihost

import (
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// transport.go - the byte transport: open a serial device, send/receive one
// byte at a time with a read timeout.

// ByteTransport is the contract the command layer needs from the physical
// link: a byte sink/source with a bounded read wait. Any io.ReadWriteCloser
// can be adapted to it, which is what lets tests substitute an in-memory
// fake for the real serial device.
type ByteTransport interface {
	io.ReadWriteCloser
}

// OpenSerial opens a serial device in raw 8N1 mode at the given baud rate,
// with timeout as its inter-character read timeout, matching the original
// uart_init(device, portToutMs) contract: the timeout is a property of
// opening the link, not left to the OS default. MinimumReadSize is 0 so the
// driver returns as soon as the timeout elapses, even with zero bytes
// pending, rather than blocking for a full byte.
func OpenSerial(path string, baud uint, timeout time.Duration) (ByteTransport, error) {
	toutMs := timeout.Milliseconds()
	if toutMs < 1 {
		toutMs = 1
	}
	opts := serial.OpenOptions{
		PortName:              path,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: uint(toutMs),
		MinimumReadSize:       0,
	}
	return serial.Open(opts)
}

// byteReader drains a ByteTransport one byte at a time, reporting a
// timeout rather than blocking forever when nothing arrives within timeout.
type byteReader struct {
	t       ByteTransport
	timeout time.Duration
}

func newByteReader(t ByteTransport, timeout time.Duration) *byteReader {
	return &byteReader{t: t, timeout: timeout}
}

// readByte returns the next byte and false, or (0, true) on timeout/EOF.
// Real serial drivers are expected to honor InterCharacterTimeout
// themselves, but a test double or an unusual driver might not, so this
// races the read against r.timeout directly rather than trusting the
// transport to return promptly. The read runs on its own goroutine with a
// buffered result channel: if the timeout wins the race, that goroutine's
// eventual result is simply dropped and it never blocks on delivering it;
// the goroutine itself lives for as long as the underlying Read blocks.
func (r *byteReader) readByte() (byte, bool) {
	type result struct {
		b   byte
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		var scratch [1]byte
		n, err := r.t.Read(scratch[:])
		done <- result{b: scratch[0], n: n, err: err}
	}()
	select {
	case res := <-done:
		if res.err != nil || res.n == 0 {
			return 0, true
		}
		return res.b, false
	case <-time.After(r.timeout):
		return 0, true
	}
}

func (r *byteReader) writeByte(b byte) error {
	_, err := r.t.Write([]byte{b})
	return err
}
