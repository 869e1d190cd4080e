package kihost

import "bytes"

// faketransport_test.go - a fake ByteTransport for loopback and bit-flip
// testing: canned inbound bytes, a recording buffer for outbound bytes,
// and a one-byte-at-a-time Read so the decoder sees exactly the framing
// the codec would produce over a real serial link.
type fakeLink struct {
	CannedData []byte
	Dump       bytes.Buffer
	pos        int
	corrupt    func(b []byte) []byte
}

func (f *fakeLink) Read(p []byte) (int, error) {
	if f.pos >= len(f.CannedData) {
		return 0, nil // simulate a read timeout, not EOF
	}
	n := copy(p, f.CannedData[f.pos:f.pos+1])
	f.pos += n
	return n, nil
}

func (f *fakeLink) Write(p []byte) (int, error) {
	if f.corrupt != nil {
		p = f.corrupt(p)
	}
	return f.Dump.Write(p)
}

func (f *fakeLink) Close() error {
	return nil
}

// feed stuffs frame and appends the resulting bytes to CannedData, so a
// test can queue up a complete inbound frame for the session/decoder.
func (f *fakeLink) feed(frame *Frame) {
	raw, err := frame.Marshal()
	if err != nil {
		panic(err)
	}
	EncodeFrame(raw, func(b byte) {
		f.CannedData = append(f.CannedData, b)
	})
}
