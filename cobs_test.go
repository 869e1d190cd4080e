package kihost

import (
	"bytes"
	"testing"
)

func encodeToSlice(x []byte) []byte {
	var out []byte
	EncodeFrame(x, func(b byte) { out = append(out, b) })
	return out
}

// frameShaped builds a 5-byte-header-plus-payload buffer, the only shape
// the decoder understands (it reads the length prefix out of the first
// two bytes once they have been assembled, exactly like the frame layer
// above it does).
func frameShaped(payload []byte) []byte {
	buf := make([]byte, FrameHeaderLen+len(payload))
	buf[0] = byte(len(payload) >> 8)
	buf[1] = byte(len(payload))
	buf[2] = 0x11
	buf[3] = 0x05
	buf[4] = 0x00
	copy(buf[FrameHeaderLen:], payload)
	return buf
}

// decodeStream feeds a stuffed byte stream into a fresh Decoder and
// returns the first completed frame's bytes.
func decodeStream(t *testing.T, stream []byte) []byte {
	t.Helper()
	var d Decoder
	buf := make([]byte, MaxFrameLen)
	for _, b := range stream {
		n, result := d.DecodeByte(buf, false, b)
		switch result {
		case DecodeError:
			t.Fatalf("decoder reported an error mid-stream")
		case DecodeFrameReady:
			return append([]byte(nil), buf[:n]...)
		}
	}
	t.Fatalf("stream never produced a complete frame")
	return nil
}

func TestCodecRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x01, 0x02, 0x03},
		{0x00, 0x00, 0x00, 0x00},
		{},
		{0x00},
		{0x00, 0x01},
		{0x01, 0x00},
		{0x01, 0x00, 0x00},
		bytes.Repeat([]byte{0xAB}, 300),
		bytes.Repeat([]byte{0x00}, 40),
	}
	for _, pld := range payloads {
		x := frameShaped(pld)
		stream := encodeToSlice(x)
		if stream[0] != 0x00 {
			t.Fatalf("encoded stream for %v does not start with delimiter: %v", pld, stream)
		}
		got := decodeStream(t, stream)
		if !bytes.Equal(got, x) {
			t.Errorf("round trip mismatch for payload %v:\n got  %v\n want %v", pld, got, x)
		}
	}
}

func TestCodecRejectsIllegalZeroRunCodes(t *testing.T) {
	for _, illegal := range []byte{0xD1, 0xD2, 0xFF} {
		var d Decoder
		buf := make([]byte, MaxFrameLen)
		d.DecodeByte(buf, false, 0x00) // delimiter, start a frame
		_, result := d.DecodeByte(buf, false, illegal)
		if result != DecodeError {
			t.Errorf("code 0x%02x: expected DecodeError, got %v", illegal, result)
		}
	}
}

func TestCodecNeverEmitsIllegalCodes(t *testing.T) {
	for n := 0; n < 64; n++ {
		x := bytes.Repeat([]byte{0x00}, n)
		stream := encodeToSlice(x)
		for i, b := range stream {
			if i == 0 {
				continue // leading delimiter
			}
			if b == 0xD1 || b == 0xD2 || b == 0xFF {
				t.Fatalf("encoder emitted illegal code 0x%02x for zero run of length %d", b, n)
			}
		}
	}
}

func TestCodecResyncsOnDelimiter(t *testing.T) {
	x := frameShaped([]byte{0x01, 0x02, 0x03})
	stream := encodeToSlice(x)
	garbage := append([]byte{0xAB, 0xCD, 0xEF}, stream...)
	got := decodeStream(t, garbage)
	if !bytes.Equal(got, x) {
		t.Errorf("resync round trip mismatch:\n got  %v\n want %v", got, x)
	}
}

func TestCodecTimeout(t *testing.T) {
	var d Decoder
	buf := make([]byte, MaxFrameLen)
	_, result := d.DecodeByte(buf, true, 0)
	if result != DecodeTimeout {
		t.Errorf("expected DecodeTimeout, got %v", result)
	}
}
