package kihost

import (
	"bytes"
	"testing"
)

func TestFrameMarshalChecksum(t *testing.T) {
	f := &Frame{Class: ClassCommand, Func: FuncWrite, Cmd: 0x05, Payload: []byte{0x05, 0x00}}
	raw, err := f.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{0x00, 0x02, 0x10, 0x05, 0x12, 0x05, 0x00}
	if !bytes.Equal(raw, want) {
		t.Fatalf("got %v, want %v", raw, want)
	}
	if XorBuffer(raw) != 0 {
		t.Errorf("full raw frame should XOR to zero, got %#x", XorBuffer(raw))
	}
}

func TestFrameLoopback(t *testing.T) {
	link := &fakeLink{}
	in := &Frame{Class: ClassCommand, Func: FuncRead, Cmd: 0x0E, Payload: []byte("hi")}
	raw, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	EncodeFrame(raw, func(b byte) { link.CannedData = append(link.CannedData, b) })

	var d Decoder
	buf := make([]byte, MaxFrameLen)
	var out *Frame
	for _, b := range link.CannedData {
		n, result := d.DecodeByte(buf, false, b)
		if result == DecodeFrameReady {
			f, err := UnmarshalFrame(buf[:n])
			if err != nil {
				t.Fatalf("UnmarshalFrame: %v", err)
			}
			out = f
			break
		}
	}
	if out == nil {
		t.Fatal("never decoded a complete frame")
	}
	if out.Class != in.Class || out.Func != in.Func || out.Cmd != in.Cmd {
		t.Errorf("header mismatch: got %+v, want %+v", out, in)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("payload mismatch: got %q, want %q", out.Payload, in.Payload)
	}
}

func TestFrameChecksumMismatchDetected(t *testing.T) {
	f := &Frame{Class: ClassResponse, Func: FuncOK, Cmd: 0x01, Payload: []byte{0xAA}}
	raw, err := f.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0xFF // flip the last payload byte after checksum was computed

	var stream []byte
	EncodeFrame(raw, func(b byte) { stream = append(stream, b) })

	var d Decoder
	buf := make([]byte, MaxFrameLen)
	for _, b := range stream {
		n, result := d.DecodeByte(buf, false, b)
		if result == DecodeFrameReady {
			_, err := UnmarshalFrame(buf[:n])
			if err != ErrChecksumMismatch {
				t.Fatalf("expected ErrChecksumMismatch, got %v", err)
			}
			return
		}
	}
	t.Fatal("never decoded a complete frame")
}

func TestFrameClassification(t *testing.T) {
	f := &Frame{Class: ClassNotification, Func: FuncSockRecv}
	if !f.IsNotification() {
		t.Error("expected notification classification")
	}
	r := &Frame{Class: ClassResponse, Func: FuncOK}
	if r.IsNotification() {
		t.Error("response frame misclassified as notification")
	}
}
