package kihost

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func blockAck(id uint16) *Frame {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, id)
	return &Frame{Class: ClassResponse, Func: FuncValue, Cmd: FIRMWARE_UPDATE, Payload: payload}
}

func TestFirmwareUpdateRejectsShortFiles(t *testing.T) {
	sess := NewSession(&fakeLink{}, testConfig())
	for _, n := range []int{0, 1, 16} {
		err := sess.Update(make([]byte, n))
		if err != ErrDFUFileTooShort {
			t.Errorf("file of %d bytes: expected ErrDFUFileTooShort, got %v", n, err)
		}
	}
}

func TestFirmwareUpdateSucceedsAcrossMultipleBlocks(t *testing.T) {
	link := &fakeLink{}
	link.feed(blockAck(0))
	link.feed(blockAck(1))
	link.feed(blockAck(2))
	link.feed(&Frame{Class: ClassResponse, Func: FuncOK, Cmd: RESET})
	link.feed(&Frame{Class: ClassResponse, Func: FuncValue, Cmd: SOFTWARE_VERSION, Payload: []byte("v2.0.0")})

	sess := NewSession(link, testConfig())
	image := make([]byte, 146) // 130 bytes of payload + 16-byte DFU suffix
	if err := sess.Update(image); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestFirmwareUpdateAbortsOnFatalError(t *testing.T) {
	link := &fakeLink{}
	link.feed(&Frame{Class: ClassResponse, Func: FuncFwuErr, Cmd: FIRMWARE_UPDATE})

	sess := NewSession(link, testConfig())
	image := make([]byte, 20) // 4 bytes of payload, one block
	err := sess.Update(image)
	if err != ErrFirmwareFatal {
		t.Fatalf("expected ErrFirmwareFatal, got %v", err)
	}
}

func TestFirmwareUpdateIgnoresStrayFrameWithinSameAttempt(t *testing.T) {
	link := &fakeLink{}
	link.feed(&Frame{Class: ClassResponse, Func: FuncOK, Cmd: RESET}) // a stray frame from an unrelated exchange
	link.feed(blockAck(0))
	link.feed(&Frame{Class: ClassResponse, Func: FuncOK, Cmd: RESET})
	link.feed(&Frame{Class: ClassResponse, Func: FuncValue, Cmd: SOFTWARE_VERSION, Payload: []byte("v2.0.0")})

	sess := NewSession(link, testConfig())
	wire := expectedWire(t, &Frame{Class: ClassCommand, Func: FuncWrite, Cmd: FIRMWARE_UPDATE, Payload: make([]byte, 6)})

	image := make([]byte, 20) // 4 bytes of payload, one block
	if err := sess.Update(image); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got := bytes.Count(link.Dump.Bytes(), wire)
	if got != 1 {
		t.Errorf("expected the block to be transmitted exactly once (stray frame should not trigger a resend), observed %d", got)
	}
}

func TestFirmwareUpdateRetriesBlockOnTimeout(t *testing.T) {
	link := &fakeLink{} // never produces any canned bytes: every block attempt times out
	sess := NewSession(link, testConfig())
	sess.firmwareBlockTimeout = 5 * time.Millisecond
	sess.firmwareBlockBackoff = time.Millisecond

	wire := expectedWire(t, &Frame{Class: ClassCommand, Func: FuncWrite, Cmd: FIRMWARE_UPDATE, Payload: make([]byte, 6)})

	image := make([]byte, 20) // 4 bytes of payload, one block
	err := sess.Update(image)
	if err != ErrCommandTimeout {
		t.Fatalf("expected ErrCommandTimeout, got %v", err)
	}
	got := bytes.Count(link.Dump.Bytes(), wire)
	if got != sess.firmwareBlockRetries {
		t.Errorf("expected %d transmissions, observed %d", sess.firmwareBlockRetries, got)
	}
}
