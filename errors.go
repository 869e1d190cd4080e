package kihost

import (
	"errors"
	"fmt"
)

// errors.go - the small, explicit error taxonomy described in the session's
// error handling design: sentinel values for conditions callers are expected
// to branch on with errors.Is/errors.As, rather than parsing strings.

var (
	// ErrChecksumMismatch is returned when a received frame's XOR checksum
	// does not match its header/payload bytes.
	ErrChecksumMismatch = errors.New("kihost: frame checksum mismatch")

	// ErrFrameTooLarge is wrapped by Frame.Marshal when a payload exceeds
	// MaxPayloadLen, and by UnmarshalFrame when a byte run is shorter than
	// the frame header. A received frame whose declared length overruns the
	// receive buffer is dropped by the decoder instead.
	ErrFrameTooLarge = errors.New("kihost: frame exceeds maximum length")

	// ErrFirmwareFatal is returned when the module answers a firmware
	// update block with an FWU-error response; the update cannot continue.
	ErrFirmwareFatal = errors.New("kihost: firmware update rejected by module")

	// ErrSocketsExhausted is returned when the socket registry has no free
	// slot left for a bind/connect.
	ErrSocketsExhausted = errors.New("kihost: socket registry is full")

	// ErrCommandTimeout is returned when a request exhausts its retries
	// without a matching response.
	ErrCommandTimeout = errors.New("kihost: command timed out")

	// ErrWaitForTimeout is returned when wait_for's deadline elapses
	// without the expected state being observed.
	ErrWaitForTimeout = errors.New("kihost: wait_for deadline elapsed")

	// ErrDFUFileTooShort is returned when a firmware image is not long
	// enough to contain its trailing DFU suffix.
	ErrDFUFileTooShort = errors.New("kihost: firmware file too short to hold DFU suffix")

	// ErrSocketUnknown is returned when an operation names a local port
	// with no registered socket.
	ErrSocketUnknown = errors.New("kihost: no socket registered on that local port")
)

// ErrCommandFailed wraps a module-reported response function code that
// signals an application-level failure (bad param, bad command, not
// allowed, mem/cfg error, busy) rather than a transport problem.
type ErrCommandFailed struct {
	Cmd  uint8
	Func uint8
}

func (e *ErrCommandFailed) Error() string {
	return fmt.Sprintf("kihost: command 0x%02x failed: %s", e.Cmd, describeFunc(e.Func))
}

func describeFunc(f uint8) string {
	switch f {
	case FuncBadParam:
		return "bad parameter"
	case FuncBadCmd:
		return "bad command"
	case FuncNotAllow:
		return "not allowed"
	case FuncMemErr:
		return "memory error"
	case FuncCfgErr:
		return "configuration error"
	case FuncFwuErr:
		return "firmware update error"
	case FuncBusy:
		return "busy"
	}
	return "unknown failure"
}
