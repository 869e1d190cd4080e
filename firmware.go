package kihost

import (
	"encoding/binary"
	"time"
)

// firmware.go - the firmware update block protocol: 64-byte blocks, a
// monotonic block id, fatal-on-FWU-error, final reset and version poll.
// This has its own retry/backoff schedule (5 retries, 5s apart, 10s per
// attempt) distinct from Session.Cmd's ordinary 3-retry request/response,
// so it talks to the frame layer directly rather than going through Cmd.

const (
	firmwareBlockSize    = 64
	firmwareDFUSuffixLen = 16
	firmwareVersionPoll  = 15 * time.Second
)

// Update streams a DFU image to the module, stripping its trailing
// DFU suffix, and confirms the new firmware answers after reset.
func (s *Session) Update(dfuImage []byte) error {
	if len(dfuImage) <= firmwareDFUSuffixLen {
		return ErrDFUFileTooShort
	}
	payload := dfuImage[:len(dfuImage)-firmwareDFUSuffixLen]

	var id uint16
	for off := 0; off < len(payload); off += firmwareBlockSize {
		end := off + firmwareBlockSize
		if end > len(payload) {
			end = len(payload)
		}
		if err := s.sendFirmwareBlock(id, payload[off:end]); err != nil {
			return err
		}
		id++
	}

	if _, err := s.Cmd(FuncWrite, RESET, nil); err != nil {
		return err
	}

	deadline := time.Now().Add(firmwareVersionPoll)
	var lastErr error
	for time.Now().Before(deadline) {
		if _, err := s.Cmd(FuncRead, SOFTWARE_VERSION, nil); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(time.Second)
	}
	return lastErr
}

func (s *Session) sendFirmwareBlock(id uint16, block []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := make([]byte, 2+len(block))
	binary.BigEndian.PutUint16(payload[0:2], id)
	copy(payload[2:], block)
	req := &Frame{Class: ClassCommand, Func: FuncWrite, Cmd: FIRMWARE_UPDATE, Payload: payload}

	for attempt := 0; attempt < s.firmwareBlockRetries; attempt++ {
		if attempt > 0 {
			s.metrics.FirmwareBlockRetries.Inc()
			time.Sleep(s.firmwareBlockBackoff)
		}
		if err := s.sendFrame(req); err != nil {
			continue
		}
		s.metrics.FirmwareBlocksSent.Inc()

		deadline := time.Now().Add(s.firmwareBlockTimeout)
		for time.Now().Before(deadline) {
			resp, err := s.recvFrame(deadline)
			if err != nil {
				break
			}
			if resp.Cmd != FIRMWARE_UPDATE {
				continue
			}
			if resp.Func == FuncFwuErr {
				s.logger.Error(map[string]interface{}{"blockID": id}, "firmware update rejected by module")
				return ErrFirmwareFatal
			}
			if resp.Func == FuncValue && len(resp.Payload) >= 2 && binary.BigEndian.Uint16(resp.Payload[0:2]) == id {
				return nil
			}
		}
	}
	return ErrCommandTimeout
}
