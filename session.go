package kihost

import (
	"fmt"
	"sync"
	"time"
)

// session.go - the session layer: request/response with retry,
// wait-for-state polling, the socket registry and dispatch, wired on top
// of the byte transport and the frame/codec layers below it.
//
// Session drives the link synchronously on whichever goroutine calls it,
// deliberately not via a background reader goroutine and channels:
// Cmd/WaitFor/socket operations all block until they have an answer,
// reading one byte at a time and running any notification handler to
// completion before the next byte is consumed. A background reader would
// let a second command's bytes interleave with a handler still running
// for an earlier notification, which this single-threaded cooperative
// model rules out by construction.
type Session struct {
	mu       sync.Mutex
	transport ByteTransport
	reader   *byteReader
	decoder  Decoder
	rxBuf    [MaxFrameLen]byte

	retries        int
	byteTimeout    time.Duration
	settleClear    time.Duration
	settleIfup     time.Duration

	sockets *socketRegistry
	logger  Logger
	metrics *Metrics

	firmwareBlockTimeout time.Duration
	firmwareBlockBackoff time.Duration
	firmwareBlockRetries int
}

// Config gathers the knobs a Session needs at construction. There is no
// external config file format - callers populate this directly, or an
// example CLI program fills it in from flags.
type Config struct {
	Device         string
	BaudRate       uint
	ByteTimeout    time.Duration // per-byte read timeout; default 1s
	Retries        int           // per-command retry count; default 3
	SocketCapacity int           // socket registry rows; default 1
	Logger         Logger
	Metrics        *Metrics

	// FirmwareBlockTimeout, FirmwareBlockBackoff and FirmwareBlockRetries
	// govern the firmware update block protocol, which has its own retry
	// schedule (defaults: 10s, 5s, 5 retries) distinct from Retries above.
	FirmwareBlockTimeout time.Duration
	FirmwareBlockBackoff time.Duration
	FirmwareBlockRetries int
}

func (c *Config) setDefaults() {
	if c.ByteTimeout == 0 {
		c.ByteTimeout = time.Second
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.SocketCapacity == 0 {
		c.SocketCapacity = 1
	}
	if c.Logger == nil {
		c.Logger = discardLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics()
	}
	if c.FirmwareBlockTimeout == 0 {
		c.FirmwareBlockTimeout = 10 * time.Second
	}
	if c.FirmwareBlockBackoff == 0 {
		c.FirmwareBlockBackoff = 5 * time.Second
	}
	if c.FirmwareBlockRetries == 0 {
		c.FirmwareBlockRetries = 5
	}
}

// Init opens the configured serial device and returns a ready Session. The
// device is opened with cfg.ByteTimeout as its inter-character read
// timeout, matching the original uart_init(device, portToutMs) contract -
// the timeout is a property of opening the link, not an afterthought left
// to the OS default.
func Init(cfg Config) (*Session, error) {
	cfg.setDefaults()
	t, err := OpenSerial(cfg.Device, cfg.BaudRate, cfg.ByteTimeout)
	if err != nil {
		return nil, fmt.Errorf("kihost: opening serial device %s: %w", cfg.Device, err)
	}
	return NewSession(t, cfg), nil
}

// NewSession wraps an already-open ByteTransport (the real serial link, or
// a test double) in a Session. This is the seam tests use to substitute a
// fake link.
func NewSession(t ByteTransport, cfg Config) *Session {
	cfg.setDefaults()
	return &Session{
		transport:   t,
		reader:      newByteReader(t, cfg.ByteTimeout),
		retries:     cfg.Retries,
		byteTimeout: cfg.ByteTimeout,
		settleClear: time.Second,
		settleIfup:  5 * time.Second,
		sockets:     newSocketRegistry(cfg.SocketCapacity),
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		firmwareBlockTimeout: cfg.FirmwareBlockTimeout,
		firmwareBlockBackoff: cfg.FirmwareBlockBackoff,
		firmwareBlockRetries: cfg.FirmwareBlockRetries,
	}
}

// Finish releases the underlying transport. A Session may be Init'd again
// afterward.
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport.Close()
}

// sendFrame stuffs and writes one frame.
func (s *Session) sendFrame(f *Frame) error {
	raw, err := f.Marshal()
	if err != nil {
		return err
	}
	var writeErr error
	EncodeFrame(raw, func(b byte) {
		if writeErr != nil {
			return
		}
		writeErr = s.reader.writeByte(b)
	})
	return writeErr
}

// Pump drains inbound bytes for up to duration, dispatching any
// notification frames it completes along the way. It is the idle-loop
// counterpart to Cmd: callers with no outstanding request still need
// something pumping the link so bound sockets and ping replies keep
// getting delivered, since this session has no background reader.
func (s *Session) Pump(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		b, timedOut := s.reader.readByte()
		n, result := s.decoder.DecodeByte(s.rxBuf[:], timedOut, b)
		switch result {
		case DecodeError:
			s.metrics.ChecksumFailures.Inc()
			s.logger.Warn(nil, "frame decode error while pumping, resyncing")
			continue
		case DecodeFrameReady:
			f, err := UnmarshalFrame(s.rxBuf[:n])
			if err != nil {
				s.metrics.ChecksumFailures.Inc()
				s.logger.Warn(map[string]interface{}{"err": err.Error()}, "frame checksum mismatch while pumping")
				continue
			}
			if f.IsNotification() {
				s.metrics.NotificationsRecv.Inc()
				s.dispatchNotification(f)
			}
		}
	}
}

// recvFrame reads bytes until a complete frame arrives, dispatching and
// skipping notification frames, or until deadline elapses.
func (s *Session) recvFrame(deadline time.Time) (*Frame, error) {
	for time.Now().Before(deadline) {
		b, timedOut := s.reader.readByte()
		n, result := s.decoder.DecodeByte(s.rxBuf[:], timedOut, b)
		switch result {
		case DecodeTimeout:
			continue
		case DecodeError:
			s.metrics.ChecksumFailures.Inc()
			s.logger.Warn(nil, "frame decode error, resyncing")
			continue
		case DecodeFrameReady:
			f, err := UnmarshalFrame(s.rxBuf[:n])
			if err != nil {
				s.metrics.ChecksumFailures.Inc()
				s.logger.Warn(map[string]interface{}{"err": err.Error()}, "frame checksum mismatch")
				continue
			}
			s.logger.Debug(map[string]interface{}{"class": f.Class, "func": f.Func, "cmd": f.Cmd, "bytes": len(f.Payload)}, "frame received")
			if f.IsNotification() {
				s.metrics.NotificationsRecv.Inc()
				s.dispatchNotification(f)
				continue
			}
			return f, nil
		}
	}
	return nil, ErrCommandTimeout
}

// Cmd sends a command frame and waits for its matching response, retrying
// up to s.retries times on timeout. On a positive CLEAR/IFUP reply it
// sleeps the module's documented settling time before returning.
func (s *Session) Cmd(function uint8, cmd uint8, payload []byte) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := &Frame{Class: ClassCommand, Func: function, Cmd: cmd, Payload: payload}
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			s.metrics.CommandRetries.Inc()
			s.logger.Info(map[string]interface{}{"cmd": cmd, "attempt": attempt}, "retrying command")
		}
		if err := s.sendFrame(req); err != nil {
			lastErr = err
			continue
		}
		s.metrics.CommandsSent.Inc()
		s.logger.Debug(map[string]interface{}{"cmd": cmd, "func": function, "bytes": len(payload)}, "command frame sent")

		deadline := time.Now().Add(s.byteTimeout * 8)
		for time.Now().Before(deadline) {
			resp, err := s.recvFrame(deadline)
			if err != nil {
				lastErr = err
				break
			}
			if resp.Cmd != cmd {
				continue
			}
			if err := s.responseError(cmd, resp); err != nil {
				return resp, err
			}
			s.applySettleTime(cmd, resp)
			return resp, nil
		}
	}
	if lastErr == nil {
		lastErr = ErrCommandTimeout
	}
	return nil, lastErr
}

func (s *Session) responseError(cmd uint8, resp *Frame) error {
	switch resp.Func {
	case FuncOK, FuncValue:
		return nil
	default:
		s.logger.Warn(map[string]interface{}{"cmd": cmd, "func": resp.Func}, "command failed")
		return &ErrCommandFailed{Cmd: cmd, Func: resp.Func}
	}
}

func (s *Session) applySettleTime(cmd uint8, resp *Frame) {
	switch cmd {
	case CLEAR:
		s.logger.Info(map[string]interface{}{"cmd": cmd, "settle": s.settleClear.String()}, "settling after command")
		time.Sleep(s.settleClear)
	case IFUP:
		s.logger.Info(map[string]interface{}{"cmd": cmd, "settle": s.settleIfup.String()}, "settling after command")
		time.Sleep(s.settleIfup)
	}
}

// WaitFor polls cmd via a read request until the response payload's
// prefix matches expected, or timeout elapses.
func (s *Session) WaitFor(cmd uint8, expected []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := s.Cmd(FuncRead, cmd, nil)
		if err == nil && len(resp.Payload) >= len(expected) {
			match := true
			for i := range expected {
				if resp.Payload[i] != expected[i] {
					match = false
					break
				}
			}
			if match {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return ErrWaitForTimeout
		}
		time.Sleep(time.Second)
	}
}

// dispatchNotification routes a notification-class frame to the
// registered socket handler (for socket receives) or the notification
// logger (for everything else).
func (s *Session) dispatchNotification(f *Frame) {
	switch f.Func {
	case FuncPingReply:
		if r, err := DecodePingReply(f.Payload); err == nil {
			s.logger.Info(map[string]interface{}{
				"saddr": r.Addr.String(), "id": r.ID, "sq": r.Seq, "bytes": r.Bytes,
			}, "ping-reply")
		}
	case FuncNamedPingReply:
		if r, err := DecodeNamedPingReply(f.Payload); err == nil {
			s.logger.Info(map[string]interface{}{
				"domain": r.Domain, "saddr": r.Addr.String(), "id": r.ID, "sq": r.Seq, "bytes": r.Bytes,
			}, "named-ping-reply")
		}
	case FuncSockRecv:
		if r, err := DecodeSockRecv(f.Payload); err == nil {
			s.deliverSockRecv(r.DstPort, r.SrcPort, r.SrcAddr.String(), r.Payload)
		}
	case FuncNamedSockRecv:
		if r, err := DecodeNamedSockRecv(f.Payload); err == nil {
			s.deliverSockRecv(r.DstPort, r.SrcPort, r.SrcAddr.String(), r.Payload)
		}
	case FuncDstUnreach:
		if r, err := DecodeDstUnreach(f.Payload); err == nil {
			s.logger.Info(map[string]interface{}{"daddr": r.Addr.String()}, "dst-unreachable")
		}
	}
}

func (s *Session) deliverSockRecv(dport, sport uint16, srcAddr string, payload []byte) {
	rec := s.sockets.find(dport)
	if rec == nil {
		return
	}
	if !rec.PeerMatches(srcAddr, sport) {
		return
	}
	s.logger.Info(map[string]interface{}{
		"dport": dport, "sport": sport, "saddr": srcAddr, "bytes": len(payload),
	}, "sock-recv")
	rec.handler(dport, sport, srcAddr, payload)
}
