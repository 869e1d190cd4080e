package kihost

// cobs.go - the byte-stuffing framing codec. A single 0x00 byte delimits
// frames on the wire; every other byte in a run of non-zero data is passed
// through untouched, with "code" bytes inserted ahead of each run to say
// how many data bytes follow and how many zeroes to re-insert afterward.
//
// Code byte meaning (see commands.go's MaxFrameLen for the length ceiling
// this has to cover):
//
//	0x01..0xCF  (n-1) data bytes, one trailing zero
//	0xD0        0xCF data bytes, no trailing zero (run continues)
//	0xD1, 0xD2  illegal: these zero counts must be folded into a data code
//	0xD3..0xDF  a run of (n-0xD0) zeroes, no preceding data
//	0xE0..0xFE  (n-0xE0) data bytes, two trailing zeroes
//	0xFF        reserved

// DecodeResult classifies the outcome of feeding one byte to a Decoder.
type DecodeResult int

const (
	// DecodeNone means the frame is still being assembled; call again.
	DecodeNone DecodeResult = iota
	// DecodeTimeout means the byte source reported a read timeout.
	DecodeTimeout
	// DecodeError means the stream is desynchronized (illegal code, or the
	// declared length overruns the destination buffer).
	DecodeError
	// DecodeFrameReady means buf now holds a complete frame; the returned
	// length is valid.
	DecodeFrameReady
)

// codeEmitter receives one stuffed byte at a time, in wire order.
type codeEmitter func(b byte)

// EncodeFrame stuffs x (a complete, already-checksummed frame) and emits
// every wire byte, including the leading 0x00 delimiter, through emit.
//
// Rather than the pending-code rewrite the original codec used (patch a
// just-emitted code byte when a second zero arrives), this scans each data
// run and the zero run that follows it so the code for a group is always
// known before any byte in that group crosses emit - no byte is ever
// emitted twice or rewritten after the fact. When the last input byte is
// non-zero, a final 0x01 code byte closes the stream.
func EncodeFrame(x []byte, emit codeEmitter) {
	emit(0x00)
	n := len(x)
	i := 0
	for i < n {
		j := i
		for j < n && x[j] != 0 {
			j++
		}
		dataLen := j - i

		for dataLen > 0 {
			if dataLen >= 0xCF {
				emit(0xD0)
				for k := 0; k < 0xCF; k++ {
					emit(x[i])
					i++
				}
				dataLen -= 0xCF
				continue
			}

			zerosAfter := 0
			for i+dataLen+zerosAfter < n && x[i+dataLen+zerosAfter] == 0 {
				zerosAfter++
			}

			switch {
			case dataLen <= 0x1E && zerosAfter >= 2:
				emit(byte(0xE0 + dataLen))
				for k := 0; k < dataLen; k++ {
					emit(x[i])
					i++
				}
				i += 2
				emitZeroRun(zerosAfter-2, emit)
			case zerosAfter >= 1:
				emit(byte(0x01 + dataLen))
				for k := 0; k < dataLen; k++ {
					emit(x[i])
					i++
				}
				i++
				emitZeroRun(zerosAfter-1, emit)
			default:
				emit(byte(0x01 + dataLen))
				for k := 0; k < dataLen; k++ {
					emit(x[i])
					i++
				}
			}
			dataLen = 0
		}

		if i < n && x[i] == 0 {
			zlen := 0
			for i+zlen < n && x[i+zlen] == 0 {
				zlen++
			}
			i += zlen
			emitZeroRun(zlen, emit)
		}
	}
	if n > 0 && x[n-1] != 0 {
		emit(0x01)
	}
}

// emitZeroRun emits a run of zlen zeroes as one or more code bytes, never
// producing the illegal 0xD1/0xD2 codes (a run of 1 or 2 zeroes with no
// preceding data uses the zero-data-byte forms of the 0x01 and 0xE0 codes
// instead).
func emitZeroRun(zlen int, emit codeEmitter) {
	for zlen > 0 {
		switch {
		case zlen >= 3:
			chunk := zlen
			if chunk > 15 {
				chunk = 15
			}
			emit(byte(0xD0 + chunk))
			zlen -= chunk
		case zlen == 2:
			emit(0xE0)
			zlen = 0
		default:
			emit(0x01)
			zlen = 0
		}
	}
}

// Decoder holds the running state of an in-progress frame decode. It is a
// field of Session rather than process-global state, so that two sessions
// never share or race on the same decode in progress.
type Decoder struct {
	totBytes   int
	proBytes   int
	startMsg   bool
	havePrefix bool
	dataBytes  int
	zeroes     int
}

// DecodeByte feeds one wire byte (and its associated read-timeout flag)
// into the decoder. buf must be at least MaxFrameLen bytes. It returns the
// completed frame length with DecodeFrameReady once a frame finishes, 0
// with DecodeNone while a frame is still in progress, or 0 with
// DecodeError/DecodeTimeout on error/timeout.
func (d *Decoder) DecodeByte(buf []byte, timedOut bool, in byte) (int, DecodeResult) {
	if timedOut {
		return 0, DecodeTimeout
	}

	if in == 0x00 {
		d.totBytes = FrameHeaderLen
		d.proBytes = 0
		d.startMsg = true
		d.havePrefix = false
		d.dataBytes = 0
		d.zeroes = 0
		for i := 0; i < FrameHeaderLen && i < len(buf); i++ {
			buf[i] = 0
		}
		return 0, DecodeNone
	}

	if !d.startMsg {
		return 0, DecodeNone
	}

	if d.proBytes >= 2 && !d.havePrefix {
		d.totBytes += int(buf[0])<<8 | int(buf[1])
		if d.totBytes > len(buf) {
			return 0, DecodeError
		}
		for i := FrameHeaderLen; i < d.totBytes; i++ {
			buf[i] = 0
		}
		d.havePrefix = true
	}

	if d.dataBytes == 0 {
		switch {
		case in < 0xD0:
			d.dataBytes = int(in) - 1
			d.zeroes = 1
		case in == 0xD0:
			d.dataBytes = 0xCF
			d.zeroes = 0
		case in == 0xD1 || in == 0xD2:
			return 0, DecodeError
		case in < 0xE0:
			d.dataBytes = 0
			d.zeroes = int(in) - 0xD0
		case in < 0xFF:
			d.dataBytes = int(in) - 0xE0
			d.zeroes = 2
		default:
			return 0, DecodeError
		}
		if d.dataBytes == 0 {
			d.proBytes += d.zeroes
			d.zeroes = 0
		}
	} else {
		if d.proBytes < d.totBytes {
			buf[d.proBytes] = in
		}
		d.proBytes++
		d.dataBytes--
		if d.dataBytes == 0 {
			d.proBytes += d.zeroes
			d.zeroes = 0
		}
	}

	if d.proBytes >= d.totBytes {
		d.startMsg = false
		return d.totBytes, DecodeFrameReady
	}
	return 0, DecodeNone
}
