package zwint

import (
	"errors"
	"strings"
)

// Serial API framing bytes.
const (
	SOF = 0x01
	ACK = 0x06
	NAK = 0x15
	CAN = 0x18
)

// maxFrameSize bounds a whole frame and a rendered response. A length byte of
// maxFrameSize or more cannot start a real frame.
const maxFrameSize = 128

var (
	errShortFrame  = errors.New("zwint: frame too short")
	errBadLength   = errors.New("zwint: length byte does not match frame")
	errBadChecksum = errors.New("zwint: bad checksum")
)

// Checksum returns the checksum of a frame body: 0xFF XOR every byte from the
// length byte through the last payload byte.
func Checksum(body []byte) byte {
	c := byte(0xFF)
	for _, b := range body {
		c ^= b
	}
	return c
}

// Encode builds a complete frame from a frame type and payload.
func Encode(frameType byte, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+4)
	frame = append(frame, SOF, byte(len(payload)+2), frameType)
	frame = append(frame, payload...)
	return append(frame, Checksum(frame[1:]))
}

// Verify checks the start byte, length and checksum of a complete frame.
func Verify(frame []byte) error {
	if len(frame) < 4 || frame[0] != SOF {
		return errShortFrame
	}
	if int(frame[1])+2 != len(frame) {
		return errBadLength
	}
	if Checksum(frame[1:len(frame)-1]) != frame[len(frame)-1] {
		return errBadChecksum
	}
	return nil
}

// Hex renders bytes as upper-case, space-separated hex pairs ("01 04 00 20 01 DA").
// Regular expressions of monitors run against this form.
func Hex(data []byte) string {
	const digits = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(digits[b>>4])
		sb.WriteByte(digits[b&0x0F])
	}
	return sb.String()
}
