package zwint

import "errors"

// maxResponseParts is the number of frames a single response may contain.
const maxResponseParts = 3

var (
	errResponseSyntax   = errors.New("response syntax error")
	errUnmatched        = errors.New("unmatched replacement")
	errResponseTooLong  = errors.New("response too long")
	errResponseChecksum = errors.New("bad response checksum")
	errTooManyParts     = errors.New("too many response parts")
)

// responseBuilder renders a response template into frame parts. It tracks the
// frame being written so that XX can fix up its length and append the
// checksum.
type responseBuilder struct {
	buf      []byte
	parts    [][]byte
	partFrom int

	inFrame  bool
	frameLen int // bytes written since SOF
	lenPos   int
	checksum byte
}

func (rb *responseBuilder) add(data ...byte) error {
	if len(rb.buf)+len(data) > maxFrameSize {
		return errResponseTooLong
	}
	for _, c := range data {
		rb.buf = append(rb.buf, c)
		switch {
		case !rb.inFrame:
			if c == SOF {
				rb.inFrame = true
				rb.frameLen = 1
				rb.checksum = 0xFF
				rb.lenPos = len(rb.buf)
			}
		default:
			rb.frameLen++
			rb.checksum ^= c
		}
	}
	return nil
}

// closeFrame writes the checksum of the open frame and ends the current part.
func (rb *responseBuilder) closeFrame() error {
	if !rb.inFrame || rb.frameLen < 2 {
		return errResponseChecksum
	}
	newLen := byte(rb.frameLen - 1)
	rb.checksum ^= newLen ^ rb.buf[rb.lenPos]
	rb.buf[rb.lenPos] = newLen
	if err := rb.add(rb.checksum); err != nil {
		return err
	}
	rb.endPart()
	if len(rb.parts) > maxResponseParts {
		return errTooManyParts
	}
	rb.inFrame = false
	return nil
}

func (rb *responseBuilder) endPart() {
	rb.parts = append(rb.parts, rb.buf[rb.partFrom:len(rb.buf):len(rb.buf)])
	rb.partFrom = len(rb.buf)
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// renderResponse expands a response template against a matched frame.
//
// The template holds hex byte pairs, a single hex digit followed by a space,
// \N to insert the frame bytes of capture N, and XX to close the current frame
// with its checksum after correcting the length byte. Spaces between tokens are
// ignored. Each XX ends a part; trailing bytes form a final part.
// match is the submatch index slice of the pattern run against Hex(frame).
func renderResponse(template string, frame []byte, match []int) ([][]byte, error) {
	var rb responseBuilder
	const (
		stateIdle = iota
		stateDigit
		stateCapture
		stateX
	)
	state := stateIdle
	var hi byte

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch state {
		case stateIdle:
			switch {
			case c == ' ':
			case c == '\\':
				state = stateCapture
			case c == 'X' || c == 'x':
				state = stateX
			default:
				v, ok := hexValue(c)
				if !ok {
					return nil, errResponseSyntax
				}
				hi = v
				state = stateDigit
			}

		case stateDigit:
			if c == ' ' {
				if err := rb.add(hi); err != nil {
					return nil, err
				}
				state = stateIdle
				continue
			}
			v, ok := hexValue(c)
			if !ok {
				return nil, errResponseSyntax
			}
			if err := rb.add(hi<<4 | v); err != nil {
				return nil, err
			}
			state = stateIdle

		case stateCapture:
			if c < '0' || c > '9' {
				return nil, errResponseSyntax
			}
			n := int(c - '0')
			if 2*n+1 >= len(match) || match[2*n] < 0 {
				return nil, errUnmatched
			}
			so, eo := match[2*n], match[2*n+1]
			from := so / 3
			count := (2 + eo - so) / 3
			if from+count > len(frame) {
				return nil, errUnmatched
			}
			if err := rb.add(frame[from : from+count]...); err != nil {
				return nil, err
			}
			state = stateIdle

		case stateX:
			if c != 'X' && c != 'x' {
				return nil, errResponseSyntax
			}
			if err := rb.closeFrame(); err != nil {
				return nil, err
			}
			state = stateIdle
		}
	}

	switch state {
	case stateDigit:
		if err := rb.add(hi); err != nil {
			return nil, err
		}
	case stateCapture, stateX:
		return nil, errResponseSyntax
	}
	if rb.partFrom < len(rb.buf) {
		if len(rb.parts) >= maxResponseParts {
			return nil, errTooManyParts
		}
		rb.endPart()
	}
	return rb.parts, nil
}
