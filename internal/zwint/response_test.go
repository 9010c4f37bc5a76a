package zwint

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestRenderResponse(t *testing.T) {
	frame := Encode(0x00, []byte{0x13, 0x2A})
	re := regexp.MustCompile(`^01 04 00 13 (..)`)
	match := re.FindStringSubmatchIndex(Hex(frame))
	if match == nil {
		t.Fatal("pattern does not match test frame")
	}

	tests := []struct {
		name     string
		template string
		want     [][]byte
		err      error
	}{
		{"ack", "06", [][]byte{{ACK}}, nil},
		{"single digit then space", "6 ", [][]byte{{ACK}}, nil},
		{"single digit at end", "6", [][]byte{{ACK}}, nil},
		{"lower case", "0a 1f", [][]byte{{0x0A, 0x1F}}, nil},
		{"checksum", "01 03 00 02 XX", [][]byte{Encode(0x00, []byte{0x02})}, nil},
		{"single digits with checksum", "1 3 0 2 xx", [][]byte{Encode(0x00, []byte{0x02})}, nil},
		{"length fix-up", "01 00 00 13 \\1 00 XX", [][]byte{Encode(0x00, []byte{0x13, 0x2A, 0x00})}, nil},
		{"whole match", "\\0", [][]byte{frame[:5]}, nil},
		{
			"two parts",
			"06 01 04 01 13 01 XX 01 00 00 13 \\1 00 XX",
			[][]byte{
				append([]byte{ACK}, Encode(0x01, []byte{0x13, 0x01})...),
				Encode(0x00, []byte{0x13, 0x2A, 0x00}),
			},
			nil,
		},
		{
			"trailing bytes form a part",
			"01 03 00 02 XX 06",
			[][]byte{Encode(0x00, []byte{0x02}), {ACK}},
			nil,
		},
		{"checksum without frame", "XX", nil, errResponseChecksum},
		{"bad digit", "0G", nil, errResponseSyntax},
		{"single X", "01 03 X0", nil, errResponseSyntax},
		{"trailing backslash", "06 \\", nil, errResponseSyntax},
		{"unmatched group", "\\5", nil, errUnmatched},
		{"too long", strings.Repeat("00", maxFrameSize+1), nil, errResponseTooLong},
		{"too many parts", strings.Repeat("01 03 00 02 XX ", 4), nil, errTooManyParts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, err := renderResponse(tt.template, frame, match)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("err = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("renderResponse: %v", err)
			}
			if len(parts) != len(tt.want) {
				t.Fatalf("got %d parts, want %d", len(parts), len(tt.want))
			}
			for i := range parts {
				if !bytes.Equal(parts[i], tt.want[i]) {
					t.Errorf("part %d = %s, want %s", i, Hex(parts[i]), Hex(tt.want[i]))
				}
			}
		})
	}
}
