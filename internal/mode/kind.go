package mode

import "fmt"

// Kind is the interaction type of a button. Its value is the prefix
// character of the stored mode string.
type Kind byte

const (
	Momentary       Kind = 'M'
	MomentaryDirect Kind = 'D'
	Toggle          Kind = 'T'
	ThermostatMode  Kind = 'P'
	EnergyMode      Kind = 'E'
	// ToggleDirect is obsolete; it is still accepted when decoding.
	ToggleDirect Kind = 'S'
	Exclusive    Kind = 'X'
	SwitchScreen Kind = 'N'
	Temperature  Kind = 'H'
	Welcome      Kind = 'W'
)

var kindNames = map[Kind]string{
	Momentary:       "Momentary",
	MomentaryDirect: "Momentary direct",
	Toggle:          "Toggle",
	'2':             "Two-state",
	'3':             "Three-state",
	'4':             "Four-state",
	'5':             "Five-state",
	'6':             "Six-state",
	'7':             "Seven-state",
	'8':             "Eight-state",
	'9':             "Nine-state",
	ThermostatMode:  "Mode",
	EnergyMode:      "Energy Mode",
	ToggleDirect:    "Toggle Direct",
	Exclusive:       "Exclusive",
	SwitchScreen:    "Switch Screen",
	Temperature:     "Temperature",
	Welcome:         "Welcome",
}

// NState returns the kind of a button cycling through n states, 2 to 9.
func NState(n int) (Kind, error) {
	if n < 2 || n > 9 {
		return 0, fmt.Errorf("n-state button needs 2 to 9 states, got %d", n)
	}
	return Kind('0' + n), nil
}

// Valid reports whether k is a known interaction kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// States returns the number of virtual states of the button: 2-9 for
// n-state kinds and 1 otherwise.
func (k Kind) States() int {
	if k >= '2' && k <= '9' {
		return int(k - '0')
	}
	return 1
}

// Name returns the display name of the kind.
func (k Kind) Name() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(%q)", rune(k))
}

func (k Kind) String() string {
	return string(rune(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte{byte(k)}, nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	if len(b) != 1 || !Kind(b[0]).Valid() {
		return fmt.Errorf("unknown mode kind %q", b)
	}
	*k = Kind(b[0])
	return nil
}

// ParseKind converts a single prefix character to a kind.
func ParseKind(s string) (Kind, bool) {
	if len(s) != 1 {
		return 0, false
	}
	k := Kind(s[0])
	return k, k.Valid()
}
