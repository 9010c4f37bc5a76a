package mode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"scenepanel/internal/profile"
)

// ErrMissingTarget is returned by Validate for a switch-screen descriptor
// without a target screen.
var ErrMissingTarget = errors.New("mode: switch screen needs a target screen")

// Directory reports whether a device id still exists. Associations to
// unknown devices are dropped while decoding. A nil Directory accepts all ids.
type Directory func(device int) bool

// SyntaxError describes the first problem found in a mode string.
type SyntaxError struct {
	Input  string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mode %q: %s at offset %d", e.Input, e.Msg, e.Offset)
}

// Parse decodes a stored mode string. It never fails: an empty or
// unreadable string yields the profile's default mode, and malformed
// association entries are skipped.
func Parse(p *profile.Profile, s string, known Directory) Descriptor {
	d, _ := decode(p, s, known)
	return d
}

// ParseStrict decodes like Parse but also reports the first syntax problem.
// The returned descriptor is the one Parse would return.
func ParseStrict(p *profile.Profile, s string, known Directory) (Descriptor, error) {
	return decode(p, s, known)
}

func decode(p *profile.Profile, s string, known Directory) (Descriptor, error) {
	if s == "" {
		s = p.DefaultModeCode
	}
	dp := &decoder{input: s, profile: p, known: known}
	d, ok := dp.parse()
	if !ok {
		def := &decoder{input: p.DefaultModeCode, profile: p}
		d, _ = def.parse()
	}
	Normalize(p, &d)
	if dp.err != nil {
		return d, dp.err
	}
	return d, nil
}

type decoder struct {
	input   string
	pos     int
	profile *profile.Profile
	known   Directory
	err     *SyntaxError
}

func (p *decoder) fail(msg string) {
	if p.err == nil {
		p.err = &SyntaxError{Input: p.input, Offset: p.pos, Msg: msg}
	}
}

func (p *decoder) eof() bool { return p.pos >= len(p.input) }

func (p *decoder) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

// number consumes a run of decimal digits.
func (p *decoder) number() (int, bool) {
	start := p.pos
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(p.input[start:p.pos])
	if err != nil {
		p.pos = start
		return 0, false
	}
	return n, true
}

// mode := prefix screenSwitch? sceneMarker? associationList? ";"?
func (p *decoder) parse() (Descriptor, bool) {
	var d Descriptor
	if p.eof() {
		p.fail("empty mode")
		return d, false
	}
	d.Kind = Kind(p.peek())
	if !d.Kind.Valid() {
		p.fail("unknown prefix")
		return d, false
	}
	p.pos++

	if target, ok := p.screenSwitch(); ok {
		d.Kind = SwitchScreen
		d.TargetScreen = &target
	} else if d.Kind == SwitchScreen {
		// Legacy switch-screen strings carry the bare target with no colon
		// and nothing after it.
		if target, err := profile.ParseScreenAddress(p.input[p.pos:]); err == nil {
			d.TargetScreen = &target
		}
		return d, true
	}

	p.sceneMarker(&d)
	d.Associations = p.associationList()
	return d, true
}

// screenSwitch := LETTER DIGIT+ ":" ":"*
//
// Older writers emitted a doubled colon, so any run of colons is accepted.
func (p *decoder) screenSwitch() (profile.ScreenAddress, bool) {
	start := p.pos
	c := p.peek()
	if c < 'A' || c > 'Z' {
		return profile.ScreenAddress{}, false
	}
	p.pos++
	n, ok := p.number()
	if !ok || p.peek() != ':' {
		p.pos = start
		return profile.ScreenAddress{}, false
	}
	for p.peek() == ':' {
		p.pos++
	}
	if n < 1 {
		p.fail("screen number out of range")
		return profile.ScreenAddress{}, false
	}
	return profile.ScreenAddress{Type: profile.ScreenType(c), Number: n}, true
}

// sceneMarker := ("S"|"C") (DIGIT+ "@" (DIGIT+ "@")?)?
//
// C marks the Cooper configuration written by older releases; both letters
// make the list scene controllable.
func (p *decoder) sceneMarker(d *Descriptor) {
	if c := p.peek(); c != 'S' && c != 'C' {
		return
	}
	p.pos++
	d.SceneControllable = true

	start := p.pos
	id, ok := p.number()
	if !ok || p.peek() != '@' {
		p.pos = start
		return
	}
	p.pos++
	d.SceneID = id

	start = p.pos
	off, ok := p.number()
	if !ok || p.peek() != '@' {
		p.pos = start
		return
	}
	p.pos++
	d.OffSceneID = off
}

// associationList := entry (";" entry)* ";"?
func (p *decoder) associationList() []Association {
	var out []Association
	limit := p.profile.MaxDirectAssociations
	for !p.eof() {
		start := p.pos
		end := strings.IndexByte(p.input[p.pos:], ';')
		if end < 0 {
			end = len(p.input)
		} else {
			end += p.pos
		}
		a, ok := p.entry(end)
		p.pos = end
		if p.peek() == ';' {
			p.pos++
		}
		if !ok {
			if end > start {
				p.pos = start
				p.fail("malformed association")
				p.pos = end
			}
			continue
		}
		if a.Device == 0 {
			continue
		}
		if p.known != nil && !p.known(a.Device) {
			continue
		}
		if limit > 0 && len(out) >= limit {
			p.fail("too many associations")
			break
		}
		out = append(out, a)
	}
	return out
}

// entry := DIGIT+ ("," DIGIT+ ("," DIGIT+)?)? ","?
//
// The trailing comma is tolerated because early releases wrote one.
func (p *decoder) entry(end int) (Association, bool) {
	sub := &decoder{input: p.input[:end], pos: p.pos}
	device, ok := sub.number()
	if !ok {
		return Association{}, false
	}
	a := NewAssociation(device)
	fields := [2]*int{&a.Level, &a.Duration}
	limits := [2]int{MaxLevel, MaxDuration}
	for i := range fields {
		if sub.peek() != ',' {
			break
		}
		sub.pos++
		v, ok := sub.number()
		if !ok {
			break
		}
		if v <= limits[i] {
			*fields[i] = v
		}
	}
	if sub.peek() == ',' {
		sub.pos++
	}
	return a, sub.eof()
}

// Validate reports whether Generate can encode d without losing data. Only
// stored legacy strings may carry a switch-screen kind with no target.
func Validate(d Descriptor) error {
	if d.Kind == SwitchScreen && d.TargetScreen == nil {
		return ErrMissingTarget
	}
	return nil
}

// Generate encodes d in canonical form. Empty slots are skipped and trailing
// unset fields are omitted from each association. A switch-screen descriptor
// without a target encodes as the bare legacy "N", dropping scene linkage and
// associations; callers building new modes check Validate first.
func Generate(p *profile.Profile, d Descriptor) string {
	var b strings.Builder
	kind := d.Kind
	if !kind.Valid() {
		kind = Kind(p.DefaultModeCode[0])
	}
	b.WriteByte(byte(kind))
	if kind == SwitchScreen {
		if d.TargetScreen == nil {
			// Only the bare legacy form can express a missing target.
			return b.String()
		}
		b.WriteString(d.TargetScreen.String())
		b.WriteByte(':')
	}
	if d.SceneControllable {
		b.WriteByte('S')
		if d.SceneID != 0 {
			b.WriteString(strconv.Itoa(d.SceneID))
			b.WriteByte('@')
			if d.OffSceneID != 0 {
				b.WriteString(strconv.Itoa(d.OffSceneID))
				b.WriteByte('@')
			}
		}
	}
	first := true
	for _, a := range d.Associations {
		if a.Device == 0 {
			continue
		}
		if !first {
			b.WriteByte(';')
		}
		first = false
		b.WriteString(strconv.Itoa(a.Device))
		switch {
		case a.HasDuration():
			fmt.Fprintf(&b, ",%d,%d", a.Level, a.Duration)
		case a.HasLevel():
			fmt.Fprintf(&b, ",%d", a.Level)
		}
	}
	return b.String()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
