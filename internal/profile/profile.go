// Package profile describes the scene controller hardware families: button
// layout, screen types, scene numbering bases and firmware compatibility rules.
package profile

import (
	"fmt"
	"strconv"
)

// ScreenType is the single-letter prefix of a screen address.
type ScreenType byte

const (
	ScreenCustom      ScreenType = 'C'
	ScreenTemperature ScreenType = 'T'
	ScreenPreset      ScreenType = 'P'
	ScreenWelcome     ScreenType = 'W'
)

func (t ScreenType) String() string {
	switch t {
	case ScreenCustom:
		return "Custom"
	case ScreenTemperature:
		return "Temperature"
	case ScreenPreset:
		return "Preset"
	case ScreenWelcome:
		return "Welcome"
	}
	return string(rune(t))
}

func (t ScreenType) MarshalText() ([]byte, error) {
	return []byte{byte(t)}, nil
}

func (t *ScreenType) UnmarshalText(b []byte) error {
	if len(b) != 1 || b[0] < 'A' || b[0] > 'Z' {
		return fmt.Errorf("invalid screen type %q", b)
	}
	*t = ScreenType(b[0])
	return nil
}

// ScreenAddress identifies one page of the controller, e.g. C3 or P41.
type ScreenAddress struct {
	Type   ScreenType
	Number int
}

func (a ScreenAddress) String() string {
	return string(rune(a.Type)) + strconv.Itoa(a.Number)
}

func (a ScreenAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ScreenAddress) UnmarshalText(b []byte) error {
	parsed, err := ParseScreenAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsZero reports whether a is the zero address.
func (a ScreenAddress) IsZero() bool {
	return a.Type == 0 && a.Number == 0
}

// ParseScreenAddress parses an upper-case letter followed by a page number.
func ParseScreenAddress(s string) (ScreenAddress, error) {
	if len(s) < 2 || s[0] < 'A' || s[0] > 'Z' {
		return ScreenAddress{}, fmt.Errorf("invalid screen address %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return ScreenAddress{}, fmt.Errorf("invalid screen number in %q", s)
	}
	return ScreenAddress{Type: ScreenType(s[0]), Number: n}, nil
}

// ScreenGroup is one screen type offered by a profile and how many pages it has.
type ScreenGroup struct {
	Type  ScreenType `json:"type"`
	Name  string     `json:"name"`
	Count int        `json:"count"`
}

// CompatibilityRule decides whether a screen page exists on a given firmware.
type CompatibilityRule func(p *Profile, addr ScreenAddress, version int) bool

// LanguageRule returns the language indexes available for a screen page.
type LanguageRule func(addr ScreenAddress, version int) []int

// Profile is the static descriptor of one controller family. Profiles are
// built once and shared read-only.
type Profile struct {
	ID                     string             `json:"id"`
	Name                   string             `json:"name"`
	DeviceType             string             `json:"device_type"`
	DefaultLcdVersion      int                `json:"default_lcd_version"`
	HasScreen              bool               `json:"has_screen"`
	HasPresetLanguages     bool               `json:"has_preset_languages"`
	HasThermostatControl   bool               `json:"has_thermostat_control"`
	NumButtons             int                `json:"num_buttons"`
	MaxScroll              int                `json:"max_scroll"`
	LastFixedSceneID       int                `json:"last_fixed_scene_id"`
	HasOffScenes           bool               `json:"has_off_scenes"`
	HasCooperConfiguration bool               `json:"has_cooper_configuration"`
	MaxDirectAssociations  int                `json:"max_direct_associations"`
	DefaultScreen          ScreenAddress      `json:"default_screen"`
	DefaultModeCode        string             `json:"default_mode"`
	NumTemperatureScreens  int                `json:"num_temperature_screens"`
	Screens                []ScreenGroup      `json:"screens"`
	SceneBases             map[ScreenType]int `json:"scene_bases"`
	// CustomModes lists the mode prefixes offered for a button, in menu order.
	CustomModes string `json:"custom_modes"`
	// PresetScreens is indexed by preset page number; missing pages are nil.
	PresetScreens [][]string `json:"-"`

	compatible CompatibilityRule
	languages  LanguageRule
}

// SceneBase returns the first scene number used by screens of type t.
func (p *Profile) SceneBase(t ScreenType) (int, bool) {
	base, ok := p.SceneBases[t]
	return base, ok
}

// ScreenCount returns the number of pages of type t, or zero.
func (p *Profile) ScreenCount(t ScreenType) int {
	for _, g := range p.Screens {
		if g.Type == t {
			return g.Count
		}
	}
	return 0
}

// Preset returns the fixed button labels of a preset page.
func (p *Profile) Preset(page int) []string {
	if page < 0 || page >= len(p.PresetScreens) {
		return nil
	}
	return p.PresetScreens[page]
}

// ScreenIsCompatible reports whether the page is available, at least in
// English, on the given firmware version.
func (p *Profile) ScreenIsCompatible(addr ScreenAddress, version int) bool {
	if p.compatible == nil {
		return false
	}
	return p.compatible(p, addr, version)
}

// LanguagesSupported returns the language indexes available for the page.
func (p *Profile) LanguagesSupported(addr ScreenAddress, version int) []int {
	if p.languages == nil {
		return []int{LanguageEnglish}
	}
	return p.languages(addr, version)
}

// CompatibleScreens lists every page of the profile usable on version, in
// menu order.
func (p *Profile) CompatibleScreens(version int) []ScreenAddress {
	var out []ScreenAddress
	for _, g := range p.Screens {
		for n := 1; n <= g.Count; n++ {
			addr := ScreenAddress{Type: g.Type, Number: n}
			if p.ScreenIsCompatible(addr, version) {
				out = append(out, addr)
			}
		}
	}
	return out
}

// ClampLines bounds a requested line count to the scrollable range.
func (p *Profile) ClampLines(n int) int {
	if n < p.NumButtons {
		return p.NumButtons
	}
	if n > p.MaxScroll {
		return p.MaxScroll
	}
	return n
}

// AlternateScreen is the page offered as a switch or timeout target when the
// user has not chosen one: the default screen, or C2 when already on it.
func (p *Profile) AlternateScreen(current ScreenAddress) ScreenAddress {
	if current == p.DefaultScreen {
		return ScreenAddress{Type: ScreenCustom, Number: 2}
	}
	return p.DefaultScreen
}

// Registry holds profiles by id.
type Registry struct {
	byID  map[string]*Profile
	order []string
}

// NewRegistry builds a registry from the given profiles.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{byID: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if _, dup := r.byID[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.byID[p.ID] = p
	}
	return r
}

// DefaultRegistry returns a registry with every built-in profile.
func DefaultRegistry() *Registry {
	return NewRegistry(EvolveLCD1(), CooperRFWC5(), NexiaOneTouch())
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (*Profile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// All returns the profiles in registration order.
func (r *Registry) All() []*Profile {
	out := make([]*Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
