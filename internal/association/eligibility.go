package association

import (
	"scenepanel/internal/capability"
	"scenepanel/internal/mode"
)

// Eligibility ranks a device as the target of an association slot.
type Eligibility int

const (
	Ineligible Eligibility = iota
	EligibleBasic
	EligibleScene
)

// Candidate is a device that may be selected for a slot.
type Candidate struct {
	Device      int         `json:"device"`
	Eligibility Eligibility `json:"eligibility"`
}

// EnableNonSceneDirect reports whether basic-set-only devices may follow the
// first slot of a list. They are only useful when no host scene is attached
// to the button and it has a single state, or on Cooper profiles.
func (m *Manager) EnableNonSceneDirect(hasScene bool, states int) bool {
	return m.profile.HasCooperConfiguration || (!hasScene && states == 1)
}

// Eligibility ranks device for slot of d.
func (m *Manager) Eligibility(d mode.Descriptor, slot, device int, enableNonSceneDirect bool) Eligibility {
	for i, a := range d.Associations {
		if i != slot && a.Device == device {
			return Ineligible
		}
	}
	props := m.classify(device)
	if !props.ZWave {
		return Ineligible
	}
	result := EligibleBasic
	if props.Scene {
		result = EligibleScene
	}
	// The first slot decides between scene and direct mode.
	if m.profile.HasCooperConfiguration || slot == 0 {
		return result
	}
	// Without a scene activation command the controller cannot tell which
	// button was pressed, except on toggle buttons whose indicator state
	// can be read back.
	if props.BasicSetOnly && !enableNonSceneDirect && d.Kind != mode.Toggle {
		return Ineligible
	}
	return result
}

// Candidates filters devices down to those eligible for slot of d.
func (m *Manager) Candidates(d mode.Descriptor, slot int, devices []int, enableNonSceneDirect bool) []Candidate {
	var out []Candidate
	for _, dev := range devices {
		if e := m.Eligibility(d, slot, dev, enableNonSceneDirect); e != Ineligible {
			out = append(out, Candidate{Device: dev, Eligibility: e})
		}
	}
	return out
}

// LevelEditable reports whether the slot holding device accepts a level.
func (m *Manager) LevelEditable(d mode.Descriptor, device int) bool {
	return m.levelEditable(d, m.classify(device))
}

// DurationEditable reports whether the slot holding device accepts a
// dimming duration.
func (m *Manager) DurationEditable(d mode.Descriptor, device int) bool {
	return durationEditable(d, m.classify(device))
}

// ScenesDisabled reports whether host scenes are unavailable for the button
// because its list starts with a basic-set-only device.
func (m *Manager) ScenesDisabled(d mode.Descriptor) bool {
	return !m.profile.HasCooperConfiguration &&
		len(d.Associations) > 0 &&
		m.classify(d.Associations[0].Device).BasicSetOnly
}

// CanAdd reports whether another slot fits in d.
func (m *Manager) CanAdd(d mode.Descriptor) bool {
	return len(d.Associations) < m.profile.MaxDirectAssociations
}

// Capabilities returns the capability record of device.
func (m *Manager) Capabilities(device int) capability.Record {
	return m.classify(device)
}
