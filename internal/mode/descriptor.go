// Package mode encodes and decodes the per-button mode strings stored on a
// scene controller: the interaction kind, an optional switch-screen target,
// scene linkage and the ordered list of direct associations.
package mode

import (
	"encoding/json"

	"scenepanel/internal/profile"
)

// NoValue marks an unset level or dimming duration.
const NoValue = 255

// Level and dimming duration limits.
const (
	MaxLevel    = 99
	MaxDuration = 254
)

// Association is one direct association slot.
type Association struct {
	Device   int
	Level    int
	Duration int
}

// NewAssociation returns an association to device with no level or duration.
func NewAssociation(device int) Association {
	return Association{Device: device, Level: NoValue, Duration: NoValue}
}

// HasLevel reports whether a level is set. Zero is a valid level.
func (a Association) HasLevel() bool { return a.Level != NoValue }

// HasDuration reports whether a dimming duration is set.
func (a Association) HasDuration() bool { return a.Duration != NoValue }

type associationJSON struct {
	Device   int  `json:"device"`
	Level    *int `json:"level"`
	Duration *int `json:"duration"`
}

func (a Association) MarshalJSON() ([]byte, error) {
	out := associationJSON{Device: a.Device}
	if a.HasLevel() {
		out.Level = &a.Level
	}
	if a.HasDuration() {
		out.Duration = &a.Duration
	}
	return json.Marshal(out)
}

func (a *Association) UnmarshalJSON(data []byte) error {
	var in associationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = NewAssociation(in.Device)
	if in.Level != nil && *in.Level >= 0 && *in.Level <= MaxLevel {
		a.Level = *in.Level
	}
	if in.Duration != nil && *in.Duration >= 0 && *in.Duration <= MaxDuration {
		a.Duration = *in.Duration
	}
	return nil
}

// Descriptor is the decoded form of one button's mode string.
type Descriptor struct {
	Kind Kind `json:"kind"`
	// TargetScreen is set only for SwitchScreen buttons.
	TargetScreen      *profile.ScreenAddress `json:"target_screen,omitempty"`
	SceneControllable bool                   `json:"scene_controllable"`
	// SceneID and OffSceneID are zero when absent.
	SceneID      int           `json:"scene_id,omitempty"`
	OffSceneID   int           `json:"off_scene_id,omitempty"`
	Associations []Association `json:"associations"`
}

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	c := d
	if d.TargetScreen != nil {
		t := *d.TargetScreen
		c.TargetScreen = &t
	}
	if d.Associations != nil {
		c.Associations = make([]Association, len(d.Associations))
		copy(c.Associations, d.Associations)
	}
	return c
}

// Devices returns the associated device ids in slot order, skipping empty slots.
func (d Descriptor) Devices() []int {
	var out []int
	for _, a := range d.Associations {
		if a.Device != 0 {
			out = append(out, a.Device)
		}
	}
	return out
}

// Normalize enforces the profile rules on a descriptor: the list holds at most
// MaxDirectAssociations devices, non-scene lists carry no dimming durations
// and, unless the profile uses Cooper configuration, no levels. Scene ids only
// exist on scene-controllable lists.
func Normalize(p *profile.Profile, d *Descriptor) {
	if d.Kind != SwitchScreen {
		d.TargetScreen = nil
	}
	if limit := p.MaxDirectAssociations; limit > 0 {
		n := 0
		for i, a := range d.Associations {
			if a.Device == 0 {
				continue
			}
			if n == limit {
				d.Associations = d.Associations[:i]
				break
			}
			n++
		}
	}
	if d.SceneControllable {
		return
	}
	d.SceneID, d.OffSceneID = 0, 0
	for i := range d.Associations {
		d.Associations[i].Duration = NoValue
		if !p.HasCooperConfiguration {
			d.Associations[i].Level = NoValue
		}
	}
}
