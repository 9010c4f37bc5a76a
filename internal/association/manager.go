// Package association edits the direct association list of a controller
// button. Changing the first slot can switch the list between scene and
// direct mode, which may discard settings on the other slots; such edits
// are planned first and only committed after confirmation.
package association

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"scenepanel/internal/capability"
	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
)

var (
	ErrDeclined  = errors.New("association change declined")
	ErrSlotLimit = errors.New("direct association limit reached")
	ErrSlotRange = errors.New("association slot out of range")
)

// Validation messages shown for rejected numeric input.
const (
	MsgInvalidLevel    = "Level must be a number between 0 and 99"
	MsgInvalidDuration = "Dimming duration must be a number between 0 and 254"
)

// Classifier returns the capability record of a device.
type Classifier interface {
	Classify(device int) capability.Record
}

// Field identifies which input of a slot changed.
type Field int

const (
	FieldDevice Field = iota
	FieldLevelToggle
	FieldLevel
	FieldDurationToggle
	FieldDuration
)

// Edit is one user change to an association slot. Level and Duration carry
// the raw text of the numeric inputs; nil keeps the slot's current value and
// an empty string clears it. The Enabled flags are read only when the
// matching toggle field changed.
type Edit struct {
	Slot            int     `json:"slot"`
	Field           Field   `json:"field"`
	Device          int     `json:"device"`
	LevelEnabled    bool    `json:"level_enabled"`
	Level           *string `json:"level,omitempty"`
	DurationEnabled bool    `json:"duration_enabled"`
	Duration        *string `json:"duration,omitempty"`
}

// DecisionKind says whether an edit needs confirmation.
type DecisionKind int

const (
	NoOp DecisionKind = iota
	// ConfirmKeep: the list leaves scene mode; levels and durations of the
	// affected slots are lost.
	ConfirmKeep
	// ConfirmPrune: the list enters scene mode; the affected basic-set-only
	// slots are removed.
	ConfirmPrune
)

func (k DecisionKind) String() string {
	switch k {
	case ConfirmKeep:
		return "confirm_keep"
	case ConfirmPrune:
		return "confirm_prune"
	default:
		return "noop"
	}
}

func (k DecisionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Decision describes the destructive part of an edit.
type Decision struct {
	Kind DecisionKind `json:"kind"`
	// Affected holds slot indexes in the list before the edit.
	Affected []int `json:"affected,omitempty"`
	// Devices holds the devices in the affected slots.
	Devices []int `json:"devices,omitempty"`
}

// Message returns the confirmation question for d. name resolves device
// names and may be nil.
func (d Decision) Message(p *profile.Profile, name func(int) string) string {
	last := ""
	if n := len(d.Devices); n > 0 {
		last = strconv.Itoa(d.Devices[n-1])
		if name != nil {
			last = name(d.Devices[n-1])
		}
	}
	switch d.Kind {
	case ConfirmKeep:
		levelAnd := " level and"
		if p.HasCooperConfiguration {
			levelAnd = ""
		}
		return "You are changing the first device in a direct association list to a non-scene capable device. " +
			"Are you sure you want to lose all" + levelAnd + " dimming duration settings, including the " + last + "?"
	case ConfirmPrune:
		return "You are changing the first device in a direct association list to a scene capable device. " +
			"Are you sure you want to remove all non-scene capable devices from the list, including the " + last + "?"
	}
	return ""
}

// Confirmer asks the user to accept a destructive edit.
type Confirmer interface {
	Confirm(Decision) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(Decision) bool

func (f ConfirmFunc) Confirm(d Decision) bool { return f(d) }

// Always confirms every decision.
var Always = ConfirmFunc(func(Decision) bool { return true })

// Manager applies association edits under one controller profile.
type Manager struct {
	profile *profile.Profile
	caps    Classifier
}

// NewManager returns a manager for lists of controllers using p.
func NewManager(p *profile.Profile, caps Classifier) *Manager {
	return &Manager{profile: p, caps: caps}
}

// Plan is a computed edit waiting for confirmation.
type Plan struct {
	Decision Decision `json:"decision"`
	// Messages holds validation messages for rejected numeric input.
	Messages []string `json:"messages,omitempty"`

	result mode.Descriptor
}

// Commit returns the edited descriptor. Callers must only commit a plan
// whose decision was confirmed or is NoOp.
func (p *Plan) Commit() mode.Descriptor {
	return p.result.Clone()
}

// Plan computes the effect of e on d without modifying d.
func (m *Manager) Plan(d mode.Descriptor, e Edit) (*Plan, error) {
	if e.Slot < 0 || e.Slot > len(d.Associations) {
		return nil, fmt.Errorf("%w: slot %d of %d", ErrSlotRange, e.Slot, len(d.Associations))
	}
	if e.Slot == len(d.Associations) && len(d.Associations) >= m.profile.MaxDirectAssociations {
		return nil, fmt.Errorf("%w: %d", ErrSlotLimit, m.profile.MaxDirectAssociations)
	}

	next := d.Clone()
	plan := &Plan{}

	switch {
	case m.profile.HasCooperConfiguration:
		next.SceneControllable = true
	case e.Slot == 0:
		m.transition(d, &next, e.Device, plan)
	}

	var prior mode.Association
	if e.Slot < len(d.Associations) {
		prior = d.Associations[e.Slot]
	} else {
		prior = mode.NewAssociation(0)
	}

	level := prior.Level
	switch {
	case e.Field == FieldLevelToggle:
		level = mode.NoValue
		if e.LevelEnabled {
			level = mode.MaxLevel
		}
	case e.Level != nil:
		if v, ok := parseInput(*e.Level, mode.MaxLevel); ok {
			level = v
		} else {
			plan.Messages = append(plan.Messages, MsgInvalidLevel)
		}
	}

	duration := prior.Duration
	switch {
	case e.Field == FieldDurationToggle:
		duration = mode.NoValue
		if e.DurationEnabled {
			duration = 0
		}
	case e.Duration != nil:
		if v, ok := parseInput(*e.Duration, mode.MaxDuration); ok {
			duration = v
		} else {
			plan.Messages = append(plan.Messages, MsgInvalidDuration)
		}
	}

	// Direct mode lists carry no durations and, except on Cooper profiles,
	// no levels. Only dimmable scene devices take either.
	props := m.classify(e.Device)
	if !m.levelEditable(next, props) {
		level = mode.NoValue
	}
	if !durationEditable(next, props) {
		duration = mode.NoValue
	}

	edited := mode.Association{Device: e.Device, Level: level, Duration: duration}
	if e.Slot == len(next.Associations) {
		next.Associations = append(next.Associations, edited)
	} else {
		next.Associations[e.Slot] = edited
	}
	next.Associations = compact(next.Associations)
	plan.result = next
	return plan, nil
}

// transition applies the scene/direct mode change caused by editing slot 0.
func (m *Manager) transition(d mode.Descriptor, next *mode.Descriptor, device int, plan *Plan) {
	affectStart := 1
	master := device
	if device == 0 && len(d.Associations) > 1 {
		master = d.Associations[1].Device
		affectStart = 2
	}
	next.SceneControllable = true
	if master != 0 {
		next.SceneControllable = m.classify(master).Scene
	}

	switch {
	case d.SceneControllable && !next.SceneControllable:
		for i := affectStart; i < len(d.Associations); i++ {
			a := d.Associations[i]
			if a.Device != 0 && (a.HasLevel() || a.HasDuration()) {
				plan.Decision.Affected = append(plan.Decision.Affected, i)
				plan.Decision.Devices = append(plan.Decision.Devices, a.Device)
			}
		}
		if len(plan.Decision.Affected) > 0 {
			plan.Decision.Kind = ConfirmKeep
		}
		// Scene ids stay on the descriptor; they are not written while the
		// list is in direct mode.
		for i := range next.Associations {
			next.Associations[i].Duration = mode.NoValue
			if !m.profile.HasCooperConfiguration {
				next.Associations[i].Level = mode.NoValue
			}
		}

	case !d.SceneControllable && next.SceneControllable:
		for i, a := range d.Associations {
			if a.Device == 0 || !m.classify(a.Device).BasicSetOnly {
				continue
			}
			if i >= affectStart {
				plan.Decision.Affected = append(plan.Decision.Affected, i)
				plan.Decision.Devices = append(plan.Decision.Devices, a.Device)
			}
			next.Associations[i].Device = 0
		}
		if len(plan.Decision.Affected) > 0 {
			plan.Decision.Kind = ConfirmPrune
		}
	}
}

// Result is the outcome of Apply.
type Result struct {
	Descriptor mode.Descriptor `json:"descriptor"`
	Decision   Decision        `json:"decision"`
	Messages   []string        `json:"messages,omitempty"`
}

// Apply plans e and commits it, asking c when the edit is destructive. On
// decline it returns d unchanged together with ErrDeclined.
func (m *Manager) Apply(d mode.Descriptor, e Edit, c Confirmer) (Result, error) {
	plan, err := m.Plan(d, e)
	if err != nil {
		return Result{Descriptor: d}, err
	}
	res := Result{Decision: plan.Decision, Messages: plan.Messages}
	if plan.Decision.Kind != NoOp && (c == nil || !c.Confirm(plan.Decision)) {
		res.Descriptor = d
		return res, ErrDeclined
	}
	res.Descriptor = plan.Commit()
	return res, nil
}

func (m *Manager) classify(device int) capability.Record {
	if device == 0 || m.caps == nil {
		return capability.Record{}
	}
	return m.caps.Classify(device)
}

func (m *Manager) levelEditable(d mode.Descriptor, props capability.Record) bool {
	return durationEditable(d, props) || m.profile.HasCooperConfiguration
}

func durationEditable(d mode.Descriptor, props capability.Record) bool {
	return d.SceneControllable && props.Scene && props.MultiLevel
}

// parseInput reads an integer in [0, max]. Blank input clears the value.
func parseInput(s string, max int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return mode.NoValue, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > float64(max) || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func compact(list []mode.Association) []mode.Association {
	out := list[:0]
	for _, a := range list {
		if a.Device != 0 {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
