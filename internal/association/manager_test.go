package association

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"scenepanel/internal/capability"
	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
)

var (
	dimmer     = capability.Record{ZWave: true, Scene: true, MultiLevel: true}
	sceneRelay = capability.Record{ZWave: true, Scene: true, Binary: true}
	basicRelay = capability.Record{ZWave: true, BasicSetOnly: true, Binary: true}
	basicDim   = capability.Record{ZWave: true, BasicSetOnly: true, MultiLevel: true}
)

type fakeCaps map[int]capability.Record

func (f fakeCaps) Classify(device int) capability.Record { return f[device] }

func str(s string) *string { return &s }

func newManager(p *profile.Profile) *Manager {
	return NewManager(p, fakeCaps{
		5: basicRelay,
		6: dimmer,
		7: basicDim,
		8: dimmer,
		9: sceneRelay,
		// 20 is not a Z-Wave device
		20: {},
	})
}

func parse(p *profile.Profile, s string) mode.Descriptor {
	return mode.Parse(p, s, nil)
}

func TestPruneOnEnteringSceneMode(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	d := parse(p, "M5;6;7")

	plan, err := m.Plan(d, Edit{Slot: 0, Field: FieldDevice, Device: 8})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Decision.Kind != ConfirmPrune {
		t.Fatalf("decision = %v, want confirm_prune", plan.Decision.Kind)
	}
	if !reflect.DeepEqual(plan.Decision.Affected, []int{2}) || !reflect.DeepEqual(plan.Decision.Devices, []int{7}) {
		t.Errorf("affected = %v devices = %v, want slot 2 device 7", plan.Decision.Affected, plan.Decision.Devices)
	}

	got := plan.Commit()
	if !got.SceneControllable {
		t.Error("list should be scene controllable")
	}
	if want := []int{8, 6}; !reflect.DeepEqual(got.Devices(), want) {
		t.Errorf("devices = %v, want %v", got.Devices(), want)
	}
	if s := mode.Generate(p, got); s != "MS8;6" {
		t.Errorf("mode = %q", s)
	}
	// planning leaves the input untouched
	if want := []int{5, 6, 7}; !reflect.DeepEqual(d.Devices(), want) {
		t.Errorf("input modified: %v", d.Devices())
	}
}

func TestApplyDeclined(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	d := parse(p, "M5;6;7")

	var asked Decision
	res, err := m.Apply(d, Edit{Slot: 0, Device: 8}, ConfirmFunc(func(dec Decision) bool {
		asked = dec
		return false
	}))
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v, want ErrDeclined", err)
	}
	if asked.Kind != ConfirmPrune {
		t.Errorf("asked %v", asked.Kind)
	}
	if !reflect.DeepEqual(res.Descriptor, d) {
		t.Errorf("descriptor = %+v, want unchanged %+v", res.Descriptor, d)
	}

	res, err = m.Apply(d, Edit{Slot: 0, Device: 8}, Always)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{8, 6}; !reflect.DeepEqual(res.Descriptor.Devices(), want) {
		t.Errorf("devices = %v, want %v", res.Descriptor.Devices(), want)
	}
}

func TestKeepOnLeavingSceneMode(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	d := parse(p, "MS12@6,50,3;8,20;9")

	res, err := m.Apply(d, Edit{Slot: 0, Device: 5}, Always)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision.Kind != ConfirmKeep || !reflect.DeepEqual(res.Decision.Affected, []int{1}) {
		t.Fatalf("decision = %+v, want confirm_keep on slot 1", res.Decision)
	}
	got := res.Descriptor
	if got.SceneControllable {
		t.Error("list should be in direct mode")
	}
	for _, a := range got.Associations {
		if a.HasLevel() || a.HasDuration() {
			t.Errorf("association %+v keeps level or duration", a)
		}
	}
	if got.SceneID != 12 {
		t.Errorf("scene id = %d, want 12 kept", got.SceneID)
	}
	if s := mode.Generate(p, got); s != "M5;8;9" {
		t.Errorf("mode = %q, want M5;8;9", s)
	}
	msg := res.Decision.Message(p, func(id int) string { return "Lamp" })
	if !strings.Contains(msg, "level and dimming duration") || !strings.HasSuffix(msg, "the Lamp?") {
		t.Errorf("message = %q", msg)
	}
}

func TestUnsetFirstSlotUsesNextDevice(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	d := parse(p, "MS6,50;5;8,30")

	res, err := m.Apply(d, Edit{Slot: 0, Device: 0}, Always)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision.Kind != ConfirmKeep || !reflect.DeepEqual(res.Decision.Affected, []int{2}) {
		t.Fatalf("decision = %+v, want confirm_keep on slot 2", res.Decision)
	}
	if s := mode.Generate(p, res.Descriptor); s != "M5;8" {
		t.Errorf("mode = %q, want M5;8", s)
	}
}

func TestNoTransition(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	d := parse(p, "MS6,50;8,20")

	plan, err := m.Plan(d, Edit{Slot: 1, Device: 9, Level: str("20")})
	if err != nil {
		t.Fatal(err)
	}
	if plan.Decision.Kind != NoOp {
		t.Errorf("decision = %v, want noop", plan.Decision.Kind)
	}
	got := plan.Commit()
	// scene relays are not dimmable
	if a := got.Associations[1]; a.Device != 9 || a.HasLevel() || a.HasDuration() {
		t.Errorf("slot 1 = %+v", a)
	}
	if a := got.Associations[0]; a.Level != 50 {
		t.Errorf("slot 0 = %+v, want untouched", a)
	}
}

func TestNumericInput(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	d := parse(p, "MS6,50,3")

	tests := []struct {
		name         string
		edit         Edit
		wantLevel    int
		wantDuration int
		wantMsg      string
	}{
		{"level", Edit{Field: FieldLevel, Device: 6, Level: str("0")}, 0, 3, ""},
		{"clear level", Edit{Field: FieldLevel, Device: 6, Level: str("")}, mode.NoValue, 3, ""},
		{"level too high", Edit{Field: FieldLevel, Device: 6, Level: str("150")}, 50, 3, MsgInvalidLevel},
		{"level not a number", Edit{Field: FieldLevel, Device: 6, Level: str("abc")}, 50, 3, MsgInvalidLevel},
		{"fractional level", Edit{Field: FieldLevel, Device: 6, Level: str("2.5")}, 50, 3, MsgInvalidLevel},
		{"negative duration", Edit{Field: FieldDuration, Device: 6, Duration: str("-1")}, 50, 3, MsgInvalidDuration},
		{"duration", Edit{Field: FieldDuration, Device: 6, Duration: str(" 254 ")}, 50, 254, ""},
		{"level toggle on", Edit{Field: FieldLevelToggle, Device: 6, LevelEnabled: true}, mode.MaxLevel, 3, ""},
		{"level toggle off", Edit{Field: FieldLevelToggle, Device: 6}, mode.NoValue, 3, ""},
		{"duration toggle on", Edit{Field: FieldDurationToggle, Device: 6, DurationEnabled: true}, 50, 0, ""},
		{"duration toggle off", Edit{Field: FieldDurationToggle, Device: 6}, 50, mode.NoValue, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Apply(d, tt.edit, nil)
			if err != nil {
				t.Fatal(err)
			}
			a := res.Descriptor.Associations[0]
			if a.Level != tt.wantLevel || a.Duration != tt.wantDuration {
				t.Errorf("association = %+v, want level %d duration %d", a, tt.wantLevel, tt.wantDuration)
			}
			var msg string
			if len(res.Messages) > 0 {
				msg = res.Messages[0]
			}
			if msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestSlotLimits(t *testing.T) {
	nexia := profile.NexiaOneTouch()
	m := newManager(nexia)
	d := parse(nexia, "M5;7")

	if _, err := m.Plan(d, Edit{Slot: 2, Device: 8}); !errors.Is(err, ErrSlotLimit) {
		t.Errorf("err = %v, want ErrSlotLimit", err)
	}
	if _, err := m.Plan(d, Edit{Slot: 3, Device: 8}); !errors.Is(err, ErrSlotRange) {
		t.Errorf("err = %v, want ErrSlotRange", err)
	}
	if _, err := m.Plan(d, Edit{Slot: -1, Device: 8}); !errors.Is(err, ErrSlotRange) {
		t.Errorf("err = %v, want ErrSlotRange", err)
	}
	if m.CanAdd(d) {
		t.Error("CanAdd on a full list")
	}

	evolve := profile.EvolveLCD1()
	m = newManager(evolve)
	res, err := m.Apply(parse(evolve, "MS6"), Edit{Slot: 1, Device: 8, Level: str("40")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s := mode.Generate(evolve, res.Descriptor); s != "MS6;8,40" {
		t.Errorf("mode = %q, want MS6;8,40", s)
	}
}

func TestCooperStaysInSceneMode(t *testing.T) {
	p := profile.CooperRFWC5()
	m := newManager(p)
	d := parse(p, "T6,50")

	res, err := m.Apply(d, Edit{Slot: 0, Device: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision.Kind != NoOp {
		t.Errorf("decision = %v, want noop", res.Decision.Kind)
	}
	if s := mode.Generate(p, res.Descriptor); s != "TS5,50" {
		t.Errorf("mode = %q, want TS5,50", s)
	}
}

func TestEligibility(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	momentary := parse(p, "MS6;8")
	toggle := parse(p, "TS6;8")

	tests := []struct {
		name   string
		d      mode.Descriptor
		slot   int
		device int
		enable bool
		want   Eligibility
	}{
		{"already listed", momentary, 1, 6, false, Ineligible},
		{"own slot", momentary, 1, 8, false, EligibleScene},
		{"not z-wave", momentary, 2, 20, true, Ineligible},
		{"basic behind scene button", momentary, 2, 5, false, Ineligible},
		{"basic allowed without scene", momentary, 2, 5, true, EligibleBasic},
		{"basic on toggle", toggle, 2, 5, false, EligibleBasic},
		{"basic in first slot", momentary, 0, 5, false, EligibleBasic},
		{"scene device", momentary, 2, 9, false, EligibleScene},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Eligibility(tt.d, tt.slot, tt.device, tt.enable); got != tt.want {
				t.Errorf("Eligibility = %d, want %d", got, tt.want)
			}
		})
	}

	got := m.Candidates(momentary, 2, []int{5, 6, 9, 20}, false)
	if want := []Candidate{{Device: 9, Eligibility: EligibleScene}}; !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates = %+v, want %+v", got, want)
	}

	cooper := newManager(profile.CooperRFWC5())
	if got := cooper.Eligibility(momentary, 2, 5, false); got != EligibleBasic {
		t.Errorf("cooper basic = %d, want basic", got)
	}
	if !cooper.EnableNonSceneDirect(true, 3) || m.EnableNonSceneDirect(true, 1) || !m.EnableNonSceneDirect(false, 1) {
		t.Error("EnableNonSceneDirect")
	}
}

func TestEditableFields(t *testing.T) {
	p := profile.EvolveLCD1()
	m := newManager(p)
	scene := parse(p, "MS6")
	direct := parse(p, "M5")

	if !m.LevelEditable(scene, 6) || !m.DurationEditable(scene, 6) {
		t.Error("dimmer in scene list should take level and duration")
	}
	if m.LevelEditable(scene, 9) || m.DurationEditable(direct, 6) {
		t.Error("relay or direct list should not take level or duration")
	}
	if !m.ScenesDisabled(direct) || m.ScenesDisabled(scene) {
		t.Error("ScenesDisabled")
	}
	if newManager(profile.CooperRFWC5()).ScenesDisabled(direct) {
		t.Error("cooper never disables scenes")
	}
}
