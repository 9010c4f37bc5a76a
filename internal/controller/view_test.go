package controller

import (
	"context"
	"errors"
	"testing"

	"scenepanel/internal/capability"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
	"scenepanel/internal/store"
)

func optionIDs(opts []DeviceOption) []int {
	out := make([]int, len(opts))
	for i, o := range opts {
		out[i] = o.ID
	}
	return out
}

func findOption(opts []DeviceOption, id int) (DeviceOption, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return DeviceOption{}, false
}

func TestViewCustomScreen(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	tp.setVar(t, 10, "Mode_C1_1", "MS6,50")
	tp.setVar(t, 10, "Label_C1_1", "Lamp")

	v, err := tp.View(ctx, 10, profile.ScreenAddress{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Screen != addr("C1") || v.Current != addr("C1") {
		t.Errorf("screen = %s current = %s, want C1", v.Screen, v.Current)
	}
	if !v.NumLinesEditable || v.NumLines != 5 || !v.CustomLabels {
		t.Errorf("lines = %d editable = %v custom = %v", v.NumLines, v.NumLinesEditable, v.CustomLabels)
	}
	if len(v.Languages) != 0 {
		t.Errorf("languages = %v, want none on custom pages", v.Languages)
	}
	if len(v.Buttons) != 5 {
		t.Fatalf("buttons = %d, want 5", len(v.Buttons))
	}
	if v.Temperature != nil {
		t.Error("custom page has no temperature device")
	}
	if v.Timeout == nil || v.Timeout.Enabled || v.Timeout.Seconds != DefaultTimeout || v.Timeout.Target != addr("C2") {
		t.Errorf("timeout = %+v", v.Timeout)
	}

	b := v.Buttons[0]
	if b.Mode != "MS6,50" || b.Label != "Lamp" || !b.Custom || b.Font != profile.DefaultFont {
		t.Errorf("button 1 = %+v", b)
	}
	if !b.Configurable || b.SceneNumber != 1 || b.ScenesDisabled || len(b.ModeOptions) == 0 {
		t.Errorf("button 1 scene fields = %+v", b)
	}
	if len(b.Scenes) != 1 || b.Scenes[0].Activation != scene.Momentary || b.Scenes[0].SceneID != 0 {
		t.Errorf("scenes = %+v", b.Scenes)
	}
	if len(b.Associations) != 1 {
		t.Fatalf("associations = %+v", b.Associations)
	}
	a := b.Associations[0]
	if a.Name != "Dimmer" || !a.LevelEditable || !a.DurationEditable || a.Association.Level != 50 {
		t.Errorf("association = %+v", a)
	}
	if _, ok := findOption(a.Candidates, 6); !ok {
		t.Error("slot candidates should include its own device")
	}

	if !b.CanAdd || len(b.AddCandidates) == 0 {
		t.Fatalf("add candidates = %+v", b.AddCandidates)
	}
	// sorted by name: Attic Relay first
	if b.AddCandidates[0].ID != 12 || !b.AddCandidates[0].Basic {
		t.Errorf("first candidate = %+v", b.AddCandidates[0])
	}
	if o, ok := findOption(b.AddCandidates, 9); !ok || o.Basic {
		t.Errorf("scene dimmer candidate = %+v, %v", o, ok)
	}
	for _, id := range []int{1, 6, 20} {
		if _, ok := findOption(b.AddCandidates, id); ok {
			t.Errorf("device %d should not be offered: %v", id, optionIDs(b.AddCandidates))
		}
	}
}

func TestViewSceneIDs(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	tp.setVar(t, 10, "Mode_C2_3", "T")
	s, _, err := tp.SetScene(ctx, 10, SceneRequest{Screen: addr("C2"), Button: 3, Activation: scene.ToggleOff})
	if err != nil {
		t.Fatal(err)
	}

	v, err := tp.View(ctx, 10, addr("C2"))
	if err != nil {
		t.Fatal(err)
	}
	b := v.Buttons[2]
	if len(b.Scenes) != 2 {
		t.Fatalf("scenes = %+v, want on and off", b.Scenes)
	}
	if b.Scenes[0].SceneID != 0 || b.Scenes[1].SceneID != s.ID || b.Scenes[1].Caption != "Off" {
		t.Errorf("scenes = %+v", b.Scenes)
	}
}

func TestViewNStateAndLines(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	tp.setVar(t, 10, "Mode_C1_2", "3")
	tp.setVar(t, 10, "NumLines_C1", "7")

	v, err := tp.View(ctx, 10, addr("C1"))
	if err != nil {
		t.Fatal(err)
	}
	if v.NumLines != 7 {
		t.Errorf("lines = %d, want 7", v.NumLines)
	}
	if len(v.Buttons) != 9 {
		t.Fatalf("buttons = %d, want 7 lines plus 2 extra states", len(v.Buttons))
	}
	extra := v.Buttons[2]
	if extra.StateButton != 1002 || extra.Mode != "M" || len(extra.ModeOptions) != 0 || extra.SceneNumber != 1002 {
		t.Errorf("extra state = %+v", extra)
	}
}

func TestViewTemperatureScreen(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	tp.setVar(t, 10, "TemperatureDevice_T1", "7")

	v, err := tp.View(ctx, 10, addr("T1"))
	if err != nil {
		t.Fatal(err)
	}
	if v.NumLinesEditable || v.CustomLabels {
		t.Errorf("temperature page: editable = %v custom = %v", v.NumLinesEditable, v.CustomLabels)
	}
	if v.Temperature == nil || v.Temperature.Device != 7 {
		t.Fatalf("temperature = %+v", v.Temperature)
	}
	if got := optionIDs(v.Temperature.Candidates); len(got) != 2 || got[0] != 8 || got[1] != 7 {
		t.Errorf("candidates = %v, want [8 7]", got)
	}
	if b := v.Buttons[0]; b.Label != "All On" || b.Custom || !b.Configurable {
		t.Errorf("button 1 = %+v", b)
	}
	if b := v.Buttons[2]; b.Label != "72°" || b.Configurable || b.SceneNumber != 0 {
		t.Errorf("setpoint button = %+v", b)
	}
	if len(v.Languages) != 0 {
		t.Errorf("languages = %v on version 39", v.Languages)
	}
}

func TestViewLanguages(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	if err := tp.st.SetVariable(10, capability.ServiceZWaveDevice, VarVersionInfo, "3,67,1,3,37"); err != nil {
		t.Fatal(err)
	}
	v, err := tp.View(ctx, 10, addr("P2"))
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Languages) != 7 {
		t.Errorf("languages = %d, want 7", len(v.Languages))
	}
	if v.Buttons[1].Label != "Medium" {
		t.Errorf("preset label = %q", v.Buttons[1].Label)
	}
}

func TestViewErrors(t *testing.T) {
	tp := newTestPanel(t)
	if _, err := tp.View(context.Background(), 10, addr("P27")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("incompatible screen err = %v", err)
	}
	if _, err := tp.View(context.Background(), 6, profile.ScreenAddress{}); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("dimmer err = %v", err)
	}
}

func TestViewCooper(t *testing.T) {
	tp := newTestPanel(t)
	v, err := tp.View(context.Background(), 30, profile.ScreenAddress{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Screen != addr("P1") || v.Timeout != nil || len(v.Screens) != 0 {
		t.Errorf("view = %+v", v)
	}
	if len(v.Buttons) != 5 || v.Buttons[0].Label != "Button 1" || v.Buttons[0].Mode != "T" {
		t.Errorf("buttons = %+v", v.Buttons)
	}
}

func TestCopyLinesSwap(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	tp.setVar(t, 10, "Label_C1_1", "A")
	tp.setVar(t, 10, "Mode_C1_1", "TS6")
	tp.setVar(t, 10, "Label_C1_2", "B")

	err := tp.CopyLines(ctx, CopyRequest{
		Swap:         true,
		SourceDevice: 10, SourceScreen: addr("C1"), SourceButton: 1,
		DestDevice: 10, DestScreen: addr("C1"), DestButton: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if tp.getVar(10, "Label_C1_2") != "A" || tp.getVar(10, "Mode_C1_2") != "TS6" {
		t.Errorf("dest = %q %q", tp.getVar(10, "Label_C1_2"), tp.getVar(10, "Mode_C1_2"))
	}
	if tp.getVar(10, "Label_C1_1") != "B" || tp.getVar(10, "Mode_C1_1") != "M" {
		t.Errorf("source = %q %q", tp.getVar(10, "Label_C1_1"), tp.getVar(10, "Mode_C1_1"))
	}
	if n := len(tp.rec.names()); n != 2 {
		t.Errorf("actions = %d, want 2", n)
	}
}

func TestCopyLinesPage(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	evolve := profile.EvolveLCD1()
	if err := tp.st.SaveDevice(&store.Device{ID: 40, Name: "Den Keypad", ParentID: 1, DeviceType: evolve.DeviceType}); err != nil {
		t.Fatal(err)
	}
	tp.setVar(t, 10, "NumLines_C1", "7")
	tp.setVar(t, 10, "Label_C1_6", "Fan")
	tp.setVar(t, 10, "Mode_C1_6", "2")
	tp.setVar(t, 10, "Label_C1_1006", "Fan High")

	err := tp.CopyLines(ctx, CopyRequest{Page: true, SourceDevice: 10, SourceScreen: addr("C1"), DestDevice: 40, DestScreen: addr("C3")})
	if err != nil {
		t.Fatal(err)
	}
	checks := map[string]string{
		"NumLines_C3":   "7",
		"Label_C3_6":    "Fan",
		"Mode_C3_6":     "2",
		"Label_C3_1006": "Fan High",
		"Mode_C3_1006":  "M",
	}
	for name, want := range checks {
		if got := tp.getVar(40, name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	// the source is untouched
	if tp.getVar(10, "Label_C1_6") != "Fan" {
		t.Error("source changed on copy")
	}
}

func TestCopyLinesErrors(t *testing.T) {
	ctx := context.Background()
	tp := newTestPanel(t)
	tests := []struct {
		name string
		req  CopyRequest
	}{
		{"different profiles", CopyRequest{SourceDevice: 10, SourceScreen: addr("C1"), SourceButton: 1, DestDevice: 30, DestScreen: addr("P1"), DestButton: 1}},
		{"preset page", CopyRequest{SourceDevice: 10, SourceScreen: addr("P1"), SourceButton: 1, DestDevice: 10, DestScreen: addr("C1"), DestButton: 1}},
		{"button out of range", CopyRequest{SourceDevice: 10, SourceScreen: addr("C1"), SourceButton: 11, DestDevice: 10, DestScreen: addr("C2"), DestButton: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tp.CopyLines(ctx, tt.req); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}
