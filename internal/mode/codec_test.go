package mode

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"scenepanel/internal/profile"
)

func assoc(device, level, duration int) Association {
	return Association{Device: device, Level: level, Duration: duration}
}

func screen(s string) *profile.ScreenAddress {
	a, err := profile.ParseScreenAddress(s)
	if err != nil {
		panic(err)
	}
	return &a
}

func TestParse(t *testing.T) {
	p := profile.EvolveLCD1()
	tests := []struct {
		name string
		in   string
		want Descriptor
	}{
		{"momentary", "M", Descriptor{Kind: Momentary}},
		{"toggle direct list", "T5;6", Descriptor{Kind: Toggle, Associations: []Association{
			NewAssociation(5), NewAssociation(6),
		}}},
		{"scene list with levels", "MS5,99,3;6,20;7", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			assoc(5, 99, 3), assoc(6, 20, NoValue), NewAssociation(7),
		}}},
		{"scene ids", "TS12@13@5,0", Descriptor{Kind: Toggle, SceneControllable: true, SceneID: 12, OffSceneID: 13, Associations: []Association{
			assoc(5, 0, NoValue),
		}}},
		{"scene id only", "3S40@", Descriptor{Kind: '3', SceneControllable: true, SceneID: 40}},
		{"digits without at are associations", "MS40", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			NewAssociation(40),
		}}},
		{"cooper marker", "MC5,50", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			assoc(5, 50, NoValue),
		}}},
		{"switch screen", "NC2:", Descriptor{Kind: SwitchScreen, TargetScreen: screen("C2")}},
		{"switch screen written as momentary", "MP41:S;5", Descriptor{Kind: SwitchScreen, TargetScreen: screen("P41"), SceneControllable: true, Associations: []Association{
			NewAssociation(5),
		}}},
		{"double colon", "NC3::5", Descriptor{Kind: SwitchScreen, TargetScreen: screen("C3"), Associations: []Association{
			NewAssociation(5),
		}}},
		{"legacy switch screen", "NT4", Descriptor{Kind: SwitchScreen, TargetScreen: screen("T4")}},
		{"legacy switch screen ignores rest", "NC4S;5", Descriptor{Kind: SwitchScreen}},
		{"trailing semicolon", "MS5;", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			NewAssociation(5),
		}}},
		{"trailing comma", "MS5,40,;6", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			assoc(5, 40, NoValue), NewAssociation(6),
		}}},
		{"sentinel values", "MS5,255,255", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			NewAssociation(5),
		}}},
		{"out of range level", "MS5,150,10", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			assoc(5, NoValue, 10),
		}}},
		{"malformed entry skipped", "MS5,x;6", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			NewAssociation(6),
		}}},
		{"zero device skipped", "M0;6", Descriptor{Kind: Momentary, Associations: []Association{
			NewAssociation(6),
		}}},
		{"obsolete toggle direct", "S5", Descriptor{Kind: ToggleDirect, Associations: []Association{
			NewAssociation(5),
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(p, tt.in, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDefault(t *testing.T) {
	for _, p := range profile.DefaultRegistry().All() {
		want := Parse(p, p.DefaultModeCode, nil)
		if got := Parse(p, "", nil); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: Parse(\"\") = %+v, want %+v", p.ID, got, want)
		}
	}
	if got := Parse(profile.CooperRFWC5(), "", nil); got.Kind != Toggle {
		t.Errorf("cooper default kind = %v, want T", got.Kind)
	}
}

func TestParseMalformedFallsBack(t *testing.T) {
	p := profile.EvolveLCD1()
	got, err := ParseStrict(p, "Z5;6", nil)
	var syn *SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("err = %v, want SyntaxError", err)
	}
	if !reflect.DeepEqual(got, Parse(p, "M", nil)) {
		t.Errorf("fallback = %+v, want default", got)
	}
	if d := Parse(p, "Z5;6", nil); d.Kind != Momentary || len(d.Associations) != 0 {
		t.Errorf("Parse fallback = %+v", d)
	}
}

func TestParseStrictReportsBadEntry(t *testing.T) {
	d, err := ParseStrict(profile.EvolveLCD1(), "MS5;abc;6", nil)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if len(d.Associations) != 2 {
		t.Errorf("associations = %v, want 5 and 6", d.Associations)
	}
	if _, err := ParseStrict(profile.EvolveLCD1(), "MS5;6", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseDropsUnknownDevices(t *testing.T) {
	known := func(id int) bool { return id != 6 }
	got := Parse(profile.EvolveLCD1(), "MS5;6;7", known)
	if want := []int{5, 7}; !reflect.DeepEqual(got.Devices(), want) {
		t.Errorf("devices = %v, want %v", got.Devices(), want)
	}
}

func TestParseCapsAssociations(t *testing.T) {
	p := profile.NexiaOneTouch() // two direct associations
	got := Parse(p, "M5;6;7;8", nil)
	if len(got.Associations) != 2 {
		t.Errorf("associations = %d, want 2", len(got.Associations))
	}
}

func TestNormalizeCapsAssociations(t *testing.T) {
	tests := []struct {
		name string
		p    *profile.Profile
		in   []Association
		want string
	}{
		{"over the limit", profile.NexiaOneTouch(), []Association{
			NewAssociation(5), NewAssociation(6), NewAssociation(7), NewAssociation(8),
		}, "MS5;6"},
		{"empty slots do not count", profile.NexiaOneTouch(), []Association{
			NewAssociation(0), NewAssociation(5), NewAssociation(0), NewAssociation(6), NewAssociation(7),
		}, "MS5;6"},
		{"at the limit", profile.CooperRFWC5(), []Association{
			NewAssociation(5), NewAssociation(6), NewAssociation(7), NewAssociation(8),
		}, "MS5;6;7;8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Descriptor{Kind: Momentary, SceneControllable: true, Associations: tt.in}
			Normalize(tt.p, &d)
			if n := len(d.Devices()); n > tt.p.MaxDirectAssociations {
				t.Errorf("%d devices kept, limit %d", n, tt.p.MaxDirectAssociations)
			}
			if got := Generate(tt.p, d); got != tt.want {
				t.Errorf("Generate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Descriptor{Kind: SwitchScreen, SceneControllable: true, Associations: []Association{NewAssociation(5)}}); !errors.Is(err, ErrMissingTarget) {
		t.Errorf("switch screen without target: err = %v, want ErrMissingTarget", err)
	}
	if err := Validate(Descriptor{Kind: SwitchScreen, TargetScreen: screen("C2")}); err != nil {
		t.Errorf("switch screen with target: %v", err)
	}
	if err := Validate(Descriptor{Kind: Momentary}); err != nil {
		t.Errorf("momentary: %v", err)
	}
}

func TestNonSceneListsHaveNoLevels(t *testing.T) {
	got := Parse(profile.EvolveLCD1(), "M5,50,3;6,20", nil)
	for _, a := range got.Associations {
		if a.HasLevel() || a.HasDuration() {
			t.Errorf("association %+v keeps level or duration", a)
		}
	}

	cooper := Parse(profile.CooperRFWC5(), "T5,50,3", nil)
	if a := cooper.Associations[0]; a.Level != 50 || a.HasDuration() {
		t.Errorf("cooper association = %+v, want level 50 and no duration", a)
	}
}

func TestGenerate(t *testing.T) {
	p := profile.EvolveLCD1()
	tests := []struct {
		name string
		in   Descriptor
		want string
	}{
		{"zero kind uses default", Descriptor{}, "M"},
		{"plain list", Descriptor{Kind: Toggle, Associations: []Association{NewAssociation(5), NewAssociation(6)}}, "T5;6"},
		{"fields", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			assoc(5, 99, 3), assoc(6, 0, NoValue), NewAssociation(7), assoc(8, NoValue, 4),
		}}, "MS5,99,3;6,0;7;8,255,4"},
		{"empty slots skipped", Descriptor{Kind: Momentary, SceneControllable: true, Associations: []Association{
			NewAssociation(0), NewAssociation(5), NewAssociation(0),
		}}, "MS5"},
		{"scene ids", Descriptor{Kind: Toggle, SceneControllable: true, SceneID: 12, OffSceneID: 13}, "TS12@13@"},
		{"off scene needs scene", Descriptor{Kind: Toggle, SceneControllable: true, OffSceneID: 13}, "TS"},
		{"dormant scene ids", Descriptor{Kind: Toggle, SceneID: 12}, "T"},
		{"switch screen", Descriptor{Kind: SwitchScreen, TargetScreen: screen("P41"), SceneControllable: true, Associations: []Association{
			NewAssociation(5),
		}}, "NP41:S5"},
		{"switch screen without target", Descriptor{Kind: SwitchScreen, SceneControllable: true}, "N"},
		{"target ignored for other kinds", Descriptor{Kind: Momentary, TargetScreen: screen("C2")}, "M"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(p, tt.in); got != tt.want {
				t.Errorf("Generate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"", "M", "T", "D5", "9S", "NC2:", "NC2::", "MC3:S5,20", "NT4", "N", "NX9",
		"MS5,99,3;6,20;7", "TS12@13@5,0;6,99,254", "3S40@", "MC5,50;6",
		"M5,50,3;6,20", "XS5;;6,;7,1,2,", "E0;0;5", "HS", "W",
	}
	for _, p := range profile.DefaultRegistry().All() {
		for _, in := range inputs {
			d := Parse(p, in, nil)
			enc := Generate(p, d)
			again := Parse(p, enc, nil)
			if !reflect.DeepEqual(d, again) {
				t.Errorf("%s: %q -> %q: decode = %+v, re-decode = %+v", p.ID, in, enc, d, again)
			}
			if enc2 := Generate(p, again); enc2 != enc {
				t.Errorf("%s: canonical form unstable: %q then %q", p.ID, enc, enc2)
			}
		}
	}
}

func TestAssociationJSON(t *testing.T) {
	data, err := json.Marshal(assoc(5, 0, NoValue))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"device":5,"level":0,"duration":null}` {
		t.Errorf("marshal = %s", data)
	}
	var a Association
	if err := json.Unmarshal([]byte(`{"device":7,"duration":300}`), &a); err != nil {
		t.Fatal(err)
	}
	if a != NewAssociation(7) {
		t.Errorf("unmarshal = %+v, want no level and no duration", a)
	}
}

func TestKind(t *testing.T) {
	k, err := NState(4)
	if err != nil || k.States() != 4 || k.Name() != "Four-state" {
		t.Errorf("NState(4) = %v %v", k, err)
	}
	if _, err := NState(1); err == nil {
		t.Error("NState(1) should fail")
	}
	if Toggle.States() != 1 {
		t.Error("toggle should have one state")
	}
	if _, ok := ParseKind("Q"); ok {
		t.Error("Q is not a kind")
	}
}
