package profile

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseScreenAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    ScreenAddress
		wantErr bool
	}{
		{"C3", ScreenAddress{ScreenCustom, 3}, false},
		{"P41", ScreenAddress{ScreenPreset, 41}, false},
		{"T1", ScreenAddress{ScreenTemperature, 1}, false},
		{"C", ScreenAddress{}, true},
		{"c3", ScreenAddress{}, true},
		{"C0", ScreenAddress{}, true},
		{"Cx", ScreenAddress{}, true},
		{"", ScreenAddress{}, true},
	}
	for _, tt := range tests {
		got, err := ParseScreenAddress(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScreenAddress(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScreenAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScreenAddressJSON(t *testing.T) {
	data, err := json.Marshal(ScreenAddress{ScreenPreset, 12})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"P12"` {
		t.Errorf("marshal = %s, want \"P12\"", data)
	}
	var a ScreenAddress
	if err := json.Unmarshal([]byte(`"T4"`), &a); err != nil {
		t.Fatal(err)
	}
	if a != (ScreenAddress{ScreenTemperature, 4}) {
		t.Errorf("unmarshal = %v, want T4", a)
	}
}

func TestEvolveScreenCompatibility(t *testing.T) {
	p := EvolveLCD1()
	tests := []struct {
		addr    string
		version int
		want    bool
	}{
		{"C9", 39, true},
		{"C1", 55, true},
		{"T2", 55, false},
		{"T3", 55, true},
		{"T3", 39, false},
		{"T2", 39, true},
		{"P3", 37, false}, // no preset text
		{"P18", 37, true},
		{"P19", 37, false},
		{"P26", 39, true},
		{"P31", 39, false},
		{"P1", 55, true},
		{"P2", 55, false},
		{"P13", 55, true},
		{"P14", 55, false},
		{"P22", 55, true},
		{"P40", 55, false}, // temperature page has no preset row
		{"P41", 55, true},
		{"W1", 55, false},
	}
	for _, tt := range tests {
		addr, err := ParseScreenAddress(tt.addr)
		if err != nil {
			t.Fatal(err)
		}
		if got := p.ScreenIsCompatible(addr, tt.version); got != tt.want {
			t.Errorf("ScreenIsCompatible(%s, %d) = %v, want %v", tt.addr, tt.version, got, tt.want)
		}
	}
}

func TestEvolveLanguages(t *testing.T) {
	p := EvolveLCD1()
	tests := []struct {
		addr    ScreenAddress
		version int
		want    []int
	}{
		{ScreenAddress{ScreenCustom, 1}, 37, []int{1}},
		{ScreenAddress{ScreenPreset, 4}, 37, []int{1, 2, 3, 4, 5, 6, 7}},
		{ScreenAddress{ScreenTemperature, 5}, 37, []int{1}},
		{ScreenAddress{ScreenPreset, 4}, 39, []int{1}},
		{ScreenAddress{ScreenPreset, 38}, 55, []int{1, 3}},
		{ScreenAddress{ScreenPreset, 41}, 55, []int{1}},
		{ScreenAddress{ScreenTemperature, 3}, 55, []int{1, 3}},
		{ScreenAddress{ScreenTemperature, 1}, 55, []int{1}},
	}
	for _, tt := range tests {
		if got := p.LanguagesSupported(tt.addr, tt.version); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("LanguagesSupported(%s, %d) = %v, want %v", tt.addr, tt.version, got, tt.want)
		}
	}
}

func TestSingleTypeProfiles(t *testing.T) {
	cooper := CooperRFWC5()
	if !cooper.ScreenIsCompatible(ScreenAddress{ScreenPreset, 1}, 1) {
		t.Error("cooper should accept P1")
	}
	if cooper.ScreenIsCompatible(ScreenAddress{ScreenCustom, 1}, 1) {
		t.Error("cooper should reject C1")
	}
	nexia := NexiaOneTouch()
	if got := nexia.CompatibleScreens(1); len(got) != 3 {
		t.Errorf("nexia screens = %v, want C1..C3", got)
	}
}

func TestCompatibleScreensOrder(t *testing.T) {
	got := EvolveLCD1().CompatibleScreens(39)
	if got[0] != (ScreenAddress{ScreenCustom, 1}) {
		t.Errorf("first screen = %v, want C1", got[0])
	}
	for _, a := range got {
		if a == (ScreenAddress{ScreenTemperature, 3}) {
			t.Error("T3 listed for version 39")
		}
	}
}

func TestClampLines(t *testing.T) {
	p := EvolveLCD1()
	for in, want := range map[int]int{0: 5, 5: 5, 7: 7, 10: 10, 11: 10} {
		if got := p.ClampLines(in); got != want {
			t.Errorf("ClampLines(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestAlternateScreen(t *testing.T) {
	p := EvolveLCD1()
	if got := p.AlternateScreen(p.DefaultScreen); got.String() != "C2" {
		t.Errorf("alternate of default = %v, want C2", got)
	}
	if got := p.AlternateScreen(ScreenAddress{ScreenPreset, 4}); got != p.DefaultScreen {
		t.Errorf("alternate of P4 = %v, want %v", got, p.DefaultScreen)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	if len(r.All()) != 3 {
		t.Fatalf("profiles = %d, want 3", len(r.All()))
	}
	p, ok := r.Get("COOPERRFWC5")
	if !ok || !p.HasCooperConfiguration {
		t.Error("cooper profile missing or not cooper")
	}
	if _, ok := r.Get("NOPE"); ok {
		t.Error("unknown profile found")
	}
}

func TestTemperatureLabel(t *testing.T) {
	if l, ok := TemperatureLabel(2, 5); !ok || l != "Privacy" {
		t.Errorf("TemperatureLabel(2,5) = %q, %v", l, ok)
	}
	if l, ok := TemperatureLabel(6, 3); !ok || l != "72°" {
		t.Errorf("TemperatureLabel(6,3) = %q, %v", l, ok)
	}
	if _, ok := TemperatureLabel(6, 1); ok {
		t.Error("custom temperature button 1 should not be fixed")
	}
}

func TestLookupLanguage(t *testing.T) {
	l, ok := LookupLanguage(LanguageChinese)
	if !ok || l.Name != "Chinese" || l.MaxPresetScreens != 10 {
		t.Errorf("LookupLanguage(3) = %+v, %v", l, ok)
	}
	if _, ok := LookupLanguage(8); ok {
		t.Error("language 8 should not exist")
	}
}
