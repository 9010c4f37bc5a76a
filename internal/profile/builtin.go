package profile

// ServiceID is the state-variable and action service of every scene
// controller device.
const ServiceID = "urn:gengen_mcv-org:serviceId:SceneController1"

// EvolveLCD1 returns the Evolve LCD1 profile.
func EvolveLCD1() *Profile {
	return &Profile{
		ID:                    "EVOLVELCD1",
		Name:                  "Evolve LCD1",
		DeviceType:            "urn:schemas-gengen_mcv-org:device:SceneControllerEvolveLCD:1",
		DefaultLcdVersion:     39,
		HasScreen:             true,
		HasPresetLanguages:    true,
		HasThermostatControl:  true,
		NumButtons:            5,
		MaxScroll:             10,
		LastFixedSceneID:      10,
		HasOffScenes:          true,
		MaxDirectAssociations: 29, // one of the 30 association slots belongs to the hub
		DefaultScreen:         ScreenAddress{Type: ScreenCustom, Number: 1},
		DefaultModeCode:       "M",
		NumTemperatureScreens: 3, // preset pages 8, 16 and 40
		Screens: []ScreenGroup{
			{Type: ScreenCustom, Name: "Custom", Count: 9},
			{Type: ScreenTemperature, Name: "Temperature", Count: 9},
			{Type: ScreenPreset, Name: "Preset", Count: 41},
		},
		SceneBases: map[ScreenType]int{
			ScreenCustom:      1,
			ScreenTemperature: 31, // after 6 custom screens of 5 buttons
			ScreenWelcome:     61, // after 2+4 temperature screens
			ScreenPreset:      66, // after 1 welcome screen
		},
		CustomModes:   "MT3456789XNPE",
		PresetScreens: evolvePresets,
		compatible:    evolveCompatible,
		languages:     evolveLanguages,
	}
}

func evolveCompatible(p *Profile, addr ScreenAddress, version int) bool {
	n := addr.Number
	switch addr.Type {
	case ScreenCustom:
		return true
	case ScreenTemperature:
		if version >= 55 {
			return n != 2 // no temperature page 16
		}
		return n != 3 // no temperature page 40
	case ScreenPreset:
	default:
		return false
	}
	if p.Preset(n) == nil {
		return false
	}
	if version <= 37 {
		return n <= 18
	}
	if version <= 39 {
		return n <= 26
	}
	return n == 1 || n == 8 || n == 10 || n == 13 || n == 17 || (n >= 19 && n <= 26) || n >= 31
}

func evolveLanguages(addr ScreenAddress, version int) []int {
	if addr.Type == ScreenTemperature && addr.Number > 3 {
		// custom temperature pages carry no preset text
		return []int{LanguageEnglish}
	}
	if addr.Type != ScreenPreset && addr.Type != ScreenTemperature {
		return []int{LanguageEnglish}
	}
	if version <= 37 {
		return []int{1, 2, 3, 4, 5, 6, 7}
	}
	if version <= 39 {
		return []int{LanguageEnglish}
	}
	if addr.Type == ScreenPreset && addr.Number >= 37 && addr.Number <= 40 {
		return []int{LanguageEnglish, LanguageChinese}
	}
	if addr.Type == ScreenTemperature && addr.Number == 3 {
		return []int{LanguageEnglish, LanguageChinese}
	}
	return []int{LanguageEnglish}
}

var evolvePresets = [][]string{
	0:  nil,
	1:  {"All On", "Low", "All Off", "Privacy Please", "Service Room"},
	2:  {"All On", "Medium", "Low", "Night Light", "All Off"},
	3:  nil,
	4:  {"All On", "Medium", "Low", "Mood", "All Off"},
	5:  {"All On", "Medium", "Low", "Mood", "All Off"},
	6:  nil,
	7:  {"All On", "Medium", "Low", "Night Light", "All Off"},
	8:  nil, // temperature
	9:  nil,
	10: {"Drapery Open", "Drapery Closed", "Stop", "Sheers Open", "Sheers Closed"},
	11: {"Vanity", "Shower", "Night Light", "All On", "All Off"},
	12: {"Entry", "Sconce", "Bed Left", "Bed Right", "Good Night"},
	13: {"Vanity", "Shower", "Night Light", "All On", "All Off"},
	14: {"Entry", "Kitchen", "LivingRoom", "BedRoom", "MasterOff"},
	15: {"Welcome", "Overhead", "Bedroom", "Privacy", "All Off"},
	16: nil, // temperature
	17: nil, // custom
	18: {"Morning", "Day", "Evening", "Night", "Sleep"},
	19: {"All On", "Living Room", "Bed Room", "Bath Room", "All Off"},
	20: {"All On", "Living Room", "Bed Room", "Low", "All Off"},
	21: {"All On", "Mood", "All Off", "Privacy Please", "Service Room"},
	22: {"On/Off", "Mood", "Drapery", "Reading", "Night Light"},
	23: {"LR On/Off", "LR Mood", "BR On/Off", "BR Mood", "Drapery"},
	24: {"BO On/Off", "BR Mood", "LR On/Off", "LR Mood", "Drapery"},
	25: {"All On", "All Off", "Entry", "Low", "Mood"},
	26: {"All On", "TurnDown", "All Off", "Service Please", "Privacy Please"},
	27: nil,
	28: nil,
	29: nil,
	30: nil,
	31: {"All On", "Entry", "Bedside", "Low", "All Off"},
	32: {"Lighting", "Drapery", "Climate", "Privacy Please", "Service Room"},
	33: {"Lighting", "Climate", "Shades", "Service Room", "Privacy Please"},
	34: {"Lighting", "Climate", "Drapery", "Master On", "Master Off"},
	35: {"Lighting", "Climate", "Drapery", "Bath On", "Bath Off"},
	36: {"Lighting", "Climate", "Shading", "Master On", "Master Off"},
	37: {"All On", "All Off", "Privacy Please", "Service Room", "Language"},
	38: {"All On", "Vanity", "Toilet", "Shower", "All Off"},
	39: {"Sheers Open", "Sheers Closed", "Stop", "Shade Open", "Shade Closed"},
	40: nil, // temperature
	41: {"Lighting", "Climate", "", "All On", "All Off"},
}

// CooperRFWC5 returns the Cooper RFWC5 profile. It has no display and keeps
// levels on non-scene associations.
func CooperRFWC5() *Profile {
	return &Profile{
		ID:                     "COOPERRFWC5",
		Name:                   "Cooper RFWC5",
		DeviceType:             "urn:schemas-gengen_mcv-org:device:SceneControllerCooperRFWC5:1",
		DefaultLcdVersion:      1,
		NumButtons:             5,
		MaxScroll:              5,
		LastFixedSceneID:       5,
		HasCooperConfiguration: true,
		MaxDirectAssociations:  4,
		DefaultScreen:          ScreenAddress{Type: ScreenPreset, Number: 1},
		DefaultModeCode:        "T",
		Screens: []ScreenGroup{
			{Type: ScreenPreset, Name: "Preset", Count: 1},
		},
		SceneBases:  map[ScreenType]int{ScreenPreset: 1},
		CustomModes: "TM3456789",
		PresetScreens: [][]string{
			nil,
			{"Button 1", "Button 2", "Button 3", "Button 4", "Button 5"},
		},
		compatible: onlyScreenType(ScreenPreset),
		languages:  englishOnly,
	}
}

// NexiaOneTouch returns the Nexia One Touch profile.
func NexiaOneTouch() *Profile {
	return &Profile{
		ID:                    "NEXIAONETOUCH",
		Name:                  "Nexia One Touch",
		DeviceType:            "urn:schemas-gengen_mcv-org:device:SceneControllerNexiaOneTouch:1",
		DefaultLcdVersion:     1,
		HasScreen:             true,
		HasThermostatControl:  true,
		NumButtons:            15,
		MaxScroll:             15,
		LastFixedSceneID:      46,
		MaxDirectAssociations: 2, // the hub uses lifeline / central scene
		DefaultScreen:         ScreenAddress{Type: ScreenCustom, Number: 1},
		DefaultModeCode:       "M",
		Screens: []ScreenGroup{
			{Type: ScreenCustom, Name: "Custom", Count: 3},
		},
		SceneBases:  map[ScreenType]int{ScreenCustom: 1},
		CustomModes: "M23456789",
		compatible:  onlyScreenType(ScreenCustom),
		languages:   englishOnly,
	}
}

func onlyScreenType(t ScreenType) CompatibilityRule {
	return func(_ *Profile, addr ScreenAddress, _ int) bool {
		return addr.Type == t
	}
}

func englishOnly(ScreenAddress, int) []int {
	return []int{LanguageEnglish}
}
