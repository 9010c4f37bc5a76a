package profile

// Preset language indexes.
const (
	LanguageEnglish = 1
	LanguageSpanish = 2
	LanguageChinese = 3
	LanguageGerman  = 4
	LanguageFrench  = 5
	LanguageItalian = 6
	LanguagePunjabi = 7
)

// Language is one preset-screen language of the LCD firmware.
type Language struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	// MaxPresetScreens is the highest preset page translated into the language.
	MaxPresetScreens int `json:"max_preset_screens"`
}

var languages = []Language{
	{Index: LanguageEnglish, Name: "English", MaxPresetScreens: 26},
	{Index: LanguageSpanish, Name: "Spanish", MaxPresetScreens: 8},
	{Index: LanguageChinese, Name: "Chinese", MaxPresetScreens: 10},
	{Index: LanguageGerman, Name: "German", MaxPresetScreens: 8},
	{Index: LanguageFrench, Name: "French", MaxPresetScreens: 8},
	{Index: LanguageItalian, Name: "Italian", MaxPresetScreens: 8},
	{Index: LanguagePunjabi, Name: "Punjabi", MaxPresetScreens: 8},
}

// LookupLanguage returns the language with the given 1-based index.
func LookupLanguage(index int) (Language, bool) {
	if index < 1 || index > len(languages) {
		return Language{}, false
	}
	return languages[index-1], true
}

// Languages returns every known language.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Label fonts and alignments accepted by the LCD.
var (
	Fonts  = []string{"Normal", "Compressed", "Inverted"}
	Aligns = []string{"Left", "Center", "Right"}
)

const (
	DefaultFont  = "Normal"
	DefaultAlign = "Center"
)

// ValidFont reports whether f is a known font name.
func ValidFont(f string) bool { return contains(Fonts, f) }

// ValidAlign reports whether a is a known alignment name.
func ValidAlign(a string) bool { return contains(Aligns, a) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// temperatureScreens holds the fixed labels of temperature pages 1-3
// (preset pages 8, 16 and 40).
var temperatureScreens = [][]string{
	{"All On", "▲", "72°", "▼", "All Off"},
	{"Lights", "▲", "72°", "▼", "Privacy"},
	{"All On/Off", "▲", "72°", "▼", "Reading"},
}

// TemperatureLabel returns the fixed label of a temperature page button.
// Custom temperature pages only fix the up, setpoint and down buttons.
func TemperatureLabel(page, button int) (string, bool) {
	if button < 1 || button > 5 {
		return "", false
	}
	if page >= 1 && page <= len(temperatureScreens) {
		return temperatureScreens[page-1][button-1], true
	}
	if button >= 2 && button <= 4 {
		return temperatureScreens[0][button-1], true
	}
	return "", false
}
