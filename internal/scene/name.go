package scene

import (
	"regexp"
	"strings"
)

var (
	controllerSuffix = regexp.MustCompile(`.+\sController`)
	evolvePrefix     = regexp.MustCompile(`Evolve\s.+`)
)

// Name builds a scene name from the controller's device name and the button
// label, shortened to maxLength characters (0 for no limit). The device name
// is shortened first, word by word, then the label.
func Name(deviceName, label, suffix string, maxLength int) string {
	label = strings.ReplaceAll(label, `\r`, " ")
	label = strings.ReplaceAll(label, "-", "")
	dev := []rune(strings.TrimSpace(deviceName))
	lbl := []rune(strings.TrimSpace(label))
	sfx := []rune(suffix)

	for {
		name := string(dev) + " " + string(lbl) + suffix
		if maxLength == 0 || maxLength >= len([]rune(name)) {
			return name
		}
		if controllerSuffix.MatchString(string(dev)) {
			dev = dev[:len(dev)-len(" Controller")]
			continue
		}
		if evolvePrefix.MatchString(string(dev)) {
			dev = dev[len("Evolve "):]
			continue
		}
		if i := lastSpace(dev); i > 0 {
			dev = dev[:i]
			continue
		}
		if i := lastSpace(lbl); i > 0 {
			lbl = lbl[:i]
			continue
		}
		if keep := maxLength - (1 + len(lbl) + len(sfx)); keep > 0 && keep < len(dev) {
			dev = dev[:keep]
			continue
		}
		head := []rune(string(dev) + " " + string(lbl))
		keep := maxLength - len(sfx)
		if keep < 0 {
			keep = 0
		}
		if keep < len(head) {
			head = head[:keep]
		}
		return string(head) + suffix
	}
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' {
			return i
		}
	}
	return -1
}
