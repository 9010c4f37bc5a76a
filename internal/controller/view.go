package controller

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"scenepanel/internal/association"
	"scenepanel/internal/capability"
	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
	"scenepanel/internal/store"
)

// View is everything a configuration UI shows for one screen of a
// controller.
type View struct {
	Controller *Controller             `json:"controller"`
	Screen     profile.ScreenAddress   `json:"screen"`
	Current    profile.ScreenAddress   `json:"current_screen"`
	Screens    []profile.ScreenAddress `json:"screens,omitempty"`

	// Languages is only set when the page offers a choice.
	Language  int                `json:"language"`
	Languages []profile.Language `json:"languages,omitempty"`

	// NumLines is editable on scrolling custom pages.
	NumLines         int              `json:"num_lines"`
	NumLinesEditable bool             `json:"num_lines_editable"`
	CustomLabels     bool             `json:"custom_labels"`
	Buttons          []ButtonView     `json:"buttons"`
	Temperature      *TemperatureView `json:"temperature,omitempty"`
	Timeout          *TimeoutChange   `json:"timeout,omitempty"`
}

// ButtonView is one state of one button.
type ButtonView struct {
	Button      int    `json:"button"`
	State       int    `json:"state"`
	StateButton int    `json:"state_button"`
	Label       string `json:"label"`
	Font        string `json:"font,omitempty"`
	Align       string `json:"align,omitempty"`
	Custom      bool   `json:"custom"`

	Mode        string          `json:"mode"`
	Descriptor  mode.Descriptor `json:"descriptor"`
	KindName    string          `json:"kind_name"`
	ModeOptions []mode.Kind     `json:"mode_options,omitempty"`

	// Configurable is false for the fixed middle buttons of temperature
	// pages, which have no scenes or associations.
	Configurable   bool              `json:"configurable"`
	SceneNumber    int               `json:"scene_number,omitempty"`
	Scenes         []SceneButton     `json:"scenes,omitempty"`
	ScenesDisabled bool              `json:"scenes_disabled,omitempty"`
	CanAdd         bool              `json:"can_add_association"`
	AddCandidates  []DeviceOption    `json:"add_candidates,omitempty"`
	Associations   []AssociationView `json:"associations,omitempty"`
}

// SceneButton is a host scene attached to a button press.
type SceneButton struct {
	Activation scene.Activation `json:"activation"`
	Caption    string           `json:"caption"`
	// SceneID is zero when no scene exists yet.
	SceneID int64 `json:"scene_id,omitempty"`
}

// AssociationView is one direct association slot.
type AssociationView struct {
	Slot             int               `json:"slot"`
	Association      mode.Association  `json:"association"`
	Name             string            `json:"name"`
	Capabilities     capability.Record `json:"capabilities"`
	LevelEditable    bool              `json:"level_editable"`
	DurationEditable bool              `json:"duration_editable"`
	Candidates       []DeviceOption    `json:"candidates"`
}

// DeviceOption is a selectable device. Basic marks devices that can only
// receive Basic Set.
type DeviceOption struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Room  int    `json:"room"`
	Basic bool   `json:"basic,omitempty"`
}

// TemperatureView is the thermostat choice of a temperature page.
type TemperatureView struct {
	Device     int            `json:"device"`
	Candidates []DeviceOption `json:"candidates"`
}

// View builds the configuration view of screen. A zero screen means the
// page currently shown.
func (p *Panel) View(ctx context.Context, device int, screen profile.ScreenAddress) (*View, error) {
	c, err := p.Controller(device)
	if err != nil {
		return nil, err
	}
	prof := c.Profile
	current := p.currentScreen(c)
	if screen.IsZero() {
		screen = current
	}
	if err := p.checkScreen(c, screen); err != nil {
		return nil, err
	}

	devices, err := p.store.ListDevices()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return strings.ToLower(devices[i].Name) < strings.ToLower(devices[j].Name)
	})
	names := make(map[int]string, len(devices))
	for _, d := range devices {
		names[d.ID] = d.Name
	}

	v := &View{
		Controller:   c,
		Screen:       screen,
		Current:      current,
		Language:     p.presetLanguage(c),
		NumLines:     prof.NumButtons,
		CustomLabels: screen.Type == profile.ScreenCustom || (screen.Type == profile.ScreenTemperature && screen.Number > prof.NumTemperatureScreens),
	}
	if prof.HasScreen {
		v.Screens = prof.CompatibleScreens(c.Version)
		if langs := prof.LanguagesSupported(screen, c.Version); len(langs) > 1 {
			for _, idx := range langs {
				if l, ok := profile.LookupLanguage(idx); ok {
					v.Languages = append(v.Languages, l)
				}
			}
		}
	}
	if prof.MaxScroll > prof.NumButtons && screen.Type == profile.ScreenCustom {
		v.NumLinesEditable = true
		if n, err := strconv.Atoi(p.panelVar(c.Peer, numLinesVar(screen))); err == nil && n > 0 {
			v.NumLines = prof.ClampLines(n)
		}
	}

	mgr := association.NewManager(prof, p.caps)
	if screen.Type == profile.ScreenCustom || screen.Type == profile.ScreenPreset || screen.Type == profile.ScreenTemperature {
		for button := 1; button <= v.NumLines; button++ {
			first := p.readMode(c, screen, button)
			states := first.Kind.States()
			for state := 1; state <= states; state++ {
				bv, err := p.buttonView(ctx, c, mgr, screen, button, state, states, devices, names)
				if err != nil {
					return nil, err
				}
				v.Buttons = append(v.Buttons, bv)
			}
		}
	}

	if screen.Type == profile.ScreenTemperature {
		tv := &TemperatureView{}
		tv.Device, _ = strconv.Atoi(p.panelVar(c.Peer, temperatureVar(screen)))
		for _, d := range devices {
			if !d.Invisible && p.TemperatureCandidate(d) {
				tv.Candidates = append(tv.Candidates, option(d, false))
			}
		}
		v.Temperature = tv
	}
	if prof.HasScreen {
		v.Timeout = p.timeoutView(c, screen)
	}
	return v, nil
}

func (p *Panel) buttonView(ctx context.Context, c *Controller, mgr *association.Manager, screen profile.ScreenAddress, button, state, states int, devices []*store.Device, names map[int]string) (ButtonView, error) {
	prof := c.Profile
	stateButton := scene.StateButton(button, state)
	d := p.readMode(c, screen, stateButton)
	bv := ButtonView{
		Button:       button,
		State:        state,
		StateButton:  stateButton,
		Mode:         mode.Generate(prof, d),
		Descriptor:   d,
		KindName:     d.Kind.Name(),
		Configurable: hasModeMenu(screen, button),
	}

	firstKind := p.readMode(c, screen, button).Kind
	fixed, isFixed := p.fixedLabel(c, screen, button, firstKind)
	if state > 1 {
		isFixed = false
	}
	if isFixed {
		bv.Label = fixed
	} else {
		bv.Custom = true
		bv.Label = p.panelVar(c.Peer, labelVar(screen, stateButton))
		bv.Font = orDefault(p.panelVar(c.Peer, fontVar(screen, stateButton)), profile.DefaultFont)
		bv.Align = orDefault(p.panelVar(c.Peer, alignVar(screen, stateButton)), profile.DefaultAlign)
	}
	if !bv.Configurable {
		return bv, nil
	}
	if state == 1 {
		bv.ModeOptions = ModeOptions(prof, screen)
	}

	number, err := scene.Number(prof, screen, button, state)
	if err != nil {
		return bv, nil
	}
	bv.SceneNumber = number
	bv.ScenesDisabled = mgr.ScenesDisabled(d)
	for _, act := range SceneActivations(d.Kind) {
		sb := SceneButton{Activation: act, Caption: sceneCaption(act)}
		s, err := p.scenes.Find(ctx, c.Peer, number, act.Trigger())
		if err == nil {
			sb.SceneID = s.ID
		}
		bv.Scenes = append(bv.Scenes, sb)
	}

	enable := mgr.EnableNonSceneDirect(p.hasScene(ctx, c.Peer, number, scene.TriggerAny), states)
	bv.CanAdd = mgr.CanAdd(d)
	if bv.CanAdd {
		bv.AddCandidates = p.candidates(mgr, d, len(d.Associations), enable, devices)
	}
	for slot, a := range d.Associations {
		bv.Associations = append(bv.Associations, AssociationView{
			Slot:             slot,
			Association:      a,
			Name:             names[a.Device],
			Capabilities:     mgr.Capabilities(a.Device),
			LevelEditable:    mgr.LevelEditable(d, a.Device),
			DurationEditable: mgr.DurationEditable(d, a.Device),
			Candidates:       p.candidates(mgr, d, slot, enable, devices),
		})
	}
	return bv, nil
}

// candidates lists visible devices eligible for slot, sorted by name.
func (p *Panel) candidates(mgr *association.Manager, d mode.Descriptor, slot int, enable bool, devices []*store.Device) []DeviceOption {
	var out []DeviceOption
	for _, dev := range devices {
		if dev.Invisible {
			continue
		}
		switch mgr.Eligibility(d, slot, dev.ID, enable) {
		case association.EligibleBasic:
			out = append(out, option(dev, true))
		case association.EligibleScene:
			out = append(out, option(dev, false))
		}
	}
	return out
}

func option(d *store.Device, basic bool) DeviceOption {
	return DeviceOption{ID: d.ID, Name: d.Name, Room: d.Room, Basic: basic}
}

func sceneCaption(a scene.Activation) string {
	switch a {
	case scene.ToggleOn:
		return "On"
	case scene.ToggleOff:
		return "Off"
	}
	return "Scene"
}

// timeoutView reads the idle timeout of screen. An unset target or delay
// leaves the timeout disabled.
func (p *Panel) timeoutView(c *Controller, screen profile.ScreenAddress) *TimeoutChange {
	t := &TimeoutChange{Enabled: p.panelVar(c.Peer, timeoutEnableVar(screen)) == "true"}
	target, err := profile.ParseScreenAddress(p.panelVar(c.Peer, timeoutScreenVar(screen)))
	if err != nil {
		target = c.Profile.AlternateScreen(screen)
		t.Enabled = false
	}
	t.Target = target
	seconds, err := strconv.Atoi(p.panelVar(c.Peer, timeoutSecondsVar(screen)))
	if err != nil || seconds <= 0 {
		seconds = DefaultTimeout
		t.Enabled = false
	}
	t.Seconds = seconds
	return t
}
