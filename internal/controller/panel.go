// Package controller applies scene controller configuration changes: it
// keeps the controller's state variables in the device store, asks the host
// to push changes to the device and announces them on the event bus.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"scenepanel/internal/association"
	"scenepanel/internal/capability"
	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
	"scenepanel/internal/store"
)

var (
	ErrUnknownProfile  = errors.New("no profile for controller")
	ErrInvalidTimeout  = errors.New("timeout must be between five seconds and one hour")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotSupported    = errors.New("not supported by this controller")
)

// Timeout limits in seconds.
const (
	MinTimeout     = 5
	MaxTimeout     = 3600
	DefaultTimeout = 30
)

// MaxStates is the highest state count of an N-state button.
const MaxStates = 9

// DefaultSceneNameLength is the scene name limit of current hosts.
const DefaultSceneNameLength = 32

// Config holds panel configuration.
type Config struct {
	// Bindings maps a controller device id to a profile id. Devices without
	// a binding are matched on their device type.
	Bindings           map[int]string
	SceneNameMaxLength int
}

// Panel configures scene controllers.
type Panel struct {
	store    store.Store
	profiles *profile.Registry
	scenes   scene.Registry
	invoker  ActionInvoker
	events   *EventBus
	caps     *capability.Classifier
	logger   *slog.Logger
	cfg      Config

	// mu serializes read-modify-write cycles on controller variables.
	mu sync.Mutex
}

// New creates a panel service.
func New(st store.Store, profiles *profile.Registry, scenes scene.Registry, invoker ActionInvoker, events *EventBus, cfg Config, logger *slog.Logger) *Panel {
	if cfg.SceneNameMaxLength <= 0 {
		cfg.SceneNameMaxLength = DefaultSceneNameLength
	}
	return &Panel{
		store:    st,
		profiles: profiles,
		scenes:   scenes,
		invoker:  invoker,
		events:   events,
		caps:     capability.NewClassifier(hostSource{st: st}, capability.DefaultRoot),
		logger:   logger.With("component", "panel"),
		cfg:      cfg,
	}
}

// Events returns the panel's event bus.
func (p *Panel) Events() *EventBus { return p.events }

// Store returns the device store.
func (p *Panel) Store() store.Store { return p.store }

// Profiles returns the profile registry.
func (p *Panel) Profiles() *profile.Registry { return p.profiles }

// Scenes returns the scene registry.
func (p *Panel) Scenes() scene.Registry { return p.scenes }

// Classify returns the capability record of device.
func (p *Panel) Classify(device int) capability.Record {
	return p.caps.Classify(device)
}

// invoke sends an action and reports failures without failing the edit;
// the variables are already written and the host resynchronizes the device.
func (p *Panel) invoke(ctx context.Context, c *Controller, action string, args map[string]string) {
	a := Action{Device: c.Peer, Service: profile.ServiceID, Name: action, Args: args}
	if err := p.invoker.Invoke(ctx, a); err != nil {
		p.logger.Warn("invoke action failed", "device", c.Peer, "action", action, "err", err)
		return
	}
	p.events.Emit(Event{Type: EventActionInvoked, Device: c.Peer, Data: a})
}

func languageChange(language int, reset bool) LanguageChange {
	lc := LanguageChange{Language: language, Reset: reset}
	if l, ok := profile.LookupLanguage(language); ok {
		lc.Name = l.Name
	}
	return lc
}

func (p *Panel) write(c *Controller, values map[string]string) error {
	if err := p.store.SetVariables(c.Peer, profile.ServiceID, values); err != nil {
		return fmt.Errorf("write controller %d: %w", c.Peer, err)
	}
	return nil
}

// splitButton splits a state button number into its physical button and
// state.
func splitButton(c *Controller, stateButton int) (button, state int, err error) {
	button = stateButton % 1000
	state = stateButton/1000 + 1
	if button < 1 || button > c.Profile.MaxScroll || state > MaxStates {
		return 0, 0, fmt.Errorf("%w: button %d", ErrInvalidArgument, stateButton)
	}
	return button, state, nil
}

func (p *Panel) checkScreen(c *Controller, screen profile.ScreenAddress) error {
	if !c.Profile.ScreenIsCompatible(screen, c.Version) {
		return fmt.Errorf("%w: screen %s", ErrInvalidArgument, screen)
	}
	return nil
}

// readMode decodes the stored mode of a button. Extra states of N-state
// buttons are always momentary.
func (p *Panel) readMode(c *Controller, screen profile.ScreenAddress, stateButton int) mode.Descriptor {
	raw := p.panelVar(c.Peer, modeVar(screen, stateButton))
	if stateButton > 1000 {
		if raw == "" {
			raw = string(mode.Momentary)
		}
		d := mode.Parse(c.Profile, raw, p.known)
		d.Kind = mode.Momentary
		d.TargetScreen = nil
		return d
	}
	return mode.Parse(c.Profile, raw, p.known)
}

// SetScreen shows screen on the controller. Preset and temperature pages
// beyond the selected language's translations fall back to English.
func (p *Panel) SetScreen(ctx context.Context, device int, screen profile.ScreenAddress) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return err
	}
	if !c.Profile.HasScreen {
		return fmt.Errorf("set screen: %w", ErrNotSupported)
	}
	if err := p.checkScreen(c, screen); err != nil {
		return err
	}

	if c.Profile.HasPresetLanguages && (screen.Type == profile.ScreenPreset || screen.Type == profile.ScreenTemperature) {
		lang, ok := profile.LookupLanguage(p.presetLanguage(c))
		if !ok || screen.Number > lang.MaxPresetScreens {
			if err := p.write(c, map[string]string{VarPresetLanguage: "1"}); err != nil {
				return err
			}
			p.invoke(ctx, c, ActionSetPresetLanguage, map[string]string{"Language": "1"})
			p.events.Emit(Event{Type: EventLanguageChanged, Device: c.Peer, Data: languageChange(profile.LanguageEnglish, true)})
		}
	}

	previous := p.currentScreen(c)
	if err := p.write(c, map[string]string{VarCurrentScreen: screen.String()}); err != nil {
		return err
	}
	p.invoke(ctx, c, ActionSetScreen, map[string]string{
		"Screen":     screen.String(),
		"Timeout":    "false",
		"ForceClear": "false",
	})
	p.logger.Info("screen changed", "device", c.Peer, "screen", screen)
	p.events.Emit(Event{Type: EventScreenChanged, Device: c.Peer, Data: ScreenChange{Screen: screen, Previous: previous}})
	return nil
}

// SetPresetLanguage selects the language of preset pages.
func (p *Panel) SetPresetLanguage(ctx context.Context, device, language int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return err
	}
	if !c.Profile.HasPresetLanguages {
		return fmt.Errorf("set language: %w", ErrNotSupported)
	}
	if _, ok := profile.LookupLanguage(language); !ok {
		return fmt.Errorf("%w: language %d", ErrInvalidArgument, language)
	}
	v := strconv.Itoa(language)
	if err := p.write(c, map[string]string{VarPresetLanguage: v}); err != nil {
		return err
	}
	p.invoke(ctx, c, ActionSetPresetLanguage, map[string]string{"Language": v})
	p.events.Emit(Event{Type: EventLanguageChanged, Device: c.Peer, Data: languageChange(language, false)})
	return nil
}

// LabelChange edits the label and interaction kind of one button.
type LabelChange struct {
	Screen profile.ScreenAddress `json:"screen"`
	// Button is the state button: button + (state-1)*1000.
	Button int    `json:"button"`
	Label  string `json:"label"`
	Font   string `json:"font,omitempty"`
	Align  string `json:"align,omitempty"`
	// Kind keeps the current kind when zero.
	Kind mode.Kind `json:"kind,omitempty"`
	// Target is the page a switch-screen button shows. It defaults to the
	// alternate screen.
	Target *profile.ScreenAddress `json:"target,omitempty"`
}

// ChangeLabel updates a button's label and kind. The associations and scene
// linkage of the button are kept.
func (p *Panel) ChangeLabel(ctx context.Context, device int, ch LabelChange) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return "", err
	}
	button, state, err := splitButton(c, ch.Button)
	if err != nil {
		return "", err
	}
	if err := p.checkScreen(c, ch.Screen); err != nil {
		return "", err
	}
	if ch.Font == "" {
		ch.Font = profile.DefaultFont
	}
	if ch.Align == "" {
		ch.Align = profile.DefaultAlign
	}
	if !profile.ValidFont(ch.Font) || !profile.ValidAlign(ch.Align) {
		return "", fmt.Errorf("%w: font %q align %q", ErrInvalidArgument, ch.Font, ch.Align)
	}

	d := p.readMode(c, ch.Screen, ch.Button)
	old := mode.Generate(c.Profile, d)
	kind := ch.Kind
	switch {
	case state > 1:
		kind = mode.Momentary
	case kind == 0 || kind == d.Kind:
		kind = d.Kind
	case !kindSelectable(c.Profile, ch.Screen, button, kind):
		return "", fmt.Errorf("%w: kind %s on %s button %d", ErrInvalidArgument, kind, ch.Screen, button)
	}
	prev := d.TargetScreen
	d.Kind = kind
	d.TargetScreen = nil
	if kind == mode.SwitchScreen {
		target := c.Profile.AlternateScreen(ch.Screen)
		switch {
		case ch.Target != nil:
			if err := p.checkScreen(c, *ch.Target); err != nil {
				return "", err
			}
			target = *ch.Target
		case prev != nil:
			target = *prev
		}
		d.TargetScreen = &target
	}
	modeStr := mode.Generate(c.Profile, d)

	values := map[string]string{modeVar(ch.Screen, ch.Button): modeStr}
	args := map[string]string{
		"Screen": ch.Screen.String(),
		"Button": strconv.Itoa(ch.Button),
		"Mode":   modeStr,
	}
	if c.Profile.HasScreen {
		values[labelVar(ch.Screen, ch.Button)] = ch.Label
		values[fontVar(ch.Screen, ch.Button)] = ch.Font
		values[alignVar(ch.Screen, ch.Button)] = ch.Align
		args["Label"] = ch.Label
		args["Font"] = ch.Font
		args["Align"] = ch.Align
	}
	if err := p.write(c, values); err != nil {
		return "", err
	}
	p.invoke(ctx, c, ActionUpdateCustomLabel, args)

	change := ButtonChange{Screen: ch.Screen, Button: ch.Button, Label: ch.Label, Kind: kind, Mode: modeStr}
	p.events.Emit(Event{Type: EventLabelChanged, Device: c.Peer, Data: change})
	if modeStr != old {
		p.events.Emit(Event{Type: EventModeChanged, Device: c.Peer, Data: change})
	}
	return modeStr, nil
}

// kindSelectable applies the mode menu rules: thermostat kinds only on
// custom temperature pages, no N-state buttons on preset pages, and the
// fixed middle buttons of temperature pages have no menu at all.
func kindSelectable(p *profile.Profile, screen profile.ScreenAddress, button int, k mode.Kind) bool {
	if !hasModeMenu(screen, button) {
		return false
	}
	for _, o := range ModeOptions(p, screen) {
		if o == k {
			return true
		}
	}
	return false
}

func hasModeMenu(screen profile.ScreenAddress, button int) bool {
	return screen.Type != profile.ScreenTemperature || button == 1 || button == 5
}

// ModeOptions lists the kinds offered for buttons of screen, in menu order.
func ModeOptions(p *profile.Profile, screen profile.ScreenAddress) []mode.Kind {
	var out []mode.Kind
	for i := 0; i < len(p.CustomModes); i++ {
		k := mode.Kind(p.CustomModes[i])
		enabled := true
		switch {
		case k == mode.ThermostatMode || k == mode.EnergyMode:
			enabled = screen.Type == profile.ScreenTemperature && screen.Number > p.NumTemperatureScreens
		case screen.Type == profile.ScreenPreset:
			enabled = !p.HasScreen || k.States() == 1
		}
		if enabled {
			out = append(out, k)
		}
	}
	return out
}

// SelectDirectDevice applies an association edit to a button. Destructive
// edits are passed to confirm; on decline nothing is written and
// association.ErrDeclined is returned with the decision.
func (p *Panel) SelectDirectDevice(ctx context.Context, device int, screen profile.ScreenAddress, stateButton int, edit association.Edit, confirm association.Confirmer) (association.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return association.Result{}, err
	}
	button, state, err := splitButton(c, stateButton)
	if err != nil {
		return association.Result{}, err
	}
	d := p.readMode(c, screen, stateButton)
	mgr := association.NewManager(c.Profile, p.caps)

	if edit.Device != 0 {
		first := p.readMode(c, screen, button)
		number, err := scene.Number(c.Profile, screen, button, state)
		if err != nil {
			return association.Result{Descriptor: d}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		enable := mgr.EnableNonSceneDirect(p.hasScene(ctx, c.Peer, number, scene.TriggerAny), first.Kind.States())
		if mgr.Eligibility(d, edit.Slot, edit.Device, enable) == association.Ineligible {
			return association.Result{Descriptor: d}, fmt.Errorf("%w: device %d cannot be associated", ErrInvalidArgument, edit.Device)
		}
	}

	res, err := mgr.Apply(d, edit, confirm)
	if err != nil {
		return res, err
	}
	modeStr := mode.Generate(c.Profile, res.Descriptor)
	if err := p.write(c, map[string]string{modeVar(screen, stateButton): modeStr}); err != nil {
		return res, err
	}

	args := map[string]string{
		"Screen": screen.String(),
		"Button": strconv.Itoa(stateButton),
		"Mode":   modeStr,
	}
	if c.Profile.HasScreen {
		args["Label"] = p.panelVar(c.Peer, labelVar(screen, stateButton))
		args["Font"] = orDefault(p.panelVar(c.Peer, fontVar(screen, stateButton)), profile.DefaultFont)
		args["Align"] = orDefault(p.panelVar(c.Peer, alignVar(screen, stateButton)), profile.DefaultAlign)
	}
	p.invoke(ctx, c, ActionUpdateCustomLabel, args)
	p.logger.Info("associations changed", "device", c.Peer, "screen", screen, "button", stateButton, "mode", modeStr)
	change := AssociationChange{
		Screen:   screen,
		Button:   stateButton,
		Mode:     modeStr,
		Decision: res.Decision.Kind,
		Devices:  res.Descriptor.Devices(),
		Scene:    res.Descriptor.SceneControllable,
	}
	if res.Decision.Kind == association.ConfirmPrune {
		change.Removed = res.Decision.Devices
	}
	p.events.Emit(Event{Type: EventAssociationChanged, Device: c.Peer, Data: change})
	return res, nil
}

func (p *Panel) hasScene(ctx context.Context, device, number int, trigger scene.Trigger) bool {
	_, err := p.scenes.Find(ctx, device, number, trigger)
	if err != nil && !errors.Is(err, scene.ErrSceneNotFound) {
		p.logger.Warn("scene lookup failed", "device", device, "scene", number, "err", err)
	}
	return err == nil
}

// TemperatureCandidate reports whether device can drive a temperature page:
// a Z-Wave thermostat or temperature sensor.
func (p *Panel) TemperatureCandidate(dev *store.Device) bool {
	return (dev.Category == CategoryThermostat || dev.Category == CategoryTemperatureSensor) && p.caps.IsZWave(dev.ID)
}

// Host device categories.
const (
	CategoryThermostat        = 5
	CategoryTemperatureSensor = 17
)

// SelectTemperatureDevice chooses the thermostat shown on a temperature
// page. Zero clears the choice.
func (p *Panel) SelectTemperatureDevice(ctx context.Context, device int, screen profile.ScreenAddress, temperature int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return err
	}
	if screen.Type != profile.ScreenTemperature {
		return fmt.Errorf("%w: %s is not a temperature screen", ErrInvalidArgument, screen)
	}
	if err := p.checkScreen(c, screen); err != nil {
		return err
	}
	if temperature != 0 {
		dev, err := p.store.GetDevice(temperature)
		if err != nil {
			return fmt.Errorf("temperature device %d: %w", temperature, err)
		}
		if !p.TemperatureCandidate(dev) {
			return fmt.Errorf("%w: device %d is not a Z-Wave thermostat or temperature sensor", ErrInvalidArgument, temperature)
		}
	}
	v := strconv.Itoa(temperature)
	if err := p.write(c, map[string]string{temperatureVar(screen): v}); err != nil {
		return err
	}
	p.invoke(ctx, c, ActionUpdateTemperatureDevice, map[string]string{"Screen": screen.String(), "TemperatureDevice": v})
	p.events.Emit(Event{Type: EventTemperatureDevice, Device: c.Peer, Data: PageChange{Screen: screen, TemperatureDevice: temperature}})
	return nil
}

// TimeoutChange edits the automatic screen switch of a page.
type TimeoutChange struct {
	Enabled bool `json:"enabled"`
	// AutoEnable turns the timeout on; it is set when the target or the
	// delay was edited.
	AutoEnable bool                  `json:"auto_enable"`
	Target     profile.ScreenAddress `json:"target"`
	Seconds    int                   `json:"seconds"`
}

// ChangeTimeout sets the page shown after screen has been idle.
func (p *Panel) ChangeTimeout(ctx context.Context, device int, screen profile.ScreenAddress, ch TimeoutChange) (TimeoutChange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return ch, err
	}
	if !c.Profile.HasScreen {
		return ch, fmt.Errorf("change timeout: %w", ErrNotSupported)
	}
	if err := p.checkScreen(c, screen); err != nil {
		return ch, err
	}
	if (ch.Enabled || ch.AutoEnable) && (ch.Seconds < MinTimeout || ch.Seconds > MaxTimeout) {
		return ch, ErrInvalidTimeout
	}
	if ch.AutoEnable {
		ch.Enabled = true
		ch.AutoEnable = false
	}
	if ch.Target.IsZero() {
		ch.Target = c.Profile.AlternateScreen(screen)
	}
	if ch.Target == screen {
		return ch, fmt.Errorf("%w: timeout target is the screen itself", ErrInvalidArgument)
	}
	if err := p.checkScreen(c, ch.Target); err != nil {
		return ch, err
	}
	if ch.Seconds <= 0 {
		ch.Seconds = DefaultTimeout
	}

	enable := strconv.FormatBool(ch.Enabled)
	seconds := strconv.Itoa(ch.Seconds)
	err = p.write(c, map[string]string{
		timeoutEnableVar(screen):  enable,
		timeoutScreenVar(screen):  ch.Target.String(),
		timeoutSecondsVar(screen): seconds,
	})
	if err != nil {
		return ch, err
	}
	p.invoke(ctx, c, ActionSetScreenTimeout, map[string]string{
		"Screen":         screen.String(),
		"Enable":         enable,
		"TimeoutScreen":  ch.Target.String(),
		"TimeoutSeconds": seconds,
	})
	p.events.Emit(Event{Type: EventTimeoutChanged, Device: c.Peer, Data: PageChange{Screen: screen, Timeout: &ch}})
	return ch, nil
}

// ChangeNumLines sets how many lines a scrolling custom page shows. The
// count is clamped to the profile's range and returned.
func (p *Panel) ChangeNumLines(ctx context.Context, device int, screen profile.ScreenAddress, lines int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return 0, err
	}
	if c.Profile.MaxScroll <= c.Profile.NumButtons || screen.Type != profile.ScreenCustom {
		return 0, fmt.Errorf("change lines on %s: %w", screen, ErrNotSupported)
	}
	if err := p.checkScreen(c, screen); err != nil {
		return 0, err
	}
	lines = c.Profile.ClampLines(lines)
	v := strconv.Itoa(lines)
	if err := p.write(c, map[string]string{numLinesVar(screen): v}); err != nil {
		return 0, err
	}
	p.invoke(ctx, c, ActionSetNumLines, map[string]string{"Screen": screen.String(), "Lines": v})
	p.events.Emit(Event{Type: EventLinesChanged, Device: c.Peer, Data: PageChange{Screen: screen, Lines: lines}})
	return lines, nil
}

// SceneRequest identifies the host scene of a button press.
type SceneRequest struct {
	Screen     profile.ScreenAddress `json:"screen"`
	Button     int                   `json:"button"`
	Activation scene.Activation      `json:"activation"`
}

// SetScene finds or creates the host scene run by a button press. It reports
// whether a scene was created.
func (p *Panel) SetScene(ctx context.Context, device int, req SceneRequest) (*scene.Scene, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.Controller(device)
	if err != nil {
		return nil, false, err
	}
	button, state, err := splitButton(c, req.Button)
	if err != nil {
		return nil, false, err
	}
	if err := p.checkScreen(c, req.Screen); err != nil {
		return nil, false, err
	}
	number, err := scene.Number(c.Profile, req.Screen, button, state)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	d := p.readMode(c, req.Screen, req.Button)
	if !hasModeMenu(req.Screen, button) {
		return nil, false, fmt.Errorf("%w: %s button %d has no scene", ErrInvalidArgument, req.Screen, button)
	}
	if !validActivation(d.Kind, req.Activation) {
		return nil, false, fmt.Errorf("%w: activation %d for %s button", ErrInvalidArgument, req.Activation, d.Kind.Name())
	}
	if association.NewManager(c.Profile, p.caps).ScenesDisabled(d) {
		return nil, false, fmt.Errorf("scene for %s button %d: %w", req.Screen, req.Button, ErrNotSupported)
	}

	label := p.buttonLabel(c, req.Screen, req.Button, d.Kind)
	name := scene.Name(c.Name, label, req.Activation.Suffix(), p.cfg.SceneNameMaxLength)
	key := scene.Key{Device: c.Peer, Number: number, Activation: req.Activation}
	s, created, err := scene.FindOrCreate(ctx, p.scenes, key, name, c.Room)
	if err != nil {
		return nil, false, err
	}
	if created {
		p.logger.Info("scene created", "device", c.Peer, "scene", number, "name", s.Name)
		p.events.Emit(Event{Type: EventSceneCreated, Device: c.Peer, Data: SceneActivation{
			Screen:     req.Screen,
			Button:     req.Button,
			Activation: req.Activation,
			Scene:      s,
		}})
	}
	return s, created, nil
}

// SceneActivations lists the scene buttons of a button kind: toggles run
// separate on and off scenes, everything else one scene per press.
func SceneActivations(k mode.Kind) []scene.Activation {
	if k == mode.Toggle {
		return []scene.Activation{scene.ToggleOn, scene.ToggleOff}
	}
	return []scene.Activation{scene.Momentary}
}

func validActivation(k mode.Kind, a scene.Activation) bool {
	for _, v := range SceneActivations(k) {
		if v == a {
			return true
		}
	}
	return false
}

// buttonLabel returns the text shown on a button, fixed or custom.
func (p *Panel) buttonLabel(c *Controller, screen profile.ScreenAddress, stateButton int, kind mode.Kind) string {
	label, _ := p.fixedLabel(c, screen, stateButton, kind)
	if label == "" {
		label = p.panelVar(c.Peer, labelVar(screen, stateButton))
	}
	return label
}

// fixedLabel returns the label of buttons the user cannot edit. The second
// result is false for custom labels.
func (p *Panel) fixedLabel(c *Controller, screen profile.ScreenAddress, stateButton int, kind mode.Kind) (string, bool) {
	if stateButton > 1000 {
		return "", false
	}
	switch screen.Type {
	case profile.ScreenCustom:
		return "", false
	case profile.ScreenTemperature:
		if l, ok := profile.TemperatureLabel(screen.Number, stateButton); ok {
			return l, true
		}
		switch kind {
		case mode.ThermostatMode:
			return "Heat/Cool/Auto/Off", true
		case mode.EnergyMode:
			return "Normal/Energy Saving", true
		}
		return "", false
	case profile.ScreenPreset:
		labels := c.Profile.Preset(screen.Number)
		if stateButton <= len(labels) {
			return labels[stateButton-1], true
		}
		return "", true
	}
	return "", true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
