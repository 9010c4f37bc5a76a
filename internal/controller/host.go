package controller

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"scenepanel/internal/capability"
	"scenepanel/internal/profile"
	"scenepanel/internal/store"
)

// Variables of the scene controller service.
const (
	VarPeerID         = "PeerID"
	VarCurrentScreen  = "CurrentScreen"
	VarPresetLanguage = "PresetLanguage"
	// VarVersionInfo lives on the Z-Wave node under capability.ServiceZWaveDevice.
	VarVersionInfo = "VersionInfo"
)

func buttonVar(prefix string, screen profile.ScreenAddress, button int) string {
	return prefix + "_" + screen.String() + "_" + strconv.Itoa(button)
}

func screenVar(prefix string, screen profile.ScreenAddress) string {
	return prefix + "_" + screen.String()
}

func modeVar(s profile.ScreenAddress, b int) string  { return buttonVar("Mode", s, b) }
func labelVar(s profile.ScreenAddress, b int) string { return buttonVar("Label", s, b) }
func fontVar(s profile.ScreenAddress, b int) string  { return buttonVar("Font", s, b) }
func alignVar(s profile.ScreenAddress, b int) string { return buttonVar("Align", s, b) }

func numLinesVar(s profile.ScreenAddress) string       { return screenVar("NumLines", s) }
func timeoutEnableVar(s profile.ScreenAddress) string  { return screenVar("TimeoutEnable", s) }
func timeoutScreenVar(s profile.ScreenAddress) string  { return screenVar("TimeoutScreen", s) }
func timeoutSecondsVar(s profile.ScreenAddress) string { return screenVar("TimeoutSeconds", s) }
func temperatureVar(s profile.ScreenAddress) string    { return screenVar("TemperatureDevice", s) }

// hostSource exposes the device store to the capability classifier.
type hostSource struct {
	st store.Store
}

func (h hostSource) CapabilityString(device int) (string, bool) {
	v, err := h.st.GetVariable(device, capability.ServiceZWaveDevice, capability.VarCapabilities)
	return v, err == nil && v != ""
}

func (h hostSource) ParentDevice(device int) (int, bool) {
	dev, err := h.st.GetDevice(device)
	if err != nil {
		return 0, false
	}
	return dev.ParentID, dev.ParentID > 0
}

// Controller identifies a configured scene controller.
type Controller struct {
	// Device is the Z-Wave node.
	Device int `json:"device"`
	// Peer is the device holding the configuration variables and receiving
	// actions. It equals Device when no peer is set.
	Peer      int              `json:"peer"`
	Name      string           `json:"name"`
	Room      int              `json:"room"`
	ProfileID string           `json:"profile"`
	Version   int              `json:"lcd_version"`
	Profile   *profile.Profile `json:"-"`
}

var versionRe = regexp.MustCompile(`,(\d+)$`)

// variable reads a service variable, treating a missing one as empty.
func (p *Panel) variable(device int, service, name string) string {
	v, err := p.store.GetVariable(device, service, name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.Warn("read variable failed", "device", device, "name", name, "err", err)
		}
		return ""
	}
	return v
}

func (p *Panel) panelVar(device int, name string) string {
	return p.variable(device, profile.ServiceID, name)
}

func (p *Panel) known(device int) bool {
	_, err := p.store.GetDevice(device)
	return err == nil
}

// ResolvePeer maps a device to its Z-Wave node and configuration peer. The
// Z-Wave node names its peer in PeerID and the peer points back the same
// way.
func (p *Panel) ResolvePeer(device int) (zwave, peer int) {
	other, _ := strconv.Atoi(p.panelVar(device, VarPeerID))
	if p.caps.IsZWave(device) {
		if other > 0 {
			return device, other
		}
		return device, device
	}
	if other > 0 {
		return other, device
	}
	return device, device
}

// Controller resolves device to a configured controller.
func (p *Panel) Controller(device int) (*Controller, error) {
	dev, err := p.store.GetDevice(device)
	if err != nil {
		return nil, fmt.Errorf("controller %d: %w", device, err)
	}
	zw, peer := p.ResolvePeer(device)
	c := &Controller{Device: zw, Peer: peer, Name: dev.Name, Room: dev.Room}
	if peer != device {
		if pd, err := p.store.GetDevice(peer); err == nil {
			c.Name, c.Room = pd.Name, pd.Room
		}
	}

	c.Profile = p.profileFor(zw, peer)
	if c.Profile == nil {
		return nil, fmt.Errorf("controller %d: %w", device, ErrUnknownProfile)
	}
	c.ProfileID = c.Profile.ID

	c.Version = c.Profile.DefaultLcdVersion
	if m := versionRe.FindStringSubmatch(p.variable(zw, capability.ServiceZWaveDevice, VarVersionInfo)); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			c.Version = v
		}
	}
	return c, nil
}

// profileFor uses the configured bindings first, then the device type.
func (p *Panel) profileFor(ids ...int) *profile.Profile {
	for _, id := range ids {
		if pid, ok := p.cfg.Bindings[id]; ok {
			if prof, ok := p.profiles.Get(pid); ok {
				return prof
			}
		}
	}
	for _, id := range ids {
		dev, err := p.store.GetDevice(id)
		if err != nil || dev.DeviceType == "" {
			continue
		}
		for _, prof := range p.profiles.All() {
			if prof.DeviceType == dev.DeviceType {
				return prof
			}
		}
	}
	return nil
}

// currentScreen returns the page shown on the controller.
func (p *Panel) currentScreen(c *Controller) profile.ScreenAddress {
	if !c.Profile.HasScreen {
		return c.Profile.DefaultScreen
	}
	s, err := profile.ParseScreenAddress(p.panelVar(c.Peer, VarCurrentScreen))
	if err != nil {
		return c.Profile.DefaultScreen
	}
	return s
}

// presetLanguage returns the selected preset language, English by default.
func (p *Panel) presetLanguage(c *Controller) int {
	if !c.Profile.HasPresetLanguages {
		return profile.LanguageEnglish
	}
	n, err := strconv.Atoi(p.panelVar(c.Peer, VarPresetLanguage))
	if err != nil || n < 1 {
		return profile.LanguageEnglish
	}
	return n
}

// Controllers lists every configured controller once, keyed by peer.
// Devices without a matching profile are skipped.
func (p *Panel) Controllers() ([]*Controller, error) {
	devices, err := p.store.ListDevices()
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	var out []*Controller
	for _, d := range devices {
		c, err := p.Controller(d.ID)
		if err != nil {
			if !errors.Is(err, ErrUnknownProfile) {
				p.logger.Warn("resolve controller failed", "device", d.ID, "err", err)
			}
			continue
		}
		if seen[c.Peer] {
			continue
		}
		seen[c.Peer] = true
		out = append(out, c)
	}
	return out, nil
}

// Display returns the page shown on device and its preset language.
func (p *Panel) Display(device int) (profile.ScreenAddress, int, error) {
	c, err := p.Controller(device)
	if err != nil {
		return profile.ScreenAddress{}, 0, err
	}
	return p.currentScreen(c), p.presetLanguage(c), nil
}
