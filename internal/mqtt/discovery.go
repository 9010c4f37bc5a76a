//go:build !no_mqtt

package mqtt

import (
	"fmt"
	"strconv"

	"scenepanel/internal/controller"
	"scenepanel/internal/profile"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/select/scenepanel_42/screen/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers   []string `json:"identifiers"`
	Manufacturer  string   `json:"manufacturer,omitempty"`
	Model         string   `json:"model,omitempty"`
	Name          string   `json:"name"`
	SuggestedArea string   `json:"suggested_area,omitempty"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	Options           []string `json:"options,omitempty"`
	Icon              string   `json:"icon,omitempty"`
	EntityCategory    string   `json:"entity_category,omitempty"`
	Device            haDevice `json:"device"`
}

// deviceDisplayName returns a display name for the controller.
func deviceDisplayName(c *controller.Controller) string {
	if c.Name != "" {
		return c.Name
	}
	if c.Profile != nil {
		return c.Profile.Name + " " + strconv.Itoa(c.Peer)
	}
	return strconv.Itoa(c.Peer)
}

// deviceIdentifier returns the unique identifier for HA device registry.
func deviceIdentifier(peer int) string {
	return "scenepanel_" + strconv.Itoa(peer)
}

// buildDiscovery generates HA select entities for the screen and preset
// language of a controller. Controllers without a display have none.
func buildDiscovery(c *controller.Controller, prefix string) []discoveryMsg {
	if c.Profile == nil || !c.Profile.HasScreen {
		return nil
	}

	avail := prefix + "/bridge/state"
	nodeID := deviceIdentifier(c.Peer)
	displayName := deviceDisplayName(c)
	base := deviceTopic(prefix, c.Peer)

	haDev := haDevice{
		Identifiers:  []string{nodeID},
		Manufacturer: "scenepanel",
		Model:        c.Profile.Name,
		Name:         displayName,
	}
	if c.Room > 0 {
		haDev.SuggestedArea = "Room " + strconv.Itoa(c.Room)
	}

	var screens []string
	for _, s := range c.Profile.CompatibleScreens(c.Version) {
		screens = append(screens, s.String())
	}
	msgs := []discoveryMsg{
		buildSelect(nodeID, displayName, avail, haDev, "screen", "Screen", base+"/screen", screens, "mdi:monitor"),
	}

	if c.Profile.HasPresetLanguages {
		var names []string
		for _, l := range profile.Languages() {
			names = append(names, l.Name)
		}
		msgs = append(msgs, buildSelect(nodeID, displayName, avail, haDev, "language", "Preset Language", base+"/language", names, "mdi:translate"))
	}
	return msgs
}

func buildSelect(nodeID, displayName, avail string, haDev haDevice, objectID, suffix, stateTopic string, options []string, icon string) discoveryMsg {
	topic := fmt.Sprintf("homeassistant/select/%s/%s/config", nodeID, objectID)
	payload := haDiscovery{
		Name:              displayName + " " + suffix,
		UniqueID:          nodeID + "_" + objectID,
		StateTopic:        stateTopic,
		CommandTopic:      stateTopic + "/set",
		AvailabilityTopic: avail,
		Options:           options,
		Icon:              icon,
		EntityCategory:    "config",
		Device:            haDev,
	}
	return discoveryMsg{Topic: topic, Payload: mustJSON(payload)}
}

// buildRemoveDiscovery generates empty retained messages to remove a
// controller from HA.
func buildRemoveDiscovery(peer int) []discoveryMsg {
	nodeID := deviceIdentifier(peer)
	var msgs []discoveryMsg
	for _, obj := range []string{"screen", "language"} {
		msgs = append(msgs, discoveryMsg{
			Topic:   fmt.Sprintf("homeassistant/select/%s/%s/config", nodeID, obj),
			Payload: nil, // empty retained = delete
		})
	}
	return msgs
}

// languageIndex maps a language name from a select command to its index.
func languageIndex(name string) (int, bool) {
	for _, l := range profile.Languages() {
		if l.Name == name {
			return l.Index, true
		}
	}
	return 0, false
}

// languageName returns the display name of a language index.
func languageName(index int) string {
	if l, ok := profile.LookupLanguage(index); ok {
		return l.Name
	}
	return strconv.Itoa(index)
}
