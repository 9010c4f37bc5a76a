// Package capability classifies Z-Wave devices from the command class list
// the host stores for each node.
package capability

import (
	"strconv"
	"strings"
)

// Host state variable holding a node's capability string.
const (
	ServiceZWaveDevice = "urn:micasaverde-com:serviceId:ZWaveDevice1"
	VarCapabilities    = "Capabilities"
)

// Z-Wave command classes used for classification.
const (
	ClassSwitchBinary      = 37
	ClassSwitchMultilevel  = 38
	ClassSceneActivation   = 43
	ClassSceneActuatorConf = 44
)

// Classes maps a command class to its version.
type Classes map[int]int

// Has reports whether class is supported. A version of 0 means unsupported.
func (c Classes) Has(class int) bool {
	return c[class] > 0
}

// Parse reads a capability string of the form "<node info>|<class list>",
// where the class list is a comma-terminated sequence of class[:version]
// tokens. A missing version means 1. Tokens without a terminating comma are
// ignored.
func Parse(raw string) (Classes, bool) {
	bar := strings.IndexByte(raw, '|')
	if bar <= 0 || strings.IndexByte(raw[bar+1:], '|') >= 0 {
		return nil, false
	}
	list := raw[bar+1:]
	if list == "" || strings.Trim(list, "0123456789:,") != "" {
		return nil, false
	}

	classes := make(Classes)
	tokens := strings.Split(list, ",")
	// the last element follows the final comma and is never terminated
	for _, tok := range tokens[:len(tokens)-1] {
		code, version, ok := strings.Cut(tok, ":")
		class, err := strconv.Atoi(code)
		if err != nil {
			continue
		}
		v := 1
		if ok && version != "" {
			if v, err = strconv.Atoi(version); err != nil {
				continue
			}
		}
		classes[class] = v
	}
	return classes, true
}

// Record summarizes what a device can do as a direct association target.
type Record struct {
	ZWave        bool `json:"zwave"`
	Scene        bool `json:"scene"`
	BasicSetOnly bool `json:"basic_set_only"`
	MultiLevel   bool `json:"multi_level"`
	Binary       bool `json:"binary"`
}

// Classify builds the record of a Z-Wave device from its capability string.
// Every Z-Wave device answers Basic Set, so a device without both scene
// classes is basic-set-only.
func Classify(raw string) Record {
	r := Record{ZWave: true}
	classes, ok := Parse(raw)
	if !ok {
		return r
	}
	if classes.Has(ClassSceneActivation) && classes.Has(ClassSceneActuatorConf) {
		r.Scene = true
	} else {
		r.BasicSetOnly = true
	}
	if classes.Has(ClassSwitchMultilevel) {
		r.MultiLevel = true
	} else if classes.Has(ClassSwitchBinary) {
		r.Binary = true
	}
	return r
}

// Source gives access to the host's device tree and capability strings.
type Source interface {
	CapabilityString(device int) (string, bool)
	ParentDevice(device int) (int, bool)
}

// DefaultRoot is the host device id of the Z-Wave network node.
const DefaultRoot = 1

// Classifier classifies host devices.
type Classifier struct {
	src  Source
	root int
}

// NewClassifier returns a classifier whose Z-Wave network device is root.
func NewClassifier(src Source, root int) *Classifier {
	if root <= 0 {
		root = DefaultRoot
	}
	return &Classifier{src: src, root: root}
}

// IsZWave reports whether device is a Z-Wave node: a child of the network
// device or a child of such a node.
func (c *Classifier) IsZWave(device int) bool {
	parent, ok := c.src.ParentDevice(device)
	if !ok || parent <= 0 {
		return false
	}
	if parent == c.root {
		return true
	}
	grand, ok := c.src.ParentDevice(parent)
	return ok && grand == c.root
}

// Classify returns the record of device. Non Z-Wave devices get an empty
// record.
func (c *Classifier) Classify(device int) Record {
	if !c.IsZWave(device) {
		return Record{}
	}
	raw, ok := c.src.CapabilityString(device)
	if !ok {
		return Record{ZWave: true}
	}
	return Classify(raw)
}
