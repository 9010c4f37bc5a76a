package store

import "time"

// Device is a host device: a controller, a Z-Wave node or any other device
// that may appear in an association list.
type Device struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	ParentID   int       `json:"parent_id,omitempty"`
	Room       int       `json:"room,omitempty"`
	DeviceType string    `json:"device_type,omitempty"`
	Category   int       `json:"category,omitempty"`
	Invisible  bool      `json:"invisible,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Variable is one state variable of a device.
type Variable struct {
	Service string `json:"service"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}
