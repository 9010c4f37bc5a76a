package scene

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Activation is how a button press triggers a scene.
type Activation int

const (
	ToggleOff Activation = 0
	ToggleOn  Activation = 1
	Momentary Activation = 2
)

// Suffix is appended to generated scene names.
func (a Activation) Suffix() string {
	switch a {
	case ToggleOn:
		return " On"
	case ToggleOff:
		return " Off"
	}
	return ""
}

// Trigger returns the registry trigger template for the activation. Momentary
// presses and toggle-on share the activated trigger.
func (a Activation) Trigger() Trigger {
	if a == ToggleOff {
		return TriggerDeactivated
	}
	return TriggerActivated
}

// Trigger is the scene trigger template stored in the registry.
type Trigger int

const (
	TriggerAny         Trigger = 0
	TriggerActivated   Trigger = 1
	TriggerDeactivated Trigger = 2
)

// Key identifies the scene bound to one button action.
type Key struct {
	Device     int        `json:"device"`
	Number     int        `json:"scene_number"`
	Activation Activation `json:"activation"`
}

func (k Key) String() string {
	return fmt.Sprintf("device %d scene %d activation %d", k.Device, k.Number, k.Activation)
}

// Scene is a host scene triggered by a controller button.
type Scene struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Room        int       `json:"room"`
	Device      int       `json:"device"`
	Number      int       `json:"scene_number"`
	Trigger     Trigger   `json:"trigger"`
	TriggerName string    `json:"trigger_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Registry stores scenes keyed by trigger device, scene number and trigger.
type Registry interface {
	// Find returns ErrSceneNotFound when no scene matches. TriggerAny matches
	// either trigger.
	Find(ctx context.Context, device, number int, trigger Trigger) (*Scene, error)
	// Create returns ErrSceneExists when a scene with the same key exists.
	Create(ctx context.Context, s *Scene) error
	List(ctx context.Context) ([]Scene, error)
	ListByDevice(ctx context.Context, device int) ([]Scene, error)
	Delete(ctx context.Context, id int64) error
}

// FindOrCreate returns the scene for key, creating it with the given name and
// room if none exists. Repeated calls with the same key return the same scene.
func FindOrCreate(ctx context.Context, r Registry, key Key, name string, room int) (*Scene, bool, error) {
	trigger := key.Activation.Trigger()
	s, err := r.Find(ctx, key.Device, key.Number, trigger)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, ErrSceneNotFound) {
		return nil, false, fmt.Errorf("find scene: %w", err)
	}

	s = &Scene{
		Name:        name,
		Room:        room,
		Device:      key.Device,
		Number:      key.Number,
		Trigger:     trigger,
		TriggerName: name + " Trigger",
	}
	if err := r.Create(ctx, s); err != nil {
		if errors.Is(err, ErrSceneExists) {
			existing, ferr := r.Find(ctx, key.Device, key.Number, trigger)
			if ferr != nil {
				return nil, false, fmt.Errorf("find scene after conflict: %w", ferr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create scene: %w", err)
	}
	return s, true, nil
}
