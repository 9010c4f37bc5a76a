package controller

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"scenepanel/internal/association"
	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
)

// Event types
const (
	EventScreenChanged      = "screen_changed"
	EventLanguageChanged    = "language_changed"
	EventLabelChanged       = "label_changed"
	EventModeChanged        = "mode_changed"
	EventAssociationChanged = "association_changed"
	EventTemperatureDevice  = "temperature_device"
	EventTimeoutChanged     = "timeout_changed"
	EventLinesChanged       = "lines_changed"
	EventLinesCopied        = "lines_copied"
	EventSceneCreated       = "scene_created"
	EventActionInvoked      = "action_invoked"
	EventDeviceUpdated      = "device_updated"
	EventVariablesChanged   = "variables_changed"
)

// Event is one change on the panel. Device is the controller's peer id, or
// the host device the event is about; zero when no single device applies.
type Event struct {
	Type   string `json:"type"`
	Device int    `json:"device,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ScreenChange is the payload of screen_changed.
type ScreenChange struct {
	Screen   profile.ScreenAddress `json:"screen"`
	Previous profile.ScreenAddress `json:"previous"`
}

// LanguageChange is the payload of language_changed. Reset is set when a
// screen change forced the language back to English.
type LanguageChange struct {
	Language int    `json:"language"`
	Name     string `json:"name"`
	Reset    bool   `json:"reset,omitempty"`
}

// ButtonChange is the payload of label_changed and mode_changed. Button is
// the state button (button + (state-1)*1000).
type ButtonChange struct {
	Screen profile.ScreenAddress `json:"screen"`
	Button int                   `json:"button"`
	Label  string                `json:"label,omitempty"`
	Kind   mode.Kind             `json:"kind"`
	Mode   string                `json:"mode"`
}

// AssociationChange is the payload of association_changed. Removed lists
// the devices a confirmed transition pruned from the list.
type AssociationChange struct {
	Screen   profile.ScreenAddress    `json:"screen"`
	Button   int                      `json:"button"`
	Mode     string                   `json:"mode"`
	Decision association.DecisionKind `json:"decision"`
	Devices  []int                    `json:"devices"`
	Removed  []int                    `json:"removed,omitempty"`
	Scene    bool                     `json:"scene_controllable"`
}

// PageChange is the payload of the per-page setting events. Only the field
// matching the event type is set.
type PageChange struct {
	Screen            profile.ScreenAddress `json:"screen"`
	Lines             int                   `json:"lines,omitempty"`
	TemperatureDevice int                   `json:"temperature_device,omitempty"`
	Timeout           *TimeoutChange        `json:"timeout,omitempty"`
}

// SceneActivation is the payload of scene_created: the host scene a button
// press now runs.
type SceneActivation struct {
	Screen     profile.ScreenAddress `json:"screen"`
	Button     int                   `json:"button"`
	Activation scene.Activation      `json:"activation"`
	Scene      *scene.Scene          `json:"scene"`
}

// VariablesChange is the payload of variables_changed.
type VariablesChange struct {
	Service string            `json:"service"`
	Values  map[string]string `json:"values"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

// Filter selects events. Empty Types matches every type and a zero Device
// matches every device.
type Filter struct {
	Types  []string
	Device int
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, e.Type) {
		return false
	}
	return f.Device == 0 || f.Device == e.Device
}

type subscription struct {
	filter  Filter
	handler EventHandler
}

// EventBus delivers panel events to subscribers in subscription order.
// Emit reads an immutable snapshot of the subscriber list, so handlers may
// subscribe or unsubscribe while an event is delivered.
type EventBus struct {
	mu     sync.Mutex // serializes writers of subs
	subs   atomic.Pointer[[]*subscription]
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	eb := &EventBus{logger: logger}
	eb.subs.Store(&[]*subscription{})
	return eb
}

// Subscribe registers handler for the events f matches and returns the
// function that removes it.
func (eb *EventBus) Subscribe(f Filter, handler EventHandler) func() {
	sub := &subscription{filter: f, handler: handler}
	eb.mu.Lock()
	next := append(slices.Clone(*eb.subs.Load()), sub)
	eb.subs.Store(&next)
	eb.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			eb.mu.Lock()
			defer eb.mu.Unlock()
			next := slices.DeleteFunc(slices.Clone(*eb.subs.Load()), func(s *subscription) bool { return s == sub })
			eb.subs.Store(&next)
		})
	}
}

// On registers a handler for one event type.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	return eb.Subscribe(Filter{Types: []string{eventType}}, handler)
}

// OnAll registers a handler for every event.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	return eb.Subscribe(Filter{}, handler)
}

// Emit delivers event synchronously. A panicking handler is logged and the
// remaining handlers still run.
func (eb *EventBus) Emit(event Event) {
	for _, s := range *eb.subs.Load() {
		if s.filter.Match(event) {
			eb.deliver(s, event)
		}
	}
}

func (eb *EventBus) deliver(s *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "type", event.Type, "device", event.Device, "panic", r)
		}
	}()
	s.handler(event)
}
