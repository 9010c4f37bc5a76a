package controller

import (
	"context"
	"log/slog"
)

// Controller actions of the scene controller service.
const (
	ActionUpdateCustomLabel       = "UpdateCustomLabel"
	ActionUpdateTemperatureDevice = "UpdateTemperatureDevice"
	ActionSetScreenTimeout        = "SetScreenTimeout"
	ActionSetNumLines             = "SetNumLines"
	ActionSetScreen               = "SetScreen"
	ActionSetPresetLanguage       = "SetPresetLanguage"
)

// Action is a request to apply a change on the physical controller.
type Action struct {
	Device  int               `json:"device"`
	Service string            `json:"service"`
	Name    string            `json:"action"`
	Args    map[string]string `json:"args"`
}

// ActionInvoker delivers actions to the host. Implementations must not wait
// for the controller to apply the change.
type ActionInvoker interface {
	Invoke(ctx context.Context, a Action) error
}

// InvokerFunc adapts a function to ActionInvoker.
type InvokerFunc func(ctx context.Context, a Action) error

func (f InvokerFunc) Invoke(ctx context.Context, a Action) error { return f(ctx, a) }

// LogInvoker only logs actions. It is used when no transport is configured.
type LogInvoker struct {
	Logger *slog.Logger
}

func (l LogInvoker) Invoke(_ context.Context, a Action) error {
	l.Logger.Info("action", "device", a.Device, "action", a.Name, "args", a.Args)
	return nil
}
