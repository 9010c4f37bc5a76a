//go:build no_automation

package main

import (
	"log/slog"

	"scenepanel/internal/controller"
	"scenepanel/internal/web"
	"scenepanel/internal/zwint"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *controller.Panel, _ *zwint.Engine, _ *Config, _ *slog.Logger) (*autoStopper, []web.ServerOption) {
	return &autoStopper{}, nil
}
