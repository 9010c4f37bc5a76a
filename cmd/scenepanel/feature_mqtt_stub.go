//go:build no_mqtt

package main

import (
	"log/slog"

	"scenepanel/internal/controller"
)

type mqttLink struct{}

func (m *mqttLink) invoker() controller.ActionInvoker { return nil }

func (m *mqttLink) start(_ *controller.Panel) {}

func (m *mqttLink) Stop() {}

func initMQTT(_ *Config, _ *slog.Logger) *mqttLink {
	return &mqttLink{}
}
