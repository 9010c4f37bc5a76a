//go:build !no_mqtt

package main

import (
	"log/slog"

	"scenepanel/internal/controller"
	mqttbridge "scenepanel/internal/mqtt"
)

type mqttLink struct {
	bridge *mqttbridge.Bridge
}

func (m *mqttLink) invoker() controller.ActionInvoker {
	if m.bridge == nil {
		return nil
	}
	return m.bridge
}

func (m *mqttLink) start(panel *controller.Panel) {
	if m.bridge != nil {
		m.bridge.Start(panel)
	}
}

func (m *mqttLink) Stop() {
	if m.bridge != nil {
		m.bridge.Stop()
	}
}

func initMQTT(cfg *Config, logger *slog.Logger) *mqttLink {
	if !cfg.MQTT.Enabled {
		return &mqttLink{}
	}
	bridge, err := mqttbridge.NewBridge(mqttbridge.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	}, logger)
	if err != nil {
		logger.Error("mqtt bridge", "err", err)
		return &mqttLink{}
	}
	return &mqttLink{bridge: bridge}
}
