//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"scenepanel/internal/controller"
	"scenepanel/internal/profile"
	"scenepanel/internal/store"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Bridge carries controller actions to the host over MQTT and mirrors panel
// events back. It also accepts device and variable updates from the host
// and exposes each controller's screen and language as HA select entities.
//
// Topics, below the prefix:
//
//	<peer>/action              controller actions (out)
//	<peer>/screen[/set]        current screen (state out, command in)
//	<peer>/language[/set]      preset language (state out, command in)
//	<device>/event/<type>      events about one device (out)
//	event/<type>               other panel events (out)
//	host/device                device upsert (in)
//	host/<id>/variables        variable batch (in)
//	host/<id>/delete           device removal (in)
type Bridge struct {
	client pahomqtt.Client
	prefix string
	logger *slog.Logger
	panel  atomic.Pointer[controller.Panel]
	unsub  func()
	ctx    context.Context
	cancel context.CancelFunc
}

const (
	publishTimeout = 5 * time.Second
	commandTimeout = 10 * time.Second
)

// NewBridge creates and connects an MQTT bridge. It can deliver actions right
// away; commands and discovery start with Start.
func NewBridge(cfg Config, logger *slog.Logger) (*Bridge, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "scenepanel"
	}
	b := newBridge(nil, cfg.TopicPrefix, logger)

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		// command handlers publish actions and wait for the broker
		SetOrderMatters(false).
		SetWill(b.prefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			if b.panel.Load() != nil {
				b.syncControllers()
			}
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

func newBridge(client pahomqtt.Client, prefix string, logger *slog.Logger) *Bridge {
	if prefix == "" {
		prefix = "scenepanel"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to panel events and host commands.
func (b *Bridge) Start(panel *controller.Panel) {
	b.panel.Store(panel)
	b.unsub = panel.Events().OnAll(b.handleEvent)
	if b.client.IsConnectionOpen() {
		b.syncControllers()
	}
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

// Invoke publishes a controller action and waits for the broker to accept
// it.
func (b *Bridge) Invoke(ctx context.Context, a controller.Action) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	token := b.client.Publish(deviceTopic(b.prefix, a.Device)+"/action", 1, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish action %s: %w", a.Name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish action %s: %w", a.Name, ctx.Err())
	}
}

// handleEvent mirrors controller state onto the select entities and
// forwards the event. Events about one device go below that device's topic.
func (b *Bridge) handleEvent(event controller.Event) {
	switch data := event.Data.(type) {
	case controller.ScreenChange:
		b.publish(deviceTopic(b.prefix, event.Device)+"/screen", []byte(data.Screen.String()), true)
	case controller.LanguageChange:
		b.publish(deviceTopic(b.prefix, event.Device)+"/language", []byte(languageName(data.Language)), true)
	case *store.Device:
		b.refreshController(data.ID)
	case controller.Action:
		// already on the action topic
		return
	}
	topic := b.prefix + "/event/" + event.Type
	if event.Device > 0 {
		topic = deviceTopic(b.prefix, event.Device) + "/event/" + event.Type
	}
	b.publish(topic, mustJSON(event), false)
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

// syncControllers publishes discovery and state for every controller and
// subscribes to commands.
func (b *Bridge) syncControllers() {
	panel := b.panel.Load()
	b.subscribeCommands()
	controllers, err := panel.Controllers()
	if err != nil {
		b.logger.Error("list controllers for discovery", "err", err)
		return
	}
	for _, c := range controllers {
		b.publishController(c)
	}
}

func (b *Bridge) refreshController(device int) {
	panel := b.panel.Load()
	if panel == nil {
		return
	}
	c, err := panel.Controller(device)
	if err != nil || c.Peer != device {
		return
	}
	b.publishController(c)
}

func (b *Bridge) publishController(c *controller.Controller) {
	for _, msg := range buildDiscovery(c, b.prefix) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	screen, lang, err := b.panel.Load().Display(c.Peer)
	if err != nil {
		b.logger.Warn("read controller display", "device", c.Peer, "err", err)
		return
	}
	if c.Profile.HasScreen {
		b.publish(deviceTopic(b.prefix, c.Peer)+"/screen", []byte(screen.String()), true)
	}
	if c.Profile.HasPresetLanguages {
		b.publish(deviceTopic(b.prefix, c.Peer)+"/language", []byte(languageName(lang)), true)
	}
	b.logger.Debug("published HA discovery", "device", c.Peer, "name", deviceDisplayName(c))
}

func (b *Bridge) subscribeCommands() {
	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleMessage(msg.Topic(), msg.Payload())
	}
	for _, topic := range []string{
		b.prefix + "/+/screen/set",
		b.prefix + "/+/language/set",
		b.prefix + "/host/device",
		b.prefix + "/host/+/variables",
		b.prefix + "/host/+/delete",
	} {
		b.client.Subscribe(topic, 1, handler)
	}
}

// command is an inbound message decoded from its topic.
type command struct {
	device int
	name   string
}

// parseTopic decodes an inbound topic below prefix.
func parseTopic(prefix, topic string) (command, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return command{}, false
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[0] == "host" && parts[1] == "device":
		return command{name: "device"}, true
	case len(parts) == 3 && parts[0] == "host":
		id, err := strconv.Atoi(parts[1])
		if err != nil || id <= 0 || (parts[2] != "variables" && parts[2] != "delete") {
			return command{}, false
		}
		return command{device: id, name: parts[2]}, true
	case len(parts) == 3 && parts[2] == "set":
		id, err := strconv.Atoi(parts[0])
		if err != nil || id <= 0 || (parts[1] != "screen" && parts[1] != "language") {
			return command{}, false
		}
		return command{device: id, name: parts[1]}, true
	}
	return command{}, false
}

// variableBatch is the payload of host/<id>/variables. The service defaults
// to the scene controller service.
type variableBatch struct {
	Service string            `json:"service"`
	Values  map[string]string `json:"values"`
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	panel := b.panel.Load()
	if panel == nil {
		return
	}
	cmd, ok := parseTopic(b.prefix, topic)
	if !ok {
		b.logger.Debug("ignoring topic", "topic", topic)
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	var err error
	switch cmd.name {
	case "screen":
		var screen profile.ScreenAddress
		if screen, err = profile.ParseScreenAddress(strings.TrimSpace(string(payload))); err == nil {
			err = panel.SetScreen(ctx, cmd.device, screen)
		}
	case "language":
		lang, ok := languageIndex(strings.TrimSpace(string(payload)))
		if !ok {
			lang, err = strconv.Atoi(strings.TrimSpace(string(payload)))
		}
		if err == nil {
			err = panel.SetPresetLanguage(ctx, cmd.device, lang)
		}
	case "device":
		err = b.saveDevice(panel, payload)
	case "variables":
		err = b.saveVariables(panel, cmd.device, payload)
	case "delete":
		err = panel.Store().DeleteDevice(cmd.device)
		if err == nil {
			for _, msg := range buildRemoveDiscovery(cmd.device) {
				b.publish(msg.Topic, msg.Payload, true)
			}
		}
	}
	if err != nil {
		b.logger.Warn("MQTT command failed", "topic", topic, "err", err)
	}
}

func (b *Bridge) saveDevice(panel *controller.Panel, payload []byte) error {
	var dev store.Device
	if err := json.Unmarshal(payload, &dev); err != nil {
		return fmt.Errorf("decode device: %w", err)
	}
	if dev.ID <= 0 {
		return errors.New("device id required")
	}
	if err := panel.Store().SaveDevice(&dev); err != nil {
		return err
	}
	panel.Events().Emit(controller.Event{Type: controller.EventDeviceUpdated, Device: dev.ID, Data: &dev})
	return nil
}

func (b *Bridge) saveVariables(panel *controller.Panel, device int, payload []byte) error {
	var batch variableBatch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return fmt.Errorf("decode variables: %w", err)
	}
	if batch.Service == "" {
		batch.Service = profile.ServiceID
	}
	if err := panel.Store().SetVariables(device, batch.Service, batch.Values); err != nil {
		return err
	}
	panel.Events().Emit(controller.Event{Type: controller.EventVariablesChanged, Device: device, Data: controller.VariablesChange{
		Service: batch.Service, Values: batch.Values,
	}})
	return nil
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func deviceTopic(prefix string, device int) string {
	return prefix + "/" + strconv.Itoa(device)
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
