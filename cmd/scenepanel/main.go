package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"scenepanel/internal/controller"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
	"scenepanel/internal/store"
	"scenepanel/internal/web"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

type Config struct {
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	Scenes struct {
		Path          string `yaml:"path"`
		NameMaxLength int    `yaml:"name_max_length"`
	} `yaml:"scenes"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Zwint struct {
		Enabled  bool   `yaml:"enabled"`
		Port     string `yaml:"port"`
		BaudRate int    `yaml:"baud_rate"`
		Listen   string `yaml:"listen"`
	} `yaml:"zwint"`
	Automation struct {
		Enabled    bool   `yaml:"enabled"`
		ScriptsDir string `yaml:"scripts_dir"`
	} `yaml:"automation"`
	// Controllers binds host devices to built-in profiles when the device
	// type alone does not identify them.
	Controllers []struct {
		Device  int    `yaml:"device"`
		Profile string `yaml:"profile"`
	} `yaml:"controllers"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) validate(profiles *profile.Registry) error {
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.Zwint.Enabled {
		if c.Zwint.Port == "" {
			return fmt.Errorf("zwint.port is required when zwint is enabled")
		}
		if c.Zwint.BaudRate <= 0 {
			return fmt.Errorf("zwint.baud_rate must be positive, got %d", c.Zwint.BaudRate)
		}
	}
	if n := c.Scenes.NameMaxLength; n != 0 && n < 10 {
		return fmt.Errorf("scenes.name_max_length must be at least 10, got %d", n)
	}
	seen := make(map[int]bool)
	for _, b := range c.Controllers {
		if b.Device <= 0 {
			return fmt.Errorf("controllers: invalid device %d", b.Device)
		}
		if seen[b.Device] {
			return fmt.Errorf("controllers: device %d bound twice", b.Device)
		}
		seen[b.Device] = true
		if _, ok := profiles.Get(b.Profile); !ok {
			return fmt.Errorf("controllers: unknown profile %q for device %d", b.Profile, b.Device)
		}
	}
	return nil
}

func (c *Config) panelConfig() controller.Config {
	cfg := controller.Config{SceneNameMaxLength: c.Scenes.NameMaxLength}
	if len(c.Controllers) > 0 {
		cfg.Bindings = make(map[int]string, len(c.Controllers))
		for _, b := range c.Controllers {
			cfg.Bindings[b.Device] = b.Profile
		}
	}
	return cfg
}

func main() {
	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}

	profiles := profile.DefaultRegistry()
	if err := cfg.validate(profiles); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("scenepanel starting", "version", version, "profiles", len(profiles.All()))

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		logger.Error("open store", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	sceneDB, err := scene.OpenSQLite(cfg.Scenes.Path)
	if err != nil {
		logger.Error("open scene registry", "err", err)
		os.Exit(1)
	}
	defer sceneDB.Close()

	// The MQTT bridge carries actions to the host; without it actions are
	// only logged.
	mqtt := initMQTT(cfg, logger)
	invoker := mqtt.invoker()
	if invoker == nil {
		invoker = controller.LogInvoker{Logger: logger}
	}

	events := controller.NewEventBus(logger)
	panel := controller.New(db, profiles, scene.NewSQLiteRegistry(sceneDB), invoker, events, cfg.panelConfig(), logger)
	mqtt.start(panel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zw, err := startZwint(ctx, cfg, events, logger)
	if err != nil {
		logger.Error("start zwint", "err", err)
		os.Exit(1)
	}

	// Start automation engine (no-op when built with no_automation tag).
	auto, autoWebOpts := initAutomation(panel, zw.engine, cfg, logger)

	var webOpts []web.ServerOption
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, web.WithVersion(version))
	webOpts = append(webOpts, autoWebOpts...)

	webServer, err := web.NewServer(panel, logger, webOpts...)
	if err != nil {
		logger.Error("create web server", "err", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	case <-zw.done:
		logger.Error("zwint proxy stopped, shutting down")
	}
	signal.Stop(sigCh)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()
	cancel()
	zw.wait()

	logger.Info("goodbye")
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "scenepanel.db"
	}
	if cfg.Scenes.Path == "" {
		cfg.Scenes.Path = "scenes.db"
	}
	if cfg.Scenes.NameMaxLength == 0 {
		cfg.Scenes.NameMaxLength = controller.DefaultSceneNameLength
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "scenepanel"
	}
	if cfg.Zwint.BaudRate == 0 {
		cfg.Zwint.BaudRate = 115200
	}
	if cfg.Zwint.Listen == "" {
		cfg.Zwint.Listen = "127.0.0.1:4242"
	}
	if cfg.Automation.ScriptsDir == "" {
		cfg.Automation.ScriptsDir = "scripts"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
