package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"scenepanel/internal/controller"
	"scenepanel/internal/zwint"
)

// zwintRunner is the running serial interceptor. Its engine is nil when the
// interceptor is disabled.
type zwintRunner struct {
	engine *zwint.Engine
	done   chan struct{}
}

func (z *zwintRunner) wait() {
	if z.engine != nil {
		<-z.done
	}
}

// startZwint opens the controller port and serves the host link until ctx is
// done. Notifications are published on the panel's event bus.
func startZwint(ctx context.Context, cfg *Config, events *controller.EventBus, logger *slog.Logger) (*zwintRunner, error) {
	// done stays open while disabled, so it never ends the main select.
	z := &zwintRunner{done: make(chan struct{})}
	if !cfg.Zwint.Enabled {
		return z, nil
	}

	port, err := zwint.OpenSerial(cfg.Zwint.Port, cfg.Zwint.BaudRate)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.Zwint.Listen)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("zwint listen: %w", err)
	}

	z.engine = zwint.NewEngine(cfg.Zwint.Port, func(n zwint.Notification) {
		events.Emit(controller.Event{Type: n.Kind.EventType(), Device: n.Device, Data: n})
	}, logger)
	proxy := zwint.NewProxy(z.engine, port, ln, logger)

	go func() {
		defer close(z.done)
		if err := proxy.Run(ctx); err != nil {
			logger.Error("zwint proxy", "err", err)
		}
	}()
	logger.Info("zwint proxy started", "port", cfg.Zwint.Port, "listen", proxy.Addr().String())
	return z, nil
}
