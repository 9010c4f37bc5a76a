package zwint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"go.bug.st/serial"
)

// OpenSerial opens a Z-Wave controller at 8N1.
func OpenSerial(path string, baudRate int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("zwint: open %s: %w", path, err)
	}
	return port, nil
}

// Proxy relays a controller port to one host connection at a time through an
// Engine.
type Proxy struct {
	engine   *Engine
	port     io.ReadWriteCloser
	listener net.Listener
	logger   *slog.Logger

	mu   sync.Mutex
	conn net.Conn
	wg   sync.WaitGroup
}

// NewProxy creates a proxy between port and hosts accepted on listener.
func NewProxy(engine *Engine, port io.ReadWriteCloser, listener net.Listener, logger *slog.Logger) *Proxy {
	return &Proxy{
		engine:   engine,
		port:     port,
		listener: listener,
		logger:   logger.With("component", "zwint-proxy"),
	}
}

// Addr returns the address hosts connect to.
func (p *Proxy) Addr() net.Addr {
	return p.listener.Addr()
}

// Run relays traffic until parent is done or the controller port fails. It
// closes the port and listener on return.
func (p *Proxy) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	p.engine.Attach(io.Discard, p.port)

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.engine.Run(ctx)
	}()

	portErr := make(chan error, 1)
	go func() {
		defer p.wg.Done()
		portErr <- p.readController()
		cancel()
	}()

	go func() {
		<-ctx.Done()
		p.listener.Close()
		p.port.Close()
		p.mu.Lock()
		if p.conn != nil {
			p.conn.Close()
		}
		p.mu.Unlock()
	}()

	for {
		conn, err := p.listener.Accept()
		if err != nil {
			break
		}
		p.serveHost(conn)
	}
	cancel()
	p.wg.Wait()

	err := <-portErr
	if parent.Err() != nil {
		return nil
	}
	return err
}

// serveHost replaces the current host connection with conn.
func (p *Proxy) serveHost(conn net.Conn) {
	p.mu.Lock()
	if p.conn != nil {
		p.logger.Info("host replaced", "old", p.conn.RemoteAddr(), "new", conn.RemoteAddr())
		p.conn.Close()
	}
	p.conn = conn
	p.mu.Unlock()

	p.engine.Attach(conn, p.port)
	p.logger.Info("host connected", "remote", conn.RemoteAddr())

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.readHost(conn)
	}()
}

func (p *Proxy) readHost(conn net.Conn) {
	defer func() {
		p.mu.Lock()
		if p.conn == conn {
			p.conn = nil
			p.engine.Attach(io.Discard, p.port)
		}
		p.mu.Unlock()
		conn.Close()
		p.logger.Info("host disconnected", "remote", conn.RemoteAddr())
	}()

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := p.engine.FromHost(buf[:n]); werr != nil {
				p.logger.Error("controller write", "err", werr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (p *Proxy) readController() error {
	buf := make([]byte, 1024)
	for {
		n, err := p.port.Read(buf)
		if n > 0 {
			if werr := p.engine.FromController(buf[:n]); werr != nil {
				// The host went away; the next Attach restores the link.
				p.logger.Warn("host write", "err", werr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
