package zwint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Version of the zwint module reported to scripts.
const Version = 1.05

var (
	// ErrNotRegistered is returned by Unregister when no registration is active.
	ErrNotRegistered = errors.New("zwint: not registered")
	// ErrPortMismatch is returned by Register for a path other than the one
	// already registered or being proxied.
	ErrPortMismatch = errors.New("zwint: device path does not match registered port")
)

// Kind is the kind of a notification.
type Kind string

const (
	KindMonitor   Kind = "Monitor"
	KindIntercept Kind = "Intercept"
	KindTimeout   Kind = "Timeout"
	KindError     Kind = "Error"
)

// EventType is the panel event name carrying notifications of this kind.
func (k Kind) EventType() string {
	return "zwint_" + strings.ToLower(string(k))
}

// Notification reports a match, a timeout or a failure of a monitor.
type Notification struct {
	Kind     Kind              `json:"kind"`
	Device   int               `json:"device"`
	Key      string            `json:"key"`
	Time     time.Time         `json:"time"`
	Data     string            `json:"data,omitempty"`
	Captures map[string]string `json:"captures,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Notifier receives notifications. It is called without engine locks held.
type Notifier func(Notification)

// Monitor describes a pattern watched on the serial link.
//
// A monitor (Intercept false) matches controller to host frames, an intercept
// matches host to controller frames. With an ArmPattern the entry starts
// disarmed and is armed by a frame in the opposite direction.
type Monitor struct {
	Device     int
	Key        string
	Pattern    string
	Oneshot    bool
	Timeout    time.Duration
	ArmPattern string
	Response   string
	Forward    bool
	Intercept  bool
}

type entry struct {
	Monitor
	pattern  *regexp.Regexp
	arm      *regexp.Regexp
	armed    bool
	deadline time.Time // zero when the entry never expires
}

// compile builds a case-insensitive, leftmost-longest matcher.
func compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	re.Longest()
	return re, nil
}

// stream is one direction of the link. src is the side frames arrive from,
// dst the side they are relayed to.
type stream struct {
	send     bool // host to controller
	src, dst io.Writer

	frame []byte
	out   []byte

	parts    [][]byte
	part     int
	partsDst io.Writer
}

// Engine relays bytes between a Z-Wave controller and its host, matching
// complete frames against monitors and intercepts.
type Engine struct {
	mu         sync.Mutex
	port       string
	registered int
	entries    []*entry
	host       *stream // host to controller
	ctrl       *stream // controller to host
	pending    []Notification
	holdoff    bool
	wake       chan struct{}
	now        func() time.Time
	notify     Notifier
	logger     *slog.Logger
}

// NewEngine creates an engine for the controller at port. notify may be nil.
func NewEngine(port string, notify Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		port:   port,
		host:   &stream{send: true, src: io.Discard, dst: io.Discard},
		ctrl:   &stream{src: io.Discard, dst: io.Discard},
		wake:   make(chan struct{}, 1),
		now:    time.Now,
		notify: notify,
		logger: logger.With("component", "zwint"),
	}
}

// Attach sets the writers bytes are relayed to. host receives controller
// traffic and responses to the host, controller the reverse.
func (e *Engine) Attach(host, controller io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.host.src, e.host.dst = host, controller
	e.ctrl.src, e.ctrl.dst = controller, host
	e.host.frame, e.ctrl.frame = nil, nil
	e.host.parts, e.ctrl.parts = nil, nil
	e.holdoff = false
}

// Register takes a reference on the engine for the serial device at path.
func (e *Engine) Register(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if path == "" {
		return fmt.Errorf("zwint: empty device path")
	}
	if e.port != "" && path != e.port {
		return ErrPortMismatch
	}
	e.port = path
	e.registered++
	return nil
}

// Unregister drops a reference. The entries of device are canceled, or all
// entries when device is negative or the last reference is dropped.
func (e *Engine) Unregister(device int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registered <= 0 {
		return ErrNotRegistered
	}
	e.registered--
	if e.registered == 0 {
		device = -1
	}
	kept := e.entries[:0]
	for _, en := range e.entries {
		if device < 0 || en.Device == device {
			continue
		}
		kept = append(kept, en)
	}
	clear(e.entries[len(kept):])
	e.entries = kept
	return nil
}

// Registered reports the number of active registrations.
func (e *Engine) Registered() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registered
}

// Add installs a monitor or intercept.
func (e *Engine) Add(m Monitor) error {
	en := &entry{Monitor: m, armed: m.ArmPattern == ""}
	var err error
	if en.pattern, err = compile(m.Pattern); err != nil {
		return fmt.Errorf("zwint: pattern: %w", err)
	}
	if m.ArmPattern != "" {
		if en.arm, err = compile(m.ArmPattern); err != nil {
			return fmt.Errorf("zwint: arm pattern: %w", err)
		}
	}

	e.mu.Lock()
	if m.Timeout > 0 {
		en.deadline = e.now().Add(m.Timeout)
	}
	e.insert(en)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return nil
}

// insert keeps entries ordered by deadline, soonest first, entries without a
// deadline last. A new entry goes before existing entries with the same
// deadline.
func (e *Engine) insert(en *entry) {
	i := 0
	for ; i < len(e.entries); i++ {
		if !later(en.deadline, e.entries[i].deadline) {
			break
		}
	}
	e.entries = append(e.entries, nil)
	copy(e.entries[i+1:], e.entries[i:])
	e.entries[i] = en
}

func later(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return !b.IsZero()
	case b.IsZero():
		return false
	}
	return a.After(b)
}

// Cancel removes the first entry with the given device and key. It reports
// whether one was found.
func (e *Engine) Cancel(device int, key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, en := range e.entries {
		if en.Device == device && en.Key == key {
			e.remove(i)
			return true
		}
	}
	return false
}

func (e *Engine) remove(i int) {
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
}

// Monitors returns a copy of the installed entries in match order.
func (e *Engine) Monitors() []Monitor {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Monitor, len(e.entries))
	for i, en := range e.entries {
		out[i] = en.Monitor
	}
	return out
}

// FromHost processes bytes written by the host toward the controller.
func (e *Engine) FromHost(data []byte) error {
	return e.process(e.host, data)
}

// FromController processes bytes read from the controller toward the host.
func (e *Engine) FromController(data []byte) error {
	return e.process(e.ctrl, data)
}

func (e *Engine) process(s *stream, data []byte) error {
	e.mu.Lock()
	err := e.scan(s, data)
	notes := e.takePending()
	e.mu.Unlock()

	e.deliver(notes)
	return err
}

// scan runs the byte state machine of one direction. Bytes outside frames and
// frames with a bad checksum pass through unchanged.
func (e *Engine) scan(s *stream, data []byte) error {
	for _, c := range data {
		if len(s.frame) == 0 {
			if s.send && s.parts != nil {
				if c == ACK {
					if err := e.nextPart(s); err != nil {
						return err
					}
					continue
				}
				s.parts = nil
				e.holdoff = false
			}
			if c == SOF {
				s.frame = append(s.frame, c)
				continue
			}
			s.out = append(s.out, c)
			continue
		}

		if len(s.frame) == 1 && c >= maxFrameSize {
			// Not a frame. Relay SOF and this byte as plain data.
			s.out = append(s.out, s.frame[0], c)
			s.frame = s.frame[:0]
			continue
		}
		s.frame = append(s.frame, c)
		if len(s.frame) < 3 || len(s.frame) < int(s.frame[1])+2 {
			continue
		}

		frame := s.frame
		s.frame = nil
		if err := Verify(frame); err != nil {
			e.logger.Debug("frame passed through", "data", Hex(frame), "err", err)
			s.out = append(s.out, frame...)
			continue
		}
		intercepted, err := e.match(s, frame)
		if err != nil {
			return err
		}
		if !intercepted {
			s.out = append(s.out, frame...)
		}
	}
	return s.flush()
}

func (s *stream) flush() error {
	if len(s.out) == 0 {
		return nil
	}
	_, err := s.dst.Write(s.out)
	s.out = s.out[:0]
	return err
}

// nextPart swallows a host ACK and writes the next response part, if any.
func (e *Engine) nextPart(s *stream) error {
	s.part++
	if s.part < len(s.parts) {
		if err := s.flush(); err != nil {
			return err
		}
		_, err := s.partsDst.Write(s.parts[s.part])
		return err
	}
	s.parts = nil
	e.holdoff = false
	return nil
}

// match runs a verified frame against the entries. It reports whether the
// frame was replaced by a response.
func (e *Engine) match(s *stream, frame []byte) (bool, error) {
	hex := Hex(frame)
	for i := 0; i < len(e.entries); i++ {
		en := e.entries[i]
		// Armed entries watch their own direction, disarmed ones the other.
		if (en.Intercept == s.send) != en.armed {
			continue
		}
		re := en.pattern
		if !en.armed {
			re = en.arm
		}
		loc := re.FindStringSubmatchIndex(hex)
		if loc == nil {
			continue
		}
		if !en.armed {
			en.armed = true
			e.logger.Debug("armed", "key", en.Key, "device", en.Device)
			continue
		}

		intercepted := false
		if en.Response != "" {
			parts, err := renderResponse(en.Response, frame, loc)
			if err != nil {
				e.queue(Notification{Kind: KindError, Device: en.Device, Key: en.Key, Error: err.Error()})
				return false, nil
			}
			dst := s.src
			if en.Forward {
				dst = s.dst
			}
			if err := s.flush(); err != nil {
				return false, err
			}
			if _, err := dst.Write(parts[0]); err != nil {
				return false, err
			}
			s.parts, s.part, s.partsDst = nil, 0, dst
			if s.send {
				s.parts = parts
				e.holdoff = true
			}
			intercepted = true
		}

		kind := KindMonitor
		if s.send {
			kind = KindIntercept
		}
		e.queue(Notification{Kind: kind, Device: en.Device, Key: en.Key, Data: hex, Captures: captures(hex, loc)})

		if en.arm != nil {
			en.armed = false
		}
		if en.Oneshot {
			e.remove(i)
			i--
		}
		if intercepted {
			return true, nil
		}
	}
	return false, nil
}

// captures returns C1..C9 for the groups that took part in the match, or C0
// with the whole match when group 1 did not.
func captures(hex string, loc []int) map[string]string {
	from, to := 1, 9
	if len(loc) < 4 || loc[2] < 0 {
		from, to = 0, 0
	}
	out := make(map[string]string)
	for n := from; n <= to && 2*n+1 < len(loc); n++ {
		if loc[2*n] < 0 {
			continue
		}
		out["C"+strconv.Itoa(n)] = hex[loc[2*n]:loc[2*n+1]]
	}
	return out
}

func (e *Engine) queue(n Notification) {
	if strings.HasPrefix(n.Key, "*") {
		return
	}
	n.Time = e.now()
	e.pending = append(e.pending, n)
}

// takePending returns queued notifications unless a multi-part response is
// still waiting for host acknowledgements.
func (e *Engine) takePending() []Notification {
	if e.holdoff || len(e.pending) == 0 {
		return nil
	}
	notes := e.pending
	e.pending = nil
	return notes
}

func (e *Engine) deliver(notes []Notification) {
	for _, n := range notes {
		e.logger.Debug("notification", "kind", n.Kind, "device", n.Device, "key", n.Key)
		if e.notify != nil {
			e.notify(n)
		}
	}
}

// Expire removes entries whose deadline is not after now and notifies a
// timeout for each. It returns the next deadline, zero when none is pending.
func (e *Engine) Expire(now time.Time) time.Time {
	e.mu.Lock()
	for len(e.entries) > 0 {
		en := e.entries[0]
		if en.deadline.IsZero() || en.deadline.After(now) {
			break
		}
		e.queue(Notification{Kind: KindTimeout, Device: en.Device, Key: en.Key})
		e.remove(0)
	}
	var next time.Time
	if len(e.entries) > 0 {
		next = e.entries[0].deadline
	}
	notes := e.takePending()
	e.mu.Unlock()

	e.deliver(notes)
	return next
}

// Run expires entries as their deadlines pass until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		next := e.Expire(e.now())
		wait := time.Hour
		if !next.IsZero() {
			wait = max(time.Until(next), time.Millisecond)
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-e.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}
