package automation

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/gopher-lua/parse"
	"gopkg.in/yaml.v3"
)

var (
	// ErrScriptNotFound is returned for ids with no script file.
	ErrScriptNotFound = errors.New("script not found")
	// ErrInvalidScript is returned when a script cannot be saved as given.
	ErrInvalidScript = errors.New("invalid script")
)

const (
	headerOpen  = "--[[\n"
	headerClose = "]]\n"
)

var scriptIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Manager handles loading, saving, and listing automation scripts from disk.
type Manager struct {
	dir    string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewManager creates a new script manager rooted at dir.
// It ensures the directory exists.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	return &Manager{dir: dir, logger: logger.With("component", "scripts")}, nil
}

func (m *Manager) path(id string) (string, error) {
	if !scriptIDRe.MatchString(id) {
		return "", fmt.Errorf("%w: id %q", ErrScriptNotFound, id)
	}
	return filepath.Join(m.dir, id+".lua"), nil
}

// List returns all scripts found in the directory.
func (m *Manager) List() ([]*Script, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read scripts dir: %w", err)
	}

	var scripts []*Script
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lua") {
			continue
		}
		s, err := m.parseFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			m.logger.Warn("skip script", "file", e.Name(), "err", err)
			continue
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// ForController returns the scripts that handle events of device: those
// bound to it and those bound to no controller.
func (m *Manager) ForController(device int) ([]*Script, error) {
	scripts, err := m.List()
	if err != nil {
		return nil, err
	}
	var out []*Script
	for _, s := range scripts {
		if s.Watches(device) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Get returns a single script by ID (filename stem).
func (m *Manager) Get(id string) (*Script, error) {
	path, err := m.path(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseFile(path)
}

// Save validates and writes a script. A script without an ID gets one
// derived from its name.
func (m *Manager) Save(s *Script) (*Script, error) {
	if err := validate(s); err != nil {
		return nil, err
	}
	content, err := serializeScript(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = slugify(s.Meta.Name)
		if s.ID == "" {
			s.ID = "script"
		}
		base := s.ID
		for i := 1; ; i++ {
			if _, err := os.Stat(filepath.Join(m.dir, s.ID+".lua")); errors.Is(err, fs.ErrNotExist) {
				break
			}
			s.ID = fmt.Sprintf("%s_%d", base, i)
		}
	}
	path, err := m.path(s.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrInvalidScript, s.ID)
	}

	s.FilePath = path
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}
	m.logger.Info("script saved", "id", s.ID, "controllers", s.Meta.Controllers)
	return s, nil
}

// Delete removes a script file by ID.
func (m *Manager) Delete(id string) error {
	path, err := m.path(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrScriptNotFound, id)
		}
		return fmt.Errorf("delete script: %w", err)
	}
	return nil
}

// validate rejects scripts without a name, with bad controller ids or with
// Lua that does not compile.
func validate(s *Script) error {
	if strings.TrimSpace(s.Meta.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScript)
	}
	for _, c := range s.Meta.Controllers {
		if c <= 0 {
			return fmt.Errorf("%w: controller %d", ErrInvalidScript, c)
		}
	}
	if _, err := parse.Parse(strings.NewReader(s.LuaCode), s.Meta.Name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	return nil
}

// parseFile reads a .lua script file. A YAML header in a leading long
// comment holds the metadata; files without one are plain code.
func (m *Manager) parseFile(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, filepath.Base(path))
		}
		return nil, err
	}

	s := &Script{
		ID:       strings.TrimSuffix(filepath.Base(path), ".lua"),
		FilePath: path,
	}

	code := string(data)
	if rest, ok := strings.CutPrefix(code, headerOpen); ok {
		header, body, found := strings.Cut(rest, headerClose)
		if !found {
			return nil, fmt.Errorf("%s: unterminated header", filepath.Base(path))
		}
		if err := yaml.Unmarshal([]byte(header), &s.Meta); err != nil {
			return nil, fmt.Errorf("%s: header: %w", filepath.Base(path), err)
		}
		code = body
	}
	s.LuaCode = strings.TrimLeft(code, "\n")
	return s, nil
}

// serializeScript assembles a script file from its parts.
func serializeScript(s *Script) ([]byte, error) {
	header, err := yaml.Marshal(s.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	if bytes.Contains(header, []byte("]]")) {
		return nil, fmt.Errorf("%w: metadata may not contain \"]]\"", ErrInvalidScript)
	}

	var b bytes.Buffer
	b.WriteString(headerOpen)
	b.Write(header)
	b.WriteString(headerClose)
	if s.LuaCode != "" {
		b.WriteString("\n")
		b.WriteString(s.LuaCode)
		if !strings.HasSuffix(s.LuaCode, "\n") {
			b.WriteString("\n")
		}
	}
	return b.Bytes(), nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
