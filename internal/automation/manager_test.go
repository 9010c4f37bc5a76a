package automation

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scripts")
	m, err := NewManager(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManagerListEmpty(t *testing.T) {
	m := newTestManager(t)
	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 0 {
		t.Errorf("list count = %d, want 0", len(scripts))
	}
}

func TestManagerSaveAndGet(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{
		Meta: ScriptMeta{
			Name:        "Hall Keypad",
			Description: "Follow screen changes",
			Enabled:     true,
			Controllers: []int{10, 30},
		},
		LuaCode: `panel.log("hello")`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "hall_keypad" {
		t.Errorf("id = %q, want hall_keypad", saved.ID)
	}

	got, err := m.Get(saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Meta, saved.Meta) {
		t.Errorf("meta = %+v, want %+v", got.Meta, saved.Meta)
	}
	if strings.TrimSpace(got.LuaCode) != `panel.log("hello")` {
		t.Errorf("lua_code = %q", got.LuaCode)
	}
}

func TestManagerSaveExistingID(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{
		ID:      "my_script",
		Meta:    ScriptMeta{Name: "My Script", Enabled: true},
		LuaCode: `panel.log("v1")`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "my_script" {
		t.Errorf("id = %q, want my_script", saved.ID)
	}

	saved.LuaCode = `panel.log("v2")`
	if _, err := m.Save(saved); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get("my_script")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.LuaCode, `panel.log("v2")`) {
		t.Errorf("lua_code after update = %q", got.LuaCode)
	}
}

func TestManagerSaveRejects(t *testing.T) {
	m := newTestManager(t)

	tests := []struct {
		name   string
		script *Script
	}{
		{"no name", &Script{LuaCode: `panel.log(1)`}},
		{"blank name", &Script{Meta: ScriptMeta{Name: "  "}}},
		{"syntax error", &Script{Meta: ScriptMeta{Name: "Broken"}, LuaCode: `panel.log(`}},
		{"bad controller", &Script{Meta: ScriptMeta{Name: "Bad", Controllers: []int{10, 0}}}},
		{"header terminator", &Script{Meta: ScriptMeta{Name: "a]]b"}}},
		{"bad id", &Script{ID: "../up", Meta: ScriptMeta{Name: "Up"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Save(tt.script); !errors.Is(err, ErrInvalidScript) {
				t.Errorf("err = %v, want ErrInvalidScript", err)
			}
		})
	}

	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 0 {
		t.Errorf("rejected scripts were written: %d", len(scripts))
	}
}

func TestManagerList(t *testing.T) {
	m := newTestManager(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		if _, err := m.Save(&Script{Meta: ScriptMeta{Name: name}, LuaCode: `panel.log("` + name + `")`}); err != nil {
			t.Fatal(err)
		}
	}
	// Not a script.
	if err := os.WriteFile(filepath.Join(m.dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Broken header.
	if err := os.WriteFile(filepath.Join(m.dir, "broken.lua"), []byte("--[[\nname: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 3 {
		t.Fatalf("list count = %d, want 3", len(scripts))
	}
}

func TestManagerForController(t *testing.T) {
	m := newTestManager(t)

	for _, s := range []*Script{
		{ID: "hall", Meta: ScriptMeta{Name: "Hall", Controllers: []int{10}}},
		{ID: "both", Meta: ScriptMeta{Name: "Both", Controllers: []int{10, 30}}},
		{ID: "any", Meta: ScriptMeta{Name: "Any"}},
	} {
		if _, err := m.Save(s); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		device int
		want   []string
	}{
		{10, []string{"any", "both", "hall"}},
		{30, []string{"any", "both"}},
		{40, []string{"any"}},
	}
	for _, tt := range tests {
		scripts, err := m.ForController(tt.device)
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, s := range scripts {
			ids = append(ids, s.ID)
		}
		if !reflect.DeepEqual(ids, tt.want) {
			t.Errorf("ForController(%d) = %v, want %v", tt.device, ids, tt.want)
		}
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{Meta: ScriptMeta{Name: "ToDelete"}, LuaCode: `panel.log("bye")`})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(saved.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrScriptNotFound", err)
	}
	if err := m.Delete(saved.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("second Delete: err = %v, want ErrScriptNotFound", err)
	}
}

func TestManagerRejectsBadIDs(t *testing.T) {
	m := newTestManager(t)
	for _, id := range []string{"", "..", "../etc/passwd", `a\b`, "_inline", "a b"} {
		if _, err := m.Get(id); !errors.Is(err, ErrScriptNotFound) {
			t.Errorf("Get(%q): err = %v", id, err)
		}
		if err := m.Delete(id); !errors.Is(err, ErrScriptNotFound) {
			t.Errorf("Delete(%q): err = %v", id, err)
		}
	}
}

func TestManagerUniqueID(t *testing.T) {
	m := newTestManager(t)

	s1, err := m.Save(&Script{Meta: ScriptMeta{Name: "Dup"}, LuaCode: `panel.log("1")`})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.Save(&Script{Meta: ScriptMeta{Name: "Dup"}, LuaCode: `panel.log("2")`})
	if err != nil {
		t.Fatal(err)
	}
	if s1.ID == s2.ID {
		t.Errorf("expected unique IDs, got %q for both", s1.ID)
	}
	if s2.ID != "dup_1" {
		t.Errorf("second id = %q, want dup_1", s2.ID)
	}
}

func TestParseScriptFile(t *testing.T) {
	dir := t.TempDir()
	content := `--[[
name: Night Mode
description: Switch to screen P2 on timeout
enabled: true
controllers: [10]
]]

panel.on("zwint_monitor", {device=10, key="scene"}, function(event)
    panel.set_screen(10, "P2")
end)
`
	path := filepath.Join(dir, "night.lua")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manager{dir: dir, logger: testLogger()}
	s, err := m.parseFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.ID != "night" {
		t.Errorf("id = %q, want night", s.ID)
	}
	want := ScriptMeta{Name: "Night Mode", Description: "Switch to screen P2 on timeout", Enabled: true, Controllers: []int{10}}
	if !reflect.DeepEqual(s.Meta, want) {
		t.Errorf("meta = %+v, want %+v", s.Meta, want)
	}
	if !strings.HasPrefix(s.LuaCode, `panel.on("zwint_monitor"`) {
		t.Errorf("lua_code = %q", s.LuaCode)
	}
}

func TestParseScriptFileWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.lua")
	if err := os.WriteFile(path, []byte("-- plain comment\npanel.log(1)\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := &Manager{dir: dir, logger: testLogger()}
	s, err := m.parseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Meta.Name != "" || s.Meta.Enabled || s.Meta.Controllers != nil {
		t.Errorf("meta = %+v, want zero", s.Meta)
	}
	if !strings.HasPrefix(s.LuaCode, "-- plain comment") {
		t.Errorf("lua_code = %q", s.LuaCode)
	}
}

func TestSerializeScript(t *testing.T) {
	tests := []struct {
		name   string
		script *Script
		want   string
	}{
		{
			"all fields",
			&Script{
				Meta:    ScriptMeta{Name: "Test", Description: "desc", Enabled: true},
				LuaCode: `panel.log("hi")`,
			},
			"--[[\nname: Test\ndescription: desc\nenabled: true\n]]\n\npanel.log(\"hi\")\n",
		},
		{
			"controllers",
			&Script{Meta: ScriptMeta{Name: "Hall", Controllers: []int{10, 30}}},
			"--[[\nname: Hall\nenabled: false\ncontrollers: [10, 30]\n]]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := serializeScript(tt.script)
			if err != nil {
				t.Fatal(err)
			}
			if string(content) != tt.want {
				t.Errorf("content = %q, want %q", content, tt.want)
			}
		})
	}
}

func TestScriptWatches(t *testing.T) {
	bound := &Script{Meta: ScriptMeta{Controllers: []int{10}}}
	free := &Script{}
	tests := []struct {
		script *Script
		device int
		want   bool
	}{
		{bound, 10, true},
		{bound, 30, false},
		{bound, 0, true},
		{free, 30, true},
	}
	for _, tt := range tests {
		if got := tt.script.Watches(tt.device); got != tt.want {
			t.Errorf("Watches(%d) with %v = %v, want %v", tt.device, tt.script.Meta.Controllers, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Bathroom Light", "bathroom_light"},
		{"hello world!", "hello_world"},
		{"", ""},
		{"  spaces  ", "spaces"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		if got := slugify(tt.input); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
