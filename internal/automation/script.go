package automation

import "slices"

// ScriptMeta holds user-editable metadata for a script. It is stored as a
// YAML block in a Lua long comment at the top of the script file.
type ScriptMeta struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	// Controllers restricts the script to events of these controllers.
	// Empty means every controller.
	Controllers []int `json:"controllers,omitempty" yaml:"controllers,omitempty,flow"`
}

// Script represents a single automation script stored on disk.
type Script struct {
	ID       string     `json:"id"` // filename stem (no .lua)
	Meta     ScriptMeta `json:"meta"`
	LuaCode  string     `json:"lua_code"` // raw Lua source (without header)
	FilePath string     `json:"-"`
}

// Watches reports whether the script handles events of device. Events not
// tied to a device reach every script.
func (s *Script) Watches(device int) bool {
	return device == 0 || len(s.Meta.Controllers) == 0 || slices.Contains(s.Meta.Controllers, device)
}

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}
