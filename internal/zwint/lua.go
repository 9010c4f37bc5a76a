package zwint

import (
	"errors"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Error codes returned to scripts as the second result after nil.
const (
	luaErrNotRegistered = 0
	luaErrPattern       = 1
)

// LuaModule builds the `zwint` table bound to e:
//
//	zwint.register(device_path)
//	zwint.unregister([device])
//	zwint.monitor(device, key, pattern, oneshot, timeout_ms, [arm_pattern], [response], [forward])
//	zwint.intercept(device, key, pattern, oneshot, timeout_ms, [arm_pattern], [response], [forward])
//	zwint.cancel(device, key)
//	zwint.version
//
// Functions return true on success, or nil, code, message.
func (e *Engine) LuaModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"register":   e.luaRegister,
		"unregister": e.luaUnregister,
		"monitor": func(L *lua.LState) int {
			return e.luaMonitor(L, false)
		},
		"intercept": func(L *lua.LState) int {
			return e.luaMonitor(L, true)
		},
		"cancel": e.luaCancel,
	})
	mod.RawSetString("version", lua.LNumber(Version))
	return mod
}

func luaFail(L *lua.LState, code int, msg string) int {
	L.Push(lua.LNil)
	L.Push(lua.LNumber(code))
	L.Push(lua.LString(msg))
	return 3
}

// zwint.register(device_path)
func (e *Engine) luaRegister(L *lua.LState) int {
	path, ok := L.Get(1).(lua.LString)
	if !ok || path == "" {
		L.ArgError(1, "Bad device_path")
		return 0
	}
	if err := e.Register(string(path)); err != nil {
		L.ArgError(1, "Device_path does not match already registered name")
		return 0
	}
	L.Push(lua.LTrue)
	return 1
}

// zwint.unregister([device])
func (e *Engine) luaUnregister(L *lua.LState) int {
	device := -1
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		n, ok := L.Get(1).(lua.LNumber)
		if !ok || float64(n) != float64(int(n)) {
			L.ArgError(1, "Device number not an integer")
			return 0
		}
		device = int(n)
	}
	if err := e.Unregister(device); err != nil {
		if errors.Is(err, ErrNotRegistered) {
			return luaFail(L, luaErrNotRegistered, "Not registered")
		}
		return luaFail(L, luaErrNotRegistered, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) luaMonitor(L *lua.LState, intercept bool) int {
	device, ok := L.Get(1).(lua.LNumber)
	if !ok {
		L.ArgError(1, "Device_num not a number")
		return 0
	}
	key, ok := L.Get(2).(lua.LString)
	if !ok {
		L.ArgError(2, "Key not a string")
		return 0
	}
	pattern, ok := L.Get(3).(lua.LString)
	if !ok {
		L.ArgError(3, "Pattern not a string")
		return 0
	}
	oneshot := lua.LVAsBool(L.Get(4))
	timeout, ok := L.Get(5).(lua.LNumber)
	if !ok {
		L.ArgError(5, "timeout not a number")
		return 0
	}

	m := Monitor{
		Device:    int(device),
		Key:       string(key),
		Pattern:   string(pattern),
		Oneshot:   oneshot,
		Timeout:   time.Duration(int64(timeout)) * time.Millisecond,
		Intercept: intercept,
	}
	if v := L.Get(6); v != lua.LNil {
		s, ok := v.(lua.LString)
		if !ok {
			L.ArgError(6, "Arm_pattern not a string or nil")
			return 0
		}
		m.ArmPattern = string(s)
	}
	if v := L.Get(7); v != lua.LNil {
		s, ok := v.(lua.LString)
		if !ok {
			L.ArgError(7, "Response not a string")
			return 0
		}
		m.Response = string(s)
	}
	if L.GetTop() >= 8 {
		b, ok := L.Get(8).(lua.LBool)
		if !ok {
			L.ArgError(8, "Forward not boolean")
			return 0
		}
		m.Forward = bool(b)
	}

	if err := e.Add(m); err != nil {
		return luaFail(L, luaErrPattern, err.Error())
	}
	L.Push(lua.LTrue)
	return 1
}

// zwint.cancel(device, key)
func (e *Engine) luaCancel(L *lua.LState) int {
	device, ok := L.Get(1).(lua.LNumber)
	if !ok {
		L.ArgError(1, "Device_num not a number")
		return 0
	}
	key, ok := L.Get(2).(lua.LString)
	if !ok {
		L.ArgError(2, "Key not a string")
		return 0
	}
	L.Push(lua.LBool(e.Cancel(int(device), string(key))))
	return 1
}
