//go:build !no_automation

package automation

import (
	"encoding/json"
	"errors"

	"scenepanel/internal/mode"
	"scenepanel/internal/profile"
	"scenepanel/internal/scene"
	"scenepanel/internal/store"

	lua "github.com/yuin/gopher-lua"
)

const maxHandlersPerScript = 100

// registerPanelModule registers the `panel` global table in a Lua state.
func registerPanelModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()
	fns := map[string]lua.LGFunction{
		"on":            func(L *lua.LState) int { return panelOn(L, vm) },
		"log":           func(L *lua.LState) int { return panelLog(L, vm, e) },
		"parse_mode":    func(L *lua.LState) int { return panelParseMode(L, e) },
		"generate_mode": func(L *lua.LState) int { return panelGenerateMode(L, e) },
		"scene_number":  func(L *lua.LState) int { return panelSceneNumber(L, e) },
		"classify":      func(L *lua.LState) int { return panelClassify(L, e) },
		"get":           func(L *lua.LState) int { return panelGet(L, e) },
		"set":           func(L *lua.LState) int { return panelSet(L, e) },
		"set_screen":    func(L *lua.LState) int { return panelSetScreen(L, vm, e) },
		"controllers":   func(L *lua.LState) int { return panelControllers(L, e) },
	}
	for name, fn := range fns {
		mod.RawSetString(name, L.NewFunction(fn))
	}
	L.SetGlobal("panel", mod)
}

// luaFail pushes the nil, message pair scripts test for.
func luaFail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// toLua converts any JSON-encodable value to a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	raw, err := json.Marshal(v)
	if err != nil {
		return lua.LNil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return lua.LNil
	}
	return goToLua(L, out)
}

func checkProfile(L *lua.LState, n int, e *Engine) *profile.Profile {
	id := L.CheckString(n)
	p, ok := e.panel.Profiles().Get(id)
	if !ok {
		L.ArgError(n, "unknown profile: "+id)
	}
	return p
}

// panel.on(type, [filter], callback)
func panelOn(L *lua.LState, vm *scriptVM) int {
	h := luaEventHandler{eventType: L.CheckString(1)}
	if L.GetTop() >= 3 {
		filter := L.CheckTable(2)
		if v, ok := filter.RawGetString("device").(lua.LNumber); ok {
			h.device = int(v)
		}
		if v := filter.RawGetString("key"); v != lua.LNil {
			h.key = v.String()
		}
		h.fn = L.CheckFunction(3)
	} else {
		h.fn = L.CheckFunction(2)
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(vm.handlers) >= maxHandlersPerScript {
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, h)
	return 0
}

// panel.log(msg)
func panelLog(L *lua.LState, vm *scriptVM, e *Engine) int {
	msg := L.CheckString(1)
	e.logger.Info("script log", "msg", msg)
	vm.log(msg)
	return 0
}

// panel.parse_mode(profile, str) -> descriptor, canonical, [err]
func panelParseMode(L *lua.LState, e *Engine) int {
	p := checkProfile(L, 1, e)
	d, err := mode.ParseStrict(p, L.OptString(2, ""), nil)
	L.Push(toLua(L, d))
	L.Push(lua.LString(mode.Generate(p, d)))
	if err != nil {
		L.Push(lua.LString(err.Error()))
		return 3
	}
	return 2
}

// panel.generate_mode(profile, descriptor) -> str
func panelGenerateMode(L *lua.LState, e *Engine) int {
	p := checkProfile(L, 1, e)
	raw, err := json.Marshal(luaToGo(L.CheckTable(2)))
	if err != nil {
		return luaFail(L, err)
	}
	var d mode.Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return luaFail(L, err)
	}
	mode.Normalize(p, &d)
	if err := mode.Validate(d); err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LString(mode.Generate(p, d)))
	return 1
}

// panel.scene_number(profile, screen, button, [state]) -> number
func panelSceneNumber(L *lua.LState, e *Engine) int {
	p := checkProfile(L, 1, e)
	screen, err := profile.ParseScreenAddress(L.CheckString(2))
	if err != nil {
		return luaFail(L, err)
	}
	n, err := scene.Number(p, screen, L.CheckInt(3), L.OptInt(4, 1))
	if err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LNumber(n))
	return 1
}

// panel.classify(device) -> record
func panelClassify(L *lua.LState, e *Engine) int {
	L.Push(toLua(L, e.panel.Classify(L.CheckInt(1))))
	return 1
}

// panel.get(device, name, [service]) -> value or nil
func panelGet(L *lua.LState, e *Engine) int {
	device := L.CheckInt(1)
	name := L.CheckString(2)
	service := L.OptString(3, profile.ServiceID)
	v, err := e.panel.Store().GetVariable(device, service, name)
	if errors.Is(err, store.ErrNotFound) {
		L.Push(lua.LNil)
		return 1
	}
	if err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LString(v))
	return 1
}

// panel.set(device, name, value, [service]) -> true
func panelSet(L *lua.LState, e *Engine) int {
	device := L.CheckInt(1)
	name := L.CheckString(2)
	value := L.CheckAny(3)
	service := L.OptString(4, profile.ServiceID)
	if value == lua.LNil {
		L.ArgError(3, "value expected")
		return 0
	}
	if err := e.panel.Store().SetVariable(device, service, name, value.String()); err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// panel.set_screen(device, screen) -> true
func panelSetScreen(L *lua.LState, vm *scriptVM, e *Engine) int {
	device := L.CheckInt(1)
	screen, err := profile.ParseScreenAddress(L.CheckString(2))
	if err != nil {
		return luaFail(L, err)
	}
	if err := e.panel.SetScreen(vm.ctx, device, screen); err != nil {
		return luaFail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// panel.controllers() -> list
func panelControllers(L *lua.LState, e *Engine) int {
	cs, err := e.panel.Controllers()
	if err != nil {
		return luaFail(L, err)
	}
	t := L.NewTable()
	for _, c := range cs {
		t.Append(toLua(L, c))
	}
	L.Push(t)
	return 1
}
