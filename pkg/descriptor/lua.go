package descriptor

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// LuaTimeout bounds the evaluation of a single Lua descriptor.
var LuaTimeout = 2 * time.Second

const luaMaxDepth = 32

// evalLua runs a descriptor script in a sandboxed VM and returns the table it
// returns as plain Go values.
//
// The script sees the base, table, string and math libraries (no io, os or
// module loading) plus helpers:
//
//	single(v), uniform(lo, hi)      distributions
//	vec2(x, y), vec3(...), vec4(...) vectors
//	once(n [, immediate]), burst(n, period), rate(n)   spawner presets
func evalLua(ctx context.Context, src []byte) (map[string]any, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("lua: open %s: %w", lib.name, err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
	registerLuaHelpers(L)

	ctx, cancel := context.WithTimeout(ctx, LuaTimeout)
	defer cancel()
	L.SetContext(ctx)

	fn, err := L.LoadString(string(src))
	if err != nil {
		return nil, fmt.Errorf("lua: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, fmt.Errorf("lua: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua: script must return a table, got %s", ret.Type())
	}
	v, err := luaToGo(tbl, 0)
	if err != nil {
		return nil, fmt.Errorf("lua: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("lua: script must return a keyed table")
	}
	return m, nil
}

func registerLuaHelpers(L *lua.LState) {
	L.SetGlobal("single", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("single", L.CheckAny(1))
		L.Push(t)
		return 1
	}))
	L.SetGlobal("uniform", L.NewFunction(func(L *lua.LState) int {
		bounds := L.NewTable()
		bounds.Append(L.CheckAny(1))
		bounds.Append(L.CheckAny(2))
		t := L.NewTable()
		t.RawSetString("uniform", bounds)
		L.Push(t)
		return 1
	}))
	vec := func(n int) lua.LGFunction {
		return func(L *lua.LState) int {
			t := L.NewTable()
			for i := 1; i <= n; i++ {
				t.Append(L.CheckNumber(i))
			}
			L.Push(t)
			return 1
		}
	}
	L.SetGlobal("vec2", L.NewFunction(vec(2)))
	L.SetGlobal("vec3", L.NewFunction(vec(3)))
	L.SetGlobal("vec4", L.NewFunction(vec(4)))

	spawner := func(L *lua.LState, count, spawnTime, period lua.LValue, immediate bool) int {
		t := L.NewTable()
		t.RawSetString("num_particles", count)
		t.RawSetString("spawn_time", spawnTime)
		t.RawSetString("period", period)
		t.RawSetString("starts_active", lua.LTrue)
		t.RawSetString("starts_immediately", lua.LBool(immediate))
		L.Push(t)
		return 1
	}
	L.SetGlobal("once", L.NewFunction(func(L *lua.LState) int {
		return spawner(L, L.CheckAny(1), lua.LNumber(0), lua.LString("+Inf"), L.OptBool(2, true))
	}))
	L.SetGlobal("burst", L.NewFunction(func(L *lua.LState) int {
		return spawner(L, L.CheckAny(1), lua.LNumber(0), L.CheckAny(2), true)
	}))
	L.SetGlobal("rate", L.NewFunction(func(L *lua.LState) int {
		return spawner(L, L.CheckAny(1), lua.LNumber(1), lua.LNumber(1), true)
	}))
}

// luaToGo converts a Lua value into nil, bool, float64, string, []any or map[string]any.
// Tables with only a sequence part become slices; empty tables become nil.
func luaToGo(v lua.LValue, depth int) (any, error) {
	if depth > luaMaxDepth {
		return nil, fmt.Errorf("table nesting deeper than %d", luaMaxDepth)
	}
	switch lv := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(lv), nil
	case lua.LNumber:
		return float64(lv), nil
	case lua.LString:
		return string(lv), nil
	case *lua.LTable:
		n := lv.MaxN()
		total := 0
		lv.ForEach(func(_, _ lua.LValue) { total++ })
		if total == 0 {
			return nil, nil
		}
		if n == total {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				item, err := luaToGo(lv.RawGetInt(i), depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, item)
			}
			return out, nil
		}

		out := make(map[string]any, total)
		var firstErr error
		lv.ForEach(func(k, val lua.LValue) {
			if firstErr != nil {
				return
			}
			key, ok := k.(lua.LString)
			if !ok {
				firstErr = fmt.Errorf("mixed table: key %s is not a string", k.String())
				return
			}
			item, err := luaToGo(val, depth+1)
			if err != nil {
				firstErr = err
				return
			}
			out[string(key)] = item
		})
		if firstErr != nil {
			return nil, firstErr
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported lua value of type %s", v.Type())
}
