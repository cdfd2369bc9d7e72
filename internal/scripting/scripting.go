// Package scripting runs short Lua snippets against a live world.World,
// giving operators (and automated test fixtures) a debug console that can
// spawn, inspect, and despawn bodies without a client round-trip. Each
// Run gets its own *lua.LState pulled from a pool, the same way the
// teacher's ScriptEngine pools interpreters per execution.
package scripting

import (
	"fmt"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
	lua "github.com/yuin/gopher-lua"

	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
	"github.com/guunterr/thrust/pkg/world"
)

// Engine owns a pool of Lua interpreters and the host functions exposed to
// scripts run against a particular world.
type Engine struct {
	logger runtime.Logger
	pool   sync.Pool
}

// Effect is one observable side effect of a script run, collected via the
// host-exposed effect_ack function, mirroring the teacher's ScriptEffect.
type Effect struct {
	AckMessage string
}

func NewEngine(logger runtime.Logger) *Engine {
	return &Engine{
		logger: logger,
		pool: sync.Pool{
			New: func() any {
				return lua.NewState(lua.Options{SkipOpenLibs: false})
			},
		},
	}
}

// Run executes source against w, exposing a small host API:
//
//	spawn_circle(x, y, radius, density, restitution) -> id
//	spawn_box(x, y, width, height, density, restitution) -> id
//	despawn(id)
//	set_velocity(id, vx, vy)
//	set_position(id, x, y)
//	body_count() -> int
//	effect_ack(message)
//
// It returns the collected Effects, or an error if the script fails to
// parse or run.
func (e *Engine) Run(w *world.World, source string) ([]Effect, error) {
	L := e.pool.Get().(*lua.LState)
	defer e.pool.Put(L)

	var effects []Effect

	register := func(name string, fn lua.LGFunction) {
		L.SetGlobal(name, L.NewFunction(fn))
	}

	register("effect_ack", func(L *lua.LState) int {
		effects = append(effects, Effect{AckMessage: L.CheckString(1)})
		return 0
	})

	register("spawn_circle", func(L *lua.LState) int {
		x := L.CheckNumber(1)
		y := L.CheckNumber(2)
		r := L.CheckNumber(3)
		density := optNumber(L, 4, 1)
		restitution := optNumber(L, 5, 0.2)

		s, err := shape.NewCircle(float64(r))
		if err != nil {
			L.RaiseError("spawn_circle: %v", err)
			return 0
		}
		mat := material.Material{Density: density, Restitution: restitution}
		id := w.AddBody(rigidbody.New(vec2.New(float64(x), float64(y)), s, mat))
		L.Push(lua.LNumber(id))
		return 1
	})

	register("spawn_box", func(L *lua.LState) int {
		x := L.CheckNumber(1)
		y := L.CheckNumber(2)
		width := L.CheckNumber(3)
		height := L.CheckNumber(4)
		density := optNumber(L, 5, 1)
		restitution := optNumber(L, 6, 0.2)

		s, err := shape.NewRectangle(float64(width), float64(height))
		if err != nil {
			L.RaiseError("spawn_box: %v", err)
			return 0
		}
		mat := material.Material{Density: density, Restitution: restitution}
		id := w.AddBody(rigidbody.New(vec2.New(float64(x), float64(y)), s, mat))
		L.Push(lua.LNumber(id))
		return 1
	})

	register("despawn", func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		if err := w.RemoveBody(id); err != nil {
			e.logger.Warn("scripting: despawn(%d): %v", id, err)
		}
		return 0
	})

	register("set_velocity", func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		vx := L.CheckNumber(2)
		vy := L.CheckNumber(3)
		if err := w.SetVelocity(id, vec2.New(float64(vx), float64(vy))); err != nil {
			L.RaiseError("set_velocity: %v", err)
		}
		return 0
	})

	register("set_position", func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		x := L.CheckNumber(2)
		y := L.CheckNumber(3)
		if err := w.SetPosition(id, vec2.New(float64(x), float64(y))); err != nil {
			L.RaiseError("set_position: %v", err)
		}
		return 0
	})

	register("body_count", func(L *lua.LState) int {
		L.Push(lua.LNumber(w.BodyCount()))
		return 1
	})

	if err := L.DoString(source); err != nil {
		return effects, fmt.Errorf("scripting: run: %w", err)
	}
	return effects, nil
}

func optNumber(L *lua.LState, idx int, def float64) float64 {
	v := L.Get(idx)
	if v == lua.LNil {
		return def
	}
	n, ok := v.(lua.LNumber)
	if !ok {
		return def
	}
	return float64(n)
}
