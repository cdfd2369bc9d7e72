// Package world owns the set of rigid bodies and runs the per-tick
// simulation pipeline: force application, integration, broad-phase AABB
// culling, narrow-phase contact generation, and impulse-based resolution.
// It is the sole source of truth for body membership; every external
// reference to a body goes through its id.
package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/guunterr/thrust/pkg/manifold"
	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
)

// ErrNotFound is the sentinel wrapped by every id-indexed operation that
// references a deleted or never-issued id. Compare with errors.Is.
var ErrNotFound = errors.New("world: body not found")

// UnitScale scales the default gravity constant; 1 pixel-unit world uses
// UnitScale = 1.
const UnitScale = 1.0

// PhysicsDT is the fixed physics tick the outer accumulator loop steps by.
const PhysicsDT = 1.0 / 120.0

func notFound(id uint64) error {
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}

// World holds every live body, keyed by a monotonically assigned,
// never-reused id.
type World struct {
	mu      sync.Mutex
	bodies  map[uint64]*rigidbody.Body
	order   []uint64
	nextID  uint64
	Gravity vec2.Vector2

	// Bounds, when non-nil, clamps body position to this rectangle after
	// integration, scrubbing the velocity component that pushed the body
	// past the boundary (optionally bouncing it, see BoundsRestitution).
	// This is distinct from colliding against a static wall body.
	Bounds            *shape.AABB
	BoundsRestitution float64
}

// New constructs an empty world with the default gravity (0, 9.8*UnitScale).
func New() *World {
	return &World{
		bodies:  make(map[uint64]*rigidbody.Body),
		Gravity: vec2.New(0, 9.8*UnitScale),
	}
}

// AddBody inserts body, assigns it a fresh id, and returns that id.
func (w *World) AddBody(b *rigidbody.Body) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	id := w.nextID
	b.ID = id
	w.bodies[id] = b
	w.order = append(w.order, id)
	return id
}

// RemoveBody deletes the body with id, invalidating it forever. Returns a
// wrapped ErrNotFound if id is unknown.
func (w *World) RemoveBody(id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[id]; !ok {
		return notFound(id)
	}
	delete(w.bodies, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

// PositionOf returns the current position of id.
func (w *World) PositionOf(id uint64) (vec2.Vector2, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return vec2.Zero, notFound(id)
	}
	return b.Transform.Position, nil
}

// SetPosition overwrites the position of id.
func (w *World) SetPosition(id uint64, p vec2.Vector2) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return notFound(id)
	}
	b.Transform.Position = p
	return nil
}

// SetVelocity overwrites the velocity of id.
func (w *World) SetVelocity(id uint64, v vec2.Vector2) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return notFound(id)
	}
	b.Velocity = v
	return nil
}

// Body returns the live body for id, for callers (the scripting/input
// layers) that need more than position/velocity. The returned pointer
// aliases world state; callers must not retain it across a Step.
func (w *World) Body(id uint64) (*rigidbody.Body, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return nil, notFound(id)
	}
	return b, nil
}

// Pick returns the id of the first body whose shape contains point.
// Iteration order is unspecified when multiple bodies overlap; callers
// needing a specific one must disambiguate independently.
func (w *World) Pick(point vec2.Vector2) (uint64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.order {
		b := w.bodies[id]
		if b.PointInside(point) {
			return id, true
		}
	}
	return 0, false
}

// ForEachBody is a read-only traversal yielding, per body, enough state for
// an external renderer or persistence layer: id, the alpha-interpolated
// transform, the shape descriptor, the full material (density, restitution,
// colour), the body's velocity, and the optional debug tag.
func (w *World) ForEachBody(alpha float64, visit func(id uint64, tr rigidbody.Transform, s shape.Shape, mat material.Material, vel vec2.Vector2, tag string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.order {
		b := w.bodies[id]
		visit(id, b.InterpolatedTransform(alpha), b.Shape, b.Material, b.Velocity, b.Tag)
	}
}

// Step advances the simulation by one fixed tick: force phase, integrate
// phase, broad phase, narrow phase, resolution phase, in that order. Each
// phase happens-before the next; resolution is applied sequentially in
// broad-phase emission order (Gauss-Seidel across pairs), so callers must
// not assume commutativity between pairs.
func (w *World) Step(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.order {
		b := w.bodies[id]
		if !b.IsStatic() {
			b.SetAcceleration(w.Gravity)
		}
	}

	for _, id := range w.order {
		b := w.bodies[id]
		b.Integrate(dt)
		if w.Bounds != nil {
			w.clampToBounds(b)
		}
	}

	type pair struct{ i, j uint64 }
	var candidates []pair
	for i := 0; i < len(w.order); i++ {
		a := w.bodies[w.order[i]]
		if a == nil {
			continue
		}
		for j := i + 1; j < len(w.order); j++ {
			bj := w.bodies[w.order[j]]
			if a.IsStatic() && bj.IsStatic() {
				continue
			}
			if a.AABB().Overlaps(bj.AABB()) {
				candidates = append(candidates, pair{w.order[i], w.order[j]})
			}
		}
	}

	type contactPair struct {
		i, j uint64
		c    shape.Contact
	}
	var contacts []contactPair
	for _, p := range candidates {
		a, b := w.bodies[p.i], w.bodies[p.j]
		c, ok := a.Contact(b)
		if ok {
			contacts = append(contacts, contactPair{p.i, p.j, c})
		}
	}

	for _, cp := range contacts {
		manifold.Resolve(w.bodies[cp.i], w.bodies[cp.j], cp.c)
	}
}

func (w *World) clampToBounds(b *rigidbody.Body) {
	bounds := w.Bounds
	pos := &b.Transform.Position
	vel := &b.Velocity
	if pos.X < bounds.Min.X {
		pos.X = bounds.Min.X
		vel.X = -vel.X * w.BoundsRestitution
	}
	if pos.X > bounds.Max.X {
		pos.X = bounds.Max.X
		vel.X = -vel.X * w.BoundsRestitution
	}
	if pos.Y < bounds.Min.Y {
		pos.Y = bounds.Min.Y
		vel.Y = -vel.Y * w.BoundsRestitution
	}
	if pos.Y > bounds.Max.Y {
		pos.Y = bounds.Max.Y
		vel.Y = -vel.Y * w.BoundsRestitution
	}
}
