// Package rigidbody implements the physics body: its transform, velocity,
// accumulated force, shape, material and derived mass, plus the
// semi-implicit Euler integrator that advances it one tick at a time.
//
// Rotation is carried on the transform but this revision's solver never
// updates it and never generates torque (see pkg/manifold); inv_inertia is
// always 0. A future revision wiring contact torque would start here.
package rigidbody

import (
	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
)

// Transform holds current and previous position/rotation. prev_* are
// recorded at the start of the most recent integration step solely so an
// external renderer can interpolate between physics frames.
type Transform struct {
	Position     vec2.Vector2
	PrevPosition vec2.Vector2
	Rotation     float64
	PrevRotation float64
}

// MassData is the derived inverse mass / inverse inertia pair. Storing the
// inverse form means 0 encodes "infinite/static" without special-casing
// every division in the solver.
type MassData struct {
	InvMass    float64
	InvInertia float64
}

// Body is a single rigid body: its own shape and transform, a shared
// (by-value) material, and derived mass data.
type Body struct {
	ID           uint64
	Tag          string
	Shape        shape.Shape
	Material     material.Material
	Mass         MassData
	Transform    Transform
	Velocity     vec2.Vector2
	Acceleration vec2.Vector2
}

// New constructs a body at position with the given shape and material.
// inv_mass is derived from material density and shape area; density <= 0
// yields an infinite-mass (static) body.
func New(position vec2.Vector2, s shape.Shape, mat material.Material) *Body {
	var invMass float64
	if mat.Density > 0 {
		invMass = 1 / (mat.Density * s.Area())
	}
	return &Body{
		Shape:    s,
		Material: mat,
		Mass:     MassData{InvMass: invMass, InvInertia: 0},
		Transform: Transform{
			Position:     position,
			PrevPosition: position,
		},
		Velocity: vec2.Zero,
	}
}

// IsStatic reports whether this body has infinite mass.
func (b *Body) IsStatic() bool {
	return b.Mass.InvMass == 0
}

// ApplyForce accumulates f into this tick's acceleration. A static body
// (inv_mass == 0) absorbs the force to no effect.
func (b *Body) ApplyForce(f vec2.Vector2) {
	b.Acceleration = b.Acceleration.Add(f.Scale(b.Mass.InvMass))
}

// SetAcceleration replaces (rather than accumulates) this tick's
// acceleration. Used to apply an environmental acceleration such as
// gravity, which acts regardless of mass.
func (b *Body) SetAcceleration(a vec2.Vector2) {
	b.Acceleration = a
}

// Integrate advances the body by dt using semi-implicit Euler: velocity is
// updated from acceleration first, then position from the new velocity.
// Chosen over explicit Euler for unconditional stability under bounded
// forces. prev_position/prev_rotation are snapshotted before the update;
// acceleration is zeroed after.
func (b *Body) Integrate(dt float64) {
	b.Transform.PrevPosition = b.Transform.Position
	b.Transform.PrevRotation = b.Transform.Rotation
	b.Velocity = b.Velocity.Add(b.Acceleration.Scale(dt))
	b.Transform.Position = b.Transform.Position.Add(b.Velocity.Scale(dt))
	b.Acceleration = vec2.Zero
}

// Intersects reports whether this body's shape overlaps other's.
func (b *Body) Intersects(other *Body) bool {
	return shape.Intersects(b.Shape, b.Transform.Position, other.Shape, other.Transform.Position)
}

// Contact computes the contact manifold between this body and other, if
// any.
func (b *Body) Contact(other *Body) (shape.Contact, bool) {
	return shape.Collide(b.Shape, b.Transform.Position, other.Shape, other.Transform.Position)
}

// PointInside reports whether query (world space) lies inside this body.
func (b *Body) PointInside(query vec2.Vector2) bool {
	return b.Shape.PointInside(b.Transform.Position, query)
}

// AABB returns this body's world-space bounding box.
func (b *Body) AABB() shape.AABB {
	return b.Shape.AABBAt(b.Transform.Position, b.Transform.Rotation)
}

// InterpolatedTransform lerps between the previous and current transform at
// alpha in [0,1], for read-only use by an external renderer.
func (b *Body) InterpolatedTransform(alpha float64) Transform {
	return Transform{
		Position: vec2.Lerp(b.Transform.PrevPosition, b.Transform.Position, alpha),
		Rotation: b.Transform.PrevRotation + (b.Transform.Rotation-b.Transform.PrevRotation)*alpha,
	}
}
