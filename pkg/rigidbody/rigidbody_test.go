package rigidbody

import (
	"math"
	"testing"

	"github.com/guunterr/thrust/pkg/material"
	"github.com/guunterr/thrust/pkg/shape"
	"github.com/guunterr/thrust/pkg/vec2"
)

func circleBody(pos vec2.Vector2, r float64, mat material.Material) *Body {
	s, err := shape.NewCircle(r)
	if err != nil {
		panic(err)
	}
	return New(pos, s, mat)
}

func TestNewDerivesInvMass(t *testing.T) {
	b := circleBody(vec2.Zero, 10, material.WOOD)
	wantArea := math.Pi * 100
	wantInvMass := 1 / (material.WOOD.Density * wantArea)
	if math.Abs(b.Mass.InvMass-wantInvMass) > 1e-9 {
		t.Errorf("InvMass: got %v want %v", b.Mass.InvMass, wantInvMass)
	}
}

func TestNewStaticFromZeroDensity(t *testing.T) {
	b := circleBody(vec2.Zero, 10, material.STATIC)
	if !b.IsStatic() {
		t.Error("expected static body")
	}
	if b.Mass.InvMass != 0 {
		t.Errorf("InvMass: got %v want 0", b.Mass.InvMass)
	}
}

func TestApplyForceStaticNoEffect(t *testing.T) {
	b := circleBody(vec2.Zero, 10, material.STATIC)
	b.ApplyForce(vec2.New(100, 0))
	if b.Acceleration != vec2.Zero {
		t.Errorf("static body accumulated acceleration: %v", b.Acceleration)
	}
}

func TestApplyForceAccumulates(t *testing.T) {
	b := circleBody(vec2.Zero, 10, material.WOOD)
	b.ApplyForce(vec2.New(1, 0))
	b.ApplyForce(vec2.New(0, 1))
	want := vec2.New(1, 0).Scale(b.Mass.InvMass).Add(vec2.New(0, 1).Scale(b.Mass.InvMass))
	if b.Acceleration != want {
		t.Errorf("Acceleration: got %v want %v", b.Acceleration, want)
	}
}

func TestSetAccelerationReplaces(t *testing.T) {
	b := circleBody(vec2.Zero, 10, material.WOOD)
	b.ApplyForce(vec2.New(5, 5))
	b.SetAcceleration(vec2.New(0, 9.8))
	if b.Acceleration != (vec2.Vector2{0, 9.8}) {
		t.Errorf("SetAcceleration should replace: got %v", b.Acceleration)
	}
}

// Property 7 — Integrate(0) is identity on position/velocity but zeroes
// acceleration.
func TestIntegrateZeroDtIsIdentity(t *testing.T) {
	b := circleBody(vec2.New(5, 5), 10, material.WOOD)
	b.Velocity = vec2.New(1, 2)
	b.Acceleration = vec2.New(3, 4)
	b.Integrate(0)
	if b.Transform.Position != (vec2.Vector2{5, 5}) {
		t.Errorf("Position changed: %v", b.Transform.Position)
	}
	if b.Velocity != (vec2.Vector2{1, 2}) {
		t.Errorf("Velocity changed: %v", b.Velocity)
	}
	if b.Acceleration != vec2.Zero {
		t.Errorf("Acceleration not zeroed: %v", b.Acceleration)
	}
}

func TestIntegrateSemiImplicitEuler(t *testing.T) {
	b := circleBody(vec2.Zero, 10, material.WOOD)
	b.Acceleration = vec2.New(0, 10)
	b.Integrate(1)
	if b.Velocity != (vec2.Vector2{0, 10}) {
		t.Errorf("Velocity: got %v want (0,10)", b.Velocity)
	}
	if b.Transform.Position != (vec2.Vector2{0, 10}) {
		t.Errorf("Position: got %v want (0,10)", b.Transform.Position)
	}
	if b.Transform.PrevPosition != vec2.Zero {
		t.Errorf("PrevPosition: got %v want zero", b.Transform.PrevPosition)
	}
}

func TestInterpolatedTransform(t *testing.T) {
	b := circleBody(vec2.New(0, 0), 10, material.WOOD)
	b.Transform.PrevPosition = vec2.New(0, 0)
	b.Transform.Position = vec2.New(10, 0)
	tr := b.InterpolatedTransform(0.5)
	if tr.Position != (vec2.Vector2{5, 0}) {
		t.Errorf("InterpolatedTransform: got %v want (5,0)", tr.Position)
	}
}

// Property 8 — point_inside holds for interior points.
func TestPointInsideInterior(t *testing.T) {
	r, _ := shape.NewRectangle(20, 20)
	b := New(vec2.New(50, 50), r, material.WOOD)
	if !b.PointInside(vec2.New(55, 55)) {
		t.Error("expected interior point inside")
	}
}
