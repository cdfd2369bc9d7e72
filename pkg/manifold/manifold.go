// Package manifold resolves a single contact between two rigid bodies:
// Baumgarte-style positional correction followed by impulse-based velocity
// response, conserving momentum and respecting the pair's material
// restitution.
package manifold

import (
	"github.com/guunterr/thrust/pkg/rigidbody"
	"github.com/guunterr/thrust/pkg/shape"
)

// Percent is the Baumgarte positional-correction fraction: large enough to
// prevent visible overlap under stacking, small enough to avoid explosion
// at large dt. Chosen empirically, matching the reference implementation.
const Percent = 0.8

// Resolve applies positional correction and impulse resolution for one
// contact between bodyI and bodyJ. The contact normal is taken to point
// from bodyI toward bodyJ.
func Resolve(bodyI, bodyJ *rigidbody.Body, c shape.Contact) {
	invMassSum := bodyI.Mass.InvMass + bodyJ.Mass.InvMass
	if invMassSum == 0 {
		return
	}

	correction := c.Normal.Scale(c.Depth / invMassSum * Percent)
	bodyI.Transform.Position = bodyI.Transform.Position.Sub(correction.Scale(bodyI.Mass.InvMass))
	bodyJ.Transform.Position = bodyJ.Transform.Position.Add(correction.Scale(bodyJ.Mass.InvMass))

	rv := bodyJ.Velocity.Sub(bodyI.Velocity)
	vn := c.Normal.Dot(rv)
	if vn > 0 {
		// Bodies are already separating along the normal.
		return
	}

	e := bodyI.Material.Restitution
	if bodyJ.Material.Restitution < e {
		e = bodyJ.Material.Restitution
	}

	j := -(1 + e) * vn / invMassSum
	impulse := c.Normal.Scale(j)

	bodyI.Velocity = bodyI.Velocity.Sub(impulse.Scale(bodyI.Mass.InvMass))
	bodyJ.Velocity = bodyJ.Velocity.Add(impulse.Scale(bodyJ.Mass.InvMass))
}
