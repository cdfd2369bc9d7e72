// Package material defines the immutable density/restitution/colour bundle
// rigid bodies carry, plus the named presets hosts commonly spawn with.
package material

// Colour is a plain RGBA, 0-255 per channel, matching the colour the
// renderer consumes (see the for_each_body traversal in pkg/world).
type Colour struct {
	R, G, B, A uint8
}

// Material is an immutable record: density >= 0 (0 means static/infinite
// mass), restitution in [0,1].
type Material struct {
	Density     float64
	Restitution float64
	Colour      Colour
}

// Named presets, frozen for process lifetime.
var (
	ROCK        = Material{Density: 0.6, Restitution: 0.1, Colour: Colour{110, 110, 110, 255}}
	WOOD        = Material{Density: 0.3, Restitution: 0.2, Colour: Colour{150, 111, 51, 255}}
	METAL       = Material{Density: 1.2, Restitution: 0.8, Colour: Colour{200, 200, 210, 255}}
	BOUNCY_BALL = Material{Density: 0.3, Restitution: 0.8, Colour: Colour{220, 60, 60, 255}}
	SUPER_BALL  = Material{Density: 0.3, Restitution: 0.95, Colour: Colour{60, 220, 120, 255}}
	PILLOW      = Material{Density: 0.1, Restitution: 0.2, Colour: Colour{240, 220, 230, 255}}
	STATIC      = Material{Density: 0.0, Restitution: 0.4, Colour: Colour{40, 40, 40, 255}}
)
