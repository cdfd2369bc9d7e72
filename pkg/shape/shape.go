// Package shape implements the closed set of 2D collision primitives:
// circles and convex polygons, their bounding boxes, and the pairwise
// geometric predicates (point containment, intersection, contact
// manifold generation) the narrow phase relies on.
package shape

import (
	"errors"
	"math"

	"github.com/guunterr/thrust/pkg/vec2"
)

// ErrInvalidShape is returned by NewPolygon when the vertex list does not
// describe a convex, clockwise (y-down frame) polygon of at least 3 points.
var ErrInvalidShape = errors.New("shape: invalid shape")

// Kind tags which variant a Shape holds.
type Kind int

const (
	KindCircle Kind = iota
	KindPolygon
)

// Shape is a closed sum type over Circle and Polygon. The zero value is not
// a valid shape; construct with NewCircle or NewPolygon.
type Shape struct {
	kind     Kind
	radius   float64
	vertices []vec2.Vector2 // local coordinates, clockwise, y-down
}

func (s Shape) Kind() Kind                { return s.kind }
func (s Shape) Radius() float64           { return s.radius }
func (s Shape) Vertices() []vec2.Vector2  { return s.vertices }

// NewCircle constructs a circle of radius r. r must be > 0.
func NewCircle(r float64) (Shape, error) {
	if r <= 0 {
		return Shape{}, ErrInvalidShape
	}
	return Shape{kind: KindCircle, radius: r}, nil
}

// NewPolygon constructs a convex polygon from vertices ordered clockwise in
// a y-down screen frame. Fails with ErrInvalidShape if there are fewer than
// 3 vertices or if any consecutive edge turn angle falls outside (0, pi).
func NewPolygon(vertices []vec2.Vector2) (Shape, error) {
	if len(vertices) < 3 {
		return Shape{}, ErrInvalidShape
	}
	if !isConvexClockwise(vertices) {
		return Shape{}, ErrInvalidShape
	}
	cp := make([]vec2.Vector2, len(vertices))
	copy(cp, vertices)
	return Shape{kind: KindPolygon, vertices: cp}, nil
}

// NewRectangle builds the four clockwise (y-down) corners of a centered
// w x h rectangle and constructs the resulting polygon.
func NewRectangle(w, h float64) (Shape, error) {
	hw, hh := w/2, h/2
	return NewPolygon([]vec2.Vector2{
		{X: -hw, Y: -hh},
		{X: hw, Y: -hh},
		{X: hw, Y: hh},
		{X: -hw, Y: hh},
	})
}

func isConvexClockwise(vs []vec2.Vector2) bool {
	n := len(vs)
	for i := 0; i < n; i++ {
		a := vs[i]
		b := vs[(i+1)%n]
		c := vs[(i+2)%n]
		edge1 := b.Sub(a)
		edge2 := c.Sub(b)
		if edge1.LengthSquared() == 0 || edge2.LengthSquared() == 0 {
			return false
		}
		turn := math.Mod(edge2.Angle()-edge1.Angle()+4*math.Pi, 2*math.Pi)
		if !(turn > 0 && turn < math.Pi) {
			return false
		}
	}
	return true
}

// Area returns the shape's area. Circle: pi*r^2. Polygon: the absolute
// value of the shoelace sum fanning from vertex 0.
func (s Shape) Area() float64 {
	switch s.kind {
	case KindCircle:
		return math.Pi * s.radius * s.radius
	case KindPolygon:
		var sum float64
		v := s.vertices
		for i := 1; i < len(v)-1; i++ {
			e1 := v[i].Sub(v[0])
			e2 := v[i+1].Sub(v[0])
			sum += e1.X*e2.Y - e1.Y*e2.X
		}
		return math.Abs(sum) / 2
	default:
		return 0
	}
}

// AABB is an axis-aligned bounding box: min.x <= max.x, min.y <= max.y.
type AABB struct {
	Min, Max vec2.Vector2
}

// Overlaps reports whether two AABBs intersect, inclusive of touching edges.
func (b AABB) Overlaps(o AABB) bool {
	return b.Max.X >= o.Min.X && o.Max.X >= b.Min.X &&
		b.Max.Y >= o.Min.Y && o.Max.Y >= b.Min.Y
}

// WorldVertices returns the polygon's vertices transformed to world space.
// Rotation is kept for API completeness; in this revision bodies never
// change their rotation (see the angular-dynamics note in the package doc
// of rigidbody), so callers typically pass 0.
func (s Shape) WorldVertices(position vec2.Vector2, rotation float64) []vec2.Vector2 {
	if s.kind != KindPolygon {
		return nil
	}
	out := make([]vec2.Vector2, len(s.vertices))
	cos, sin := math.Cos(rotation), math.Sin(rotation)
	for i, v := range s.vertices {
		rx := v.X*cos - v.Y*sin
		ry := v.X*sin + v.Y*cos
		out[i] = vec2.Vector2{X: rx + position.X, Y: ry + position.Y}
	}
	return out
}

// AABBAt computes the world-space bounding box for the shape at the given
// position and rotation.
func (s Shape) AABBAt(position vec2.Vector2, rotation float64) AABB {
	switch s.kind {
	case KindCircle:
		r := vec2.New(s.radius, s.radius)
		return AABB{Min: position.Sub(r), Max: position.Add(r)}
	case KindPolygon:
		verts := s.WorldVertices(position, rotation)
		min, max := verts[0], verts[0]
		for _, v := range verts[1:] {
			if v.X < min.X {
				min.X = v.X
			}
			if v.Y < min.Y {
				min.Y = v.Y
			}
			if v.X > max.X {
				max.X = v.X
			}
			if v.Y > max.Y {
				max.Y = v.Y
			}
		}
		return AABB{Min: min, Max: max}
	default:
		return AABB{}
	}
}

// PointInside reports whether query (world space) lies inside the shape
// placed at position.
func (s Shape) PointInside(position, query vec2.Vector2) bool {
	switch s.kind {
	case KindCircle:
		return query.Sub(position).LengthSquared() < s.radius*s.radius
	case KindPolygon:
		verts := s.WorldVertices(position, 0)
		n := len(verts)
		for i := 0; i < n; i++ {
			p := verts[i]
			q := verts[(i+1)%n]
			edge := q.Sub(p)
			toQuery := query.Sub(p)
			turn := math.Mod(toQuery.Angle()-edge.Angle()+4*math.Pi, 2*math.Pi)
			if !(turn >= 0 && turn <= math.Pi) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Contact is the (point, normal, depth) triple describing a single pair's
// penetration. Normal points from shape A toward shape B.
type Contact struct {
	Point  vec2.Vector2
	Normal vec2.Vector2
	Depth  float64
}

// Intersects reports whether the two shapes, placed at their positions,
// overlap.
func Intersects(a Shape, posA vec2.Vector2, b Shape, posB vec2.Vector2) bool {
	if a.kind == KindCircle && b.kind == KindCircle {
		d := posB.Sub(posA)
		rsum := a.radius + b.radius
		return d.LengthSquared() <= rsum*rsum
	}
	_, ok := Collide(a, posA, b, posB)
	return ok
}

// Collide computes the contact manifold between two shapes at their
// positions, or reports false if they are disjoint.
func Collide(a Shape, posA vec2.Vector2, b Shape, posB vec2.Vector2) (Contact, bool) {
	switch {
	case a.kind == KindCircle && b.kind == KindCircle:
		return circleCircleContact(posA, a.radius, posB, b.radius)
	case a.kind == KindPolygon && b.kind == KindPolygon:
		return polygonPolygonContact(a.WorldVertices(posA, 0), b.WorldVertices(posB, 0))
	case a.kind == KindPolygon && b.kind == KindCircle:
		return polygonCircleContact(a.WorldVertices(posA, 0), posB, b.radius)
	case a.kind == KindCircle && b.kind == KindPolygon:
		c, ok := polygonCircleContact(b.WorldVertices(posB, 0), posA, a.radius)
		if !ok {
			return Contact{}, false
		}
		c.Normal = c.Normal.Neg()
		return c, true
	default:
		return Contact{}, false
	}
}

func circleCircleContact(posA vec2.Vector2, ra float64, posB vec2.Vector2, rb float64) (Contact, bool) {
	diff := posB.Sub(posA)
	dist := diff.Length()
	rsum := ra + rb
	depth := rsum - dist
	if depth < 0 {
		return Contact{}, false
	}
	if dist == 0 {
		normal := vec2.New(1, 0)
		return Contact{
			Point:  posA,
			Normal: normal,
			Depth:  rsum,
		}, true
	}
	normal := diff.Scale(1 / dist)
	point := posA.Add(normal.Scale(depth/2 + ra))
	return Contact{Point: point, Normal: normal, Depth: depth}, true
}

// edgeNormal returns the outward normal of edge (p,q) for a clockwise,
// y-down polygon: perpendicular (q.y-p.y, p.x-q.x), normalised.
func edgeNormal(p, q vec2.Vector2) vec2.Vector2 {
	n := vec2.New(q.Y-p.Y, p.X-q.X)
	return n.Normalize()
}

func deepestVertex(verts []vec2.Vector2, n vec2.Vector2) vec2.Vector2 {
	deepest := verts[0]
	min := n.Dot(deepest)
	for _, v := range verts[1:] {
		d := n.Dot(v)
		if d < min {
			min = d
			deepest = v
		}
	}
	return deepest
}

type edgeCandidate struct {
	depth  float64
	normal vec2.Vector2
	point  vec2.Vector2
	ok     bool
}

// sat scans the reference polygon's edges against the other polygon's
// vertices, returning the minimum-depth candidate (or ok=false if any edge
// separates them).
func sat(ref, other []vec2.Vector2) edgeCandidate {
	best := edgeCandidate{depth: math.MaxFloat64}
	n := len(ref)
	for i := 0; i < n; i++ {
		p := ref[i]
		q := ref[(i+1)%n]
		normal := edgeNormal(p, q)
		deepest := deepestVertex(other, normal)
		d := -normal.Dot(deepest.Sub(p))
		if d < 0 {
			return edgeCandidate{ok: false}
		}
		if d < best.depth {
			best = edgeCandidate{
				depth:  d,
				normal: normal,
				point:  deepest.Add(normal.Scale(d / 2)),
				ok:     true,
			}
		}
	}
	return best
}

func polygonPolygonContact(a, b []vec2.Vector2) (Contact, bool) {
	candA := sat(a, b)
	if !candA.ok {
		return Contact{}, false
	}
	candB := sat(b, a)
	if !candB.ok {
		return Contact{}, false
	}
	// Ties broken by scanning shape1's (a's) edges before shape2's (b's).
	if candA.depth <= candB.depth {
		return Contact{Point: candA.point, Normal: candA.normal, Depth: candA.depth}, true
	}
	return Contact{Point: candB.point, Normal: candB.normal.Neg(), Depth: candB.depth}, true
}

func polygonCircleContact(poly []vec2.Vector2, center vec2.Vector2, r float64) (Contact, bool) {
	n := len(poly)
	best := edgeCandidate{depth: math.MaxFloat64}
	for i := 0; i < n; i++ {
		p := poly[i]
		q := poly[(i+1)%n]
		normal := edgeNormal(p, q)
		deepest := center.Sub(normal.Scale(r))
		d := -normal.Dot(deepest.Sub(p))
		if d < 0 {
			return Contact{}, false
		}
		if d < best.depth {
			best = edgeCandidate{
				depth:  d,
				normal: normal,
				point:  deepest.Add(normal.Scale(d / 2)),
				ok:     true,
			}
		}
	}

	// Vertex-region test: is the circle center outside both edges adjacent
	// to a vertex (the exterior Voronoi region of that vertex)?
	for i := 0; i < n; i++ {
		prev := poly[(i-1+n)%n]
		cur := poly[i]
		next := poly[(i+1)%n]

		if projectionOutside(prev, cur, center) && projectionOutside(cur, next, center) {
			diff := cur.Sub(center)
			dist := diff.Length()
			d := r - dist
			if d > 0 && d < best.depth {
				var normal vec2.Vector2
				if dist == 0 {
					normal = vec2.New(1, 0)
				} else {
					normal = center.Sub(cur).Normalize()
				}
				best = edgeCandidate{
					depth:  d,
					normal: normal,
					point:  cur.Add(normal.Scale(d / 2)),
					ok:     true,
				}
			}
		}
	}

	if !best.ok {
		return Contact{}, false
	}
	return Contact{Point: best.point, Normal: best.normal, Depth: best.depth}, true
}

// projectionOutside reports whether point's projection onto edge (p,q)
// falls outside the [0,1] parametric range of the edge.
func projectionOutside(p, q, point vec2.Vector2) bool {
	edge := q.Sub(p)
	len2 := edge.LengthSquared()
	if len2 == 0 {
		return true
	}
	t := point.Sub(p).Dot(edge) / len2
	return t < 0 || t > 1
}
