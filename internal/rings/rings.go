// Package rings converts between the two polygon representations used by the
// portal and the geometry libraries: a flat ordered list of rings where
// winding direction is the only exterior/hole marker, and an explicit
// structure of parts, each an exterior ring with its holes.
//
// The winding convention follows the portal's rings format: exterior rings
// wind clockwise, hole rings wind counter-clockwise. FromParts always emits
// that convention regardless of input winding.
//
// All operations are pure functions over their inputs and are safe to call
// concurrently.
package rings

// Point is a 2D coordinate pair.
type Point struct {
	X float64
	Y float64
}

// Ring is an ordered sequence of points forming one closed boundary loop.
// The loop is implicitly closed; a duplicated closing vertex is tolerated
// and treated as closure, never as an extra edge.
type Ring []Point

// Polygon is the rings-based representation: a list of rings with no
// explicit exterior/hole grouping. Ownership of holes must be derived.
type Polygon []Ring

// Part is one exterior ring plus the holes it contains.
type Part struct {
	Exterior Ring
	Holes    []Ring
}

// SignedArea returns the area enclosed by the ring via the shoelace formula.
// Counter-clockwise rings have positive area, clockwise negative.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area.
func (r Ring) Area() float64 {
	a := r.SignedArea()
	if a < 0 {
		return -a
	}
	return a
}

// Clockwise reports whether the ring winds clockwise, which marks an
// exterior ring in the rings format.
func (r Ring) Clockwise() bool {
	return r.SignedArea() < 0
}

// Reversed returns a copy of the ring with point order reversed. A closed
// ring stays closed: reversal preserves the first-equals-last property.
func (r Ring) Reversed() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// vertexCount returns the number of boundary vertices, not counting a
// duplicated closing vertex.
func (r Ring) vertexCount() int {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		return n - 1
	}
	return n
}

// Centroid returns the area-weighted centroid of the ring, the
// representative point used for containment tests.
func (r Ring) Centroid() Point {
	n := len(r)
	var cx, cy, a float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := r[i].X*r[j].Y - r[j].X*r[i].Y
		cx += (r[i].X + r[j].X) * cross
		cy += (r[i].Y + r[j].Y) * cross
		a += cross
	}
	if a == 0 {
		return r[0]
	}
	return Point{X: cx / (3 * a), Y: cy / (3 * a)}
}

// Contains reports whether the point is strictly inside the ring, using an
// even-odd ray cast. Points exactly on the boundary are not inside.
func (r Ring) Contains(p Point) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := r[i].X, r[i].Y
		xj, yj := r[j].X, r[j].Y
		if (yi > p.Y) != (yj > p.Y) &&
			p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
