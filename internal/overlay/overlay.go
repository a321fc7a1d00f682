// Package overlay computes areas, intersections, and unions of ring-set
// polygons, used for census-block weighting and district assembly.
package overlay

import (
	polyclip "github.com/ctessum/polyclip-go"

	"github.com/rcview/rcview-cli/internal/rings"
)

// Area returns the enclosed area of a polygon. Hole rings wind opposite to
// their exterior, so summing signed ring areas subtracts them.
func Area(p rings.Polygon) float64 {
	var sum float64
	for _, r := range p {
		sum += r.SignedArea()
	}
	if sum < 0 {
		return -sum
	}
	return sum
}

// Intersection returns the region shared by a and b.
func Intersection(a, b rings.Polygon) rings.Polygon {
	return fromPolyclip(toPolyclip(a).Construct(polyclip.INTERSECTION, toPolyclip(b)))
}

// Union returns the combined region of the given polygons.
func Union(ps ...rings.Polygon) rings.Polygon {
	if len(ps) == 0 {
		return nil
	}
	acc := toPolyclip(ps[0])
	for _, p := range ps[1:] {
		acc = acc.Construct(polyclip.UNION, toPolyclip(p))
	}
	return fromPolyclip(acc)
}

// IntersectionFraction returns the proportion of subject covered by clip,
// in [0, 1]. A subject with zero area yields 0.
func IntersectionFraction(subject, clip rings.Polygon) float64 {
	sa := Area(subject)
	if sa == 0 {
		return 0
	}
	f := Area(Intersection(subject, clip)) / sa
	if f > 1 {
		f = 1
	}
	return f
}

func toPolyclip(p rings.Polygon) polyclip.Polygon {
	out := make(polyclip.Polygon, 0, len(p))
	for _, r := range p {
		n := len(r)
		if n > 1 && r[0] == r[n-1] {
			n-- // polyclip contours are implicitly closed
		}
		c := make(polyclip.Contour, 0, n)
		for _, pt := range r[:n] {
			c = append(c, polyclip.Point{X: pt.X, Y: pt.Y})
		}
		out = append(out, c)
	}
	return out
}

func fromPolyclip(p polyclip.Polygon) rings.Polygon {
	out := make(rings.Polygon, 0, len(p))
	for _, c := range p {
		r := make(rings.Ring, 0, len(c))
		for _, pt := range c {
			r = append(r, rings.Point{X: pt.X, Y: pt.Y})
		}
		out = append(out, r)
	}
	return out
}
