package esri

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/rcview/rcview-cli/internal/rings"
)

// RingSet converts the wire-form ring lists to the rings representation.
// Positions beyond x and y are dropped.
func (p Polygon) RingSet() rings.Polygon {
	out := make(rings.Polygon, 0, len(p.Rings))
	for _, ring := range p.Rings {
		r := make(rings.Ring, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				continue
			}
			r = append(r, rings.Point{X: pos[0], Y: pos[1]})
		}
		out = append(out, r)
	}
	return out
}

// FromRingSet builds a wire-form polygon from a ring set.
func FromRingSet(rs rings.Polygon, sr *SpatialReference) Polygon {
	out := Polygon{SpatialReference: sr, Rings: make([][][]float64, 0, len(rs))}
	for _, r := range rs {
		ring := make([][]float64, 0, len(r))
		for _, pt := range r {
			ring = append(ring, []float64{pt.X, pt.Y})
		}
		out.Rings = append(out.Rings, ring)
	}
	return out
}

// ToGeom converts a wire-form polygon to a go-geom shape, deriving hole
// ownership from ring winding and containment. A single-part result is a
// *geom.Polygon, multiple disjoint exteriors a *geom.MultiPolygon.
func (p Polygon) ToGeom() (geom.T, error) {
	parts, err := rings.ToParts(p.RingSet())
	if err != nil {
		return nil, eris.Wrap(err, "esri: group rings")
	}

	srid := 0
	if p.SpatialReference != nil {
		srid = p.SpatialReference.WKID
	}

	polys := make([]*geom.Polygon, 0, len(parts))
	for _, part := range parts {
		poly := geom.NewPolygon(geom.XY).SetSRID(srid)
		if err := poly.Push(toLinearRing(part.Exterior)); err != nil {
			return nil, eris.Wrap(err, "esri: push exterior ring")
		}
		for _, h := range part.Holes {
			if err := poly.Push(toLinearRing(h)); err != nil {
				return nil, eris.Wrap(err, "esri: push hole ring")
			}
		}
		polys = append(polys, poly)
	}

	if len(polys) == 1 {
		return polys[0], nil
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)
	for _, poly := range polys {
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrap(err, "esri: push polygon part")
		}
	}
	return mp, nil
}

// FromGeom converts a go-geom Polygon or MultiPolygon to the wire form,
// normalizing ring winding to the rings convention.
func FromGeom(g geom.T, sr *SpatialReference) (Polygon, error) {
	var parts []rings.Part
	switch t := g.(type) {
	case *geom.Polygon:
		parts = append(parts, polygonPart(t))
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			parts = append(parts, polygonPart(t.Polygon(i)))
		}
	default:
		return Polygon{}, eris.Errorf("esri: unsupported geometry type %T", g)
	}
	return FromRingSet(rings.FromParts(parts), sr), nil
}

// EncodeWKB converts a wire-form polygon to EWKB bytes for storage or
// interchange, little-endian with the polygon's SRID.
func EncodeWKB(p Polygon) ([]byte, error) {
	g, err := p.ToGeom()
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "esri: encode WKB")
	}
	return data, nil
}

// toLinearRing builds a closed go-geom linear ring from a ring, appending
// the closing vertex if the input leaves it implicit.
func toLinearRing(r rings.Ring) *geom.LinearRing {
	n := len(r)
	closed := n > 1 && r[0] == r[n-1]
	flat := make([]float64, 0, (n+1)*2)
	for _, pt := range r {
		flat = append(flat, pt.X, pt.Y)
	}
	if !closed {
		flat = append(flat, r[0].X, r[0].Y)
	}
	return geom.NewLinearRingFlat(geom.XY, flat)
}

// polygonPart extracts a part from a go-geom polygon: first ring exterior,
// the rest holes.
func polygonPart(p *geom.Polygon) rings.Part {
	var part rings.Part
	for i := 0; i < p.NumLinearRings(); i++ {
		r := fromLinearRing(p.LinearRing(i))
		if i == 0 {
			part.Exterior = r
		} else {
			part.Holes = append(part.Holes, r)
		}
	}
	return part
}

func fromLinearRing(lr *geom.LinearRing) rings.Ring {
	coords := lr.Coords()
	r := make(rings.Ring, 0, len(coords))
	for _, c := range coords {
		r = append(r, rings.Point{X: c[0], Y: c[1]})
	}
	return r
}
