package rings

// ToParts groups a flat ring list into parts. Rings are classified by
// winding direction: clockwise rings become part exteriors, counter-clockwise
// rings are holes assigned to the single exterior that contains their
// representative point. Parts preserve the order exteriors appear in the
// input, and holes keep their relative input order within a part.
//
// A degenerate ring yields a *DegenerateRingError, a hole outside every
// exterior a *ContainmentError, and a hole inside more than one exterior an
// *AmbiguousContainmentError. The input is never modified.
func ToParts(p Polygon) ([]Part, error) {
	for i, r := range p {
		if r.vertexCount() < 3 || r.SignedArea() == 0 {
			return nil, &DegenerateRingError{Ring: i, Vertices: r.vertexCount()}
		}
	}

	var parts []Part
	var extIdx []int // input index of each part's exterior
	var holes []int  // input indices of hole rings
	for i, r := range p {
		if r.Clockwise() {
			parts = append(parts, Part{Exterior: r})
			extIdx = append(extIdx, i)
		} else {
			holes = append(holes, i)
		}
	}

	for _, hi := range holes {
		rep := p[hi].Centroid()
		owner := -1
		var owners []int
		for pi := range parts {
			if parts[pi].Exterior.Contains(rep) {
				owner = pi
				owners = append(owners, extIdx[pi])
			}
		}
		switch len(owners) {
		case 0:
			return nil, &ContainmentError{Ring: hi}
		case 1:
			parts[owner].Holes = append(parts[owner].Holes, p[hi])
		default:
			return nil, &AmbiguousContainmentError{Ring: hi, Exteriors: owners}
		}
	}

	return parts, nil
}

// FromParts flattens parts back into a ring list, normalizing winding to the
// canonical form: exteriors clockwise, holes counter-clockwise. Each part
// contributes its exterior followed by its holes. Point sequences are
// preserved up to reversal; nothing is added or removed.
func FromParts(parts []Part) Polygon {
	var out Polygon
	for _, part := range parts {
		ext := part.Exterior
		if !ext.Clockwise() {
			ext = ext.Reversed()
		}
		out = append(out, ext)
		for _, h := range part.Holes {
			if h.Clockwise() {
				h = h.Reversed()
			}
			out = append(out, h)
		}
	}
	return out
}
