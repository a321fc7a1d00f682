package rings

import "fmt"

// DegenerateRingError reports a ring with fewer than 3 distinct vertices or
// zero enclosed area. Such rings are rejected before classification.
type DegenerateRingError struct {
	Ring     int // index of the ring in the input polygon
	Vertices int // boundary vertex count, closing duplicate excluded
}

func (e *DegenerateRingError) Error() string {
	return fmt.Sprintf("rings: ring %d is degenerate (%d vertices, zero area)", e.Ring, e.Vertices)
}

// ContainmentError reports a hole ring whose representative point lies
// outside every exterior ring.
type ContainmentError struct {
	Ring int // index of the hole ring in the input polygon
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("rings: hole ring %d is not contained in any exterior ring", e.Ring)
}

// AmbiguousContainmentError reports a hole ring contained in more than one
// exterior ring, which signals overlapping exteriors in the source geometry.
type AmbiguousContainmentError struct {
	Ring      int   // index of the hole ring in the input polygon
	Exteriors []int // indices of the containing exterior rings
}

func (e *AmbiguousContainmentError) Error() string {
	return fmt.Sprintf("rings: hole ring %d is contained in %d exterior rings %v", e.Ring, len(e.Exteriors), e.Exteriors)
}
