package rings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixtures follow the rings convention: exteriors clockwise, holes
// counter-clockwise.
var (
	squareExt   = Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	triangle    = Ring{{2, 2}, {4, 2}, {2, 4}}
	farSquare   = Ring{{20, 0}, {20, 10}, {30, 10}, {30, 0}}
	farTriangle = Ring{{22, 2}, {24, 2}, {22, 4}}
)

func TestToPartsSingleExteriorWithHole(t *testing.T) {
	parts, err := ToParts(Polygon{squareExt, triangle})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, squareExt, parts[0].Exterior)
	require.Len(t, parts[0].Holes, 1)
	assert.Equal(t, triangle, parts[0].Holes[0])
}

func TestToPartsHoleBeforeExterior(t *testing.T) {
	// Ring order must not matter for ownership.
	parts, err := ToParts(Polygon{triangle, squareExt})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, squareExt, parts[0].Exterior)
	assert.Equal(t, []Ring{triangle}, parts[0].Holes)
}

func TestToPartsTwoDisjointParts(t *testing.T) {
	parts, err := ToParts(Polygon{squareExt, farSquare, farTriangle, triangle})
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Equal(t, squareExt, parts[0].Exterior)
	assert.Equal(t, []Ring{triangle}, parts[0].Holes)

	assert.Equal(t, farSquare, parts[1].Exterior)
	assert.Equal(t, []Ring{farTriangle}, parts[1].Holes)
}

func TestToPartsHoleOutsideAllExteriors(t *testing.T) {
	stray := Ring{{50, 50}, {52, 50}, {50, 52}}
	_, err := ToParts(Polygon{squareExt, stray})
	var cerr *ContainmentError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 1, cerr.Ring)
}

func TestToPartsAmbiguousHole(t *testing.T) {
	overlapping := Ring{{5, 0}, {5, 10}, {15, 10}, {15, 0}}
	hole := Ring{{6, 4}, {8, 4}, {6, 6}}
	_, err := ToParts(Polygon{squareExt, overlapping, hole})
	var aerr *AmbiguousContainmentError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 2, aerr.Ring)
	assert.Equal(t, []int{0, 1}, aerr.Exteriors)
}

func TestToPartsDegenerateRing(t *testing.T) {
	tests := []struct {
		name string
		ring Ring
	}{
		{"two points", Ring{{0, 0}, {1, 1}}},
		{"zero area", Ring{{0, 0}, {5, 5}, {10, 10}}},
		{"closed pair", Ring{{0, 0}, {1, 1}, {0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToParts(Polygon{squareExt, tt.ring})
			var derr *DegenerateRingError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, 1, derr.Ring)
		})
	}
}

func TestToPartsDegenerateCheckedBeforeClassification(t *testing.T) {
	// A stray hole later in the list must not be reported before the
	// degenerate ring that precedes it.
	stray := Ring{{50, 50}, {52, 50}, {50, 52}}
	_, err := ToParts(Polygon{squareExt, Ring{{0, 0}, {1, 1}}, stray})
	var derr *DegenerateRingError
	assert.ErrorAs(t, err, &derr)
	var cerr *ContainmentError
	assert.False(t, errors.As(err, &cerr))
}

func TestFromPartsNormalizesWinding(t *testing.T) {
	// Exterior given counter-clockwise, hole clockwise: both reversed.
	parts := []Part{{
		Exterior: squareExt.Reversed(),
		Holes:    []Ring{triangle.Reversed()},
	}}
	p := FromParts(parts)
	require.Len(t, p, 2)
	assert.Equal(t, squareExt, p[0])
	assert.Equal(t, triangle, p[1])
	assert.True(t, p[0].Clockwise())
	assert.False(t, p[1].Clockwise())
}

func TestRoundTripRingsToPartsToRings(t *testing.T) {
	in := Polygon{squareExt, triangle, farSquare, farTriangle}
	parts, err := ToParts(in)
	require.NoError(t, err)
	out := FromParts(parts)
	assert.Equal(t, in, out)
}

func TestRoundTripPartsToRingsToParts(t *testing.T) {
	in := []Part{
		{Exterior: squareExt, Holes: []Ring{triangle}},
		{Exterior: farSquare, Holes: []Ring{farTriangle}},
	}
	parts, err := ToParts(FromParts(in))
	require.NoError(t, err)
	assert.Equal(t, in, parts)
}

func TestRoundTripPreservesExplicitClosure(t *testing.T) {
	closedExt := append(append(Ring{}, squareExt...), squareExt[0])
	closedHole := append(append(Ring{}, triangle...), triangle[0])
	in := Polygon{closedExt, closedHole}

	parts, err := ToParts(in)
	require.NoError(t, err)
	out := FromParts(parts)
	assert.Equal(t, in, out)
}

func TestToPartsNestedHoleNotInOuterOnly(t *testing.T) {
	// An exterior inside another exterior's hole region is still its own
	// part; its centroid containment in the outer square does not merge it.
	inner := Ring{{4, 4}, {4, 6}, {6, 6}, {6, 4}}
	parts, err := ToParts(Polygon{squareExt, inner})
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}
