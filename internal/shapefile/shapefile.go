// Package shapefile reads polygon shapefiles into ring sets.
package shapefile

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rcview/rcview-cli/internal/rings"
)

// Record is one polygon feature with its attribute values keyed by
// lowercased field name.
type Record struct {
	Attributes map[string]string
	Polygon    rings.Polygon
}

// ReadPolygons reads every polygon record from a shapefile. Shapefile
// parts use the same winding convention as the portal's rings, so they
// map straight onto ring sets. Non-polygon shapes are skipped.
func ReadPolygons(path string) ([]Record, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
	}

	var records []Record
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil || len(poly.Points) == 0 {
			skipped++
			continue
		}

		attrs := make(map[string]string, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			attrs[name] = val
		}

		records = append(records, Record{
			Attributes: attrs,
			Polygon:    splitParts(poly),
		})
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped non-polygon records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return records, nil
}

// splitParts slices a shapefile's flat point array into rings.
func splitParts(p *shp.Polygon) rings.Polygon {
	out := make(rings.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make(rings.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, rings.Point{X: p.Points[j].X, Y: p.Points[j].Y})
		}
		out = append(out, ring)
	}
	return out
}
