// Package disasters aggregates detailed damage assessment points into a
// fishnet grid summary published to a polygon feature layer.
package disasters

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rcview/rcview-cli/internal/esri"
	"github.com/rcview/rcview-cli/pkg/portal"
)

// DefaultCellSize is the grid cell width in the units of the assessment
// layer's spatial reference, assumed to be meters.
const DefaultCellSize = 250.0

// pointLayer is the slice of portal.FeatureLayer the summarizer reads from.
type pointLayer interface {
	QueryPoints(ctx context.Context, q portal.Query) (*portal.PointFeatureSet, error)
}

// gridLayer is the slice of portal.FeatureLayer the summary is written to.
type gridLayer interface {
	EditFeatures(ctx context.Context, adds, updates []portal.Feature, deletes []int64) (*portal.EditResults, error)
	DeleteWhere(ctx context.Context, where string) error
}

var (
	_ pointLayer = (*portal.FeatureLayer)(nil)
	_ gridLayer  = (*portal.FeatureLayer)(nil)
)

// Assessment is one damage assessment point.
type Assessment struct {
	X, Y           float64
	Classification string
}

// Cell is one fishnet cell with its damage classification counts.
type Cell struct {
	XCell, YCell    int
	Destroyed       int
	Major           int
	Minor           int
	Affected        int
	NoVisibleDamage int
	Inaccessible    int
}

// MajorDestroyed is the combined count of major-damage and destroyed homes.
func (c Cell) MajorDestroyed() int { return c.Major + c.Destroyed }

// Total is the count of all assessed homes. Inaccessible points carry no
// damage information and are excluded.
func (c Cell) Total() int {
	return c.MajorDestroyed() + c.Minor + c.Affected + c.NoVisibleDamage
}

// Grid is a fishnet summary of assessment points. Cell (0, 0) is centered
// on the extent's southwest point.
type Grid struct {
	CellSize         float64
	XMin, YMin       float64
	SpatialReference *esri.SpatialReference
	Cells            []Cell
}

// BuildGrid bins assessment points into fishnet cells and counts them by
// damage classification. Points with classifications outside the DDA
// scheme are dropped.
func BuildGrid(points []Assessment, cellSize float64, sr *esri.SpatialReference) Grid {
	g := Grid{CellSize: cellSize, SpatialReference: sr}
	if len(points) == 0 || cellSize <= 0 {
		return g
	}

	g.XMin, g.YMin = points[0].X, points[0].Y
	for _, p := range points[1:] {
		if p.X < g.XMin {
			g.XMin = p.X
		}
		if p.Y < g.YMin {
			g.YMin = p.Y
		}
	}

	type key struct{ x, y int }
	cells := make(map[key]*Cell)
	dropped := 0
	for _, p := range points {
		k := key{
			x: int((p.X-g.XMin)/cellSize + 0.5),
			y: int((p.Y-g.YMin)/cellSize + 0.5),
		}
		c, ok := cells[k]
		if !ok {
			c = &Cell{XCell: k.x, YCell: k.y}
			cells[k] = c
		}
		switch strings.ToLower(p.Classification) {
		case "destroyed":
			c.Destroyed++
		case "major":
			c.Major++
		case "minor":
			c.Minor++
		case "affected":
			c.Affected++
		case "nvd":
			c.NoVisibleDamage++
		case "inaccessible":
			c.Inaccessible++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		zap.L().Warn("disasters: unrecognized damage classifications dropped",
			zap.Int("count", dropped))
	}

	for _, c := range cells {
		g.Cells = append(g.Cells, *c)
	}
	sort.Slice(g.Cells, func(i, j int) bool {
		if g.Cells[i].YCell != g.Cells[j].YCell {
			return g.Cells[i].YCell < g.Cells[j].YCell
		}
		return g.Cells[i].XCell < g.Cells[j].XCell
	})
	return g
}

// CellPolygon is the square footprint of one cell as a clockwise ring.
func (g Grid) CellPolygon(c Cell) esri.Polygon {
	xOrg := g.XMin - g.CellSize/2
	yOrg := g.YMin - g.CellSize/2
	xMin := float64(c.XCell)*g.CellSize + xOrg
	yMin := float64(c.YCell)*g.CellSize + yOrg
	xMax := xMin + g.CellSize
	yMax := yMin + g.CellSize
	return esri.Polygon{
		Rings: [][][]float64{{
			{xMin, yMin}, {xMin, yMax}, {xMax, yMax}, {xMax, yMin}, {xMin, yMin},
		}},
		SpatialReference: g.SpatialReference,
	}
}

// Summarize queries assessment points matching the where clause and builds
// their grid summary. Points without geometry are skipped.
func Summarize(ctx context.Context, layer pointLayer, where string, cellSize float64) (Grid, error) {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}

	fs, err := layer.QueryPoints(ctx, portal.Query{
		Where:          where,
		OutFields:      "objectid,classification",
		ReturnGeometry: true,
	})
	if err != nil {
		return Grid{}, eris.Wrap(err, "disasters: query assessments")
	}

	points := make([]Assessment, 0, len(fs.Features))
	skipped := 0
	for _, f := range fs.Features {
		if f.Geometry == nil {
			skipped++
			continue
		}
		points = append(points, Assessment{
			X:              f.Geometry.X,
			Y:              f.Geometry.Y,
			Classification: classification(f.Attributes),
		})
	}
	if skipped > 0 {
		zap.L().Warn("disasters: assessments without geometry skipped",
			zap.Int("count", skipped))
	}
	zap.L().Info("disasters: building grid summary",
		zap.Int("points", len(points)),
		zap.Float64("cell_size", cellSize),
	)

	return BuildGrid(points, cellSize, fs.SpatialReference), nil
}

// Publish replaces the contents of the grid layer with the summary cells.
// The layer needs integer fields x_cell, y_cell, major_destroyed,
// destroyed, major, minor, affected, nvd, inaccessible, and all_dda.
func Publish(ctx context.Context, layer gridLayer, g Grid) (*portal.EditResults, error) {
	if err := layer.DeleteWhere(ctx, "1=1"); err != nil {
		return nil, eris.Wrap(err, "disasters: clear grid layer")
	}

	adds := make([]portal.Feature, len(g.Cells))
	for i, c := range g.Cells {
		footprint := g.CellPolygon(c)
		adds[i] = portal.Feature{
			Attributes: map[string]any{
				"x_cell":          c.XCell,
				"y_cell":          c.YCell,
				"destroyed":       c.Destroyed,
				"major":           c.Major,
				"minor":           c.Minor,
				"affected":        c.Affected,
				"nvd":             c.NoVisibleDamage,
				"inaccessible":    c.Inaccessible,
				"major_destroyed": c.MajorDestroyed(),
				"all_dda":         c.Total(),
			},
			Geometry: &footprint,
		}
	}

	results, err := layer.EditFeatures(ctx, adds, nil, nil)
	if err != nil {
		return nil, eris.Wrap(err, "disasters: add grid cells")
	}
	for _, r := range results.Adds {
		if !r.Success {
			return results, eris.New("disasters: grid layer rejected a cell add")
		}
	}
	zap.L().Info("disasters: grid summary published", zap.Int("cells", len(adds)))
	return results, nil
}

func classification(attrs map[string]any) string {
	if v, ok := attrs["classification"].(string); ok {
		return v
	}
	return ""
}
