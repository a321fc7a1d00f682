// Package districts builds incident district boundaries by dissolving
// county, chapter, or region units into one polygon per district.
package districts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rcview/rcview-cli/internal/esri"
	"github.com/rcview/rcview-cli/internal/overlay"
	"github.com/rcview/rcview-cli/internal/rings"
	"github.com/rcview/rcview-cli/pkg/portal"
)

// Generalized boundaries keep online maps fast to render.
const (
	CountiesLayerURL = "http://services.arcgis.com/P3ePLMYs2RVChkJx/ArcGIS/rest/services/USA_Counties_Generalized/FeatureServer/0"
	ChaptersLayerURL = "https://services.arcgis.com/pGfbNJoYypmNq86F/arcgis/rest/services/2015_ARC_Chapter_Boundaries/FeatureServer/0"
)

// UnitType names the boundary units districts are assembled from.
type UnitType string

const (
	// UnitCounties selects state counties by NAME.
	UnitCounties UnitType = "counties"
	// UnitChapters selects Red Cross chapters by ECODE.
	UnitChapters UnitType = "chapters"
	// UnitRegions selects Red Cross regions by RCODE.
	UnitRegions UnitType = "regions"
)

// ParseUnitType validates a unit type name.
func ParseUnitType(s string) (UnitType, error) {
	switch UnitType(s) {
	case UnitCounties, UnitChapters, UnitRegions:
		return UnitType(s), nil
	}
	return "", eris.Errorf("districts: unknown unit type %q (want counties, chapters, or regions)", s)
}

// LayerURL returns the boundary layer for the unit type. Chapters and
// regions share one layer and differ only in the matched attribute.
func (t UnitType) LayerURL() string {
	if t == UnitCounties {
		return CountiesLayerURL
	}
	return ChaptersLayerURL
}

// Attribute returns the layer field matched against unit names.
func (t UnitType) Attribute() string {
	switch t {
	case UnitCounties:
		return "NAME"
	case UnitChapters:
		return "ECODE"
	case UnitRegions:
		return "RCODE"
	}
	return ""
}

// District is one built district boundary.
type District struct {
	Number           int
	Name             string
	Units            []string // units actually found, sorted
	Missing          []string // requested units absent from the layer
	Boundary         rings.Polygon
	SpatialReference *esri.SpatialReference
}

// unitLayer is the read side of portal.FeatureLayer.
type unitLayer interface {
	Query(ctx context.Context, q portal.Query) (*portal.FeatureSet, error)
}

// targetLayer is the edit side used when publishing districts.
type targetLayer interface {
	DeleteWhere(ctx context.Context, where string) error
	EditFeatures(ctx context.Context, adds, updates []portal.Feature, deletes []int64) (*portal.EditResults, error)
}

// Builder assembles district boundaries from a units layer.
type Builder struct {
	units unitLayer
	def   Definition
	title cases.Caser
}

// NewBuilder creates a Builder for a definition. The units layer must be
// the one the definition's unit type names.
func NewBuilder(units unitLayer, def Definition) *Builder {
	return &Builder{
		units: units,
		def:   def,
		title: cases.Title(language.AmericanEnglish),
	}
}

// Build queries each district's units and dissolves their boundaries.
// Units missing from the layer are reported on the district, not as an
// error, so a typo in one district does not abort the rest.
func (b *Builder) Build(ctx context.Context) ([]District, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}

	attr := b.def.Type.Attribute()
	districts := make([]District, 0, len(b.def.Districts))
	for i, units := range b.def.Districts {
		number := i + 1
		fs, err := b.units.Query(ctx, portal.Query{
			Where:          b.whereClause(units),
			OutFields:      attr,
			ReturnGeometry: true,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "districts: query units for district %d", number)
		}

		d := District{Number: number, Name: fmt.Sprintf("District %d", number)}
		if fs.SpatialReference != nil {
			d.SpatialReference = fs.SpatialReference
		}

		found := make(map[string]bool)
		var polys []rings.Polygon
		for _, f := range fs.Features {
			if name, ok := f.Attributes[attr].(string); ok {
				found[name] = true
			}
			if f.Geometry != nil {
				polys = append(polys, f.Geometry.RingSet())
			}
		}
		for name := range found {
			d.Units = append(d.Units, name)
		}
		sort.Strings(d.Units)
		for _, u := range units {
			if !found[u] {
				d.Missing = append(d.Missing, u)
			}
		}
		if len(d.Missing) > 0 {
			zap.L().Warn("districts: units not found",
				zap.Int("district", number),
				zap.Strings("units", d.Missing),
			)
		}

		d.Boundary = overlay.Union(polys...)
		districts = append(districts, d)
	}
	return districts, nil
}

// whereClause builds the unit selection query. County names are scoped to
// the definition's state.
func (b *Builder) whereClause(units []string) string {
	quoted := make([]string, len(units))
	for i, u := range units {
		quoted[i] = "'" + strings.ReplaceAll(u, "'", "''") + "'"
	}
	in := strings.Join(quoted, ",")

	if b.def.Type == UnitCounties {
		state := strings.ReplaceAll(b.title.String(strings.ToLower(b.def.State)), "'", "''")
		return fmt.Sprintf("(STATE_NAME='%s') AND (NAME IN (%s))", state, in)
	}
	return fmt.Sprintf("%s IN (%s)", b.def.Type.Attribute(), in)
}

// Publish replaces the contents of a districts layer with the built
// boundaries. Each feature carries number, name, and units attributes.
func Publish(ctx context.Context, layer targetLayer, districts []District) error {
	if err := layer.DeleteWhere(ctx, "1=1"); err != nil {
		return eris.Wrap(err, "districts: clear layer")
	}

	adds := make([]portal.Feature, len(districts))
	for i, d := range districts {
		sr := d.SpatialReference
		if sr == nil {
			sr = esri.WGS84
		}
		boundary := esri.FromRingSet(d.Boundary, sr)
		adds[i] = portal.Feature{
			Attributes: map[string]any{
				"number": d.Number,
				"name":   d.Name,
				"units":  strings.Join(d.Units, ", "),
			},
			Geometry: &boundary,
		}
	}

	results, err := layer.EditFeatures(ctx, adds, nil, nil)
	if err != nil {
		return eris.Wrap(err, "districts: add features")
	}
	for i, r := range results.Adds {
		if !r.Success {
			return eris.Errorf("districts: add rejected for district %d", districts[i].Number)
		}
	}
	return nil
}
