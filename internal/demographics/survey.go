package demographics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcview/rcview-cli/internal/esri"
	"github.com/rcview/rcview-cli/internal/overlay"
	"github.com/rcview/rcview-cli/internal/rings"
	"github.com/rcview/rcview-cli/pkg/portal"
)

const (
	// DefaultBlocksLayerURL is the TIGERweb census blocks layer.
	DefaultBlocksLayerURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/12"

	// DefaultAnalysisSR is USA Contiguous Albers Equal Area Conic (USGS),
	// meters, appropriate for the continental US.
	DefaultAnalysisSR = 102039

	// DefaultAreasWhere selects areas not yet summarized.
	DefaultAreasWhere = "population is null"

	squareMetersPerSquareMile = 4046.86 * 640
)

// featureLayer is the slice of portal.FeatureLayer the surveyor needs.
type featureLayer interface {
	Query(ctx context.Context, q portal.Query) (*portal.FeatureSet, error)
	EditFeatures(ctx context.Context, adds, updates []portal.Feature, deletes []int64) (*portal.EditResults, error)
}

var _ featureLayer = (*portal.FeatureLayer)(nil)

// AreaSummary is the survey outcome for one area feature.
type AreaSummary struct {
	ObjectID int64
	Summary
	Warnings []string
	Updated  bool
}

// Surveyor computes population and housing totals for the polygon features
// of an areas layer and writes the selected method's totals back to the
// layer. The areas layer must carry integer population and housing fields,
// a double area_sq_mi field, and a string method field.
type Surveyor struct {
	areas       featureLayer
	blocks      featureLayer
	method      Method
	sr          int
	concurrency int
	dryRun      bool
}

// SurveyOption configures a Surveyor.
type SurveyOption func(*Surveyor)

// WithBlocksLayer overrides the census blocks layer.
func WithBlocksLayer(l featureLayer) SurveyOption {
	return func(s *Surveyor) { s.blocks = l }
}

// WithMethod sets the summary method written back to the layer.
func WithMethod(m Method) SurveyOption {
	return func(s *Surveyor) { s.method = m }
}

// WithSpatialReference sets the analysis spatial reference. Its units must
// be meters.
func WithSpatialReference(wkid int) SurveyOption {
	return func(s *Surveyor) {
		if wkid != 0 {
			s.sr = wkid
		}
	}
}

// WithConcurrency bounds how many areas are processed in parallel.
func WithConcurrency(n int) SurveyOption {
	return func(s *Surveyor) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDryRun computes summaries without editing the areas layer.
func WithDryRun(dry bool) SurveyOption {
	return func(s *Surveyor) { s.dryRun = dry }
}

// NewSurveyor creates a Surveyor over an areas layer.
func NewSurveyor(areas featureLayer, opts ...SurveyOption) *Surveyor {
	s := &Surveyor{
		areas:       areas,
		method:      MethodMajority,
		sr:          DefaultAnalysisSR,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Survey summarizes every area matching the where clause. An empty where
// clause selects areas whose population field is null. Block-level
// problems are reported as warnings on the affected area, not as errors.
func (s *Surveyor) Survey(ctx context.Context, where string) ([]AreaSummary, error) {
	if s.blocks == nil {
		return nil, eris.New("demographics: no census blocks layer configured")
	}
	if where == "" {
		where = DefaultAreasWhere
	}

	fs, err := s.areas.Query(ctx, portal.Query{
		Where:          where,
		OutFields:      "objectid,population,housing,area_sq_mi,method",
		OutSR:          s.sr,
		ReturnGeometry: true,
	})
	if err != nil {
		return nil, eris.Wrap(err, "demographics: query areas")
	}
	zap.L().Info("demographics: summarizing areas",
		zap.Int("count", len(fs.Features)),
		zap.String("where", where),
	)

	idField := fs.ObjectIDField
	if idField == "" {
		idField = "objectid"
	}

	var (
		mu        sync.Mutex
		summaries []AreaSummary
	)
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for _, area := range fs.Features {
		area := area
		eg.Go(func() error {
			as, err := s.surveyArea(gCtx, area, idField)
			if err != nil {
				return err
			}
			mu.Lock()
			summaries = append(summaries, as)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ObjectID < summaries[j].ObjectID })
	return summaries, nil
}

func (s *Surveyor) surveyArea(ctx context.Context, area portal.Feature, idField string) (AreaSummary, error) {
	as := AreaSummary{ObjectID: area.ObjectID(idField)}
	if area.Geometry == nil {
		as.Warnings = append(as.Warnings, "area has no geometry")
		return as, nil
	}
	areaPoly := area.Geometry.RingSet()

	overlaps, warnings, err := s.blockOverlaps(ctx, areaPoly)
	if err != nil {
		return as, eris.Wrapf(err, "demographics: area %d", as.ObjectID)
	}
	as.Warnings = append(as.Warnings, warnings...)
	as.Summary = Summarize(overlaps)
	as.AreaSqMi = overlay.Area(areaPoly) / squareMetersPerSquareMile

	if s.dryRun {
		return as, nil
	}

	pop, housing := as.Counts(s.method)
	roundedPop, err := RoundSignificant(float64(pop), 2)
	if err != nil {
		return as, eris.Wrapf(err, "demographics: area %d population", as.ObjectID)
	}
	roundedHousing, err := RoundSignificant(float64(housing), 2)
	if err != nil {
		return as, eris.Wrapf(err, "demographics: area %d housing", as.ObjectID)
	}

	update := portal.Feature{Attributes: map[string]any{
		idField:      as.ObjectID,
		"population": int(roundedPop),
		"housing":    int(roundedHousing),
		"area_sq_mi": math.Round(as.AreaSqMi*100) / 100,
		"method":     s.method.Label(),
	}}
	results, err := s.areas.EditFeatures(ctx, nil, []portal.Feature{update}, nil)
	if err != nil {
		return as, eris.Wrapf(err, "demographics: update area %d", as.ObjectID)
	}
	for _, r := range results.Updates {
		if !r.Success {
			as.Warnings = append(as.Warnings, fmt.Sprintf("update rejected for area %d", as.ObjectID))
			return as, nil
		}
	}
	as.Updated = true
	return as, nil
}

// blockOverlaps queries census blocks intersecting the area and computes
// each block's intersecting fraction.
func (s *Surveyor) blockOverlaps(ctx context.Context, areaPoly rings.Polygon) ([]BlockOverlap, []string, error) {
	env := envelopeOf(areaPoly, s.sr)
	if env == nil {
		return nil, []string{"area polygon is empty"}, nil
	}

	fs, err := s.blocks.Query(ctx, portal.Query{
		OutFields:      "OBJECTID,POP100,HU100,GEOID",
		OutSR:          s.sr,
		Envelope:       env,
		ReturnGeometry: true,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "query census blocks")
	}

	var (
		overlaps []BlockOverlap
		warnings []string
	)
	for _, block := range fs.Features {
		geoid := attrString(block.Attributes, "GEOID")
		if block.Geometry == nil {
			warnings = append(warnings, fmt.Sprintf("census block %s has no geometry", geoid))
			continue
		}
		frac := overlay.IntersectionFraction(block.Geometry.RingSet(), areaPoly)
		if frac == 0 {
			// Envelope filter overshoots; the block only touched the box.
			continue
		}
		overlaps = append(overlaps, BlockOverlap{
			GEOID:      geoid,
			Population: attrInt(block.Attributes, "POP100"),
			Housing:    attrInt(block.Attributes, "HU100"),
			Fraction:   frac,
		})
	}
	return overlaps, warnings, nil
}

// envelopeOf returns the bounding box of a polygon, or nil when empty.
func envelopeOf(p rings.Polygon, wkid int) *esri.Envelope {
	env := &esri.Envelope{
		XMin: math.Inf(1), YMin: math.Inf(1),
		XMax: math.Inf(-1), YMax: math.Inf(-1),
		SpatialReference: &esri.SpatialReference{WKID: wkid},
	}
	found := false
	for _, ring := range p {
		for _, pt := range ring {
			found = true
			env.XMin = math.Min(env.XMin, pt.X)
			env.YMin = math.Min(env.YMin, pt.Y)
			env.XMax = math.Max(env.XMax, pt.X)
			env.YMax = math.Max(env.YMax, pt.Y)
		}
	}
	if !found {
		return nil
	}
	return env
}

func attrInt(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func attrString(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
