package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/rcview/rcview-cli/internal/esri"
	"github.com/rcview/rcview-cli/internal/rings"
	"github.com/rcview/rcview-cli/internal/shapefile"
)

// ringsDoc is an Esri polygon in its REST wire form.
type ringsDoc struct {
	Rings            [][][]float64          `json:"rings"`
	SpatialReference *esri.SpatialReference `json:"spatialReference,omitempty"`
}

// partDoc is one exterior ring with its holes.
type partDoc struct {
	Exterior [][]float64   `json:"exterior"`
	Holes    [][][]float64 `json:"holes,omitempty"`
}

// partsDoc is the exterior/hole form of one polygon.
type partsDoc struct {
	Parts            []partDoc              `json:"parts"`
	SpatialReference *esri.SpatialReference `json:"spatialReference,omitempty"`
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert polygons between ring and exterior/hole form",
	Long: `Reads polygons from an Esri ring JSON file, an exterior/hole JSON file,
or a polygon shapefile, and writes them in the requested form. Ring winding
follows the portal convention: exterior rings clockwise, holes
counter-clockwise.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		wkid, _ := cmd.Flags().GetInt("sr")

		polygons, err := readPolygons(input, wkid)
		if err != nil {
			return err
		}

		var rendered []byte
		switch format {
		case "parts":
			rendered, err = renderParts(polygons)
		case "rings":
			rendered, err = renderRings(polygons)
		case "wkb":
			rendered, err = renderWKB(polygons)
		case "geojson":
			rendered, err = renderGeoJSON(polygons)
		default:
			return eris.Errorf("convert: unknown format %q (want parts, rings, wkb, or geojson)", format)
		}
		if err != nil {
			return err
		}

		if output == "-" || output == "" {
			fmt.Println(string(rendered))
			return nil
		}
		if err := os.WriteFile(output, rendered, 0o644); err != nil {
			return eris.Wrap(err, "convert: write output")
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("input", "", "input file (.json ring or parts document, or .shp)")
	convertCmd.Flags().String("format", "parts", "output format: parts, rings, wkb, or geojson")
	convertCmd.Flags().String("output", "-", "output file, or - for stdout")
	convertCmd.Flags().Int("sr", 4326, "spatial reference WKID when the input does not carry one")
	_ = convertCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(convertCmd)
}

// readPolygons loads one or more polygons from the input file.
func readPolygons(path string, wkid int) ([]esri.Polygon, error) {
	sr := &esri.SpatialReference{WKID: wkid}

	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		records, err := shapefile.ReadPolygons(path)
		if err != nil {
			return nil, err
		}
		polygons := make([]esri.Polygon, len(records))
		for i, rec := range records {
			polygons[i] = esri.FromRingSet(rec.Polygon, sr)
		}
		return polygons, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "convert: read input")
	}

	var rd ringsDoc
	if err := json.Unmarshal(data, &rd); err == nil && len(rd.Rings) > 0 {
		p := esri.Polygon{Rings: rd.Rings, SpatialReference: rd.SpatialReference}
		if p.SpatialReference == nil {
			p.SpatialReference = sr
		}
		return []esri.Polygon{p}, nil
	}

	var pd partsDoc
	if err := json.Unmarshal(data, &pd); err == nil && len(pd.Parts) > 0 {
		p, err := polygonFromParts(pd, sr)
		if err != nil {
			return nil, err
		}
		return []esri.Polygon{p}, nil
	}

	return nil, eris.Errorf("convert: %s contains neither rings nor parts", path)
}

func renderParts(polygons []esri.Polygon) ([]byte, error) {
	docs := make([]partsDoc, len(polygons))
	for i, p := range polygons {
		parts, err := rings.ToParts(p.RingSet())
		if err != nil {
			return nil, err
		}
		doc := partsDoc{SpatialReference: p.SpatialReference}
		for _, part := range parts {
			pd := partDoc{Exterior: ringCoords(part.Exterior)}
			for _, h := range part.Holes {
				pd.Holes = append(pd.Holes, ringCoords(h))
			}
			doc.Parts = append(doc.Parts, pd)
		}
		docs[i] = doc
	}
	return json.MarshalIndent(docs, "", "  ")
}

func renderRings(polygons []esri.Polygon) ([]byte, error) {
	docs := make([]ringsDoc, len(polygons))
	for i, p := range polygons {
		docs[i] = ringsDoc{Rings: p.Rings, SpatialReference: p.SpatialReference}
	}
	return json.MarshalIndent(docs, "", "  ")
}

func renderWKB(polygons []esri.Polygon) ([]byte, error) {
	var b strings.Builder
	for _, p := range polygons {
		data, err := esri.EncodeWKB(p)
		if err != nil {
			return nil, err
		}
		b.WriteString(hex.EncodeToString(data))
		b.WriteByte('\n')
	}
	return []byte(strings.TrimRight(b.String(), "\n")), nil
}

func renderGeoJSON(polygons []esri.Polygon) ([]byte, error) {
	fc := &geojson.FeatureCollection{}
	for _, p := range polygons {
		g, err := p.ToGeom()
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: g})
	}
	return json.MarshalIndent(fc, "", "  ")
}

// polygonFromParts rebuilds a normalized ring polygon from exterior/hole
// form.
func polygonFromParts(doc partsDoc, fallback *esri.SpatialReference) (esri.Polygon, error) {
	parts := make([]rings.Part, len(doc.Parts))
	for i, pd := range doc.Parts {
		parts[i].Exterior = coordsRing(pd.Exterior)
		for _, h := range pd.Holes {
			parts[i].Holes = append(parts[i].Holes, coordsRing(h))
		}
	}

	sr := doc.SpatialReference
	if sr == nil {
		sr = fallback
	}
	return esri.FromRingSet(rings.FromParts(parts), sr), nil
}

func ringCoords(r rings.Ring) [][]float64 {
	out := make([][]float64, len(r))
	for i, pt := range r {
		out[i] = []float64{pt.X, pt.Y}
	}
	return out
}

func coordsRing(coords [][]float64) rings.Ring {
	r := make(rings.Ring, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		r = append(r, rings.Point{X: c[0], Y: c[1]})
	}
	return r
}
