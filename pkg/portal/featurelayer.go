package portal

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/rcview/rcview-cli/internal/esri"
)

// FeatureLayer is a hosted feature layer endpoint. The URL may belong to
// this portal or to any other ArcGIS-compatible REST service (the census
// TIGERweb layers, for example).
type FeatureLayer struct {
	client *Client
	url    string
}

// NewFeatureLayer wraps a feature layer URL with the given client session.
func NewFeatureLayer(c *Client, layerURL string) *FeatureLayer {
	return &FeatureLayer{client: c, url: strings.TrimRight(layerURL, "/")}
}

// URL returns the layer endpoint.
func (l *FeatureLayer) URL() string { return l.url }

// Feature is one record of a feature layer: attributes plus an optional
// polygon geometry.
type Feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *esri.Polygon  `json:"geometry,omitempty"`
}

// ObjectID returns the feature's value for the given object ID field, or -1
// when absent.
func (f Feature) ObjectID(field string) int64 {
	v, ok := f.Attributes[field]
	if !ok {
		return -1
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case json.Number:
		id, err := n.Int64()
		if err != nil {
			return -1
		}
		return id
	default:
		return -1
	}
}

// FeatureSet is a query result: features plus result metadata.
type FeatureSet struct {
	ObjectIDField    string                 `json:"objectIdFieldName"`
	SpatialReference *esri.SpatialReference `json:"spatialReference"`
	Features         []Feature              `json:"features"`
}

// Query selects features from a layer.
type Query struct {
	Where     string
	OutFields string
	OutSR     int
	// Envelope restricts results to features intersecting the box.
	Envelope       *esri.Envelope
	ReturnGeometry bool
}

// Query runs a layer query and returns the matching features.
func (l *FeatureLayer) Query(ctx context.Context, q Query) (*FeatureSet, error) {
	form, err := queryForm(q)
	if err != nil {
		return nil, err
	}
	var fs FeatureSet
	if err := l.client.Post(ctx, l.url+"/query", form, &fs); err != nil {
		return nil, err
	}
	return &fs, nil
}

func queryForm(q Query) (url.Values, error) {
	form := url.Values{}
	where := q.Where
	if where == "" {
		where = "1=1"
	}
	form.Set("where", where)
	if q.OutFields == "" {
		form.Set("outFields", "*")
	} else {
		form.Set("outFields", q.OutFields)
	}
	if q.OutSR != 0 {
		form.Set("outSR", strconv.Itoa(q.OutSR))
	}
	form.Set("returnGeometry", strconv.FormatBool(q.ReturnGeometry))

	if q.Envelope != nil {
		geomJSON, err := json.Marshal(q.Envelope)
		if err != nil {
			return nil, eris.Wrap(err, "portal: marshal envelope filter")
		}
		form.Set("geometry", string(geomJSON))
		form.Set("geometryType", "esriGeometryEnvelope")
		form.Set("spatialRel", "esriSpatialRelIntersects")
		if q.Envelope.SpatialReference != nil {
			form.Set("inSR", strconv.Itoa(q.Envelope.SpatialReference.WKID))
		}
	}
	return form, nil
}

// PointFeature is one record of a point layer: attributes plus an optional
// point geometry.
type PointFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *esri.Point    `json:"geometry,omitempty"`
}

// PointFeatureSet is a query result from a point layer.
type PointFeatureSet struct {
	ObjectIDField    string                 `json:"objectIdFieldName"`
	SpatialReference *esri.SpatialReference `json:"spatialReference"`
	Features         []PointFeature         `json:"features"`
}

// QueryPoints runs a layer query against a point layer. The query form is
// the same as Query; only the geometry decoding differs.
func (l *FeatureLayer) QueryPoints(ctx context.Context, q Query) (*PointFeatureSet, error) {
	form, err := queryForm(q)
	if err != nil {
		return nil, err
	}
	var fs PointFeatureSet
	if err := l.client.Post(ctx, l.url+"/query", form, &fs); err != nil {
		return nil, err
	}
	return &fs, nil
}

// EditResult is the outcome of one feature in an applyEdits call.
type EditResult struct {
	ObjectID int64 `json:"objectId"`
	Success  bool  `json:"success"`
	Error    *struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// EditResults groups applyEdits outcomes by operation.
type EditResults struct {
	Adds    []EditResult `json:"addResults"`
	Updates []EditResult `json:"updateResults"`
	Deletes []EditResult `json:"deleteResults"`
}

// EditFeatures applies adds, updates, and deletes in one call. Nil or empty
// slices skip the corresponding operation.
func (l *FeatureLayer) EditFeatures(ctx context.Context, adds, updates []Feature, deletes []int64) (*EditResults, error) {
	form := url.Values{}
	if len(adds) > 0 {
		data, err := json.Marshal(adds)
		if err != nil {
			return nil, eris.Wrap(err, "portal: marshal adds")
		}
		form.Set("adds", string(data))
	}
	if len(updates) > 0 {
		data, err := json.Marshal(updates)
		if err != nil {
			return nil, eris.Wrap(err, "portal: marshal updates")
		}
		form.Set("updates", string(data))
	}
	if len(deletes) > 0 {
		ids := make([]string, len(deletes))
		for i, id := range deletes {
			ids[i] = strconv.FormatInt(id, 10)
		}
		form.Set("deletes", strings.Join(ids, ","))
	}

	var results EditResults
	if err := l.client.Post(ctx, l.url+"/applyEdits", form, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// DeleteWhere removes all features matching the where clause.
func (l *FeatureLayer) DeleteWhere(ctx context.Context, where string) error {
	form := url.Values{}
	form.Set("where", where)
	var out struct {
		Success bool `json:"success"`
	}
	if err := l.client.Post(ctx, l.url+"/deleteFeatures", form, &out); err != nil {
		return err
	}
	return nil
}
