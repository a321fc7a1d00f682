package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcview/rcview-cli/internal/esri"
)

func TestQueryBuildsFormAndParses(t *testing.T) {
	var form map[string][]string
	_, c := newTestPortal(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/layers/0/query", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"objectIdFieldName": "OBJECTID",
			"spatialReference": {"wkid": 3857},
			"features": [
				{"attributes": {"OBJECTID": 7, "POP100": 120},
				 "geometry": {"rings": [[[0,0],[0,10],[10,10],[10,0],[0,0]]]}}
			]
		}`)
	})

	srv := c.baseURL // test server base
	layer := NewFeatureLayer(c, srv+"/layers/0")
	fs, err := layer.Query(context.Background(), Query{
		Where:          "population is null",
		OutFields:      "OBJECTID,POP100",
		OutSR:          3857,
		ReturnGeometry: true,
		Envelope: &esri.Envelope{
			XMin: -1, YMin: -1, XMax: 11, YMax: 11,
			SpatialReference: esri.WebMercator,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "population is null", form["where"][0])
	assert.Equal(t, "OBJECTID,POP100", form["outFields"][0])
	assert.Equal(t, "3857", form["outSR"][0])
	assert.Equal(t, "true", form["returnGeometry"][0])
	assert.Equal(t, "esriGeometryEnvelope", form["geometryType"][0])
	assert.Equal(t, "esriSpatialRelIntersects", form["spatialRel"][0])
	assert.Equal(t, "3857", form["inSR"][0])

	var env map[string]any
	require.NoError(t, json.Unmarshal([]byte(form["geometry"][0]), &env))
	assert.Equal(t, float64(11), env["xmax"])

	require.Len(t, fs.Features, 1)
	assert.Equal(t, "OBJECTID", fs.ObjectIDField)
	assert.Equal(t, int64(7), fs.Features[0].ObjectID("OBJECTID"))
	require.NotNil(t, fs.Features[0].Geometry)
	assert.Len(t, fs.Features[0].Geometry.Rings, 1)
}

func TestQueryDefaults(t *testing.T) {
	var form map[string][]string
	_, c := newTestPortal(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_, _ = io.WriteString(w, `{"features": []}`)
	})

	layer := NewFeatureLayer(c, c.baseURL+"/layers/0")
	_, err := layer.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, "1=1", form["where"][0])
	assert.Equal(t, "*", form["outFields"][0])
	assert.Equal(t, "false", form["returnGeometry"][0])
}

func TestQueryPoints(t *testing.T) {
	var form map[string][]string
	_, c := newTestPortal(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/layers/0/query", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"objectIdFieldName": "objectid",
			"spatialReference": {"wkid": 3857},
			"features": [
				{"attributes": {"objectid": 1, "classification": "Destroyed"},
				 "geometry": {"x": -8575000.5, "y": 4705800.25}}
			]
		}`)
	})

	layer := NewFeatureLayer(c, c.baseURL+"/layers/0")
	fs, err := layer.QueryPoints(context.Background(), Query{
		OutFields:      "objectid,classification",
		ReturnGeometry: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "1=1", form["where"][0])
	assert.Equal(t, "objectid,classification", form["outFields"][0])
	assert.Equal(t, "true", form["returnGeometry"][0])

	require.NotNil(t, fs.SpatialReference)
	assert.Equal(t, 3857, fs.SpatialReference.WKID)
	require.Len(t, fs.Features, 1)
	require.NotNil(t, fs.Features[0].Geometry)
	assert.InDelta(t, -8575000.5, fs.Features[0].Geometry.X, 1e-9)
	assert.InDelta(t, 4705800.25, fs.Features[0].Geometry.Y, 1e-9)
	assert.Equal(t, "Destroyed", fs.Features[0].Attributes["classification"])
}

func TestEditFeatures(t *testing.T) {
	var form map[string][]string
	_, c := newTestPortal(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "/layers/0/applyEdits", r.URL.Path)
		_, _ = io.WriteString(w, `{
			"addResults": [{"objectId": 12, "success": true}],
			"updateResults": [{"objectId": 7, "success": true}],
			"deleteResults": [{"objectId": 3, "success": false, "error": {"code": 400, "description": "missing"}}]
		}`)
	})

	layer := NewFeatureLayer(c, c.baseURL+"/layers/0")
	results, err := layer.EditFeatures(context.Background(),
		[]Feature{{Attributes: map[string]any{"origin_obj": 1}}},
		[]Feature{{Attributes: map[string]any{"OBJECTID": 7, "population": 1200}}},
		[]int64{3},
	)
	require.NoError(t, err)

	assert.Contains(t, form["adds"][0], "origin_obj")
	assert.Contains(t, form["updates"][0], "population")
	assert.Equal(t, "3", form["deletes"][0])

	require.Len(t, results.Adds, 1)
	assert.True(t, results.Adds[0].Success)
	require.Len(t, results.Deletes, 1)
	assert.False(t, results.Deletes[0].Success)
	require.NotNil(t, results.Deletes[0].Error)
	assert.Equal(t, "missing", results.Deletes[0].Error.Description)
}

func TestFeatureObjectID(t *testing.T) {
	f := Feature{Attributes: map[string]any{"OBJECTID": float64(42)}}
	assert.Equal(t, int64(42), f.ObjectID("OBJECTID"))
	assert.Equal(t, int64(-1), f.ObjectID("missing"))
	assert.Equal(t, int64(-1), Feature{Attributes: map[string]any{"OBJECTID": "x"}}.ObjectID("OBJECTID"))
}
