package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcview/rcview-cli/pkg/geocode"
)

type stubGeocoder struct {
	result  *geocode.Result
	err     error
	last    geocode.Address
	lastCtx context.Context
}

func (s *stubGeocoder) Geocode(ctx context.Context, addr geocode.Address) (*geocode.Result, error) {
	s.last = addr
	s.lastCtx = ctx
	return s.result, s.err
}

func (s *stubGeocoder) BatchGeocode(_ context.Context, addrs []geocode.Address) ([]geocode.Result, error) {
	results := make([]geocode.Result, len(addrs))
	for i := range addrs {
		if s.result != nil {
			results[i] = *s.result
		}
	}
	return results, s.err
}

func TestServeRouter_Health(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestServeRouter_RequestIDPassthrough(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestServeRouter_ConvertRings(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	// A clockwise square with a counter-clockwise triangular hole.
	payload := []byte(`{
		"rings": [
			[[0,0],[0,10],[10,10],[10,0],[0,0]],
			[[2,2],[6,2],[4,6],[2,2]]
		],
		"spatialReference": {"wkid": 4326}
	}`)

	req := httptest.NewRequest(http.MethodPost, "/v1/convert/rings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var doc partsDoc
	err := json.Unmarshal(rr.Body.Bytes(), &doc)
	require.NoError(t, err)
	require.Len(t, doc.Parts, 1)
	assert.Len(t, doc.Parts[0].Exterior, 5)
	require.Len(t, doc.Parts[0].Holes, 1)
	assert.Len(t, doc.Parts[0].Holes[0], 4)
	require.NotNil(t, doc.SpatialReference)
	assert.Equal(t, 4326, doc.SpatialReference.WKID)
}

func TestServeRouter_ConvertRings_MissingRings(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodPost, "/v1/convert/rings", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "rings is required")
}

func TestServeRouter_ConvertRings_InvalidJSON(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodPost, "/v1/convert/rings", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestServeRouter_GridUSNG(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodGet, "/v1/grid/usng?lat=38.8977&lon=-77.0365&precision=0", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "18S UJ", body["reference"])
}

func TestServeRouter_GridUSNG_Reverse(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodGet, "/v1/grid/usng?ref=18S+UJ+23+07", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string]float64
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.InDelta(t, 38.88, body["latitude"], 0.1)
	assert.InDelta(t, -77.05, body["longitude"], 0.1)
}

func TestServeRouter_GridUSNG_MissingParams(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodGet, "/v1/grid/usng", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "lat is required")
}

func TestServeRouter_Geocode(t *testing.T) {
	stub := &stubGeocoder{result: &geocode.Result{
		Matched:   true,
		Address:   "1600 PENNSYLVANIA AVE NW, WASHINGTON, DC, 20500",
		MatchType: "Exact",
		Source:    "US Census",
		Latitude:  38.898754,
		Longitude: -77.03535,
	}}
	router := newServeRouter(stub)

	payload := []byte(`{"street":"1600 Pennsylvania Ave NW","city":"Washington","state":"DC","zip":"20500"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/geocode", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "1600 Pennsylvania Ave NW", stub.last.Street)

	var body map[string]any
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "US Census", body["source"])
	assert.InDelta(t, 38.898754, body["latitude"].(float64), 1e-9)
}

func TestServeRouter_Geocode_EmptyAddress(t *testing.T) {
	router := newServeRouter(&stubGeocoder{})

	req := httptest.NewRequest(http.MethodPost, "/v1/geocode", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "address is required")
}
