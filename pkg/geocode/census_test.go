package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Public_AR_Current", r.URL.Query().Get("benchmark"))
		assert.Equal(t, "1600 Pennsylvania Ave NW, Washington, DC, 20500", r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"result": {
				"addressMatches": [{
					"coordinates": {"x": -77.0365, "y": 38.8977},
					"matchedAddress": "1600 PENNSYLVANIA AVE NW, WASHINGTON, DC, 20500"
				}]
			}
		}`)
	}))
	defer srv.Close()

	g := censusGeocoder(srv, censusOneLineURL)

	result, err := g.geocodeCensus(context.Background(), Address{
		Street: "1600 Pennsylvania Ave NW", City: "Washington", State: "DC", Zip: "20500",
	})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 38.8977, result.Latitude, 0.0001)
	assert.InDelta(t, -77.0365, result.Longitude, 0.0001)
	assert.Equal(t, "US Census", result.Source)
	assert.Equal(t, "Exact", result.MatchType)
}

func TestCensusGeocode_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"result": {"addressMatches": []}}`)
	}))
	defer srv.Close()

	g := censusGeocoder(srv, censusOneLineURL)

	result, err := g.geocodeCensus(context.Background(), Address{
		Street: "123 Nowhere St", City: "Faketown", State: "XX", Zip: "00000",
	})
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "US Census", result.Source)
}

func TestCensusGeocode_EmptyAddress(t *testing.T) {
	g := &geocoder{limiter: unthrottled()}

	result, err := g.geocodeCensus(context.Background(), Address{})
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestCensusBatch_MixedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Public_AR_Current", r.FormValue("benchmark"))
		assert.Equal(t, "locations", r.FormValue("returntype"))

		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, `"0","1600 Pennsylvania Ave NW, Washington, DC, 20500","Match","Exact","1600 PENNSYLVANIA AVE NW, WASHINGTON, DC, 20500","-77.0365,38.8977","123","L"
"1","123 Nowhere St, Faketown, XX, 00000","No_Match"`)
	}))
	defer srv.Close()

	g := censusGeocoder(srv, censusBatchURL)

	addrs := []Address{
		{ID: "0", Street: "1600 Pennsylvania Ave NW", City: "Washington", State: "DC", Zip: "20500"},
		{ID: "1", Street: "123 Nowhere St", City: "Faketown", State: "XX", Zip: "00000"},
	}

	results, err := g.batchGeocodeCensus(context.Background(), addrs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Matched)
	assert.Equal(t, "Exact", results[0].MatchType)
	assert.InDelta(t, 38.8977, results[0].Latitude, 0.0001)
	assert.InDelta(t, -77.0365, results[0].Longitude, 0.0001)

	assert.False(t, results[1].Matched)
	assert.Equal(t, "US Census", results[1].Source)
}

func TestParseCensusBatch(t *testing.T) {
	body := []byte(`"0","input addr","Match","Non_Exact","MATCHED ADDR","-73.9857,40.7484","999","R"
"1","input addr","No_Match"`)

	idToIdx := map[string]int{"0": 0, "1": 1}
	results, err := parseCensusBatch(body, idToIdx, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Matched)
	assert.Equal(t, "Non_Exact", results[0].MatchType)
	assert.Equal(t, "MATCHED ADDR", results[0].Address)
	assert.InDelta(t, 40.7484, results[0].Latitude, 0.0001)
	assert.InDelta(t, -73.9857, results[0].Longitude, 0.0001)

	assert.False(t, results[1].Matched)
}

func TestOneLine(t *testing.T) {
	tests := []struct {
		addr     Address
		expected string
	}{
		{
			Address{Street: "123 Main St", City: "Springfield", State: "IL", Zip: "62701"},
			"123 Main St, Springfield, IL, 62701",
		},
		{
			Address{Street: "456 Oak Ave", City: "Portland", State: "OR"},
			"456 Oak Ave, Portland, OR",
		},
		{
			Address{City: "Denver", State: "CO", Zip: "80202"},
			"Denver, CO, 80202",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, oneLine(tt.addr))
	}
}

func TestSplitLonLat(t *testing.T) {
	lon, lat, err := splitLonLat("-77.0365,38.8977")
	require.NoError(t, err)
	assert.InDelta(t, -77.0365, lon, 0.0001)
	assert.InDelta(t, 38.8977, lat, 0.0001)

	_, _, err = splitLonLat("not-a-pair")
	assert.Error(t, err)
}
