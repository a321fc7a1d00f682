package geocode

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBatchURL   = "https://geocoding.geo.census.gov/geocoder/locations/addressbatch"
	censusBenchmark  = "Public_AR_Current"

	sourceCensus = "US Census"
	sourceEsri   = "Esri"
)

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []struct {
			MatchedAddress string `json:"matchedAddress"`
			Coordinates    struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// oneLine joins the non-empty address components for the one-line endpoint.
func oneLine(addr Address) string {
	var parts []string
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (g *geocoder) geocodeCensus(ctx context.Context, addr Address) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census rate limit")
	}

	line := oneLine(addr)
	if line == "" {
		return &Result{Matched: false, Source: sourceCensus}, nil
	}

	params := url.Values{
		"address":   {line},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, censusOneLineURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census returned status %d", resp.StatusCode)
	}

	var decoded censusOneLineResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, eris.Wrap(err, "geocode: census decode response")
	}
	if len(decoded.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: sourceCensus}, nil
	}

	m := decoded.Result.AddressMatches[0]
	return &Result{
		Matched:   true,
		Address:   m.MatchedAddress,
		MatchType: "Exact",
		Source:    sourceCensus,
		Latitude:  round6(m.Coordinates.Y),
		Longitude: round6(m.Coordinates.X),
	}, nil
}

func (g *geocoder) batchGeocodeCensus(ctx context.Context, addrs []Address) ([]Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch rate limit")
	}

	// Upload CSV: id,street,city,state,zip with no header.
	var csvBuf bytes.Buffer
	w := csv.NewWriter(&csvBuf)
	idToIdx := make(map[string]int, len(addrs))
	for i, addr := range addrs {
		idToIdx[addr.ID] = i
		if err := w.Write([]string{addr.ID, addr.Street, addr.City, addr.State, addr.Zip}); err != nil {
			return nil, eris.Wrap(err, "geocode: census batch write csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch flush csv")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("benchmark", censusBenchmark); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch write benchmark")
	}
	if err := mw.WriteField("returntype", "locations"); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch write returntype")
	}
	part, err := mw.CreateFormFile("addressFile", "addresses.csv")
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census batch create form file")
	}
	if _, err := part.Write(csvBuf.Bytes()); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch write form file")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "geocode: census batch close form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, censusBatchURL, &body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census batch build request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census batch request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: census batch returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: census batch read response")
	}
	return parseCensusBatch(raw, idToIdx, len(addrs))
}

// parseCensusBatch decodes the batch response CSV. The row layout is:
// id, input address, match indicator, match type, matched address,
// "lon,lat", tigerline id, tigerline side. Unmatched rows omit the
// trailing fields.
func parseCensusBatch(raw []byte, idToIdx map[string]int, total int) ([]Result, error) {
	results := make([]Result, total)
	for i := range results {
		results[i] = Result{Matched: false, Source: sourceCensus}
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census batch parse response")
		}
		if len(record) < 3 {
			continue
		}
		idx, ok := idToIdx[strings.TrimSpace(record[0])]
		if !ok {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(record[2]), "Match") || len(record) < 6 {
			continue
		}

		lon, lat, err := splitLonLat(record[5])
		if err != nil {
			continue
		}
		results[idx] = Result{
			Matched:   true,
			Address:   strings.TrimSpace(record[4]),
			MatchType: strings.TrimSpace(record[3]),
			Source:    sourceCensus,
			Latitude:  lat,
			Longitude: lon,
		}
	}
	return results, nil
}

func splitLonLat(s string) (lon, lat float64, err error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("geocode: invalid coordinate pair %q", s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse longitude")
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse latitude")
	}
	return lon, lat, nil
}

func round6(v float64) float64 {
	return float64(int64(v*1e6+sign(v)*0.5)) / 1e6
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
