package geocode

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"golang.org/x/time/rate"
)

// unthrottled returns a limiter that never delays a request.
func unthrottled() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// censusGeocoder builds a geocoder whose calls to one census endpoint land
// on srv instead of the live service. Extra fields (portal, cache) are set
// by the caller.
func censusGeocoder(srv *httptest.Server, endpoint string) *geocoder {
	return &geocoder{
		httpClient: &http.Client{Transport: redirect{from: endpoint, to: srv.URL}},
		limiter:    unthrottled(),
	}
}

// redirect reroutes requests for one fixed URL prefix to a test server,
// keeping the remainder of the path and query intact.
type redirect struct {
	from string
	to   string
}

func (rd redirect) RoundTrip(req *http.Request) (*http.Response, error) {
	u := req.URL.String()
	if !strings.HasPrefix(u, rd.from) {
		return http.DefaultTransport.RoundTrip(req)
	}
	target, err := req.URL.Parse(rd.to + strings.TrimPrefix(u, rd.from))
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = target
	out.Host = target.Host
	return http.DefaultTransport.RoundTrip(out)
}
