package geocode

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/rcview/rcview-cli/pkg/portal"
)

// DefaultGeocodeServer is the RC View portal's world geocode service.
const DefaultGeocodeServer = "https://maps.rcview.redcross.org/portal/sharing/servers/da9228b803884dda94df19c2f9d83deb/rest/services/World/GeocodeServer"

// PortalGeocoder resolves addresses the Census service could not match.
// Calls consume service credits.
type PortalGeocoder interface {
	Geocode(ctx context.Context, addr Address) (*Result, error)
}

// PortalProvider geocodes through a portal-hosted geocode server using an
// authenticated portal session.
type PortalProvider struct {
	client    *portal.Client
	serverURL string
}

// NewPortalProvider creates a PortalProvider. An empty serverURL selects
// DefaultGeocodeServer.
func NewPortalProvider(c *portal.Client, serverURL string) *PortalProvider {
	if serverURL == "" {
		serverURL = DefaultGeocodeServer
	}
	return &PortalProvider{client: c, serverURL: serverURL}
}

// candidatesResponse is the findAddressCandidates wire form.
type candidatesResponse struct {
	Candidates []struct {
		Address  string `json:"address"`
		Location struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"location"`
		Attributes struct {
			AddrType string `json:"Addr_type"`
		} `json:"attributes"`
	} `json:"candidates"`
}

// Geocode resolves one address via findAddressCandidates.
func (p *PortalProvider) Geocode(ctx context.Context, addr Address) (*Result, error) {
	form := url.Values{}
	form.Set("singleLine", oneLine(addr))
	form.Set("maxLocations", "1")
	form.Set("forStorage", "false")
	form.Set("outSR", "4326")

	var decoded candidatesResponse
	if err := p.client.Post(ctx, p.serverURL+"/findAddressCandidates", form, &decoded); err != nil {
		return nil, eris.Wrap(err, "geocode: portal candidates")
	}
	if len(decoded.Candidates) == 0 {
		return &Result{Matched: false, MatchType: "No_Match", Source: sourceEsri}, nil
	}

	c := decoded.Candidates[0]
	return &Result{
		Matched:   true,
		Address:   c.Address,
		MatchType: c.Attributes.AddrType,
		Source:    sourceEsri,
		Latitude:  round6(c.Location.Y),
		Longitude: round6(c.Location.X),
	}, nil
}

// BatchGeocode resolves a set of addresses in one geocodeAddresses call.
// Results are ordered to match the input.
func (p *PortalProvider) BatchGeocode(ctx context.Context, addrs []Address) ([]Result, error) {
	type record struct {
		Attributes map[string]any `json:"attributes"`
	}
	records := make([]record, len(addrs))
	for i, addr := range addrs {
		records[i] = record{Attributes: map[string]any{
			"OBJECTID":   i,
			"SingleLine": oneLine(addr),
		}}
	}
	payload, err := json.Marshal(map[string]any{"records": records})
	if err != nil {
		return nil, eris.Wrap(err, "geocode: marshal address records")
	}

	form := url.Values{}
	form.Set("addresses", string(payload))
	form.Set("outSR", "4326")

	var decoded struct {
		Locations []struct {
			Address  string `json:"address"`
			Location struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"location"`
			Attributes struct {
				ResultID int    `json:"ResultID"`
				AddrType string `json:"Addr_type"`
			} `json:"attributes"`
		} `json:"locations"`
	}
	if err := p.client.Post(ctx, p.serverURL+"/geocodeAddresses", form, &decoded); err != nil {
		return nil, eris.Wrap(err, "geocode: portal batch")
	}

	results := make([]Result, len(addrs))
	for i := range results {
		results[i] = Result{Matched: false, MatchType: "No_Match", Source: sourceEsri}
	}
	for _, loc := range decoded.Locations {
		i := loc.Attributes.ResultID
		if i < 0 || i >= len(results) {
			continue
		}
		results[i] = Result{
			Matched:   true,
			Address:   loc.Address,
			MatchType: loc.Attributes.AddrType,
			Source:    sourceEsri,
			Latitude:  round6(loc.Location.Y),
			Longitude: round6(loc.Location.X),
		}
	}
	return results, nil
}
