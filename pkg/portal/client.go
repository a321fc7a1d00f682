// Package portal provides an authenticated client for the RC View GIS
// portal REST API: OAuth token handling, item lookups, and hosted feature
// layer access.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the RC View portal endpoint.
const DefaultBaseURL = "https://maps.rcview.redcross.org/portal"

// redirectOOB is the out-of-band redirect URI: the portal displays the
// authorization code for the user to paste instead of redirecting.
const redirectOOB = "urn:ietf:wg:oauth:2.0:oob"

// Client is an authenticated portal session.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu    sync.Mutex
	token *oauth2.Token
	src   oauth2.TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for portal calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithTokens seeds the client with a previously saved token pair, skipping
// the interactive authorization flow.
func WithTokens(access, refresh string) Option {
	return func(c *Client) {
		c.token = &oauth2.Token{
			AccessToken:  access,
			RefreshToken: refresh,
			// Force a refresh on first use; the saved access token's
			// expiry is unknown.
			Expiry: time.Now().Add(-time.Minute),
		}
	}
}

// New creates a portal client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, clientID string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RestURL returns the sharing REST root for this portal.
func (c *Client) RestURL() string {
	return c.baseURL + "/sharing/rest"
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.clientID,
		RedirectURL: redirectOOB,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.RestURL() + "/oauth2/authorize",
			TokenURL: c.RestURL() + "/oauth2/token",
		},
	}
}

// AuthCodeURL returns the URL the user must open in a browser to obtain an
// authorization code via the portal's single-sign-on page.
func (c *Client) AuthCodeURL() string {
	return c.oauthConfig().AuthCodeURL("",
		oauth2.SetAuthURLParam("expiration", "-1"),
		oauth2.SetAuthURLParam("response_type", "code"),
	)
}

// Exchange trades an authorization code for access and refresh tokens.
func (c *Client) Exchange(ctx context.Context, code string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return eris.Wrap(err, "portal: exchange authorization code")
	}
	c.mu.Lock()
	c.token = tok
	c.src = nil
	c.mu.Unlock()
	zap.L().Info("portal: login successful")
	return nil
}

// accessToken returns a valid access token, refreshing if needed.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return "", eris.New("portal: not authenticated")
	}
	if c.src == nil {
		ctx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
		c.src = c.oauthConfig().TokenSource(ctx, c.token)
	}
	tok, err := c.src.Token()
	if err != nil {
		return "", eris.Wrap(err, "portal: refresh token")
	}
	c.token = tok
	return tok.AccessToken, nil
}

// SaveTokens writes the current token pair to a file so a later session can
// skip the interactive flow. The file holds the access token on the first
// line and the refresh token on the second.
func (c *Client) SaveTokens(path string) error {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok == nil {
		return eris.New("portal: no tokens to save")
	}
	data := fmt.Sprintf("%s\n%s\n", tok.AccessToken, tok.RefreshToken)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return eris.Wrapf(err, "portal: write tokens file %s", path)
	}
	return nil
}

// LoadTokens reads a token pair saved by SaveTokens.
func LoadTokens(path string) (access, refresh string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", eris.Wrapf(err, "portal: read tokens file %s", path)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return "", "", eris.Errorf("portal: tokens file %s is malformed", path)
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), nil
}

// apiError is the error envelope the REST API returns with HTTP 200.
type apiError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

type errEnvelope struct {
	Error *apiError `json:"error"`
}

// Get performs an authenticated GET against a REST path (relative to the
// sharing REST root, or an absolute URL) and decodes the JSON response.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	params.Set("f", "json")
	params.Set("token", tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.absolute(path)+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "portal: build request")
	}
	return c.do(req, out)
}

// Post performs an authenticated form POST against a REST path and decodes
// the JSON response.
func (c *Client) Post(ctx context.Context, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	form.Set("f", "json")
	form.Set("token", tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.absolute(path), strings.NewReader(form.Encode()))
	if err != nil {
		return eris.Wrap(err, "portal: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) absolute(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.RestURL() + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return eris.Wrap(err, "portal: rate limit")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "portal: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "portal: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("portal: %s returned status %d", req.URL.Path, resp.StatusCode)
	}

	// The REST API reports failures inside a 200 response.
	var env errEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return eris.Errorf("portal: %s failed: %s (code %d)", req.URL.Path, env.Error.Message, env.Error.Code)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "portal: decode response")
	}
	return nil
}

// Info holds portal self-description fields.
type Info struct {
	Name      string `json:"name"`
	PortalURL string `json:"portalUrl"`
	User      struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
	} `json:"user"`
}

// Self returns the portal's self-description for the signed-in user.
func (c *Client) Self(ctx context.Context) (*Info, error) {
	var info Info
	if err := c.Get(ctx, "portals/self", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Item is a content item (hosted layer, map, etc.) in the portal.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	URL   string `json:"url"`
}

// Item fetches a content item by ID.
func (c *Client) Item(ctx context.Context, id string) (*Item, error) {
	var item Item
	if err := c.Get(ctx, "content/items/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, eris.Errorf("portal: item %s not found", id)
	}
	return &item, nil
}
