package portal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPortal starts an httptest server that answers the OAuth token
// endpoint and delegates everything else to handler.
func newTestPortal(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sharing/rest/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"fresh-token","refresh_token":"fresh-refresh","expires_in":3600,"token_type":"Bearer"}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "test-client-id",
		WithTokens("stale-token", "stale-refresh"),
		WithHTTPClient(srv.Client()),
	)
	return srv, c
}

func TestGetRefreshesAndSendsToken(t *testing.T) {
	var gotToken string
	_, c := newTestPortal(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		_, _ = io.WriteString(w, `{"name":"RC View"}`)
	})

	var out struct {
		Name string `json:"name"`
	}
	err := c.Get(context.Background(), "portals/self", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "RC View", out.Name)
	assert.Equal(t, "fresh-token", gotToken, "stale access token should be refreshed before use")
}

func TestErrorEnvelopeSurfaced(t *testing.T) {
	_, c := newTestPortal(t, func(w http.ResponseWriter, _ *http.Request) {
		// The REST API reports failures with HTTP 200.
		_, _ = io.WriteString(w, `{"error":{"code":498,"message":"Invalid token."}}`)
	})

	err := c.Get(context.Background(), "portals/self", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token")
	assert.Contains(t, err.Error(), "498")
}

func TestNotAuthenticated(t *testing.T) {
	c := New("https://example.invalid", "id")
	err := c.Get(context.Background(), "portals/self", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}

func TestItemNotFound(t *testing.T) {
	_, c := newTestPortal(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	_, err := c.Item(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveAndLoadTokens(t *testing.T) {
	_, c := newTestPortal(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	// Trigger a refresh so the client holds the fresh pair.
	require.NoError(t, c.Get(context.Background(), "portals/self", nil, nil))

	path := filepath.Join(t.TempDir(), "tokens")
	require.NoError(t, c.SaveTokens(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	access, refresh, err := LoadTokens(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", access)
	assert.Equal(t, "fresh-refresh", refresh)
}

func TestLoadTokensMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens")
	require.NoError(t, os.WriteFile(path, []byte("only-one-line\n"), 0o600))
	_, _, err := LoadTokens(path)
	assert.Error(t, err)
}

func TestAuthCodeURL(t *testing.T) {
	c := New("", "my-app-id")
	u := c.AuthCodeURL()
	assert.Contains(t, u, DefaultBaseURL+"/sharing/rest/oauth2/authorize")
	assert.Contains(t, u, "client_id=my-app-id")
	assert.Contains(t, u, "expiration=-1")
	assert.Contains(t, u, "oob")
}
