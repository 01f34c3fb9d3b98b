package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresAbsoluteURL(t *testing.T) {
	_, err := New("", 0)
	assert.Error(t, err)

	c, err := New("http://identity.local/", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://identity.local", c.BaseURL)
	assert.Equal(t, DefaultTimeout, c.HTTP.Timeout)
}

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(map[string]string{"got": in["token"]})
		default:
			http.Error(w, "nope", http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)

	var out map[string]string
	err = c.DoJSON(context.Background(), http.MethodPost, "echo", map[string]string{"X-Api-Key": "k"},
		map[string]string{"token": "abc"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", out["got"])

	err = c.DoJSON(context.Background(), http.MethodGet, "/other", nil, nil, nil)
	require.Error(t, err)
	assert.True(t, HasStatus(err, http.StatusUnauthorized, http.StatusForbidden))
	assert.False(t, HasStatus(err, http.StatusInternalServerError))

	var nilClient *Client
	assert.ErrorIs(t, nilClient.DoJSON(context.Background(), http.MethodGet, "/", nil, nil, nil), ErrNilClient)
}
