package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient_UserAgent(t *testing.T) {
	t.Parallel()

	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	client, err := NewHTTPClient(ClientConfig{Timeout: time.Second, UserAgent: "crypto-backend/1.0"})
	require.NoError(t, err)
	assert.Equal(t, time.Second, client.Timeout)

	res, err := client.Get(server.URL)
	require.NoError(t, err)
	_ = res.Body.Close()

	assert.Equal(t, "crypto-backend/1.0", got)
}

func TestNewHTTPClient_Proxy(t *testing.T) {
	t.Parallel()

	client, err := NewHTTPClient(ClientConfig{ProxyURL: "http://proxy.internal:3128"})
	require.NoError(t, err)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	req, _ := http.NewRequest(http.MethodGet, "https://api.binance.com/api/v3/klines", nil)
	u, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.internal:3128", u.Host)

	_, err = NewHTTPClient(ClientConfig{ProxyURL: "://bad"})
	assert.Error(t, err)
}
