package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSTRKPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" || r.URL.Query().Get("ids") != "starknet" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"starknet":{"usd":0.135}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL)

	price, err := c.STRKPrice(context.Background(), "usd")
	require.NoError(t, err)
	require.Equal(t, "0.135", price)

	_, err = c.STRKPrice(context.Background(), "eur")
	require.Error(t, err)
}
