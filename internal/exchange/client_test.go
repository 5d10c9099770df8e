package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 2*time.Second), srv
}

func TestLoginParsesTokenAndUser(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123","user":{"id":7,"username":"bot_retail_1"}}`))
	}))
	defer srv.Close()

	res, err := client.Login(context.Background(), "bot_retail_1", "password123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", res.Token)
	assert.Equal(t, 7, res.User.ID)
}

func TestLoginFailureIsAPIError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := client.Login(context.Background(), "ghost", "nope")
	require.Error(t, err)
	assert.True(t, IsRejection(err))
}

func TestStocksDecodesQuotedNumbers(t *testing.T) {
	// The exchange serializes numerics from its database as strings.
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"symbol":"AAAA","is_active":true,"lastPrice":"1000.00","changePercent":2.5,"ara":"1250","arb":"750"}]`))
	}))
	defer srv.Close()

	stocks, err := client.Stocks(context.Background())
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "AAAA", stocks[0].Symbol)
	assert.Equal(t, 1000.0, stocks[0].LastPrice.InexactFloat64())
	assert.Equal(t, 2.5, stocks[0].ChangePercent.InexactFloat64())
}

func TestPlaceOrderRejectionVsTransportError(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		http.Error(w, `{"error":"insufficient funds"}`, http.StatusBadRequest)
	}))

	req := OrderRequest{Symbol: "AAAA", Type: "BUY", Price: 1000, Quantity: 10}
	err := client.PlaceOrder(context.Background(), "tok", req)
	require.Error(t, err)
	assert.True(t, IsRejection(err))

	srv.Close()
	err = client.PlaceOrder(context.Background(), "tok", req)
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}
