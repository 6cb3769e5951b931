package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blockberries/dge/types"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, routes map[string]any) *HTTP {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(server.Close)
	return NewHTTPWithClient(server.URL, resty.NewWithClient(server.Client()))
}

func TestStatic(t *testing.T) {
	s := Static{PriceUSD: 0.3, Supply: 5_000_000}
	price, err := s.TokenPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.3, price)
	supply, err := s.CirculatingSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5_000_000.0, supply)
}

func TestHTTP_PriceAndSupply(t *testing.T) {
	h := setupTestServer(t, map[string]any{
		"/price":  map[string]float64{"price_usd": 0.5},
		"/supply": map[string]float64{"circulating_supply": 1_000_000},
	})
	ctx := context.Background()

	price, err := h.TokenPriceUSD(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.5, price)

	supply, err := h.CirculatingSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000.0, supply)
}

func TestHTTP_MissingField(t *testing.T) {
	h := setupTestServer(t, map[string]any{
		"/price": map[string]float64{"other": 1},
	})
	_, err := h.TokenPriceUSD(context.Background())
	assert.Error(t, err)
}

func TestHTTP_BadStatus(t *testing.T) {
	h := setupTestServer(t, map[string]any{})
	_, err := h.CirculatingSupply(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTP_Ballot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/votes/decided" && r.URL.Query().Get("kind") == "slashing":
			_, _ = w.Write([]byte(`{"decided":true,"passed":true,"turnout":0.12}`))
		default:
			_, _ = w.Write([]byte(`{"decided":false}`))
		}
	}))
	defer server.Close()
	h := NewHTTP(server.URL, time.Second)
	ctx := context.Background()

	ballot, decided, err := h.Ballot(ctx, types.VoteRequest{ProposalID: "decided", Kind: types.VoteSlashing})
	require.NoError(t, err)
	assert.True(t, decided)
	assert.Equal(t, types.Ballot{Passed: true, Turnout: 0.12}, ballot)

	_, decided, err = h.Ballot(ctx, types.VoteRequest{ProposalID: "open", Kind: types.VoteInitial})
	require.NoError(t, err)
	assert.False(t, decided)
}
