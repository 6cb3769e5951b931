// Package oracle provides price, supply and vote oracles for hosts
// that do not implement their own.
package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"github.com/go-resty/resty/v2"
)

var (
	_ dge.PriceOracle  = Static{}
	_ dge.SupplyOracle = Static{}
	_ dge.PriceOracle  = (*HTTP)(nil)
	_ dge.SupplyOracle = (*HTTP)(nil)
	_ dge.VoteOracle   = (*HTTP)(nil)
)

// Static reports fixed values. Useful for tests and for deployments
// where price and supply are set by configuration.
type Static struct {
	PriceUSD float64
	Supply   float64
}

func (s Static) TokenPriceUSD(context.Context) (float64, error)     { return s.PriceUSD, nil }
func (s Static) CirculatingSupply(context.Context) (float64, error) { return s.Supply, nil }

// HTTP reads oracle values from a JSON HTTP service:
//
//	GET /price             {"price_usd": 0.5}
//	GET /supply            {"circulating_supply": 1000000}
//	GET /votes/{proposal}  {"decided": true, "passed": true, "turnout": 0.12}
//
// The votes endpoint receives kind and milestone as query parameters.
type HTTP struct {
	baseURL string
	client  *resty.Client
}

// NewHTTP creates an HTTP oracle rooted at baseURL.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return NewHTTPWithClient(baseURL, resty.New().SetTimeout(timeout))
}

// NewHTTPWithClient creates an HTTP oracle using the given resty client.
func NewHTTPWithClient(baseURL string, client *resty.Client) *HTTP {
	return &HTTP{baseURL: baseURL, client: client}
}

func (h *HTTP) get(ctx context.Context, path string, query map[string]string, out any) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		Get(h.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("unexpected status code from %s: %d", path, resp.StatusCode())
	}
	return nil
}

func (h *HTTP) TokenPriceUSD(ctx context.Context) (float64, error) {
	var result struct {
		PriceUSD *float64 `json:"price_usd"`
	}
	if err := h.get(ctx, "/price", nil, &result); err != nil {
		return 0, err
	}
	if result.PriceUSD == nil {
		return 0, fmt.Errorf("price response missing price_usd")
	}
	return *result.PriceUSD, nil
}

func (h *HTTP) CirculatingSupply(ctx context.Context) (float64, error) {
	var result struct {
		Supply *float64 `json:"circulating_supply"`
	}
	if err := h.get(ctx, "/supply", nil, &result); err != nil {
		return 0, err
	}
	if result.Supply == nil {
		return 0, fmt.Errorf("supply response missing circulating_supply")
	}
	return *result.Supply, nil
}

func (h *HTTP) Ballot(ctx context.Context, req types.VoteRequest) (types.Ballot, bool, error) {
	var result struct {
		Decided bool    `json:"decided"`
		Passed  bool    `json:"passed"`
		Turnout float64 `json:"turnout"`
	}
	query := map[string]string{
		"kind":      req.Kind.String(),
		"milestone": fmt.Sprint(req.Milestone),
	}
	if err := h.get(ctx, "/votes/"+req.ProposalID, query, &result); err != nil {
		return types.Ballot{}, false, err
	}
	if !result.Decided {
		return types.Ballot{}, false, nil
	}
	return types.Ballot{Passed: result.Passed, Turnout: result.Turnout}, true, nil
}
