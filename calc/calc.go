// Package calc holds the pure arithmetic of the grant engine: funding
// caps, bond sizing and the supply-based adaptive quorum.
package calc

import (
	"fmt"
	"math"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"github.com/shopspring/decimal"
)

var maxTokens = decimal.NewFromInt(math.MaxInt64)

// FundingCap returns the largest USD request a founder with the given
// reputation may make. Below MinRequired the cap is zero; at or above
// ScaleMax it is MaxCap; in between it interpolates linearly and
// rounds down.
func FundingCap(p types.Params, reputation int64) int64 {
	switch {
	case reputation < p.MinRequired:
		return 0
	case reputation >= p.ScaleMax:
		return p.MaxCap
	}
	// MinRequired <= reputation < ScaleMax, so the span is positive and
	// the result lies between MinCap and MaxCap. The product can exceed
	// int64, so it is taken in decimal.
	span := decimal.NewFromInt(p.ScaleMax).Sub(decimal.NewFromInt(p.MinRequired))
	width := decimal.NewFromInt(p.MaxCap).Sub(decimal.NewFromInt(p.MinCap))
	step := decimal.NewFromInt(reputation).Sub(decimal.NewFromInt(p.MinRequired))
	q, _ := width.Mul(step).QuoRem(span, 0)
	return decimal.NewFromInt(p.MinCap).Add(q).IntPart()
}

// Bond returns the number of tokens worth BondUSD at the given price,
// rounded up.
func Bond(p types.Params, priceUSD float64) (int64, error) {
	if math.IsNaN(priceUSD) || math.IsInf(priceUSD, 0) || priceUSD <= 0 {
		return 0, fmt.Errorf("%w: %v", dge.ErrInvalidPrice, priceUSD)
	}
	tokens := decimal.NewFromFloat(p.BondUSD).Div(decimal.NewFromFloat(priceUSD)).Ceil()
	if tokens.GreaterThan(maxTokens) {
		return 0, fmt.Errorf("%w: bond at price %v exceeds %d tokens", dge.ErrInvalidPrice, priceUSD, int64(math.MaxInt64))
	}
	return tokens.IntPart(), nil
}

// Quorum returns the turnout fraction a proposal must reach given the
// circulating supply. It grows with supply and never exceeds
// QuorumCeiling.
func Quorum(p types.Params, supply float64) (float64, error) {
	if math.IsNaN(supply) || math.IsInf(supply, 0) || supply < 0 {
		return 0, fmt.Errorf("%w: %v", dge.ErrInvalidSupply, supply)
	}
	return math.Min(p.QuorumCeiling, p.QuorumBase+supply*p.QuorumSensitivity), nil
}
