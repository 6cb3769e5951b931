// Package eligibility decides whether a founder may submit a grant
// request. Every failed check is reported, not just the first.
package eligibility

import (
	"math"

	"github.com/blockberries/dge/calc"
	"github.com/blockberries/dge/types"
)

// Evaluate checks a request against the reputation floor, the minimum
// request and the founder's cap. A request equal to the cap is
// allowed; a reputation equal to MinRequired is allowed.
func Evaluate(p types.Params, reputation int64, requestedUSD float64, cap int64) types.Eligibility {
	var reasons types.Reasons
	if reputation < p.MinRequired {
		reasons |= types.ReasonBelowReputationFloor
	}
	if math.IsNaN(requestedUSD) || math.IsInf(requestedUSD, 0) {
		reasons |= types.ReasonInvalidAmount
	} else {
		if requestedUSD < p.MinGrantRequest {
			reasons |= types.ReasonBelowMinimumRequest
		}
		if requestedUSD > float64(cap) {
			reasons |= types.ReasonExceedsCap
		}
	}
	return types.Eligibility{Eligible: reasons == 0, Reasons: reasons}
}

// Assess computes the founder's cap and evaluates the request against it.
func Assess(p types.Params, reputation int64, requestedUSD float64) types.Assessment {
	cap := calc.FundingCap(p, reputation)
	return types.Assessment{
		Cap:         cap,
		Eligibility: Evaluate(p, reputation, requestedUSD, cap),
	}
}
