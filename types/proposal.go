package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Founder is a founder profile. Reputation lies in [0, ScaleMax] and
// is changed only by grant completion or a slash.
type Founder struct {
	ID         string `cramberry:"1" json:"id"`
	Reputation int64  `cramberry:"2" json:"reputation"`
}

// ProtocolState is the protocol-level input read once per submission.
type ProtocolState struct {
	CirculatingSupply float64 `cramberry:"1" json:"circulating_supply"`
	TokenPriceUSD     float64 `cramberry:"2" json:"token_price_usd"`
}

// Proposal is a founder's grant request and its lifecycle position.
//
// BondTokens and RequiredQuorum are fixed when the proposal is
// submitted. Completed counts released tranches and never exceeds
// Milestones.
type Proposal struct {
	ID             string    `cramberry:"1" json:"id"`
	Founder        Founder   `cramberry:"2" json:"founder"`
	RequestedUSD   float64   `cramberry:"3" json:"requested_usd"`
	BondTokens     int64     `cramberry:"4" json:"bond_tokens"`
	RequiredQuorum float64   `cramberry:"5" json:"required_quorum"`
	Status         Status    `cramberry:"6" json:"status"`
	Completed      uint32    `cramberry:"7" json:"completed"`
	Milestones     uint32    `cramberry:"8" json:"milestones"`
	Bond           BondState `cramberry:"9" json:"bond"`
	Attempts       uint32    `cramberry:"10" json:"attempts"`
}

// Fingerprint returns the sha256 of the proposal's cramberry encoding.
// Equal proposals always produce equal fingerprints.
func (p Proposal) Fingerprint() (Hash, error) {
	data, err := cramberry.Marshal(p)
	if err != nil {
		return Hash{}, fmt.Errorf("fingerprint %s: %w", p.ID, err)
	}
	return sha256.Sum256(data), nil
}

// TransitionResult is the outcome of a successful transition.
type TransitionResult struct {
	Action      Action   `cramberry:"1" json:"action"`
	From        Status   `cramberry:"2" json:"from"`
	Proposal    Proposal `cramberry:"3" json:"proposal"`
	Events      []Event  `cramberry:"4" json:"events"`
	Fingerprint Hash     `cramberry:"5" json:"fingerprint"`
}
