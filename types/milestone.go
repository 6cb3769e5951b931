package types

// Milestone is one tranche of a grant's release schedule.
type Milestone struct {
	Name    string  `cramberry:"1" yaml:"name" json:"name"`
	Percent float64 `cramberry:"2" yaml:"percent" json:"percent"`
}

// Tranche reports a single milestone's share of a grant.
type Tranche struct {
	Index    uint32  `cramberry:"1" json:"index"`
	Name     string  `cramberry:"2" json:"name"`
	Percent  float64 `cramberry:"3" json:"percent"`
	Amount   string  `cramberry:"4" json:"amount"`
	Released bool    `cramberry:"5" json:"released"`
}

// LedgerView is a read-only report of a proposal's tranche ledger.
// Amount strings are cents-rounded decimals; the float fields carry
// the same values for arithmetic convenience.
type LedgerView struct {
	ProposalID   string    `cramberry:"1" json:"proposal_id"`
	Requested    string    `cramberry:"2" json:"requested"`
	Released     string    `cramberry:"3" json:"released"`
	Remaining    string    `cramberry:"4" json:"remaining"`
	ReleasedUSD  float64   `cramberry:"5" json:"released_usd"`
	RemainingUSD float64   `cramberry:"6" json:"remaining_usd"`
	Completed    uint32    `cramberry:"7" json:"completed"`
	Total        uint32    `cramberry:"8" json:"total"`
	Frozen       bool      `cramberry:"9" json:"frozen"`
	Tranches     []Tranche `cramberry:"10" json:"tranches"`
}
