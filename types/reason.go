package types

import "strings"

// Reasons is a bitfield of failed eligibility checks.
type Reasons uint8

const (
	ReasonBelowReputationFloor Reasons = 1 << iota // 0b0001
	ReasonBelowMinimumRequest                      // 0b0010
	ReasonExceedsCap                               // 0b0100
	ReasonInvalidAmount                            // 0b1000
)

var reasonNames = []struct {
	r    Reasons
	name string
}{
	{ReasonBelowReputationFloor, "BelowReputationFloor"},
	{ReasonBelowMinimumRequest, "BelowMinimumRequest"},
	{ReasonExceedsCap, "ExceedsCap"},
	{ReasonInvalidAmount, "InvalidAmount"},
}

// Has returns true if all bits in r2 are set.
func (r Reasons) Has(r2 Reasons) bool {
	return r&r2 == r2
}

// List returns the individual reasons that are set, in a fixed order.
func (r Reasons) List() []Reasons {
	var out []Reasons
	for _, n := range reasonNames {
		if r.Has(n.r) {
			out = append(out, n.r)
		}
	}
	return out
}

// String returns a human-readable representation.
func (r Reasons) String() string {
	var names []string
	for _, n := range reasonNames {
		if r.Has(n.r) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Eligibility is the outcome of evaluating a request.
type Eligibility struct {
	Eligible bool    `cramberry:"1" json:"eligible"`
	Reasons  Reasons `cramberry:"2" json:"reasons"`
}

// Assessment pairs a founder's funding cap with the eligibility of a
// specific request.
type Assessment struct {
	Cap         int64       `cramberry:"1" json:"cap"`
	Eligibility Eligibility `cramberry:"2" json:"eligibility"`
}
