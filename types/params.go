package types

import (
	"errors"
	"fmt"
	"math"
)

// Params holds the tunable constants of the grant engine.
type Params struct {
	// Funding cap curve.
	MinCap   int64 `cramberry:"1" yaml:"min_cap" json:"min_cap"`
	MaxCap   int64 `cramberry:"2" yaml:"max_cap" json:"max_cap"`
	ScaleMax int64 `cramberry:"3" yaml:"scale_max" json:"scale_max"`

	// Reputation floor and outcome adjustments.
	MinRequired int64 `cramberry:"4" yaml:"min_required" json:"min_required"`
	Boost       int64 `cramberry:"5" yaml:"boost" json:"boost"`
	Penalty     int64 `cramberry:"6" yaml:"penalty" json:"penalty"`

	// BondUSD is the USD value locked as a bond on submission.
	BondUSD float64 `cramberry:"7" yaml:"bond_usd" json:"bond_usd"`
	// MinGrantRequest is the smallest acceptable request in USD.
	MinGrantRequest float64 `cramberry:"8" yaml:"min_grant_request" json:"min_grant_request"`

	// Quorum curve: min(Ceiling, Base + supply*Sensitivity).
	QuorumBase        float64 `cramberry:"9" yaml:"quorum_base" json:"quorum_base"`
	QuorumSensitivity float64 `cramberry:"10" yaml:"quorum_sensitivity" json:"quorum_sensitivity"`
	QuorumCeiling     float64 `cramberry:"11" yaml:"quorum_ceiling" json:"quorum_ceiling"`
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	return Params{
		MinCap:            1000,
		MaxCap:            10000,
		ScaleMax:          250,
		MinRequired:       10,
		Boost:             20,
		Penalty:           10,
		BondUSD:           300,
		MinGrantRequest:   100,
		QuorumBase:        0.05,
		QuorumSensitivity: 1e-8,
		QuorumCeiling:     0.15,
	}
}

// Validate checks that the parameters describe a usable engine.
func (p Params) Validate() error {
	var errs []error
	if p.MinCap < 0 {
		errs = append(errs, fmt.Errorf("min_cap must be >= 0, got %d", p.MinCap))
	}
	if p.MaxCap < p.MinCap {
		errs = append(errs, fmt.Errorf("max_cap (%d) must be >= min_cap (%d)", p.MaxCap, p.MinCap))
	}
	if p.MinRequired < 0 {
		errs = append(errs, fmt.Errorf("min_required must be >= 0, got %d", p.MinRequired))
	}
	if p.ScaleMax <= p.MinRequired {
		errs = append(errs, fmt.Errorf("scale_max (%d) must be > min_required (%d)", p.ScaleMax, p.MinRequired))
	}
	if p.Boost < 0 {
		errs = append(errs, fmt.Errorf("boost must be >= 0, got %d", p.Boost))
	}
	if p.Penalty < 0 {
		errs = append(errs, fmt.Errorf("penalty must be >= 0, got %d", p.Penalty))
	}
	if !finite(p.BondUSD) || p.BondUSD <= 0 {
		errs = append(errs, fmt.Errorf("bond_usd must be > 0, got %v", p.BondUSD))
	}
	if !finite(p.MinGrantRequest) || p.MinGrantRequest < 0 {
		errs = append(errs, fmt.Errorf("min_grant_request must be >= 0, got %v", p.MinGrantRequest))
	}
	if !finite(p.QuorumBase) || p.QuorumBase < 0 || p.QuorumBase > 1 {
		errs = append(errs, fmt.Errorf("quorum_base must be in [0, 1], got %v", p.QuorumBase))
	}
	if !finite(p.QuorumSensitivity) || p.QuorumSensitivity < 0 {
		errs = append(errs, fmt.Errorf("quorum_sensitivity must be >= 0, got %v", p.QuorumSensitivity))
	}
	if !finite(p.QuorumCeiling) || p.QuorumCeiling < p.QuorumBase || p.QuorumCeiling > 1 {
		errs = append(errs, fmt.Errorf("quorum_ceiling must be in [quorum_base, 1], got %v", p.QuorumCeiling))
	}
	return errors.Join(errs...)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
