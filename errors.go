package dge

import (
	"errors"
	"fmt"

	"github.com/blockberries/dge/types"
)

var (
	// ErrInvalidPrice is returned when the token price is not a finite
	// positive number, or the resulting bond does not fit in an int64.
	ErrInvalidPrice = errors.New("dge: invalid token price")

	// ErrInvalidSupply is returned when the circulating supply is
	// negative or not finite.
	ErrInvalidSupply = errors.New("dge: invalid circulating supply")

	// ErrInvalidAmount is returned for a requested amount that is
	// negative or not finite.
	ErrInvalidAmount = errors.New("dge: invalid requested amount")

	// ErrInvalidTurnout is returned for a ballot turnout outside [0, 1].
	ErrInvalidTurnout = errors.New("dge: invalid ballot turnout")

	// ErrInvalidSchedule is returned for a milestone schedule whose
	// percentages are not all positive or do not sum to 100.
	ErrInvalidSchedule = errors.New("dge: invalid milestone schedule")

	// ErrInvalidParams is returned for an inconsistent parameter set.
	ErrInvalidParams = errors.New("dge: invalid parameters")

	// ErrInvalidReputation is returned for a founder reputation outside
	// [0, ScaleMax].
	ErrInvalidReputation = errors.New("dge: invalid reputation")

	ErrProposalNotFound = errors.New("dge: proposal not found")
	ErrFounderNotFound  = errors.New("dge: founder not found")
	ErrFounderExists    = errors.New("dge: founder already registered")
)

// IneligibleSubmissionError is returned by Submit when the founder or
// the request fails eligibility. Reasons holds every failed check.
type IneligibleSubmissionError struct {
	ProposalID string
	Reasons    types.Reasons
	Cap        int64
}

func (e *IneligibleSubmissionError) Error() string {
	return fmt.Sprintf("ineligible submission %s: %s (cap %d)", e.ProposalID, e.Reasons, e.Cap)
}

// IsIneligible checks whether an error is an IneligibleSubmissionError
// and returns it.
func IsIneligible(err error) (*IneligibleSubmissionError, bool) {
	var e *IneligibleSubmissionError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// InvalidTransitionError is returned when an action is not defined for
// the proposal's current status.
type InvalidTransitionError struct {
	ProposalID string
	State      types.Status
	Action     types.Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %s not allowed in %s", e.ProposalID, e.Action, e.State)
}

// IsInvalidTransition checks whether an error is an
// InvalidTransitionError and returns it.
func IsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var e *InvalidTransitionError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ConflictError is returned when another transition on the same
// proposal is already in flight.
type ConflictError struct {
	ProposalID string
	Action     types.Action
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s rejected, another transition is in progress", e.ProposalID, e.Action)
}

// IsConflict checks whether an error is a ConflictError and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var e *ConflictError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// MilestoneOutOfOrderError is returned when a host reports a milestone
// other than the next one due.
type MilestoneOutOfOrderError struct {
	ProposalID string
	Expected   uint32
	Got        uint32
}

func (e *MilestoneOutOfOrderError) Error() string {
	return fmt.Sprintf("milestone out of order for %s: expected %d, got %d", e.ProposalID, e.Expected, e.Got)
}

// IsMilestoneOutOfOrder checks whether an error is a
// MilestoneOutOfOrderError and returns it.
func IsMilestoneOutOfOrder(err error) (*MilestoneOutOfOrderError, bool) {
	var e *MilestoneOutOfOrderError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
