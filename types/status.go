package types

import "fmt"

// Status is the lifecycle state of a proposal.
type Status uint8

const (
	StatusDraft Status = iota
	StatusSubmitted
	// StatusVoting is part of the wire vocabulary. No transition
	// enters it; an open vote is reported as Submitted.
	StatusVoting
	StatusApproved
	// StatusInProgress is part of the wire vocabulary. No transition
	// enters it; funded work is reported as Approved.
	StatusInProgress
	// StatusDefaulted is part of the wire vocabulary. No transition
	// enters it; a default opens a slashing vote directly.
	StatusDefaulted
	StatusSlashingVote
	StatusCompleted
	StatusSlashed
	StatusForgiven
	StatusRejected
)

// Statuses returns every status in declaration order.
func Statuses() []Status {
	return []Status{
		StatusDraft, StatusSubmitted, StatusVoting, StatusApproved,
		StatusInProgress, StatusDefaulted, StatusSlashingVote,
		StatusCompleted, StatusSlashed, StatusForgiven, StatusRejected,
	}
}

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusSubmitted:
		return "Submitted"
	case StatusVoting:
		return "Voting"
	case StatusApproved:
		return "Approved"
	case StatusInProgress:
		return "InProgress"
	case StatusDefaulted:
		return "Defaulted"
	case StatusSlashingVote:
		return "SlashingVote"
	case StatusCompleted:
		return "Completed"
	case StatusSlashed:
		return "Slashed"
	case StatusForgiven:
		return "Forgiven"
	case StatusRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s <= StatusRejected
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusSlashed, StatusForgiven, StatusRejected:
		return true
	}
	return false
}

// AwaitingVote reports whether s has an open governance vote.
func (s Status) AwaitingVote() bool {
	return s == StatusSubmitted || s == StatusSlashingVote
}

// Action is an input that drives a proposal transition.
type Action uint8

const (
	ActionSubmit Action = iota + 1
	ActionResolveInitialVote
	ActionRecordMilestoneSuccess
	ActionRecordMilestoneDefault
	ActionResolveSlashingVote
	ActionWithdraw
)

// Actions returns every action in declaration order.
func Actions() []Action {
	return []Action{
		ActionSubmit, ActionResolveInitialVote, ActionRecordMilestoneSuccess,
		ActionRecordMilestoneDefault, ActionResolveSlashingVote, ActionWithdraw,
	}
}

func (a Action) String() string {
	switch a {
	case ActionSubmit:
		return "Submit"
	case ActionResolveInitialVote:
		return "ResolveInitialVote"
	case ActionRecordMilestoneSuccess:
		return "RecordMilestoneSuccess"
	case ActionRecordMilestoneDefault:
		return "RecordMilestoneDefault"
	case ActionResolveSlashingVote:
		return "ResolveSlashingVote"
	case ActionWithdraw:
		return "Withdraw"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(a))
	}
}

// BondState tracks what happened to a proposal's bond.
type BondState uint8

const (
	BondNone BondState = iota
	BondLocked
	BondForfeited
	BondReturned
)

func (b BondState) String() string {
	switch b {
	case BondNone:
		return "None"
	case BondLocked:
		return "Locked"
	case BondForfeited:
		return "Forfeited"
	case BondReturned:
		return "Returned"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(b))
	}
}
