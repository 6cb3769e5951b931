package types

import "strconv"

// Event kinds emitted by proposal transitions.
const (
	EventProposalSubmitted = "proposal_submitted"
	EventVotePassed        = "vote_passed"
	EventVoteFailed        = "vote_failed"
	EventMilestoneReleased = "milestone_released"
	EventMilestoneDefault  = "milestone_defaulted"
	EventGrantCompleted    = "grant_completed"
	EventSlashed           = "slashed"
	EventForgiven          = "forgiven"
	EventProposalWithdrawn = "proposal_withdrawn"
)

// EventAttribute is a single key-value tag within an event.
type EventAttribute struct {
	Key   string `cramberry:"1" json:"key"`
	Value string `cramberry:"2" json:"value"`
	Index bool   `cramberry:"3" json:"index,omitempty"` // Whether indexers should pick this up.
}

// Event is a record of something a transition did.
type Event struct {
	Kind       string           `cramberry:"1" json:"kind"`
	Attributes []EventAttribute `cramberry:"2" json:"attributes"`
}

// Get returns the value of the first attribute with the given key.
func (e Event) Get(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Attr builds a non-indexed attribute.
func Attr(key, value string) EventAttribute {
	return EventAttribute{Key: key, Value: value}
}

// IndexedAttr builds an attribute that indexers should pick up.
func IndexedAttr(key, value string) EventAttribute {
	return EventAttribute{Key: key, Value: value, Index: true}
}

// IntAttr formats an integer attribute.
func IntAttr(key string, v int64) EventAttribute {
	return Attr(key, strconv.FormatInt(v, 10))
}

// FloatAttr formats a float attribute with the shortest exact
// representation.
func FloatAttr(key string, v float64) EventAttribute {
	return Attr(key, strconv.FormatFloat(v, 'f', -1, 64))
}
