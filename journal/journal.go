// Package journal records proposal transitions for audit.
//
// A Recorder receives one Entry per successful transition. Recorders
// are best effort from the engine's point of view: a failed write is
// logged by the host and never rolls back the transition.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/blockberries/dge/types"
)

// Entry is one journaled transition.
type Entry struct {
	Sequence    uint64        `json:"sequence"`
	ProposalID  string        `json:"proposal_id"`
	Action      types.Action  `json:"action"`
	From        types.Status  `json:"from"`
	To          types.Status  `json:"to"`
	Fingerprint types.Hash    `json:"fingerprint"`
	Events      []types.Event `json:"events"`
	At          time.Time     `json:"at"`
}

// Recorder persists or forwards journal entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// NoopRecorder discards every entry.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, Entry) error { return nil }
func (NoopRecorder) Close() error                        { return nil }

// MultiRecorder fans each entry out to every recorder. All recorders
// are attempted; their errors are joined.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, e Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
