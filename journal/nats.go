package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blockberries/dge/types"

	"github.com/nats-io/nats.go"
)

// Publisher is the subset of *nats.Conn used by NATSPublisher.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventMessage is the JSON payload published for each event.
type EventMessage struct {
	Sequence    uint64                 `json:"sequence"`
	ProposalID  string                 `json:"proposal_id"`
	Action      string                 `json:"action"`
	From        string                 `json:"from"`
	To          string                 `json:"to"`
	Fingerprint string                 `json:"fingerprint"`
	Kind        string                 `json:"kind"`
	Attributes  []types.EventAttribute `json:"attributes"`
	At          time.Time              `json:"at"`
}

// NATSPublisher publishes every event of an entry on <subject>.<kind>.
type NATSPublisher struct {
	pub     Publisher
	subject string
}

// ConnectNATS dials a NATS server and returns a publisher on the given
// subject prefix.
func ConnectNATS(url, subject string, opts ...nats.Option) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return NewNATSPublisher(conn, subject), nil
}

// NewNATSPublisher publishes through pub, normally a *nats.Conn.
func NewNATSPublisher(pub Publisher, subject string) *NATSPublisher {
	return &NATSPublisher{pub: pub, subject: subject}
}

// Messages converts an entry into its per-event subjects and payloads.
func (p *NATSPublisher) Messages(e Entry) ([]string, [][]byte, error) {
	subjects := make([]string, 0, len(e.Events))
	payloads := make([][]byte, 0, len(e.Events))
	for _, ev := range e.Events {
		data, err := json.Marshal(EventMessage{
			Sequence:    e.Sequence,
			ProposalID:  e.ProposalID,
			Action:      e.Action.String(),
			From:        e.From.String(),
			To:          e.To.String(),
			Fingerprint: e.Fingerprint.String(),
			Kind:        ev.Kind,
			Attributes:  ev.Attributes,
			At:          e.At,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s: %w", ev.Kind, err)
		}
		subjects = append(subjects, p.subject+"."+ev.Kind)
		payloads = append(payloads, data)
	}
	return subjects, payloads, nil
}

func (p *NATSPublisher) Record(ctx context.Context, e Entry) error {
	subjects, payloads, err := p.Messages(e)
	if err != nil {
		return err
	}
	var errs []error
	for i, subj := range subjects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.pub.Publish(subj, payloads[i]); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", subj, err))
		}
	}
	return errors.Join(errs...)
}

// Close drains the underlying connection when it supports draining.
func (p *NATSPublisher) Close() error {
	if d, ok := p.pub.(interface{ Drain() error }); ok {
		return d.Drain()
	}
	return nil
}
