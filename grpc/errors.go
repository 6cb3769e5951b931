package dgegrpc

import (
	"context"
	"errors"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/server"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const errorTrailerKey = "dge-error-bin"

// sentinels is indexed by ErrorRecord.Sentinel-1. Append only.
var sentinels = []error{
	dge.ErrInvalidPrice,
	dge.ErrInvalidSupply,
	dge.ErrInvalidAmount,
	dge.ErrInvalidTurnout,
	dge.ErrInvalidSchedule,
	dge.ErrInvalidParams,
	dge.ErrInvalidReputation,
	dge.ErrProposalNotFound,
	dge.ErrFounderNotFound,
	dge.ErrFounderExists,
}

// RemoteError is a domain error decoded from a server response. It
// unwraps to the typed dge error or sentinel and still reports its
// gRPC status.
type RemoteError struct {
	st    *status.Status
	cause error
}

func (e *RemoteError) Error() string              { return e.st.Message() }
func (e *RemoteError) Unwrap() error              { return e.cause }
func (e *RemoteError) GRPCStatus() *status.Status { return e.st }

// classify maps an engine error to a status code and, for domain
// errors, a record describing it.
func classify(err error) (codes.Code, *ErrorRecord) {
	if e, ok := dge.IsInvalidTransition(err); ok {
		return codes.FailedPrecondition, &ErrorRecord{
			Kind: kindInvalidTransition, ProposalID: e.ProposalID, State: e.State, Action: e.Action,
		}
	}
	if e, ok := dge.IsIneligible(err); ok {
		return codes.FailedPrecondition, &ErrorRecord{
			Kind: kindIneligible, ProposalID: e.ProposalID, Reasons: e.Reasons, Cap: e.Cap,
		}
	}
	if e, ok := dge.IsConflict(err); ok {
		return codes.Aborted, &ErrorRecord{Kind: kindConflict, ProposalID: e.ProposalID, Action: e.Action}
	}
	if e, ok := dge.IsMilestoneOutOfOrder(err); ok {
		return codes.FailedPrecondition, &ErrorRecord{
			Kind: kindOutOfOrder, ProposalID: e.ProposalID, Expected: e.Expected, Got: e.Got,
		}
	}
	for i, s := range sentinels {
		if !errors.Is(err, s) {
			continue
		}
		rec := &ErrorRecord{Kind: kindSentinel, Sentinel: uint8(i + 1)}
		switch s {
		case dge.ErrProposalNotFound, dge.ErrFounderNotFound:
			return codes.NotFound, rec
		case dge.ErrFounderExists:
			return codes.AlreadyExists, rec
		default:
			return codes.InvalidArgument, rec
		}
	}
	switch {
	case errors.Is(err, server.ErrOracleUnavailable):
		return codes.Unavailable, nil
	case errors.Is(err, context.Canceled):
		return codes.Canceled, nil
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded, nil
	}
	return codes.Unknown, nil
}

// encodeError converts an engine error into a status error and
// attaches the error record to the response trailer.
func encodeError(ctx context.Context, err error) error {
	code, rec := classify(err)
	if rec != nil {
		if data, merr := cramberry.Marshal(rec); merr == nil {
			_ = grpc.SetTrailer(ctx, metadata.Pairs(errorTrailerKey, string(data)))
		}
	}
	return status.Error(code, err.Error())
}

// decodeError rebuilds a typed domain error from a failed call. Errors
// without a record are returned unchanged.
func decodeError(err error, trailer metadata.MD) error {
	vals := trailer.Get(errorTrailerKey)
	if len(vals) == 0 {
		return err
	}
	rec := new(ErrorRecord)
	if uerr := cramberry.Unmarshal([]byte(vals[0]), rec); uerr != nil {
		return err
	}
	st, _ := status.FromError(err)

	var cause error
	switch rec.Kind {
	case kindInvalidTransition:
		cause = &dge.InvalidTransitionError{ProposalID: rec.ProposalID, State: rec.State, Action: rec.Action}
	case kindIneligible:
		cause = &dge.IneligibleSubmissionError{ProposalID: rec.ProposalID, Reasons: rec.Reasons, Cap: rec.Cap}
	case kindConflict:
		cause = &dge.ConflictError{ProposalID: rec.ProposalID, Action: rec.Action}
	case kindOutOfOrder:
		cause = &dge.MilestoneOutOfOrderError{ProposalID: rec.ProposalID, Expected: rec.Expected, Got: rec.Got}
	case kindSentinel:
		if rec.Sentinel == 0 || int(rec.Sentinel) > len(sentinels) {
			return err
		}
		cause = sentinels[rec.Sentinel-1]
	default:
		return err
	}
	return &RemoteError{st: st, cause: cause}
}
