package deminify

import (
	"errors"
	"fmt"

	"github.com/shepherdjerred/jsdeminify/internal/oracle"
	"github.com/shepherdjerred/jsdeminify/internal/oracle/egress"
	"github.com/shepherdjerred/jsdeminify/internal/rename"
)

// Kind tags the category of error a Deminify run can fail with. It is a
// sum type, not a class hierarchy: callers switch on Kind rather than on
// concrete error types, and every Error carries the Kind alongside the
// wrapped cause.
type Kind int

const (
	// KindUnknown never appears in a returned Error.
	KindUnknown Kind = iota
	// KindParseError is source that tree-sitter could not extract a
	// function inventory from.
	KindParseError
	// KindCostCancelled is the caller's cost-gate callback declining to
	// proceed after seeing the CostEstimate.
	KindCostCancelled
	// KindBatchCollision is a pre-existing deferred-batch state file for
	// this project whose source hash does not match the current run.
	KindBatchCollision
	// KindOracleTransient is the scheduler ending a run with an error
	// (for example a cancelled context). An oracle failure inside a batch
	// is absorbed by the scheduler and leaves that batch's functions
	// unmapped instead.
	KindOracleTransient
	// KindOracleResponseMalformed is a response the oracle returned that
	// could not be parsed into any usable mapping.
	KindOracleResponseMalformed
	// KindCachePersistFailure is a failure to open the default on-disk
	// cache or batch store. Cache read and write failures during a run are
	// demoted to warnings (see internal/oracle.Coordinator) and never
	// surface as this Kind.
	KindCachePersistFailure
	// KindRenameFailure is an error applying collected rename edits.
	KindRenameFailure
	// KindReassemblyInvalid is rewritten source that failed to re-parse.
	KindReassemblyInvalid
)

// String renders the kind for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindParseError:
		return "parse_error"
	case KindCostCancelled:
		return "cost_cancelled"
	case KindBatchCollision:
		return "batch_collision"
	case KindOracleTransient:
		return "oracle_transient"
	case KindOracleResponseMalformed:
		return "oracle_response_malformed"
	case KindCachePersistFailure:
		return "cache_persist_failure"
	case KindRenameFailure:
		return "rename_failure"
	case KindReassemblyInvalid:
		return "reassembly_invalid"
	default:
		return "unknown"
	}
}

// ErrCostCancelled is returned when the cost-gate callback declines a run.
var ErrCostCancelled = errors.New("deminify: run cancelled at cost gate")

// Error wraps a pipeline failure with the Kind a caller needs to decide
// how to react (retry, surface to a user, abort), without needing to know
// which internal package produced it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("deminify: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify maps an error from any pipeline stage to its Kind, wrapping it
// in an *Error. Errors already wrapped as *Error pass through unchanged.
func classify(stage Kind, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return already
	}

	switch {
	case errors.Is(err, ErrCostCancelled):
		return &Error{Kind: KindCostCancelled, Err: err}
	case errors.Is(err, oracle.ErrBatchCollision):
		return &Error{Kind: KindBatchCollision, Err: err}
	case errors.Is(err, egress.ErrRateLimited), errors.Is(err, egress.ErrBudgetExceeded), errors.Is(err, egress.ErrCostExceeded):
		return &Error{Kind: KindCostCancelled, Err: err}
	case errors.Is(err, oracle.ErrTransient), errors.Is(err, oracle.ErrRateLimited):
		return &Error{Kind: KindOracleTransient, Err: err}
	case errors.Is(err, oracle.ErrMalformedResponse):
		return &Error{Kind: KindOracleResponseMalformed, Err: err}
	case errors.Is(err, rename.ErrReassemblyInvalid):
		return &Error{Kind: KindReassemblyInvalid, Err: err}
	default:
		return &Error{Kind: stage, Err: err}
	}
}
