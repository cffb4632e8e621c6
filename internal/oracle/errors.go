package oracle

import "errors"

// ErrMalformedResponse is returned when an oracle response has no
// parseable JSON payload at all (bare or fenced). Individual malformed
// entries within an otherwise-valid payload are discarded with a logged
// warning instead (see ParseResponse), not reported as this error.
var ErrMalformedResponse = errors.New("oracle: response has no parseable JSON payload")

// ErrTransient marks a retryable transport failure: provider overload or
// a network error. Retried with exponential backoff per the coordinator's
// policy; surfaced only once retries are exhausted.
var ErrTransient = errors.New("oracle: transient transport error")

// ErrRateLimited marks a 429 response specifically. It gets its own
// retry policy — sleep 60s once and retry a single time — distinct from
// ErrTransient's exponential backoff over multiple attempts.
// ErrRateLimited also satisfies errors.Is(err, ErrTransient) via wrapping
// at the call site, so code that only checks for transience still treats
// it as retryable.
var ErrRateLimited = errors.New("oracle: rate limited")

// ErrBatchNotReady is returned by Fetch when Poll has not yet reported the
// deferred job as done.
var ErrBatchNotReady = errors.New("oracle: deferred batch not yet complete")
