package scheduler

import "errors"

var (
	ErrInvalidSchedule     = errors.New("scheduler: no run_at or reference_time+interval_seconds given")
	ErrDeterminism         = errors.New("scheduler: interval_seconds given without a reference_time")
	ErrIdempotencyRequired = errors.New("scheduler: commit mode requires an idempotency_key")
)
