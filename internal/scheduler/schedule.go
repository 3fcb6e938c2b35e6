package scheduler

import (
	"fmt"
	"time"
)

// ResolveNextRunAt implements the next_run_at resolution rule (§4.8):
// an explicit runAt always wins; otherwise referenceTime + interval is
// computed, which requires both to be present (interval without a
// reference is non-deterministic, since "now" is not an input); with
// neither, the schedule is simply invalid.
func ResolveNextRunAt(runAt string, referenceTime string, intervalSeconds int64) (string, error) {
	if runAt != "" {
		return runAt, nil
	}
	if intervalSeconds > 0 {
		if referenceTime == "" {
			return "", ErrDeterminism
		}
		ref, err := time.Parse(time.RFC3339, referenceTime)
		if err != nil {
			return "", fmt.Errorf("scheduler: parse reference_time: %w", err)
		}
		return ref.Add(time.Duration(intervalSeconds) * time.Second).UTC().Format(time.RFC3339), nil
	}
	return "", ErrInvalidSchedule
}
