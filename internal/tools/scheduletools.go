package tools

import (
	"context"
	"database/sql"

	"github.com/roach88/docindex/internal/codec"
	"github.com/roach88/docindex/internal/scheduler"
	"github.com/roach88/docindex/internal/store"
)

// ScheduleTaskInput is the input contract for the task scheduler
// (§4.8). Payload is a plain Go value (map/slice/scalar) converted to
// codec.Value internally.
type ScheduleTaskInput struct {
	Title           string
	Action          string
	Payload         any
	RunAt           string
	ReferenceTime   string
	IntervalSeconds int64
	IdempotencyKey  string
	DryRun          bool
}

// ScheduleTaskValue is the successful result of ScheduleTask.
type ScheduleTaskValue struct {
	TaskID        string `json:"task_id"`
	Status        string `json:"status"`
	NextRunAt     string `json:"next_run_at"`
	IdempotentHit bool   `json:"idempotent_hit"`
	Payload       any    `json:"payload"`
}

func ScheduleTask(ctx context.Context, s *store.Store, in ScheduleTaskInput) Result {
	payload, err := codec.FromAny(in.Payload)
	if err != nil && in.Payload != nil {
		return fail(err)
	}

	var value ScheduleTaskValue
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, scheduler.SubmitInput{
			Title:           in.Title,
			Action:          in.Action,
			Payload:         payload,
			RunAt:           in.RunAt,
			ReferenceTime:   in.ReferenceTime,
			IntervalSeconds: in.IntervalSeconds,
			IdempotencyKey:  in.IdempotencyKey,
			DryRun:          in.DryRun,
		})
		if err != nil {
			return err
		}
		value = ScheduleTaskValue{
			TaskID:        r.TaskID,
			Status:        r.Status,
			NextRunAt:     r.NextRunAt,
			IdempotentHit: r.IdempotentHit,
			Payload:       r.Payload,
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}
