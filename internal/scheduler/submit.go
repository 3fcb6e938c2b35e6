package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/docindex/internal/codec"
)

// taskNamespace is the fixed UUIDv5 namespace task identity is derived
// under. A fixed namespace, not a random one, is what makes identity
// reproducible across processes.
var taskNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// SubmitInput is a task submission request (§4.8).
type SubmitInput struct {
	Title           string
	Action          string
	Payload         codec.Value
	RunAt           string
	ReferenceTime   string
	IntervalSeconds int64
	IdempotencyKey  string
	DryRun          bool
}

// SubmitResult reports the outcome of a task submission.
type SubmitResult struct {
	TaskID        string
	Status        string
	NextRunAt     string
	IdempotentHit bool
	Payload       codec.Value
}

// Submit resolves next_run_at, normalizes the task, and assigns it a
// deterministic identity. Dry-run submissions are never persisted;
// commit submissions require an idempotency_key and are safe to retry —
// a resubmission with the same key returns the originally stored
// payload rather than creating a second task.
func Submit(ctx context.Context, tx *sql.Tx, in SubmitInput) (SubmitResult, error) {
	nextRunAt, err := ResolveNextRunAt(in.RunAt, in.ReferenceTime, in.IntervalSeconds)
	if err != nil {
		return SubmitResult{}, err
	}

	title := strings.TrimSpace(in.Title)
	action := strings.ToLower(strings.TrimSpace(in.Action))
	normalized := normalizedTask(title, action, in.Payload, nextRunAt)

	if in.DryRun {
		bodyHash, err := codec.HashCanonical(normalized)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("scheduler: hash normalized task: %w", err)
		}
		taskID := uuid.NewSHA1(taskNamespace, []byte(bodyHash)).String()
		return SubmitResult{
			TaskID:    taskID,
			Status:    "dry_run",
			NextRunAt: nextRunAt,
			Payload:   in.Payload,
		}, nil
	}

	if in.IdempotencyKey == "" {
		return SubmitResult{}, ErrIdempotencyRequired
	}
	taskID := uuid.NewSHA1(taskNamespace, []byte(in.IdempotencyKey)).String()

	existing, ok, err := loadTask(ctx, tx, taskID)
	if err != nil {
		return SubmitResult{}, err
	}
	if ok {
		return SubmitResult{
			TaskID:        taskID,
			Status:        existing.status,
			NextRunAt:     existing.nextRunAt,
			IdempotentHit: true,
			Payload:       existing.payload,
		}, nil
	}

	payloadJSON, err := codec.Marshal(normalized["payload"])
	if err != nil {
		return SubmitResult{}, fmt.Errorf("scheduler: marshal payload: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_seq), 0) + 1 FROM tasks`,
	).Scan(&seq); err != nil {
		return SubmitResult{}, fmt.Errorf("scheduler: next seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (task_id, title, action, payload_json, next_run_at, idempotency_key, status, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?)
	`, taskID, title, action, string(payloadJSON), nextRunAt, in.IdempotencyKey, seq); err != nil {
		return SubmitResult{}, fmt.Errorf("scheduler: insert task: %w", err)
	}

	return SubmitResult{
		TaskID:    taskID,
		Status:    "pending",
		NextRunAt: nextRunAt,
		Payload:   in.Payload,
	}, nil
}

func normalizedTask(title, action string, payload codec.Value, nextRunAt string) codec.Object {
	if payload == nil {
		payload = codec.Object{}
	}
	return codec.Object{
		"title":   codec.S(title),
		"action":  codec.S(action),
		"payload": payload,
		"schedule": codec.Object{
			"next_run_at": codec.S(nextRunAt),
		},
	}
}

type storedTask struct {
	status    string
	nextRunAt string
	payload   codec.Value
}

func loadTask(ctx context.Context, tx *sql.Tx, taskID string) (storedTask, bool, error) {
	var status, nextRunAt, payloadJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT status, next_run_at, payload_json FROM tasks WHERE task_id = ?`, taskID,
	).Scan(&status, &nextRunAt, &payloadJSON)
	if err == sql.ErrNoRows {
		return storedTask{}, false, nil
	}
	if err != nil {
		return storedTask{}, false, fmt.Errorf("scheduler: load task: %w", err)
	}
	payload, err := codec.ParseStrict([]byte(payloadJSON))
	if err != nil {
		return storedTask{}, false, fmt.Errorf("scheduler: parse stored payload: %w", err)
	}
	return storedTask{status: status, nextRunAt: nextRunAt, payload: payload}, true, nil
}
