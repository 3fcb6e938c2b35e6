package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newTaskCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Submit and inspect scheduled tasks",
	}
	cmd.AddCommand(newTaskScheduleCommand(opts))
	cmd.AddCommand(newTaskListCommand(opts))
	return cmd
}

func newTaskScheduleCommand(opts *RootOptions) *cobra.Command {
	var title, action, payloadJSON, runAt, referenceTime, idempotencyKey string
	var intervalSeconds int64
	var dryRun bool

	cmd := &cobra.Command{
		Use:           "schedule",
		Short:         "Submit a task, computing its deterministic identity",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var payload any
			if payloadJSON != "" {
				if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
					_ = f.Error("ERR_BAD_PAYLOAD", err.Error(), nil)
					return NewExitError(ExitCommandError, "invalid --payload JSON")
				}
			}

			in := tools.ScheduleTaskInput{
				Title: title, Action: action, Payload: payload,
				RunAt: runAt, ReferenceTime: referenceTime, IntervalSeconds: intervalSeconds,
				IdempotencyKey: idempotencyKey, DryRun: dryRun,
			}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "schedule_task", in, func() tools.Result {
				return tools.ScheduleTask(context.Background(), app.Store, in)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&action, "action", "", "task action name")
	cmd.Flags().StringVar(&payloadJSON, "payload", "", "task payload as JSON")
	cmd.Flags().StringVar(&runAt, "run-at", "", "explicit next_run_at (RFC3339)")
	cmd.Flags().StringVar(&referenceTime, "reference-time", "", "reference time for interval scheduling (RFC3339)")
	cmd.Flags().Int64Var(&intervalSeconds, "interval-seconds", 0, "interval in seconds, combined with --reference-time")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key (required unless --dry-run)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the dry-run task id without persisting")
	return cmd
}

type taskRow struct {
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
	Action    string `json:"action"`
	NextRunAt string `json:"next_run_at"`
	Status    string `json:"status"`
}

func newTaskListCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List scheduled tasks ordered by next_run_at",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := context.Background()
			var rows []taskRow
			err = app.Store.WithTx(ctx, func(tx *sql.Tx) error {
				r, err := tx.QueryContext(ctx, `
					SELECT task_id, title, action, next_run_at, status
					FROM tasks ORDER BY next_run_at ASC, task_id ASC
				`)
				if err != nil {
					return err
				}
				defer r.Close()
				for r.Next() {
					var row taskRow
					if err := r.Scan(&row.TaskID, &row.Title, &row.Action, &row.NextRunAt, &row.Status); err != nil {
						return err
					}
					rows = append(rows, row)
				}
				return r.Err()
			})
			if err != nil {
				_ = f.Error("ERR_LIST_TASKS", err.Error(), nil)
				return NewExitError(ExitCommandError, "list tasks")
			}
			if rows == nil {
				rows = []taskRow{}
			}
			return f.Success(rows)
		},
	}
	return cmd
}
