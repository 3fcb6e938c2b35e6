package harness

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/docindex/internal/store"
	"github.com/roach88/docindex/internal/tools"
)

// dispatch invokes one internal/tools function by name, decoding args
// into that function's input struct via a JSON round-trip. Adding a
// tool here is the only wiring a new scenario step needs.
type dispatch func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result

var registry = map[string]dispatch{
	"commit_index": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.CommitIndexInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.CommitIndex(ctx, s, in)
	},
	"checkout_index": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.CheckoutIndexInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.CheckoutIndex(ctx, s, in)
	},
	"diff_index": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.DiffIndexInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.DiffIndex(ctx, s, in)
	},
	"build_fts_tree": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.BuildFTSTreeInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.BuildFTSTree(ctx, s, in)
	},
	"validate_fts": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.ValidateFTSInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.ValidateFTS(ctx, s, in)
	},
	"build_embeddings": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.BuildEmbeddingsInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.BuildEmbeddings(ctx, s, p, in)
	},
	"retrieve": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.RetrieveInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.Retrieve(ctx, s, in)
	},
	"retrieve_with_embeddings": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.RetrieveWithEmbeddingsInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.RetrieveWithEmbeddings(ctx, s, p, in)
	},
	"gc_artifacts": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.GCArtifactsInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.GCArtifacts(ctx, s, in)
	},
	"schedule_task": func(ctx context.Context, s *store.Store, p tools.Providers, args map[string]any) tools.Result {
		var in tools.ScheduleTaskInput
		if err := decodeArgs(args, &in); err != nil {
			return tools.Result{Err: err}
		}
		return tools.ScheduleTask(ctx, s, in)
	},
}

func decodeArgs(args map[string]any, out any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("harness: marshal args: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("harness: decode args: %w", err)
	}
	return nil
}

func dispatchCall(ctx context.Context, s *store.Store, p tools.Providers, call ToolCall) (StepOutcome, error) {
	fn, found := registry[call.Tool]
	if !found {
		return StepOutcome{}, fmt.Errorf("harness: unknown tool %q", call.Tool)
	}
	res := fn(ctx, s, p, call.Args)
	so := StepOutcome{Tool: call.Tool, Warnings: res.Warnings}
	if res.Err != nil {
		so.ErrCode = string(tools.CodeOf(res.Err))
	} else {
		so.Value = res.Value
	}
	return so, nil
}

// Run executes scenario's setup (each call must succeed) then its
// steps (recorded into the returned Outcome regardless of success),
// against s.
func Run(ctx context.Context, s *store.Store, p tools.Providers, scenario *Scenario) (*Outcome, error) {
	for _, call := range scenario.Setup {
		so, err := dispatchCall(ctx, s, p, call)
		if err != nil {
			return nil, fmt.Errorf("harness: setup %s: %w", call.Tool, err)
		}
		if so.ErrCode != "" {
			return nil, fmt.Errorf("harness: setup %s failed: %s", call.Tool, so.ErrCode)
		}
	}

	outcome := &Outcome{ScenarioName: scenario.Name}
	for _, call := range scenario.Steps {
		so, err := dispatchCall(ctx, s, p, call)
		if err != nil {
			return nil, err
		}
		outcome.Steps = append(outcome.Steps, so)
	}
	return outcome, nil
}
