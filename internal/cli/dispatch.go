package cli

import (
	"github.com/roach88/docindex/internal/audit"
	"github.com/roach88/docindex/internal/tools"
)

// runTool invokes call, builds and enqueues its audit envelope, and
// writes the outcome through f. Tool failures become an ExitFailure
// (the command ran, but the operation was rejected); they are never
// silently swallowed the way a failed audit append is.
func runTool(app *App, f *OutputFormatter, timestamp, toolName string, input any, call func() tools.Result) error {
	res := call()

	var resultForHash any
	var errs []string
	if res.Err != nil {
		errs = []string{string(tools.CodeOf(res.Err))}
	} else {
		resultForHash = res.Value
	}

	env, buildErr := audit.Build(audit.BuildInput{
		RequestID:     newRequestID(),
		ToolName:      toolName,
		ToolVersion:   toolVersion,
		ServerVersion: serverVersion,
		Input:         input,
		Result:        resultForHash,
		Provenance:    res.Provenance,
		Warnings:      res.Warnings,
		Errors:        errs,
		Timestamp:     timestamp,
	})
	if buildErr == nil {
		app.Audit.Enqueue(env)
	} else {
		app.Log.Warn("build audit envelope failed", "tool", toolName, "error", buildErr)
	}

	if res.Err != nil {
		code := string(tools.CodeOf(res.Err))
		_ = f.Error(code, res.Err.Error(), nil)
		return NewExitError(ExitFailure, code)
	}

	for _, w := range res.Warnings {
		f.VerboseLog("warning: %s", w)
	}
	return f.Success(res.Value)
}
