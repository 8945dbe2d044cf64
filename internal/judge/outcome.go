package judge

import (
	"fmt"
	"strings"
)

// ResultStatus is the user-facing classification of a run.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"
	StatusError   ResultStatus = "error"
)

// RunOutcome is the rendered result of one run: a status plus a combined
// human-readable output text. It is always produced, including when the
// remote call itself failed.
type RunOutcome struct {
	Status ResultStatus
	Output string
}

// EvaluateRun derives the outcome from the judge response or transport error.
// Compiler and runtime diagnostics are shown verbatim; they classify the run
// as "error", not as a system failure.
func EvaluateRun(resp *RunResponse, err error) RunOutcome {
	if err != nil {
		return RunOutcome{
			Status: StatusError,
			Output: fmt.Sprintf("Execution failed: %s", err),
		}
	}

	var parts []string
	if resp.CompileOutput != "" {
		parts = append(parts, resp.CompileOutput)
	}
	if resp.Stderr != "" {
		parts = append(parts, resp.Stderr)
	}
	if resp.Stdout != "" {
		parts = append(parts, resp.Stdout)
	}
	if resp.Message != "" {
		parts = append(parts, resp.Message)
	}
	out := strings.Join(parts, "\n")

	switch {
	case resp.Stderr != "" || resp.CompileOutput != "":
		return RunOutcome{Status: StatusError, Output: out}
	case resp.Passed:
		return RunOutcome{Status: StatusSuccess, Output: out}
	default:
		return RunOutcome{Status: StatusFailed, Output: out}
	}
}
