// Package temporalcli shells out to the Temporal CLI binary and adapts its
// JSON output to the visibility and history collaborator interfaces. The pure
// engine never imports this package.
package temporalcli

import "strconv"

// CommandBuilder constructs CLI argument vectors with consistent global
// flags. Output is always JSON with ISO timestamps so records parse the same
// way regardless of which subcommand produced them.
type CommandBuilder struct {
	// Env selects a CLI environment via --env; empty uses the default.
	Env string
	// Namespace selects --namespace when non-empty.
	Namespace string
}

func (b CommandBuilder) globalFlags() []string {
	var flags []string
	if b.Env != "" {
		flags = append(flags, "--env", b.Env)
	}
	if b.Namespace != "" {
		flags = append(flags, "--namespace", b.Namespace)
	}
	return append(flags, "-o", "json", "--time-format", "iso")
}

// ListArgs builds `workflow list` arguments.
func (b CommandBuilder) ListArgs(query string, limit int) []string {
	args := []string{"workflow", "list"}
	if limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}
	if query != "" {
		args = append(args, "--query", query)
	}
	return append(args, b.globalFlags()...)
}

// CountArgs builds `workflow count` arguments.
func (b CommandBuilder) CountArgs(query string) []string {
	args := []string{"workflow", "count"}
	if query != "" {
		args = append(args, "--query", query)
	}
	return append(args, b.globalFlags()...)
}

// ShowArgs builds `workflow show` arguments for fetching event history.
func (b CommandBuilder) ShowArgs(workflowID, runID string) []string {
	args := []string{"workflow", "show", "--workflow-id", workflowID}
	if runID != "" {
		args = append(args, "--run-id", runID)
	}
	return append(args, b.globalFlags()...)
}

// StackArgs builds `workflow stack` arguments for fetching the goroutine
// dump of a running workflow.
func (b CommandBuilder) StackArgs(workflowID, runID string) []string {
	args := []string{"workflow", "stack", "--workflow-id", workflowID}
	if runID != "" {
		args = append(args, "--run-id", runID)
	}
	return append(args, b.globalFlags()...)
}

// DescribeArgs builds `workflow describe` arguments.
func (b CommandBuilder) DescribeArgs(workflowID, runID string) []string {
	args := []string{"workflow", "describe", "--workflow-id", workflowID}
	if runID != "" {
		args = append(args, "--run-id", runID)
	}
	return append(args, b.globalFlags()...)
}
