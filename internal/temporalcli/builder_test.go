package temporalcli

import (
	"strings"
	"testing"
)

func TestListArgs(t *testing.T) {
	b := CommandBuilder{Env: "staging", Namespace: "orders"}
	got := strings.Join(b.ListArgs("ExecutionStatus = 'Running'", 25), " ")
	want := "workflow list --limit 25 --query ExecutionStatus = 'Running' --env staging --namespace orders -o json --time-format iso"
	if got != want {
		t.Errorf("ListArgs = %q, want %q", got, want)
	}
}

func TestListArgsOmitsEmpty(t *testing.T) {
	var b CommandBuilder
	got := strings.Join(b.ListArgs("", 0), " ")
	want := "workflow list -o json --time-format iso"
	if got != want {
		t.Errorf("ListArgs = %q, want %q", got, want)
	}
}

func TestCountArgs(t *testing.T) {
	var b CommandBuilder
	got := strings.Join(b.CountArgs("WorkflowType = 'Billing'"), " ")
	want := "workflow count --query WorkflowType = 'Billing' -o json --time-format iso"
	if got != want {
		t.Errorf("CountArgs = %q, want %q", got, want)
	}
}

func TestShowArgs(t *testing.T) {
	var b CommandBuilder
	got := strings.Join(b.ShowArgs("wf-1", "run-1"), " ")
	want := "workflow show --workflow-id wf-1 --run-id run-1 -o json --time-format iso"
	if got != want {
		t.Errorf("ShowArgs = %q, want %q", got, want)
	}

	got = strings.Join(b.ShowArgs("wf-1", ""), " ")
	if strings.Contains(got, "--run-id") {
		t.Errorf("ShowArgs without run id should omit --run-id, got %q", got)
	}
}

func TestStackArgs(t *testing.T) {
	var b CommandBuilder
	got := strings.Join(b.StackArgs("wf-1", "run-1"), " ")
	want := "workflow stack --workflow-id wf-1 --run-id run-1 -o json --time-format iso"
	if got != want {
		t.Errorf("StackArgs = %q, want %q", got, want)
	}
}

func TestDescribeArgs(t *testing.T) {
	b := CommandBuilder{Namespace: "default"}
	got := strings.Join(b.DescribeArgs("wf-9", ""), " ")
	want := "workflow describe --workflow-id wf-9 --namespace default -o json --time-format iso"
	if got != want {
		t.Errorf("DescribeArgs = %q, want %q", got, want)
	}
}
