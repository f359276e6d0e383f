package runner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishnusrinivas00/queuectl/internal/runner"
)

func TestShell_Success(t *testing.T) {
	r := runner.New()
	res := r.Run(context.Background(), "echo hi")
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hi\n", res.Stdout)
	assert.Empty(t, res.HostError)
}

func TestShell_NonzeroExit(t *testing.T) {
	r := runner.New()
	res := r.Run(context.Background(), "exit 7")
	assert.Equal(t, 7, res.ExitCode)
	assert.Empty(t, res.HostError)
}

func TestShell_HostError(t *testing.T) {
	r := &runner.Shell{ShellPath: "/no/such/shell"}
	res := r.Run(context.Background(), "echo hi")
	require.NotEmpty(t, res.HostError)
	assert.Equal(t, -1, res.ExitCode)
}

func TestFake_ScriptedSequence(t *testing.T) {
	f := runner.NewFake()
	f.Enqueue("flaky", runner.Result{ExitCode: 1, Stderr: "boom"})
	f.Enqueue("flaky", runner.Result{ExitCode: 0})

	first := f.Run(context.Background(), "flaky")
	assert.Equal(t, 1, first.ExitCode)

	second := f.Run(context.Background(), "flaky")
	assert.Equal(t, 0, second.ExitCode)

	assert.Equal(t, 2, f.CallCount("flaky"))
}

func TestFake_DefaultWhenUnscripted(t *testing.T) {
	f := runner.NewFake()
	f.Default = runner.Result{ExitCode: 0}
	res := f.Run(context.Background(), "anything")
	assert.Equal(t, 0, res.ExitCode)
}
