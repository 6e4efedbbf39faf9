package reaper

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRunner struct {
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return nil, f.err
}

type exitErr struct {
	code int
}

func (e exitErr) Error() string { return "exit status" }
func (e exitErr) ExitCode() int { return e.code }

func TestSignalArgs(t *testing.T) {
	testcases := []struct {
		name     string
		scope    Scope
		severity Severity
		want     []string
	}{
		{
			name:     "terminate write holders",
			scope:    ScopeWrite,
			severity: SeverityTerminate,
			want:     []string{"-k", "-TERM", "-w", "-M", "-m", "/home/alice"},
		},
		{
			name:     "kill all holders",
			scope:    ScopeAny,
			severity: SeverityKill,
			want:     []string{"-k", "-KILL", "-M", "-m", "/home/alice"},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SignalArgs("/home/alice", tc.scope, tc.severity))
		})
	}
}

func TestSignalRunsFuser(t *testing.T) {
	runner := &fakeRunner{}
	rp := New(zaptest.NewLogger(t), WithRunner(runner))

	err := rp.Signal(context.Background(), "/home/alice", ScopeWrite, SeverityTerminate)

	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "fuser", runner.calls[0][0])
}

func TestSignalEmptyMatchIsSuccess(t *testing.T) {
	runner := &fakeRunner{err: errors.Wrap(exitErr{code: 1}, "running fuser")}
	rp := New(zaptest.NewLogger(t), WithRunner(runner))

	err := rp.Signal(context.Background(), "/home/alice", ScopeAny, SeverityKill)

	assert.NoError(t, err, "no matching processes means nothing holds the path")
}

func TestSignalRealFailurePropagates(t *testing.T) {
	runner := &fakeRunner{err: errors.Wrap(exitErr{code: 127}, "running fuser")}
	rp := New(zaptest.NewLogger(t), WithRunner(runner))

	err := rp.Signal(context.Background(), "/home/alice", ScopeAny, SeverityKill)

	assert.Error(t, err)
}

func TestReportHoldersNeverFails(t *testing.T) {
	// Both discovery mechanisms are broken: the proc root does not exist
	// and lsof errors. Reporting must still complete quietly.
	runner := &fakeRunner{err: errors.New("lsof: command not found")}
	rp := New(zaptest.NewLogger(t), WithRunner(runner), WithProcRoot(t.TempDir()))

	rp.ReportHolders(context.Background(), "/home/alice")
}

func TestWriteAccess(t *testing.T) {
	testcases := []struct {
		name  string
		flags string
		want  bool
	}{
		{name: "write only", flags: "0100001", want: true},
		{name: "read write", flags: "0100002", want: true},
		{name: "read only", flags: "0100000", want: false},
		{name: "empty", flags: "", want: false},
		{name: "garbage", flags: "flags", want: false},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WriteAccess(tc.flags))
		})
	}
}

func TestPathUnder(t *testing.T) {
	assert.True(t, PathUnder("/home/alice", "/home/alice"))
	assert.True(t, PathUnder("/home/alice/notes.txt", "/home/alice"))
	assert.False(t, PathUnder("/home/alice2", "/home/alice"))
	assert.False(t, PathUnder("/home", "/home/alice"))
	assert.True(t, PathUnder("/home/alice/x", "/home/alice/"))
}
