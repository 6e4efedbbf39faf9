package mount

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
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

func TestArgs(t *testing.T) {
	testcases := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "plain",
			opts: Options{},
			want: []string{"/home/alice"},
		},
		{
			name: "recursive",
			opts: Options{Recursive: true},
			want: []string{"-R", "/home/alice"},
		},
		{
			name: "recursive all-targets",
			opts: Options{Recursive: true, AllTargets: true},
			want: []string{"-R", "-A", "/home/alice"},
		},
		{
			name: "recursive all-targets forced",
			opts: Options{Recursive: true, AllTargets: true, Force: true},
			want: []string{"-R", "-A", "-f", "/home/alice"},
		},
		{
			name: "forced",
			opts: Options{Force: true},
			want: []string{"-f", "/home/alice"},
		},
		{
			name: "lazy forced",
			opts: Options{Force: true, Lazy: true},
			want: []string{"-f", "-l", "/home/alice"},
		},
		{
			name: "lazy forced recursive",
			opts: Options{Force: true, Lazy: true, Recursive: true},
			want: []string{"-R", "-f", "-l", "/home/alice"},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewWithT(t)
			g.Expect(Args("/home/alice", tc.opts)).To(Equal(tc.want))
		})
	}
}

func TestUnmountRunsUmount(t *testing.T) {
	g := NewWithT(t)
	runner := &fakeRunner{}
	u := New(zaptest.NewLogger(t), WithRunner(runner))

	err := u.Unmount(context.Background(), "/home/alice", Options{Recursive: true})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runner.calls).To(HaveLen(1))
	g.Expect(runner.calls[0]).To(Equal([]string{"umount", "-R", "/home/alice"}))
}

func TestUnmountWrapsFailure(t *testing.T) {
	g := NewWithT(t)
	runner := &fakeRunner{err: errors.New("target is busy")}
	u := New(zaptest.NewLogger(t), WithRunner(runner))

	err := u.Unmount(context.Background(), "/home/alice", Options{})

	g.Expect(err).To(MatchError(ContainSubstring("target is busy")))
	g.Expect(err.Error()).To(ContainSubstring("umount /home/alice"))
}
