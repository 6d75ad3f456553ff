//go:build unix

package proc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/metrics"
	"github.com/qiniu/x/log"
	"github.com/stretchr/testify/require"
)

// recorder is a Sink that keeps every line per stream.
type recorder struct {
	mu    sync.Mutex
	lines map[Stream][]string
}

func newRecorder() *recorder {
	return &recorder{lines: make(map[Stream][]string)}
}

func (r *recorder) Line(s Stream, line string) {
	r.mu.Lock()
	r.lines[s] = append(r.lines[s], line)
	r.mu.Unlock()
}

func quietRunner(sink Sink) *Runner {
	return &Runner{Sink: sink, Log: log.New(&bytes.Buffer{}, "", 0)}
}

func sh(script string) Cmd {
	return Cmd{Name: "/bin/sh", Args: []string{"-c", script}}
}

func TestRunDrainsBothStreams(t *testing.T) {
	rec := newRecorder()
	r := quietRunner(rec)

	code, err := r.Run(context.Background(), sh("echo out1; echo err1 >&2; echo out2; printf 'tail'"))
	require.NoError(t, err)
	require.Equal(t, 0, code)

	// Drains are joined before Run returns, so everything is already here.
	require.Equal(t, []string{"out1", "out2", "tail"}, rec.lines[Stdout])
	require.Equal(t, []string{"err1"}, rec.lines[Stderr])
}

func TestRunExitCode(t *testing.T) {
	r := quietRunner(Discard)
	for _, want := range []int{0, 1, 2, 42} {
		t.Run(fmt.Sprint(want), func(t *testing.T) {
			code, err := r.Run(context.Background(), sh(fmt.Sprintf("exit %d", want)))
			require.NoError(t, err)
			require.Equal(t, want, code)
		})
	}
}

func TestRunNotFound(t *testing.T) {
	r := quietRunner(Discard)
	code, err := r.Run(context.Background(), Cmd{Name: "dsdn-no-such-tool"})
	require.Equal(t, Failed, code)
	require.Error(t, err)
	require.Equal(t, diag.Environment, diag.KindOf(err))
}

func TestExecuteSentinel(t *testing.T) {
	var buf bytes.Buffer
	r := &Runner{Sink: Discard, Log: log.New(&buf, "", 0)}

	require.Equal(t, Failed, r.Execute(context.Background(), "dsdn-no-such-tool"))
	require.Contains(t, buf.String(), "dsdn-no-such-tool")

	require.Equal(t, 3, r.Execute(context.Background(), "/bin/sh", "-c", "exit 3"))
}

// A process ended by a signal reports 128+signal like a shell does, never
// the Failed sentinel.
func TestRunSignaledChild(t *testing.T) {
	r := quietRunner(Discard)
	tests := []struct {
		script string
		want   int
	}{
		{"kill -9 $$", 137},
		{"kill -15 $$", 143},
	}
	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			code, err := r.Run(context.Background(), sh(tt.script))
			require.NoError(t, err)
			require.Equal(t, tt.want, code)
			require.NotEqual(t, Failed, code)
		})
	}
	require.Equal(t, 137, r.Execute(context.Background(), "/bin/sh", "-c", "kill -9 $$"))
}

func TestCanceledNeedsTheKill(t *testing.T) {
	exited := exec.Command("/bin/sh", "-c", "exit 3")
	require.Error(t, exited.Run())
	// the deadline fired after the child had already exited on its own
	require.False(t, canceled(true, exited.ProcessState))

	killed := exec.Command("/bin/sh", "-c", "kill -9 $$")
	require.Error(t, killed.Run())
	require.True(t, canceled(true, killed.ProcessState))
	require.False(t, canceled(false, killed.ProcessState))
	require.False(t, canceled(true, nil))
}

// A child writing far more than a pipe buffer to both streams must not
// deadlock.
func TestRunLargeOutput(t *testing.T) {
	var n int
	var mu sync.Mutex
	r := quietRunner(SinkFunc(func(Stream, string) {
		mu.Lock()
		n++
		mu.Unlock()
	}))

	script := `i=0; while [ $i -lt 20000 ]; do echo "line $i"; echo "err $i" >&2; i=$((i+1)); done`
	code, err := r.Run(context.Background(), sh(script))
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, 40000, n)
}

func TestRunTimeoutKillsChild(t *testing.T) {
	r := quietRunner(Discard)
	c := sh("sleep 30")
	c.Timeout = 200 * time.Millisecond

	start := time.Now()
	code, err := r.Run(context.Background(), c)
	require.Equal(t, Failed, code)
	require.Equal(t, diag.Canceled, diag.KindOf(err))
	require.Less(t, time.Since(start), 10*time.Second)
}

// A grandchild holding the pipes open is killed with its process group.
func TestRunTimeoutKillsGrandchild(t *testing.T) {
	r := quietRunner(Discard)
	r.Timeout = 200 * time.Millisecond

	start := time.Now()
	code, err := r.Run(context.Background(), sh("sleep 30 & wait"))
	require.Equal(t, Failed, code)
	require.Error(t, err)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := quietRunner(Discard).Run(ctx, sh("echo never"))
	require.Equal(t, Failed, code)
	require.Equal(t, diag.Canceled, diag.KindOf(err))
}

func TestRunEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	r := quietRunner(rec)

	c := sh(`echo "$DSDN_TEST_VAR"; pwd`)
	c.Env = map[string]string{"DSDN_TEST_VAR": "hello"}
	c.Dir = dir
	code, err := r.Run(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "hello", rec.lines[Stdout][0])
	require.True(t, strings.HasSuffix(rec.lines[Stdout][1], filepath.Base(dir)), rec.lines[Stdout][1])
}

func TestRunRecordsMetrics(t *testing.T) {
	r := quietRunner(Discard)
	r.Metrics = metrics.New()

	_, err := r.Run(context.Background(), sh("exit 1"))
	require.NoError(t, err)

	families, err := r.Metrics.Registry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	c := &ConsoleSink{W: &buf}
	c.Line(Stdout, "compiling")
	c.Line(Stderr, "warning")

	out := buf.String()
	require.Contains(t, out, "Info")
	require.Contains(t, out, "] compiling\n")
	require.Contains(t, out, "Error")
	require.Contains(t, out, "] warning\n")
}
