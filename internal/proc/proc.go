// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package proc runs external tools and drains their output.
package proc

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/metrics"
	"github.com/qiniu/x/log"
)

// Failed is the exit code reported when a process could not be started or
// waited for. Real processes never report it.
const Failed = -1

// waitDelay bounds how long drains may keep reading after the child has
// been killed, in case a grandchild still holds the pipes open.
const waitDelay = 2 * time.Second

// Cmd describes one process invocation.
type Cmd struct {
	Name    string
	Args    []string
	Dir     string
	Env     map[string]string // merged over os.Environ()
	Timeout time.Duration     // overrides Runner.Timeout when > 0

	// Secrets are replaced by "***" when the command line is logged.
	Secrets []string
}

// String returns the command line with secrets masked.
func (c Cmd) String() string {
	line := strings.Join(append([]string{c.Name}, c.Args...), " ")
	for _, s := range c.Secrets {
		if s != "" {
			line = strings.ReplaceAll(line, s, "***")
		}
	}
	return line
}

// Runner starts processes, drains both output streams into Sink and waits
// for them to exit.
type Runner struct {
	Sink    Sink
	Timeout time.Duration // zero means wait forever
	Log     *log.Logger
	Metrics *metrics.Recorder
}

// New returns a Runner printing output to the console.
func New() *Runner {
	return &Runner{Sink: NewConsoleSink(), Log: log.Std}
}

// Execute runs name with args and returns its exit code, or Failed if it
// could not be run. The cause of a failure is logged, not returned.
func (r *Runner) Execute(ctx context.Context, name string, args ...string) int {
	code, err := r.Run(ctx, Cmd{Name: name, Args: args})
	if err != nil {
		r.logger().Errorf("%s: %v", name, err)
		return Failed
	}
	return code
}

// Run starts c, drains its stdout and stderr line by line and returns the
// exit code once the process has exited and both streams are fully read.
//
// A non-zero exit is not an error here. err is non-nil only when the
// process could not be started (diag.Environment), could not be waited for,
// or was stopped by timeout or cancellation (diag.Canceled); code is then
// Failed. A process ended by a signal otherwise reports 128 plus the
// signal number.
func (r *Runner) Run(ctx context.Context, c Cmd) (code int, err error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
	}
	setProcessGroup(cmd)

	timeout := r.Timeout
	if c.Timeout > 0 {
		timeout = c.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return Failed, diag.E(diag.Canceled, c.Name, err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Failed, diag.E(diag.Environment, c.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return Failed, diag.E(diag.Environment, c.Name, err)
	}

	logger := r.logger()
	logger.Debugf("run %s", c)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return Failed, diag.E(diag.Environment, c.Name, err)
	}

	sink := r.Sink
	if sink == nil {
		sink = Discard
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go drain(&wg, stdout, Stdout, sink)
	go drain(&wg, stderr, Stderr, sink)

	exited := make(chan struct{})
	watched := make(chan struct{})
	killed := false
	go func() {
		defer close(watched)
		select {
		case <-exited:
		case <-ctx.Done():
			killProcessTree(cmd.Process)
			killed = true
			// Unblock the drains if something still holds the pipes.
			t := time.AfterFunc(waitDelay, func() {
				stdout.Close()
				stderr.Close()
			})
			<-exited
			t.Stop()
		}
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	close(exited)
	<-watched
	elapsed := time.Since(start)

	if canceled(killed, cmd.ProcessState) {
		r.Metrics.ObserveRun(toolName(c.Name), Failed, elapsed)
		return Failed, diag.E(diag.Canceled, c.Name, ctx.Err())
	}

	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			r.Metrics.ObserveRun(toolName(c.Name), Failed, elapsed)
			return Failed, diag.E(diag.Unknown, c.Name, waitErr)
		}
	}
	code = exitStatus(cmd.ProcessState)
	r.Metrics.ObserveRun(toolName(c.Name), code, elapsed)
	logger.Debugf("%s exited with code %d after %v", c.Name, code, elapsed.Round(time.Millisecond))
	return code, nil
}

func (r *Runner) logger() *log.Logger {
	if r.Log != nil {
		return r.Log
	}
	return log.Std
}

// canceled reports whether the kill issued on cancellation is what ended
// the process. A child that exited on its own just before the deadline
// keeps its status.
func canceled(killed bool, ps *os.ProcessState) bool {
	return killed && ps != nil && killedBySignal(ps)
}

// drain reads rd line by line until EOF or a read error and hands every
// line to sink.
func drain(wg *sync.WaitGroup, rd io.Reader, s Stream, sink Sink) {
	defer wg.Done()
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			sink.Line(s, strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

// mergeEnv returns base with every key in overrides replaced or appended.
func mergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, len(base), len(base)+len(overrides))
	copy(env, base)
	idx := make(map[string]int, len(env))
	for i, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok {
			idx[k] = i
		}
	}
	for k, v := range overrides {
		if i, ok := idx[k]; ok {
			env[i] = k + "=" + v
		} else {
			env = append(env, k+"="+v)
		}
	}
	return env
}

func toolName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
