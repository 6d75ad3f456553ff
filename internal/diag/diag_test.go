package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Unknown},
		{"explicit", E(Integrity, "verify", errors.New("bad digest")), Integrity},
		{"wrapped explicit", fmt.Errorf("setup: %w", Exit("javac", 2)), Process},
		{"canceled", context.Canceled, Canceled},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), Canceled},
		{"not found", &exec.Error{Name: "javac", Err: exec.ErrNotFound}, Environment},
		{"net", timeoutErr{}, Network},
		{"path", &fs.PathError{Op: "remove", Path: "/x", Err: fs.ErrPermission}, Filesystem},
		{"plain", errors.New("boom"), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := PathE(Filesystem, "mkdir", "/out", fs.ErrPermission)
	if got := err.Error(); got != "mkdir /out: permission denied" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("Error should unwrap to its cause")
	}

	exit := Exit("jar", 1)
	if !strings.Contains(exit.Error(), "exit status 1") {
		t.Errorf("Exit().Error() = %q, want exit status", exit.Error())
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d, want 0", got)
	}
	if got := ExitCode(fmt.Errorf("x: %w", Exit("javac", 3))); got != 3 {
		t.Errorf("ExitCode(exit 3) = %d, want 3", got)
	}
	if got := ExitCode(errors.New("boom")); got != -1 {
		t.Errorf("ExitCode(other) = %d, want -1", got)
	}
}

func TestKindString(t *testing.T) {
	if Network.String() != "network" {
		t.Errorf("Network.String() = %q", Network.String())
	}
	if got := Kind(42).String(); got != "kind(42)" {
		t.Errorf("Kind(42).String() = %q", got)
	}
}
