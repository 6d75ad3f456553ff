// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag classifies the failures dsdn can run into while driving
// external tools.
package diag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os/exec"
)

// Kind is a coarse failure category.
type Kind int

const (
	Unknown     Kind = iota
	Environment      // a required tool is missing or cannot be started
	Network          // download failure
	Filesystem       // permission, creation or deletion failure
	Process          // an invoked tool exited non-zero
	State            // on-disk state is not what a completed step promises
	Integrity        // downloaded artifact does not match its digest
	Canceled         // timeout or caller cancellation
)

var kindNames = [...]string{
	Unknown:     "unknown",
	Environment: "environment",
	Network:     "network",
	Filesystem:  "filesystem",
	Process:     "process",
	State:       "state",
	Integrity:   "integrity",
	Canceled:    "canceled",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is a failure annotated with its Kind and the operation that hit it.
type Error struct {
	Kind Kind
	Op   string // e.g. "javac", "download", "extract"
	Path string // file or directory involved, if any
	Code int    // exit code for Process errors
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Kind == Process {
		msg += fmt.Sprintf(": exit status %d", e.Code)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E returns an *Error of the given kind wrapping err.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// PathE is like E but records the path involved.
func PathE(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Exit returns a Process error for a tool that exited with code.
func Exit(op string, code int) *Error {
	return &Error{Kind: Process, Op: op, Code: code}
}

// KindOf reports the Kind of err. An explicit *Error anywhere in the chain
// wins; otherwise well-known standard library errors are mapped.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}
	if errors.Is(err, exec.ErrNotFound) {
		return Environment
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return Process
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Network
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return Filesystem
	}
	return Unknown
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode returns the exit code carried by a Process error, 0 for nil and
// -1 for any other failure.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var de *Error
	if errors.As(err, &de) && de.Kind == Process {
		return de.Code
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
