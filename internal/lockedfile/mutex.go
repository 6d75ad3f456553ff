// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lockedfile provides a mutual-exclusion lock backed by an
// advisory lock on a file, shared between processes.
package lockedfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// A Mutex provides mutual exclusion within and across processes by locking
// a well-known file.
//
// The zero Mutex is not valid; use MutexAt.
type Mutex struct {
	path string
}

// MutexAt returns a new Mutex with the file at path as its lock.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: path must be non-empty")
	}
	return &Mutex{path: path}
}

func (mu *Mutex) String() string {
	return fmt.Sprintf("lockedfile.Mutex(%s)", mu.path)
}

// Lock blocks until it holds the lock, creating the lock file and its
// parent directory if needed. The returned unlock function releases it.
func (mu *Mutex) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(mu.path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(mu.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, &os.PathError{Op: "lock", Path: mu.path, Err: err}
	}
	return func() {
		unlock(f)
		f.Close()
	}, nil
}
