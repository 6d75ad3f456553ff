// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix && !windows

package lockedfile

import "os"

// No advisory locks here; callers still get in-process exclusion from
// their own synchronization.
func lock(f *os.File) error   { return nil }
func unlock(f *os.File) error { return nil }
