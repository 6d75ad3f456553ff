// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package proc

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func killProcessTree(p *os.Process) {
	if p != nil {
		p.Kill()
	}
}

func exitStatus(ps *os.ProcessState) int { return ps.ExitCode() }

// Kill ends a process with exit status 1 on Windows.
func killedBySignal(ps *os.ProcessState) bool { return !ps.Success() }
