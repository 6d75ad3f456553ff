// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package javac compiles a directory tree of Java sources.
package javac

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/proc"
)

// SourceExt is the extension of files passed to the compiler.
const SourceExt = ".java"

// IndexSuffix is appended to the source directory to name the argument file
// listing its sources.
const IndexSuffix = "-index"

// Compiler drives javac.
type Compiler struct {
	runner   *proc.Runner
	javac    string
	release  string
	encoding string
	args     []string
	log      *log.Logger
}

// New returns a Compiler running javac through runner. An empty javac
// selects "javac" from PATH.
func New(runner *proc.Runner, javac string) *Compiler {
	if javac == "" {
		javac = "javac"
	}
	return &Compiler{runner: runner, javac: javac, log: log.Std}
}

// Release sets --release.
func (c *Compiler) Release(v string) { c.release = v }

// Encoding sets -encoding.
func (c *Compiler) Encoding(name string) { c.encoding = name }

// Args appends extra compiler arguments.
func (c *Compiler) Args(args ...string) { c.args = append(c.args, args...) }

// SetLogger replaces the logger.
func (c *Compiler) SetLogger(l *log.Logger) { c.log = l }

// Compile compiles every source under sourceDir into outputDir, with
// libraries on the classpath in the given order. It returns nil iff javac
// exits with status 0.
//
// outputDir is deleted and recreated first so no class file from an earlier
// build survives. The sources are listed in sourceDir+"-index", which is
// removed before Compile returns whatever the outcome. Calls sharing a
// source or output directory are serialized within the process.
func (c *Compiler) Compile(ctx context.Context, sourceDir, outputDir string, libraries ...string) error {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return diag.PathE(diag.Filesystem, "javac", sourceDir, err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return diag.PathE(diag.Filesystem, "javac", outputDir, err)
	}
	index := src + IndexSuffix

	unlock := paths.lock(index, out)
	defer unlock()

	if err := os.RemoveAll(out); err != nil {
		c.log.Warnf("Cleaning %s: %v", out, err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return diag.PathE(diag.Filesystem, "javac", out, err)
	}

	n, err := writeIndex(src, index)
	defer os.Remove(index)
	if err != nil {
		return err
	}
	c.log.Debugf("Compiling %d sources from %s into %s", n, src, out)

	code, err := c.runner.Run(ctx, proc.Cmd{Name: c.javac, Args: c.compileArgs(index, out, libraries)})
	if err != nil {
		return err
	}
	if code != 0 {
		return diag.Exit("javac", code)
	}
	return nil
}

func (c *Compiler) compileArgs(index, out string, libraries []string) []string {
	args := []string{"@" + index, "-d", out}
	if cp := Classpath(libraries); cp != "" {
		args = append(args, "-cp", cp)
	}
	if c.release != "" {
		args = append(args, "--release", c.release)
	}
	if c.encoding != "" {
		args = append(args, "-encoding", c.encoding)
	}
	return append(args, c.args...)
}

// Classpath joins libraries with the platform list separator.
func Classpath(libraries []string) string {
	return strings.Join(libraries, string(os.PathListSeparator))
}

func writeIndex(src, index string) (int, error) {
	f, err := os.Create(index)
	if err != nil {
		return 0, diag.PathE(diag.Filesystem, "index", index, err)
	}
	n, err := IndexSources(src, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return n, diag.PathE(diag.Filesystem, "index", src, err)
	}
	return n, nil
}

// IndexSources walks dir and writes the path of every file ending in
// SourceExt to w, space separated, in lexical order. Paths are quoted when
// javac's argument file syntax requires it. It returns the number of
// sources written.
func IndexSources(dir string, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), SourceExt) {
			return nil
		}
		if n > 0 {
			bw.WriteByte(' ')
		}
		bw.WriteString(argfileQuote(path))
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, bw.Flush()
}

// argfileQuote quotes s for a javac @argfile if it contains whitespace,
// quotes or backslashes. Backslashes are escapes inside quotes, so they are
// turned into slashes, which javac accepts on every platform.
func argfileQuote(s string) string {
	if !strings.ContainsAny(s, " \t\r\n\"'\\#") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
