// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package toolchain installs tool distributions under a per-user root on
// first use.
//
// Presence of the distribution's entry point is the only record of a
// completed install. An interrupted download or extraction leaves no entry
// point behind, so the next Ensure simply starts over.
package toolchain

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/qiniu/x/log"
	"golang.org/x/mod/semver"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/lockedfile"
	"github.com/0xdeki/dsdn/internal/metrics"
)

// State is a step of the install sequence.
type State int

const (
	Unchecked State = iota
	AlreadyPresent
	NeedsInstall
	Downloading
	Extracting
	CleanedUp
	Present
)

var stateNames = [...]string{
	Unchecked:      "unchecked",
	AlreadyPresent: "already-present",
	NeedsInstall:   "needs-install",
	Downloading:    "downloading",
	Extracting:     "extracting",
	CleanedUp:      "cleaned-up",
	Present:        "present",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Installer ensures one distribution is installed under a Layout.
type Installer struct {
	layout  Layout
	dist    Dist
	fetcher Fetcher
	log     *log.Logger
	metrics *metrics.Recorder
	observe func(State)

	mu    sync.Mutex
	done  bool
	state State
}

// Option configures an Installer.
type Option func(*Installer)

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f Fetcher) Option {
	return func(i *Installer) { i.fetcher = f }
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l *log.Logger) Option {
	return func(i *Installer) { i.log = l }
}

// WithMetrics records install outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(i *Installer) { i.metrics = m }
}

// WithObserver calls fn on every state transition. fn runs while the
// Installer is locked and must not call back into it.
func WithObserver(fn func(State)) Option {
	return func(i *Installer) { i.observe = fn }
}

// New returns an Installer for dist under layout.
func New(layout Layout, dist Dist, opts ...Option) *Installer {
	i := &Installer{
		layout:  layout,
		dist:    dist,
		fetcher: NewHTTPFetcher(),
		log:     log.Std,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Layout returns the installation layout.
func (i *Installer) Layout() Layout { return i.layout }

// Dist returns the distribution being installed.
func (i *Installer) Dist() Dist { return i.dist }

// Home returns the tool home directory.
func (i *Installer) Home() string { return i.layout.Home(i.dist) }

// State returns the last state reached.
func (i *Installer) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Installed reports whether the entry point exists on disk.
func (i *Installer) Installed() bool {
	_, err := os.Stat(i.layout.Entry(i.dist))
	return err == nil
}

// Ensure installs the distribution unless it is already present.
//
// Once Ensure has succeeded further calls return immediately. Concurrent
// callers are serialized, and other processes are kept out by a lock file
// under the root, so at most one download runs at a time. A failed attempt
// is not remembered: the next call re-checks the disk and tries again.
func (i *Installer) Ensure(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.done {
		return nil
	}

	i.setState(Unchecked)
	if err := os.MkdirAll(i.layout.Root, 0o755); err != nil {
		return i.fail(diag.PathE(diag.Filesystem, "create root", i.layout.Root, err))
	}
	if i.Installed() {
		return i.present()
	}

	unlock, err := lockedfile.MutexAt(i.layout.lockFile()).Lock()
	if err != nil {
		return i.fail(diag.PathE(diag.Filesystem, "lock", i.layout.lockFile(), err))
	}
	defer unlock()

	// Another process may have finished the install while we waited.
	if i.Installed() {
		return i.present()
	}
	i.setState(NeedsInstall)

	if err := i.install(ctx); err != nil {
		return i.fail(err)
	}
	i.setState(Present)
	i.metrics.ObserveInstall(i.dist.Name, "installed")
	i.done = true
	return nil
}

func (i *Installer) install(ctx context.Context) error {
	archive := i.layout.Archive(i.dist)

	i.setState(Downloading)
	i.log.Infof("Downloading %s %s from %s...", i.dist.Name, i.dist.Version, i.dist.URL)
	if err := i.download(ctx, archive); err != nil {
		return err
	}
	i.log.Infof("Downloaded %s to %s", i.dist.Name, archive)

	if i.dist.SHA512 != "" {
		if err := verifySHA512(archive, i.dist.SHA512); err != nil {
			os.Remove(archive)
			return err
		}
	}

	i.setState(Extracting)
	i.log.Infof("Unpacking %s...", i.dist.Name)
	err := i.unpack(archive)
	if rerr := os.Remove(archive); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
		i.log.Warnf("Cleaning up %s: %v", archive, rerr)
	}
	if err != nil {
		return err
	}
	i.setState(CleanedUp)
	i.log.Infof("Extracted %s to %s", i.dist.Name, i.Home())

	if !i.Installed() {
		return diag.PathE(diag.State, "install", i.layout.Entry(i.dist),
			errors.New("entry point missing after install"))
	}
	return nil
}

// unpack extracts archive into a staging directory under the root and
// moves the tool home into place only once extraction has completed and
// the entry point exists, so a failed unpack never leaves an entry point
// behind.
func (i *Installer) unpack(archive string) error {
	staging, err := os.MkdirTemp(i.layout.Root, "."+i.dist.Name+"-staging-")
	if err != nil {
		return diag.PathE(diag.Filesystem, "extract", i.layout.Root, err)
	}
	defer os.RemoveAll(staging)

	if err := Extract(archive, staging); err != nil {
		return diag.PathE(diag.Filesystem, "extract", archive, err)
	}
	staged := filepath.Join(staging, i.dist.Dir)
	if _, err := os.Stat(filepath.Join(staged, filepath.FromSlash(i.dist.Entry))); err != nil {
		return diag.PathE(diag.State, "extract", archive,
			errors.New("archive does not contain the entry point"))
	}

	home := i.Home()
	// leftovers of an older interrupted install
	if err := os.RemoveAll(home); err != nil {
		return diag.PathE(diag.Filesystem, "extract", home, err)
	}
	if err := os.MkdirAll(filepath.Dir(home), 0o755); err != nil {
		return diag.PathE(diag.Filesystem, "extract", home, err)
	}
	if err := os.Rename(staged, home); err != nil {
		return diag.PathE(diag.Filesystem, "extract", home, err)
	}
	return nil
}

func (i *Installer) download(ctx context.Context, archive string) error {
	f, err := os.OpenFile(archive, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return diag.PathE(diag.Filesystem, "download", archive, err)
	}
	err = i.fetcher.Fetch(ctx, i.dist.URL, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		return diag.PathE(diag.Filesystem, "download", archive, cerr)
	}
	if err != nil {
		os.Remove(archive)
		if ctx.Err() != nil {
			return diag.E(diag.Canceled, "download", err)
		}
		return diag.E(diag.Network, "download", err)
	}
	return nil
}

func (i *Installer) present() error {
	i.setState(AlreadyPresent)
	i.metrics.ObserveInstall(i.dist.Name, "present")
	i.done = true
	return nil
}

func (i *Installer) fail(err error) error {
	i.log.Errorf("Failed to install %s %s: %v", i.dist.Name, i.dist.Version, err)
	i.metrics.ObserveInstall(i.dist.Name, "failed")
	i.setState(NeedsInstall)
	return err
}

// setState must be called with i.mu held.
func (i *Installer) setState(s State) {
	i.state = s
	if i.observe != nil {
		i.observe(s)
	}
}

// Versions lists the versions of this tool found under the extraction
// root, oldest first. A directory counts when it holds the entry point and
// its name ends in a semantic version.
func (i *Installer) Versions() ([]string, error) {
	entries, err := os.ReadDir(i.layout.BinariesDir(i.dist))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(i.dist.Dir, i.dist.Version)
	var versions []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		v := "v" + strings.TrimPrefix(e.Name(), prefix)
		if !semver.IsValid(v) {
			continue
		}
		d := i.dist
		d.Dir = e.Name()
		if _, err := os.Stat(i.layout.Entry(d)); err != nil {
			continue
		}
		versions = append(versions, v)
	}
	semver.Sort(versions)
	for j, v := range versions {
		versions[j] = strings.TrimPrefix(v, "v")
	}
	return versions, nil
}

func verifySHA512(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return diag.PathE(diag.Filesystem, "verify", path, err)
	}
	defer f.Close()
	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return diag.PathE(diag.Filesystem, "verify", path, err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	// Apache publishes "<digest>  <file>" in its .sha512 files.
	fields := strings.Fields(want)
	if len(fields) == 0 || !strings.EqualFold(fields[0], got) {
		return diag.PathE(diag.Integrity, "verify", path,
			fmt.Errorf("sha512 mismatch: got %s, want %s", got, want))
	}
	return nil
}
