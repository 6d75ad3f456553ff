// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package toolchain

import (
	"path"
	"path/filepath"
	"strings"
)

// Dist describes a downloadable tool distribution.
type Dist struct {
	Name    string // short tool name, e.g. "maven"
	Version string // e.g. "3.8.1"
	Dir     string // top-level directory inside the archive, e.g. "apache-maven-3.8.1"
	Entry   string // slash-separated entry point below Dir, e.g. "bin/mvn"
	URL     string // release archive

	// ArchiveName is the file the archive is downloaded to, relative to the
	// installation root. Defaults to Name plus the URL's archive extension.
	ArchiveName string

	// SHA512 is the hex digest of the archive. Empty skips verification.
	SHA512 string
}

// Layout roots installations at a per-user directory:
//
//	Root/
//	  .install.lock
//	  <name>.zip                  # transient download
//	  <name>-binaries/            # extraction root
//	    <dist dir>/               # tool home
//	      <entry>                 # presence means installed
type Layout struct {
	Root string
}

// BinariesDir returns the extraction root for d.
func (l Layout) BinariesDir(d Dist) string {
	return filepath.Join(l.Root, d.Name+"-binaries")
}

// Home returns the tool home of d.
func (l Layout) Home(d Dist) string {
	return filepath.Join(l.BinariesDir(d), d.Dir)
}

// Entry returns the entry point of d.
func (l Layout) Entry(d Dist) string {
	return filepath.Join(l.Home(d), filepath.FromSlash(d.Entry))
}

// Archive returns the transient download path of d.
func (l Layout) Archive(d Dist) string {
	name := d.ArchiveName
	if name == "" {
		name = d.Name + ArchiveExt(d.URL)
	}
	return filepath.Join(l.Root, name)
}

func (l Layout) lockFile() string {
	return filepath.Join(l.Root, ".install.lock")
}

var archiveExts = []string{".tar.gz", ".tar.xz", ".tgz", ".zip"}

// ArchiveExt returns the archive extension of a URL or file name, ".zip"
// when it has none dsdn can unpack.
func ArchiveExt(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	base := path.Base(filepath.ToSlash(name))
	for _, ext := range archiveExts {
		if strings.HasSuffix(base, ext) {
			return ext
		}
	}
	return ".zip"
}
