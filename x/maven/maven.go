// Copyright 2024 The dsdn Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package maven runs Maven lifecycle phases and plugin goals against a
// project directory using a Maven distribution installed on first use.
package maven

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/proc"
	"github.com/0xdeki/dsdn/internal/toolchain"
)

// DefaultVersion is the Maven release used when none is given.
const DefaultVersion = "3.8.1"

// Launcher is the classworlds entry point that bin/mvn itself ends up
// calling.
const Launcher = "org.codehaus.classworlds.Launcher"

// defaultBootJar is the launcher jar shipped with Maven 3.8.
const defaultBootJar = "plexus-classworlds-2.6.0.jar"

// Dist returns the binary distribution of the given Maven version. An empty
// url selects the Apache archive.
func Dist(version, url, sha512 string) toolchain.Dist {
	if version == "" {
		version = DefaultVersion
	}
	if url == "" {
		url = DownloadURL(version)
	}
	return toolchain.Dist{
		Name:        "maven",
		Version:     version,
		Dir:         "apache-maven-" + version,
		Entry:       "bin/mvn",
		URL:         url,
		ArchiveName: "mvn" + toolchain.ArchiveExt(url),
		SHA512:      sha512,
	}
}

// DownloadURL returns the Apache archive URL of the binary zip of version.
func DownloadURL(version string) string {
	major := strings.TrimPrefix(semver.Major("v"+version), "v")
	if major == "" {
		major = "3"
	}
	return fmt.Sprintf("https://archive.apache.org/dist/maven/maven-%s/%s/binaries/apache-maven-%s-bin.zip",
		major, version, version)
}

// Maven drives an installed Maven distribution.
type Maven struct {
	installer *toolchain.Installer
	runner    *proc.Runner
	java      string
}

// New returns a Maven using installer for the distribution and runner for
// the processes. An empty java selects $JAVA_HOME/bin/java, then java.
func New(installer *toolchain.Installer, runner *proc.Runner, java string) *Maven {
	return &Maven{
		installer: installer,
		runner:    runner,
		java:      java,
	}
}

// Home returns the Maven home directory.
func (m *Maven) Home() string { return m.installer.Home() }

// Java returns the java launcher used to start Maven.
func (m *Maven) Java() string {
	if m.java != "" {
		return m.java
	}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		return filepath.Join(home, "bin", "java")
	}
	return "java"
}

// Prefix returns the command line that starts Maven, before any project
// flags or goals. Maven is started through java and the classworlds
// launcher with its home, boot classpath and config passed explicitly,
// because bin/mvn is a shell script that cannot be executed portably.
func (m *Maven) Prefix() []string {
	home := m.Home()
	return []string{
		m.Java(),
		"-Dmaven.multiModuleProjectDirectory=" + home,
		"-Dmaven.home=" + home,
		"-Dclassworlds.conf=" + filepath.Join(home, "bin", "m2.conf"),
		"-classpath", strings.Join(m.bootClasspath(), string(os.PathListSeparator)),
		Launcher,
	}
}

// bootClasspath lists the launcher jars under boot/, sorted, falling back
// to the jar Maven 3.8 ships.
func (m *Maven) bootClasspath() []string {
	boot := filepath.Join(m.Home(), "boot")
	jars, _ := filepath.Glob(filepath.Join(boot, "plexus-classworlds*.jar"))
	if len(jars) == 0 {
		return []string{filepath.Join(boot, defaultBootJar)}
	}
	sort.Strings(jars)
	return jars
}

// Ensure installs Maven if needed.
func (m *Maven) Ensure(ctx context.Context) error {
	return m.installer.Ensure(ctx)
}

// Run executes goals (lifecycle phases such as "package" or plugin goals)
// on the project in dir, which may hold a single pom or an aggregator of
// several modules. It returns nil iff Maven exits with status 0.
func (m *Maven) Run(ctx context.Context, dir string, goals ...string) error {
	if err := m.Ensure(ctx); err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return diag.PathE(diag.Filesystem, "mvn", dir, err)
	}
	args := append(m.Prefix()[1:], "-f", abs)
	args = append(args, goals...)

	code, err := m.runner.Run(ctx, proc.Cmd{Name: m.Java(), Args: args})
	if err != nil {
		return err
	}
	if code != 0 {
		return diag.Exit("mvn", code)
	}
	return nil
}
