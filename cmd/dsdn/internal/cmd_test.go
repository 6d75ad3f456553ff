package internal

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/env"
)

// execute runs the root command with args against a fresh dsdn home.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(env.HomeVar, home)

	configFile, verbose, timeout, metricsFile = "", false, 0, ""
	compileLibs, jarBuiltin, setupStatus, mvnDir = nil, false, false, "."
	gitRef, gitUsername = "", ""
	buildOutput, buildSrc, buildGoals, buildLibs, buildBuiltin = "", "src", []string{"package"}, nil, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		arg  string
		want string
	}{
		{"https://github.com/0xdeki/app.git", "app"},
		{"https://github.com/0xdeki/app", "app"},
		{"https://github.com/0xdeki/app/", "app"},
		{"git@github.com:app.git", "app"},
		{"/home/deki/src/lib", "lib"},
		{`C:\src\lib`, "lib"},
		{"/", "project"},
		{"", "project"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			if got := repoName(tt.arg); got != tt.want {
				t.Errorf("repoName(%q) = %q, want %q", tt.arg, got, tt.want)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	tests := map[string]bool{
		"https://github.com/0xdeki/app.git": true,
		"file:///srv/git/app.git":           true,
		"git@github.com:0xdeki/app.git":     true,
		"./app":                             false,
		"/srv/app":                          false,
	}
	for arg, want := range tests {
		if got := isRemote(arg); got != want {
			t.Errorf("isRemote(%q) = %v, want %v", arg, got, want)
		}
	}
}

func TestExitStatus(t *testing.T) {
	if got := exitStatus(diag.Exit("javac", 2)); got != 2 {
		t.Errorf("exitStatus(exit 2) = %d, want 2", got)
	}
	if got := exitStatus(errors.New("boom")); got != 1 {
		t.Errorf("exitStatus(other) = %d, want 1", got)
	}
}

func TestCredentials(t *testing.T) {
	gitUsername = ""
	if credentials() != nil {
		t.Error("credentials without --username should be nil")
	}
	gitUsername = "deki"
	defer func() { gitUsername = "" }()
	t.Setenv(PasswordVar, "secret")
	cred := credentials()
	if cred == nil || cred.Username != "deki" || cred.Password != "secret" {
		t.Errorf("credentials() = %+v", cred)
	}
}

func TestJarBuiltin(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "A.class"), []byte("cafebabe"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "a.jar")

	if _, err := execute(t, t.TempDir(), "jar", "--builtin", dir, out); err != nil {
		t.Fatalf("jar: %v", err)
	}
	r, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	found := false
	for _, f := range r.File {
		found = found || f.Name == "A.class"
	}
	if !found {
		t.Error("A.class missing from archive")
	}
}

func layoutMaven(t *testing.T, home, version string) {
	t.Helper()
	mvn := filepath.Join(home, "maven-binaries", "apache-maven-"+version, "bin", "mvn")
	if err := os.MkdirAll(filepath.Dir(mvn), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mvn, nil, 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestSetupStatus(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, home, "setup", "--status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "maven 3.8.1 is not installed") {
		t.Errorf("unexpected status output:\n%s", out)
	}

	layoutMaven(t, home, "3.8.1")
	layoutMaven(t, home, "3.6.3")
	out, err = execute(t, home, "setup", "--status")
	if err != nil {
		t.Fatal(err)
	}
	if want := "  maven 3.6.3\n* maven 3.8.1\n"; out != want {
		t.Errorf("status output = %q, want %q", out, want)
	}
}

func TestSetupAlreadyInstalled(t *testing.T) {
	home := t.TempDir()
	layoutMaven(t, home, "3.8.1")
	out, err := execute(t, home, "setup")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "maven 3.8.1: ") {
		t.Errorf("unexpected setup output: %q", out)
	}
}

func TestConfigErrors(t *testing.T) {
	home := t.TempDir()
	cfg := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(cfg, []byte("maven:\n  version: latest\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, home, "--config", cfg, "setup", "--status"); err == nil {
		t.Error("expected an invalid maven version to be rejected")
	}
}

// TestBuildLocal builds a plain source tree with a javac stand-in that
// writes one class file per run into its -d directory.
func TestBuildLocal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	home := t.TempDir()
	javac := filepath.Join(home, "javac")
	script := `#!/bin/sh
while [ $# -gt 0 ]; do
  if [ "$1" = "-d" ]; then mkdir -p "$2/app" && echo class > "$2/app/Main.class"; fi
  shift
done
`
	if err := os.WriteFile(javac, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, "dsdn.yaml"), []byte("tools:\n  javac: "+javac+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	project := filepath.Join(t.TempDir(), "hello")
	src := filepath.Join(project, "src", "app", "Main.java")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("package app; class Main {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	metrics := filepath.Join(t.TempDir(), "dsdn.prom")

	out, err := execute(t, home, "build", "--builtin", "--metrics-file", metrics, project)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	jar := filepath.Join(project, "build", "hello.jar")
	if strings.TrimSpace(out) != jar {
		t.Errorf("build printed %q, want %q", out, jar)
	}
	r, err := zip.OpenReader(jar)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	if !strings.Contains(strings.Join(names, " "), "app/Main.class") {
		t.Errorf("jar entries = %v, want app/Main.class", names)
	}
	if _, err := os.Stat(filepath.Join(project, "src-index")); !os.IsNotExist(err) {
		t.Error("source index left behind")
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `dsdn_process_runs_total{code="0",tool="javac"} 1`) {
		t.Errorf("metrics file missing javac run:\n%s", data)
	}
}
