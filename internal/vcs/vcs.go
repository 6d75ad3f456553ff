// Package vcs clones project sources with the git command line.
package vcs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/proc"
)

// Credentials authenticate an HTTP(S) clone.
type Credentials struct {
	Username string
	Password string
}

// Git runs git through a proc.Runner.
type Git struct {
	runner *proc.Runner
	git    string
}

// GitOption configures Git.
type GitOption func(*Git)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *Git) {
		if path != "" {
			g.git = path
		}
	}
}

// New returns a Git running commands through runner.
func New(runner *proc.Runner, opts ...GitOption) *Git {
	g := &Git{runner: runner, git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone clones remote into dir. dir must not exist or be empty. With
// non-nil cred the username and password are sent as URL user info; they
// never appear in logs.
func (g *Git) Clone(ctx context.Context, remote, dir string, cred *Credentials) error {
	u, secrets, err := authURL(remote, cred)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return diag.PathE(diag.Filesystem, "clone", dir, err)
	}
	if err := g.run(ctx, "", secrets, nil, "clone", u, dir); err != nil {
		return fmt.Errorf("clone %s: %w", remote, err)
	}
	return nil
}

// CleanClone deletes dir if it exists and clones remote into it.
func (g *Git) CleanClone(ctx context.Context, remote, dir string, cred *Credentials) error {
	if err := os.RemoveAll(dir); err != nil {
		return diag.PathE(diag.Filesystem, "clone", dir, err)
	}
	return g.Clone(ctx, remote, dir, cred)
}

// Sync makes dir a shallow checkout of ref from remote. ref can be a
// branch, tag or commit hash. dir is initialized as a repository if needed
// and its previous content is replaced by the fetched tree.
func (g *Git) Sync(ctx context.Context, remote, ref, dir string, cred *Credentials) error {
	u, secrets, err := authURL(remote, cred)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return diag.PathE(diag.Filesystem, "sync", dir, err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := g.run(ctx, dir, nil, nil, "init", "--quiet"); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	if err := g.run(ctx, dir, secrets, nil, "fetch", "--depth", "1", u, ref); err != nil {
		return fmt.Errorf("fetch %s: %w", ref, err)
	}
	if err := g.run(ctx, dir, nil, nil, "checkout", "--force", "FETCH_HEAD"); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

// Tags returns all tags of the remote repository.
func (g *Git) Tags(ctx context.Context, remote string, cred *Credentials) ([]string, error) {
	u, secrets, err := authURL(remote, cred)
	if err != nil {
		return nil, err
	}
	var (
		mu   sync.Mutex
		tags []string
	)
	collect := func(line string) {
		// format: <hash>\trefs/tags/<tag>
		if _, ref, ok := strings.Cut(line, "\t"); ok {
			mu.Lock()
			tags = append(tags, strings.TrimPrefix(ref, "refs/tags/"))
			mu.Unlock()
		}
	}
	if err := g.run(ctx, "", secrets, collect, "ls-remote", "--tags", "--refs", u); err != nil {
		return nil, fmt.Errorf("list remote tags: %w", err)
	}
	return tags, nil
}

// run runs git with args in dir. Lines on stdout go to stdout when it is
// non-nil and to the runner's sink otherwise; secrets are masked in
// everything forwarded to the sink.
func (g *Git) run(ctx context.Context, dir string, secrets []string, stdout func(string), args ...string) error {
	r := *g.runner
	sink := r.Sink
	if sink == nil {
		sink = proc.Discard
	}
	r.Sink = proc.SinkFunc(func(s proc.Stream, line string) {
		if s == proc.Stdout && stdout != nil {
			stdout(line)
			return
		}
		sink.Line(s, mask(line, secrets))
	})
	code, err := r.Run(ctx, proc.Cmd{
		Name:    g.git,
		Args:    args,
		Dir:     dir,
		Env:     map[string]string{"GIT_TERMINAL_PROMPT": "0"},
		Secrets: secrets,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return diag.Exit("git "+args[0], code)
	}
	return nil
}

// authURL returns remote with cred as user info, and the strings that must
// be masked when the result is printed.
func authURL(remote string, cred *Credentials) (string, []string, error) {
	if cred == nil || cred.Username == "" && cred.Password == "" {
		return remote, nil, nil
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "", nil, fmt.Errorf("parse remote: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, fmt.Errorf("credentials need an http(s) remote, got %q", remote)
	}
	u.User = url.UserPassword(cred.Username, cred.Password)
	var secrets []string
	if cred.Password != "" {
		// the URL carries the escaped form
		_, esc, _ := strings.Cut(u.User.String(), ":")
		if esc != cred.Password {
			secrets = append(secrets, esc)
		}
		secrets = append(secrets, cred.Password)
	}
	return u.String(), secrets, nil
}

func mask(line string, secrets []string) string {
	for _, s := range secrets {
		if s != "" {
			line = strings.ReplaceAll(line, s, "***")
		}
	}
	return line
}
