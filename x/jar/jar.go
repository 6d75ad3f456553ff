// Package jar packages a directory of compiled classes into a jar archive.
package jar

import (
	"context"
	"os"
	"path/filepath"

	"github.com/0xdeki/dsdn/internal/diag"
	"github.com/0xdeki/dsdn/internal/proc"
)

// Packager drives the JDK jar tool.
type Packager struct {
	runner *proc.Runner
	jar    string
}

// New returns a Packager running jar through runner. An empty jar selects
// "jar" from PATH.
func New(runner *proc.Runner, jar string) *Packager {
	if jar == "" {
		jar = "jar"
	}
	return &Packager{runner: runner, jar: jar}
}

// Create writes the whole content of dir into the archive output, with
// entry names relative to dir. An existing output is removed first, so the
// result never merges with an older archive. It returns nil iff jar exits
// with status 0.
func (p *Packager) Create(ctx context.Context, dir, output string) error {
	out, err := prepare(output)
	if err != nil {
		return err
	}
	code, err := p.runner.Run(ctx, proc.Cmd{
		Name: p.jar,
		Args: []string{"cf", out, "-C", dir, "."},
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return diag.Exit("jar", code)
	}
	return nil
}

// prepare removes output and makes sure its parent exists.
func prepare(output string) (string, error) {
	out, err := filepath.Abs(output)
	if err != nil {
		return "", diag.PathE(diag.Filesystem, "jar", output, err)
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return "", diag.PathE(diag.Filesystem, "jar", out, err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", diag.PathE(diag.Filesystem, "jar", out, err)
	}
	return out, nil
}
