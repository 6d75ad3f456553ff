package internal

import (
	"context"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/0xdeki/dsdn/internal/config"
	"github.com/0xdeki/dsdn/internal/env"
	"github.com/0xdeki/dsdn/internal/metrics"
	"github.com/0xdeki/dsdn/internal/proc"
	"github.com/0xdeki/dsdn/internal/toolchain"
	"github.com/0xdeki/dsdn/internal/vcs"
	"github.com/0xdeki/dsdn/x/jar"
	"github.com/0xdeki/dsdn/x/javac"
	"github.com/0xdeki/dsdn/x/maven"
)

// app holds what the commands share for one invocation.
type app struct {
	cfg     *config.Config
	home    string
	runner  *proc.Runner
	metrics *metrics.Recorder
}

func newApp(cmd *cobra.Command) (*app, error) {
	path := configFile
	if path == "" {
		p, err := env.ConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = timeout
	}
	home, err := cfg.HomeDir()
	if err != nil {
		return nil, err
	}
	log.Debugf("Using home %s", home)

	m := metrics.New()
	runner := proc.New()
	runner.Timeout = cfg.Timeout
	runner.Metrics = m
	return &app{cfg: cfg, home: home, runner: runner, metrics: m}, nil
}

// run creates the app, calls fn and exports metrics when asked to, even
// if fn failed.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	err = fn(cmd.Context(), a)
	if metricsFile != "" {
		if werr := a.metrics.WriteTextfile(metricsFile); werr != nil {
			log.Warnf("Writing metrics: %v", werr)
		}
	}
	return err
}

func (a *app) compiler() *javac.Compiler {
	c := javac.New(a.runner, a.cfg.Tools.Javac)
	c.Release(a.cfg.Javac.Release)
	c.Encoding(a.cfg.Javac.Encoding)
	c.Args(a.cfg.Javac.Args...)
	return c
}

func (a *app) packager() *jar.Packager {
	return jar.New(a.runner, a.cfg.Tools.Jar)
}

func (a *app) installer() *toolchain.Installer {
	dist := maven.Dist(a.cfg.Maven.Version, a.cfg.Maven.URL, a.cfg.Maven.SHA512)
	return toolchain.New(toolchain.Layout{Root: a.home}, dist, toolchain.WithMetrics(a.metrics))
}

func (a *app) maven() *maven.Maven {
	return maven.New(a.installer(), a.runner, a.cfg.Tools.Java)
}

func (a *app) git() *vcs.Git {
	return vcs.New(a.runner, vcs.WithGitPath(a.cfg.Tools.Git))
}
