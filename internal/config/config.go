// Package config loads dsdn.yaml.
//
// A missing file is not an error: every field has a default, and DSDN_HOME
// still overrides the home directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/0xdeki/dsdn/internal/env"
)

// DefaultMavenVersion is the Maven release installed when none is configured.
const DefaultMavenVersion = "3.8.1"

// Tools names the executables dsdn invokes. Bare names are looked up in PATH.
type Tools struct {
	Javac string `yaml:"javac"`
	Jar   string `yaml:"jar"`
	Java  string `yaml:"java,omitempty"` // empty: $JAVA_HOME/bin/java, then java
	Git   string `yaml:"git"`
}

// Maven selects the Maven distribution to install.
type Maven struct {
	Version string `yaml:"version"`
	URL     string `yaml:"url,omitempty"`    // empty: derived from Version
	SHA512  string `yaml:"sha512,omitempty"` // hex digest of the archive; empty skips verification
}

// Javac holds options passed to every compile.
type Javac struct {
	Release  string   `yaml:"release,omitempty"`
	Encoding string   `yaml:"encoding,omitempty"`
	Args     []string `yaml:"args,omitempty"`
}

// Config models dsdn.yaml.
type Config struct {
	Home    string        `yaml:"home,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"` // zero waits forever
	Tools   Tools         `yaml:"tools"`
	Maven   Maven         `yaml:"maven"`
	Javac   Javac         `yaml:"javac,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Tools: Tools{
			Javac: "javac",
			Jar:   "jar",
			Git:   "git",
		},
		Maven: Maven{Version: DefaultMavenVersion},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// $DSDN_HOME takes precedence over the home field of the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if home := os.Getenv(env.HomeVar); home != "" {
		cfg.Home = home
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if !semver.IsValid("v" + c.Maven.Version) {
		return fmt.Errorf("config: invalid maven version %q", c.Maven.Version)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %v", c.Timeout)
	}
	for name, v := range map[string]string{"javac": c.Tools.Javac, "jar": c.Tools.Jar, "git": c.Tools.Git} {
		if v == "" {
			return fmt.Errorf("config: tools.%s must not be empty", name)
		}
	}
	return nil
}

// HomeDir resolves the dsdn home directory, creating it if needed.
func (c *Config) HomeDir() (string, error) {
	if c.Home == "" {
		return env.HomeDir()
	}
	if err := os.MkdirAll(c.Home, 0o755); err != nil {
		return "", err
	}
	return c.Home, nil
}
