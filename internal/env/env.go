package env

import (
	"os"
	"path/filepath"
)

// HomeVar overrides the default home directory when set.
const HomeVar = "DSDN_HOME"

// HomeDir returns the per-user dsdn directory, $DSDN_HOME or ~/DSDN.
// The directory is created if it does not exist.
func HomeDir() (string, error) {
	dir := os.Getenv(HomeVar)
	if dir == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(userHome, "DSDN")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// ConfigFile returns the default location of the dsdn config file.
func ConfigFile() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "dsdn.yaml"), nil
}
