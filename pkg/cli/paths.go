package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// AppName is the directory name under os.UserConfigDir().
	AppName = "att"

	// EnvConfigDir overrides the configuration directory.
	EnvConfigDir = "ATT_CONFIG_DIR"
)

// Paths provides access to the att directory structure
type Paths struct {
	// Dir is the configuration directory
	Dir string
}

// NewPaths resolves the configuration directory: $ATT_CONFIG_DIR if set,
// otherwise os.UserConfigDir()/att.
func NewPaths() (*Paths, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return &Paths{Dir: dir}, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine config directory: %w", err)
	}
	return &Paths{Dir: filepath.Join(base, AppName)}, nil
}

// ConfigFile returns the config file path (<dir>/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.Dir, DefaultConfigFile)
}

// DataDir returns the data directory (<dir>/data)
func (p *Paths) DataDir() string {
	return filepath.Join(p.Dir, "data")
}

// DataPath returns a path within the data directory
func (p *Paths) DataPath(name string) string {
	return filepath.Join(p.DataDir(), name)
}

// EnsureDataDir creates the data directory if it doesn't exist
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0755)
}
