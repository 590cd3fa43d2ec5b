package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/audiotesttools/att/pkg/debugfile"
)

// DefaultConfigFile is the default configuration filename
const DefaultConfigFile = "config.yaml"

// ErrUnknownKey is returned by Config.Set for keys it does not know.
var ErrUnknownKey = errors.New("cli: unknown config key")

// Config represents the att configuration file
type Config struct {
	// Load holds the defaults for parsing debug files
	Load LoadConfig `yaml:"load,omitempty" json:"load,omitempty"`

	// Format is the default output format (yaml, json, table, raw)
	Format OutputFormat `yaml:"format,omitempty" json:"format,omitempty"`

	// TraceDB configures the trace database
	TraceDB TraceDBConfig `yaml:"tracedb,omitempty" json:"tracedb,omitempty"`

	// S3 configures access to s3:// debug files
	S3 S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`

	// configPath is the path to the config file
	configPath string
}

// LoadConfig holds debug file parsing defaults. The zero value loads lazily
// and caches loaded values.
type LoadConfig struct {
	// Eager parses every value while reading the file
	Eager bool `yaml:"eager,omitempty" json:"eager,omitempty"`

	// NoCache re-reads deferred values on every access
	NoCache bool `yaml:"no_cache,omitempty" json:"no_cache,omitempty"`
}

// TraceDBConfig configures the trace database
type TraceDBConfig struct {
	// Dir is the database directory (default: <config dir>/data/tracedb)
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// S3Config holds S3 connection settings. The bucket comes from the
// s3://bucket/key argument.
type S3Config struct {
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	PathStyle       bool   `yaml:"path_style,omitempty" json:"path_style,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
}

// configKeys lists the keys accepted by Set, in display order.
var configKeys = []string{
	"load.eager",
	"load.no_cache",
	"format",
	"tracedb.dir",
	"s3.region",
	"s3.endpoint",
	"s3.path_style",
	"s3.access_key_id",
	"s3.secret_access_key",
}

// ConfigKeys returns the keys accepted by Config.Set.
func ConfigKeys() []string {
	return slices.Clone(configKeys)
}

// LoadConfig loads configuration from path, or from the default location
// when path is empty. A missing file yields an empty configuration; it is
// created on the first Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := NewPaths()
		if err != nil {
			return nil, err
		}
		path = p.ConfigFile()
	}

	cfg := &Config{configPath: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Format != "" {
		if _, err := ParseOutputFormat(string(cfg.Format)); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	cfg.configPath = path
	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(c.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// TraceDBDir returns the trace database directory.
func (c *Config) TraceDBDir() string {
	if c.TraceDB.Dir != "" {
		return c.TraceDB.Dir
	}
	return (&Paths{Dir: c.Dir()}).DataPath("tracedb")
}

// LoadOptions returns the debug file load options the config describes.
func (c *Config) LoadOptions() *debugfile.LoadOptions {
	return &debugfile.LoadOptions{
		LazyLoad:    !c.Load.Eager,
		CacheLoaded: !c.Load.NoCache,
	}
}

// Set assigns one dotted key, e.g. "s3.region". It does not save.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "load.eager":
		c.Load.Eager, err = parseBool(key, value)
	case "load.no_cache":
		c.Load.NoCache, err = parseBool(key, value)
	case "format":
		if value == "" {
			c.Format = ""
			return nil
		}
		c.Format, err = ParseOutputFormat(value)
	case "tracedb.dir":
		c.TraceDB.Dir = value
	case "s3.region":
		c.S3.Region = value
	case "s3.endpoint":
		c.S3.Endpoint = value
	case "s3.path_style":
		c.S3.PathStyle, err = parseBool(key, value)
	case "s3.access_key_id":
		c.S3.AccessKeyID = value
	case "s3.secret_access_key":
		c.S3.SecretAccessKey = value
	default:
		return fmt.Errorf("%w %q (known keys: %s)", ErrUnknownKey, key, strings.Join(configKeys, ", "))
	}
	return err
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, value)
	}
	return b, nil
}

// Masked returns a copy of the config with secrets masked for display.
func (c *Config) Masked() *Config {
	m := *c
	m.S3.SecretAccessKey = MaskAPIKey(c.S3.SecretAccessKey)
	return &m
}

// MaskAPIKey masks the API key for display
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
