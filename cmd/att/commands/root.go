package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/cli"
	"github.com/audiotesttools/att/pkg/debugfile"
)

var (
	// Global flags
	verbose      bool
	cfgFile      string
	formatOutput string
	outputFile   string
	jqExpr       string
	eager        bool
	noCache      bool

	// Global configuration (loaded at init time)
	globalConfig *cli.Config

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "att",
	Short: "Inspect and produce audio test tools debug files",
	Long: `att - read, query and write audio test tools debug files.

A debug file is a line-oriented dump of named scalars and arrays written by
instrumented signal-processing code, e.g.

  !VERSION: 0
  frame[2].sample[0]: <2,2> 1, 2, 3, 4

FILE arguments may be local paths or s3://bucket/key.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/att/config.yaml
  Linux:   ~/.config/att/config.yaml
  Windows: %AppData%/att/config.yaml
Set ATT_CONFIG_DIR or pass --config to use another location.

Examples:
  # Summarize a file
  att info capture.dbg

  # Print every microphone block of frame 3 as JSON
  att select capture.dbg 'frame[3].mic[*]' --format json

  # Stack a value across frames into one array
  att gather capture.dbg 'frame[*].gain'

  # Keep a run for later
  att import capture.dbg --name baseline
  att get --run baseline 'frame[3].gain'`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&cfgFile, "config", "", "config file (default is <config dir>/att/config.yaml)")
	pf.StringVar(&formatOutput, "format", "", "output format: yaml, json, table, raw (default from config, else yaml)")
	pf.StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	pf.StringVar(&jqExpr, "jq", "", "jq expression applied to the result before formatting")
	pf.BoolVar(&eager, "eager", false, "parse every value while reading the file")
	pf.BoolVar(&noCache, "no-cache", false, "re-read deferred values on every access")
}

// configLoadErr stores the error from cli.LoadConfig for deferred reporting.
var configLoadErr error

func initConfig() {
	logger = cli.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	globalConfig, configLoadErr = cli.LoadConfig(cfgFile)
	if configLoadErr != nil {
		logger.Debug("config not loaded", "error", configLoadErr)
	}
}

// getConfig returns the global configuration.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := cli.LoadConfig(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// loadOptions combines the configured load defaults with --eager and
// --no-cache.
func loadOptions() (*debugfile.LoadOptions, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	opts := cfg.LoadOptions()
	if eager {
		opts.LazyLoad = false
	}
	if noCache {
		opts.CacheLoaded = false
	}
	opts.Logger = logger
	return opts, nil
}

// output prints a result in the selected format.
func output(result any) error {
	format := formatOutput
	if format == "" {
		if cfg, err := getConfig(); err == nil {
			format = string(cfg.Format)
		}
	}
	if format == "" {
		format = string(cli.FormatYAML)
	}
	f, err := cli.ParseOutputFormat(format)
	if err != nil {
		return err
	}
	return cli.Output(result, cli.OutputOptions{
		Format: f,
		File:   outputFile,
		JQ:     jqExpr,
	})
}
