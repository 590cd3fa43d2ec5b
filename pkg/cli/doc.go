// Package cli provides common CLI utilities for the att command-line tool.
//
// This package includes:
//   - Configuration management (load defaults, trace database, S3 access)
//   - Output formatting (YAML, JSON, table, raw) with optional jq filtering
//   - Request file loading (YAML/JSON) for query and write batches
//   - Logger setup
//
// Configuration is stored in os.UserConfigDir()/att/config.yaml, or under
// $ATT_CONFIG_DIR when set.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("")
//	f, err := debugfile.Open(path, cfg.LoadOptions())
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    JQ:     ".keys",
//	})
package cli
