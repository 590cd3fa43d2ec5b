package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/audiotesttools/att/pkg/cli"
)

func TestConfigSetShowPath(t *testing.T) {
	dir := setupTestEnv(t)
	want := filepath.Join(dir, "config.yaml")

	if got := mustRun(t, "config", "path"); got != want+"\n" {
		t.Errorf("config path = %q, want %q", got, want)
	}
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Errorf("config file created by a read: %v", err)
	}

	mustRun(t, "config", "set", "s3.region", "eu-west-1")
	mustRun(t, "config", "set", "s3.path_style", "true")
	mustRun(t, "config", "set", "s3.secret_access_key", "wJalrXUtnFEMI/K7MDENG")

	shown := decodeJSON[cli.Config](t, mustRun(t, "config", "show", "--format", "json"))
	if shown.S3.Region != "eu-west-1" || !shown.S3.PathStyle {
		t.Errorf("s3 = %+v", shown.S3)
	}
	if shown.S3.SecretAccessKey != "wJal*************DENG" {
		t.Errorf("secret shown as %q", shown.S3.SecretAccessKey)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "wJalrXUtnFEMI/K7MDENG") {
		t.Errorf("saved config:\n%s", data)
	}

	if stderr := mustFail(t, "config", "set", "s3.bucket", "x"); !strings.Contains(stderr, "unknown") {
		t.Errorf("unknown key stderr = %q", stderr)
	}
	mustFail(t, "config", "set", "load.eager", "maybe")
}

func TestConfigDefaultFormat(t *testing.T) {
	setupTestEnv(t)
	path := writeTestFile(t, "capture.dbg", captureTrace)

	mustRun(t, "config", "set", "format", "raw")
	if got := mustRun(t, "get", path, "label"); got != "7\n" {
		t.Errorf("get with configured raw format = %q", got)
	}
	if got := mustRun(t, "get", path, "label", "--format", "json"); !strings.Contains(got, `"value": 7`) {
		t.Errorf("--format overrides config: %q", got)
	}
	mustFail(t, "config", "set", "format", "xml")
}

func TestConfigFlag(t *testing.T) {
	setupTestEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "alt.yaml")
	if err := os.WriteFile(cfgPath, []byte("format: json\n"), 0600); err != nil {
		t.Fatal(err)
	}
	path := writeTestFile(t, "capture.dbg", captureTrace)

	if got := mustRun(t, "--config", cfgPath, "get", path, "label"); !strings.Contains(got, `"kind": "int"`) {
		t.Errorf("get with --config = %q", got)
	}
	if got := mustRun(t, "--config", cfgPath, "config", "path"); got != cfgPath+"\n" {
		t.Errorf("config path = %q", got)
	}
}

func TestConfigLoadEager(t *testing.T) {
	setupTestEnv(t)
	mustRun(t, "config", "set", "load.eager", "true")
	mustRun(t, "config", "set", "load.no_cache", "true")

	opts, err := loadOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.LazyLoad || opts.CacheLoaded {
		t.Errorf("opts = %+v", opts)
	}

	// A value that only fails when parsed is reported while opening.
	path := writeTestFile(t, "bad.dbg", "!VERSION: 0\nx: <2> 1, oops\n")
	mustFail(t, "info", path)
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	if got := mustRun(t, "version"); !strings.HasPrefix(got, "att ") {
		t.Errorf("version = %q", got)
	}
	info := decodeJSON[map[string]any](t, mustRun(t, "version", "--format", "json"))
	if _, ok := info["version"]; !ok {
		t.Errorf("version json = %v", info)
	}
	if got := mustRun(t, "version", "-v"); !strings.Contains(got, "config:") {
		t.Errorf("verbose version = %q", got)
	}
}
