package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/audiotesttools/att/pkg/cli"
	"github.com/audiotesttools/att/pkg/storage"
	"github.com/audiotesttools/att/pkg/tracedb"
)

const captureTrace = `!VERSION: 0
!TOOL: bench
frame[0].gain: 0.5
frame[0].mic[0]: <2> 1, 2
frame[0].mic[1]: <2> 3, 4
frame[1].gain: 1.5
frame[1].mic[0]: <2> 5, 6
frame[1].mic[1]: <2> 7, 8
label: 7
spectrum: <2> 1+2j, 3-4j
`

// setupTestEnv points the config directory at a temp dir and returns it.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(cli.EnvConfigDir, dir)
	globalConfig = nil
	configLoadErr = nil
	return dir
}

// setupTestDB routes the trace database commands to an in-memory database.
func setupTestDB(t *testing.T) *tracedb.DB {
	t.Helper()
	db := tracedb.NewMemory()
	testDB = db
	t.Cleanup(func() {
		testDB = nil
		db.Close()
	})
	return db
}

// setupTestStore routes s3:// arguments to an in-memory store.
func setupTestStore(t *testing.T) *storage.Memory {
	t.Helper()
	m := storage.NewMemory()
	testStore = m
	t.Cleanup(func() { testStore = nil })
	return m
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose, cfgFile, formatOutput, outputFile, jqExpr = false, "", "", "", ""
	eager, noCache, runRef = false, false, ""

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestFile writes content to a temp dir and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func putObject(t *testing.T, s storage.FileStore, path, content string) {
	t.Helper()
	w, err := s.Write(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := runCmd(t, args...)
	if code != 0 {
		t.Fatalf("att %v: exit %d: %s", args, code, stderr)
	}
	return stdout
}

func mustFail(t *testing.T, args ...string) string {
	t.Helper()
	_, stderr, code := runCmd(t, args...)
	if code == 0 {
		t.Fatalf("att %v: expected failure", args)
	}
	return stderr
}
