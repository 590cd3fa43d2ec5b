package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer

	data := map[string]any{
		"name":  "test",
		"value": 123,
	}

	err := Output(data, OutputOptions{
		Format: FormatJSON,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("name = %v, want %q", result["name"], "test")
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer

	err := Output(map[string]any{"name": "test"}, OutputOptions{
		Format: FormatYAML,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "name: test") {
		t.Errorf("Output should contain 'name: test', got: %s", buf.String())
	}
}

func TestOutput_DefaultFormat(t *testing.T) {
	var buf bytes.Buffer

	// Empty format should default to YAML
	err := Output(map[string]string{"key": "value"}, OutputOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "key: value") {
		t.Errorf("Default format should be YAML, got: %s", buf.String())
	}
}

type stringer struct{}

func (stringer) String() string { return "from String" }

func TestOutput_Raw(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"bytes", []byte("raw binary data"), "raw binary data"},
		{"string", "raw string data", "raw string data\n"},
		{"stringer", stringer{}, "from String\n"},
		{"other", map[string]int{"count": 42}, "count: 42\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Output(tt.data, OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
				t.Fatalf("Output error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("data", OutputOptions{Format: "invalid", Writer: &buf}); err == nil {
		t.Error("Output should fail for unsupported format")
	}
}

func TestOutput_ToFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "output.json")

	err := Output(map[string]string{"key": "value"}, OutputOptions{
		Format: FormatJSON,
		File:   filePath,
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	var result map[string]string
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Invalid JSON in file: %v", err)
	}
	if result["key"] != "value" {
		t.Errorf("key = %q, want %q", result["key"], "value")
	}
}

func TestOutput_JSONIndent(t *testing.T) {
	var buf bytes.Buffer

	err := Output(map[string]string{"key": "value"}, OutputOptions{
		Format: FormatJSON,
		Writer: &buf,
		Indent: "    ",
	})
	if err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "    \"key\"") {
		t.Errorf("Output should be indented, got: %s", buf.String())
	}
}

type runRow struct {
	ID   string `json:"id"`
	Size int    `json:"size"`
}

type runList []runRow

func (l runList) Table() Table {
	t := Table{Header: []string{"ID", "SIZE"}}
	for _, r := range l {
		t.Rows = append(t.Rows, []string{r.ID, FormatBytes(int64(r.Size))})
	}
	return t
}

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer

	runs := runList{{"3f2a", 2048}, {"9b1c", 12}}
	if err := Output(runs, OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "SIZE", "3f2a", "2.00 KB", "9b1c", "12 B"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines < 5 {
		t.Errorf("table has %d lines, want borders, header and rows:\n%s", lines, out)
	}
}

func TestOutput_TableFallback(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]int{"count": 3}, OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if buf.String() != "count: 3\n" {
		t.Errorf("non-tabular result should print as YAML, got %q", buf.String())
	}
}

func TestOutput_JQ(t *testing.T) {
	runs := runList{{"3f2a", 2048}, {"9b1c", 12}}

	tests := []struct {
		expr string
		want string
	}{
		{".[0].id", "\"3f2a\"\n"},
		{"map(.size) | add", "2060\n"},
		{".[].id", "[\n  \"3f2a\",\n  \"9b1c\"\n]\n"},
		{"length", "2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			var buf bytes.Buffer
			err := Output(runs, OutputOptions{Format: FormatJSON, JQ: tt.expr, Writer: &buf})
			if err != nil {
				t.Fatalf("Output error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("Output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestApplyJQErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"parse", ".[ | oops"},
		{"runtime", ".foo + 1"},
		{"empty", "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ApplyJQ(tt.expr, []int{1, 2}); err == nil {
				t.Errorf("ApplyJQ(%q) should fail", tt.expr)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"yaml", "json", "table", "raw"} {
		f, err := ParseOutputFormat(s)
		if err != nil || string(f) != s {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseOutputFormat("YAML"); err == nil {
		t.Error("format names are case sensitive")
	}
}
