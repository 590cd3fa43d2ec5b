package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/audiotesttools/att/pkg/cli"
	"github.com/audiotesttools/att/pkg/debugfile"
	"github.com/audiotesttools/att/pkg/tracedb"
)

// valueWidth bounds the value column of table output.
const valueWidth = 60

type directive struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

type fileInfo struct {
	Source     string      `json:"source" yaml:"source"`
	Size       string      `json:"size,omitempty" yaml:"size,omitempty"`
	Version    int         `json:"version" yaml:"version"`
	Directives []directive `json:"directives,omitempty" yaml:"directives,omitempty"`
	Keys       []string    `json:"keys" yaml:"keys"`
	Leaves     int         `json:"leaves" yaml:"leaves"`
}

func (i fileInfo) Table() cli.Table {
	t := cli.Table{Header: []string{"FIELD", "VALUE"}}
	t.Rows = append(t.Rows, []string{"source", i.Source})
	if i.Size != "" {
		t.Rows = append(t.Rows, []string{"size", i.Size})
	}
	t.Rows = append(t.Rows, []string{"version", strconv.Itoa(i.Version)})
	for _, d := range i.Directives {
		t.Rows = append(t.Rows, []string{"!" + d.Name, d.Value})
	}
	t.Rows = append(t.Rows,
		[]string{"keys", cli.Truncate(strings.Join(i.Keys, ", "), valueWidth)},
		[]string{"leaves", strconv.Itoa(i.Leaves)},
	)
	return t
}

type leafResult struct {
	Path  string          `json:"path" yaml:"path"`
	Kind  string          `json:"kind" yaml:"kind"`
	Shape []int           `json:"shape,omitempty" yaml:"shape,omitempty"`
	Value debugfile.Value `json:"value" yaml:"value"`
}

func newLeafResult(path string, v debugfile.Value) leafResult {
	return leafResult{Path: path, Kind: v.Kind().String(), Shape: v.Shape(), Value: v}
}

func (r leafResult) Table() cli.Table {
	return cli.Table{
		Header: []string{"PATH", "KIND", "SHAPE", "VALUE"},
		Rows:   [][]string{{r.Path, r.Kind, cli.FormatShape(r.Shape), cli.Truncate(r.Value.String(), valueWidth)}},
	}
}

func (r leafResult) String() string { return r.Value.String() }

type scopeResult struct {
	Path string  `json:"path" yaml:"path"`
	Keys keyList `json:"keys" yaml:"keys"`
}

func (r scopeResult) Table() cli.Table { return r.Keys.Table() }

func (r scopeResult) String() string { return r.Keys.String() }

type keyList []string

func segmentStrings(keys []debugfile.Segment) keyList {
	out := make(keyList, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func (l keyList) Table() cli.Table {
	t := cli.Table{Header: []string{"KEY"}}
	for _, k := range l {
		t.Rows = append(t.Rows, []string{k})
	}
	return t
}

func (l keyList) String() string { return strings.Join(l, "\n") }

type matchRow struct {
	Key     string           `json:"key,omitempty" yaml:"key,omitempty"`
	Indices []int            `json:"indices,omitempty" yaml:"indices,omitempty"`
	Kind    string           `json:"kind,omitempty" yaml:"kind,omitempty"`
	Shape   []int            `json:"shape,omitempty" yaml:"shape,omitempty"`
	Value   *debugfile.Value `json:"value,omitempty" yaml:"value,omitempty"`
	Scope   bool             `json:"scope,omitempty" yaml:"scope,omitempty"`
}

type matchList []matchRow

func newMatchRow(m debugfile.Match) matchRow {
	row := matchRow{Indices: m.Indices}
	switch {
	case m.Key != "":
		row.Key = m.Key
	case m.Path != nil:
		row.Key = m.Path.String()
	}
	switch {
	case m.Scope != nil:
		row.Scope = true
	case m.Value.IsValid():
		v := m.Value
		row.Kind = v.Kind().String()
		row.Shape = v.Shape()
		row.Value = &v
	}
	return row
}

func (l matchList) Table() cli.Table {
	t := cli.Table{Header: []string{"KEY", "KIND", "SHAPE", "VALUE"}}
	for _, r := range l {
		switch {
		case r.Scope:
			t.Rows = append(t.Rows, []string{r.Key, "scope", "", ""})
		case r.Value == nil:
			t.Rows = append(t.Rows, []string{r.Key, "", "", ""})
		default:
			t.Rows = append(t.Rows, []string{r.Key, r.Kind, cli.FormatShape(r.Shape), cli.Truncate(r.Value.String(), valueWidth)})
		}
	}
	return t
}

type gatherResult struct {
	Pattern string          `json:"pattern" yaml:"pattern"`
	Kind    string          `json:"kind" yaml:"kind"`
	Shape   []int           `json:"shape" yaml:"shape"`
	Data    debugfile.Value `json:"data" yaml:"data"`
}

func (r gatherResult) Table() cli.Table {
	return cli.Table{
		Header: []string{"PATTERN", "KIND", "SHAPE", "DATA"},
		Rows:   [][]string{{r.Pattern, r.Kind, cli.FormatShape(r.Shape), cli.Truncate(r.Data.String(), valueWidth)}},
	}
}

func (r gatherResult) String() string { return r.Data.String() }

type queryResult struct {
	Name    string    `json:"name" yaml:"name"`
	Select  string    `json:"select" yaml:"select"`
	Matches matchList `json:"matches" yaml:"matches"`
}

type runList []tracedb.Run

func (l runList) Table() cli.Table {
	t := cli.Table{Header: []string{"ID", "NAME", "CREATED", "LEAVES"}}
	for _, r := range l {
		t.Rows = append(t.Rows, []string{
			r.ID,
			r.Name,
			r.Created.Local().Format(time.DateTime),
			strconv.Itoa(r.Leaves),
		})
	}
	return t
}
