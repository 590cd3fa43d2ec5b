package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/cli"
	"github.com/audiotesttools/att/pkg/debugfile"
)

// QueryFile is a batch of selects loaded with -f.
//
//	queries:
//	  - name: gains
//	    select: frame[*].gain
//	  - select: mic[*]
//	    scope: frame[3]
//	    parent_keys: true
//	    standard_keys: true
type QueryFile struct {
	Queries []QuerySpec `yaml:"queries" json:"queries"`
}

// QuerySpec is one select. Name defaults to the pattern.
type QuerySpec struct {
	Name         string `yaml:"name" json:"name"`
	Select       string `yaml:"select" json:"select"`
	Scope        string `yaml:"scope" json:"scope"`
	StandardKeys bool   `yaml:"standard_keys" json:"standard_keys"`
	IndexKeys    bool   `yaml:"index_keys" json:"index_keys"`
	ParentKeys   bool   `yaml:"parent_keys" json:"parent_keys"`
	NoKeys       bool   `yaml:"no_keys" json:"no_keys"`
	NoValues     bool   `yaml:"no_values" json:"no_values"`
}

func (q QuerySpec) options() debugfile.SelectOptions {
	return debugfile.SelectOptions{
		OmitKeys:     q.NoKeys,
		OmitValues:   q.NoValues,
		ParentKeys:   q.ParentKeys,
		StandardKeys: q.StandardKeys,
		IndexKeys:    q.IndexKeys,
	}
}

var queryFile string

var queryCmd = &cobra.Command{
	Use:   "query [file] -f <queries.yaml>",
	Short: "Run a batch of queries from a file",
	Long: `Run every select listed in a YAML or JSON file against one debug file or
stored run. Use -f - to read the batch from stdin.

Example queries.yaml:
  queries:
    - name: gains
      select: frame[*].gain
    - select: mic[*]
      scope: frame[3]
      parent_keys: true
      standard_keys: true`,
	Args: viewArgs(0, 0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryFile == "" {
			return fmt.Errorf("query file is required, use -f flag")
		}
		var batch QueryFile
		if err := cli.LoadRequest(queryFile, &batch); err != nil {
			return fmt.Errorf("load %s: %w", queryFile, err)
		}
		if len(batch.Queries) == 0 {
			return fmt.Errorf("%s: no queries", queryFile)
		}

		view, _, release, err := openView(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer release()

		results := make([]queryResult, 0, len(batch.Queries))
		for i, q := range batch.Queries {
			if q.Select == "" {
				return fmt.Errorf("query %d: select is required", i)
			}
			name := q.Name
			if name == "" {
				name = q.Select
			}
			v := view
			if q.Scope != "" {
				if v, err = view.Scope(q.Scope); err != nil {
					return fmt.Errorf("query %s: %w", name, err)
				}
			}
			rows, err := collectMatches(v, q.Select, q.options())
			if err != nil {
				return fmt.Errorf("query %s: %w", name, err)
			}
			results = append(results, queryResult{Name: name, Select: q.Select, Matches: rows})
		}
		return output(results)
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryFile, "file", "f", "", "query batch file (YAML or JSON, - for stdin)")

	addRunFlag(queryCmd)
	rootCmd.AddCommand(queryCmd)
}
