package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/debugfile"
)

var (
	selectScope     string
	selectStandard  bool
	selectIndexKeys bool
	selectParent    bool
	selectNoKeys    bool
	selectNoValues  bool
)

var selectCmd = &cobra.Command{
	Use:   "select [file] <pattern>",
	Short: "Run a wildcard query",
	Long: `Print every entry matching a pattern. A '*' segment, written as a name
or as an index ([*]), expands to all children of its scope in the order
they were first written.

Examples:
  att select capture.dbg 'frame[*].gain'
  att select capture.dbg 'mic[*]' --scope 'frame[3]' --parent-keys --standard-keys
  att select capture.dbg 'frame.*' --no-values --format table`,
	Args: viewArgs(1, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, rest, release, err := openView(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer release()

		if selectScope != "" {
			if view, err = view.Scope(selectScope); err != nil {
				return err
			}
		}
		rows, err := collectMatches(view, rest[0], selectOptions())
		if err != nil {
			return err
		}
		return output(rows)
	},
}

func selectOptions() debugfile.SelectOptions {
	return debugfile.SelectOptions{
		OmitKeys:     selectNoKeys,
		OmitValues:   selectNoValues,
		ParentKeys:   selectParent,
		StandardKeys: selectStandard,
		IndexKeys:    selectIndexKeys,
	}
}

func collectMatches(view *debugfile.View, pattern string, opts debugfile.SelectOptions) (matchList, error) {
	rows := matchList{}
	for m, err := range view.SelectMany(pattern, opts) {
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", pattern, err)
		}
		rows = append(rows, newMatchRow(m))
	}
	logger.Debug("select", "pattern", pattern, "matches", len(rows))
	return rows, nil
}

func init() {
	f := selectCmd.Flags()
	f.StringVar(&selectScope, "scope", "", "run the query inside this scope")
	f.BoolVar(&selectStandard, "standard-keys", false, "report keys in standard form (fails for keys starting with an index)")
	f.BoolVar(&selectIndexKeys, "index-keys", false, "report the index segments of each key")
	f.BoolVar(&selectParent, "parent-keys", false, "prefix keys with the --scope path")
	f.BoolVar(&selectNoKeys, "no-keys", false, "omit keys")
	f.BoolVar(&selectNoValues, "no-values", false, "omit values; lazily loaded values are not read")

	addRunFlag(selectCmd)
	rootCmd.AddCommand(selectCmd)
}
