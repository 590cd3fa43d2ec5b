package commands

import (
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [file] <path>",
	Short: "Print one value or scope",
	Long: `Print the value stored at a path. When the path names a scope, its child
keys are printed instead.

Examples:
  att get capture.dbg 'frame[2].sample[0]'
  att get capture.dbg frame --format table
  att get --run baseline 'frame[2].gain' --format raw`,
	Args: viewArgs(1, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, rest, release, err := openView(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer release()

		target := rest[0]
		scope, val, err := view.Lookup(target)
		if err != nil {
			return err
		}
		if scope != nil {
			keys, err := scope.Keys(nil)
			if err != nil {
				return err
			}
			return output(scopeResult{Path: target, Keys: segmentStrings(keys)})
		}
		return output(newLeafResult(target, val))
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys [file] [path]",
	Short: "List the children of a scope",
	Long: `List the child keys of a scope in the order they were first written.
Without a path the top-level keys are listed.

Examples:
  att keys capture.dbg
  att keys capture.dbg 'frame[2]'`,
	Args: viewArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, rest, release, err := openView(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer release()

		var target any
		if len(rest) > 0 {
			target = rest[0]
		}
		keys, err := view.Keys(target)
		if err != nil {
			return err
		}
		return output(segmentStrings(keys))
	},
}

func init() {
	addRunFlag(getCmd)
	addRunFlag(keysCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(keysCmd)
}
