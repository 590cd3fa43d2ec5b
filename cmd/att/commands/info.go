package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/cli"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Summarize a debug file",
	Long: `Print the directives, top-level keys and leaf count of a debug file.
Values are not read.

Examples:
  att info capture.dbg
  att info s3://captures/2024-05-01/run1.dbg --format table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openDebugFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		keys, err := f.Keys(nil)
		if err != nil {
			return err
		}
		info := fileInfo{
			Source:  args[0],
			Version: int(f.Meta.Version),
			Keys:    segmentStrings(keys),
			Leaves:  f.Tree().Len(),
		}
		for _, name := range f.Meta.Names() {
			value, _ := f.Meta.Get(name)
			info.Directives = append(info.Directives, directive{Name: name, Value: value})
		}
		if st, err := os.Stat(args[0]); err == nil {
			info.Size = cli.FormatBytes(st.Size())
		}
		return output(info)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
