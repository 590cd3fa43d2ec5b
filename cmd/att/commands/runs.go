package commands

import (
	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/cli"
)

var importName string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a debug file in the trace database",
	Long: `Read every value of a debug file and store it as a run in the trace
database. Stored runs can be read back with --run on get, keys, select,
gather and query, without the original file.

Examples:
  att import capture.dbg --name baseline
  att import s3://captures/run1.dbg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := openDebugFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		db, closeDB, err := openTraceDB()
		if err != nil {
			return err
		}
		defer closeDB()

		meta := f.Meta.Map()
		meta["SOURCE"] = args[0]
		run, err := db.Import(cmd.Context(), importName, f.View, meta)
		if err != nil {
			return err
		}
		return output(run)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	Long: `List the runs in the trace database, oldest first.

Examples:
  att runs --format table
  att runs --jq '.[].id'
  att runs rm baseline`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openTraceDB()
		if err != nil {
			return err
		}
		defer closeDB()

		runs, err := db.Runs(cmd.Context())
		if err != nil {
			return err
		}
		return output(runList(runs))
	},
}

var runsRmCmd = &cobra.Command{
	Use:     "rm <run>...",
	Aliases: []string{"delete"},
	Short:   "Remove stored runs by ID, ID prefix or name",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openTraceDB()
		if err != nil {
			return err
		}
		defer closeDB()

		for _, ref := range args {
			run, err := db.Delete(cmd.Context(), ref)
			if err != nil {
				return err
			}
			cli.PrintSuccess("Removed run %s", run.ID)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "label for the run, usable in place of its ID")

	runsCmd.AddCommand(runsRmCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(runsCmd)
}
