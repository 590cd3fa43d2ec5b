package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/debugfile"
)

// runRef is the --run flag shared by the read commands. When set they read
// a stored run from the trace database instead of a FILE argument.
var runRef string

func addRunFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runRef, "run", "", "read a stored run (ID, ID prefix or name) instead of a file")
}

// viewArgs accepts FILE followed by min..max arguments, or only the
// min..max arguments when --run is set.
func viewArgs(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if runRef != "" {
			return cobra.RangeArgs(min, max)(cmd, args)
		}
		return cobra.RangeArgs(min+1, max+1)(cmd, args)
	}
}

// openView opens the view named by args and returns the arguments after
// FILE. The returned function releases the file or database.
func openView(ctx context.Context, args []string) (*debugfile.View, []string, func(), error) {
	if runRef != "" {
		db, closeDB, err := openTraceDB()
		if err != nil {
			return nil, nil, nil, err
		}
		v, run, err := db.Load(ctx, runRef)
		if err != nil {
			closeDB()
			return nil, nil, nil, err
		}
		logger.Debug("loaded run", "id", run.ID, "name", run.Name, "leaves", run.Leaves)
		return v, args, closeDB, nil
	}

	f, err := openDebugFile(ctx, args[0])
	if err != nil {
		return nil, nil, nil, err
	}
	return f.View, args[1:], func() { f.Close() }, nil
}
