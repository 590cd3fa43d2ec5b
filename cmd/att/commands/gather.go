package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/debugfile"
)

var (
	gatherShape string
	gatherKind  string
)

var gatherCmd = &cobra.Command{
	Use:   "gather [file] <pattern>",
	Short: "Collect matches into one dense array",
	Long: `Collect the leaves matched by a pattern into one array. Every index
position of the matched keys becomes a leading dimension spanning its
smallest to largest index; missing entries are zero. The trailing
dimensions are the shape of each matched value.

--shape and --kind default to the shape and kind of the first match.

Examples:
  att gather capture.dbg 'frame[*].gain'
  att gather capture.dbg 'frame[*].mic[*]' --shape 256 --kind complex --format json`,
	Args: viewArgs(1, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view, rest, release, err := openView(cmd.Context(), args)
		if err != nil {
			return err
		}
		defer release()

		pattern := rest[0]
		shape, err := parseShape(gatherShape)
		if err != nil {
			return err
		}
		kind := debugfile.KindInvalid
		if gatherKind != "" {
			if kind, err = debugfile.ParseKind(gatherKind); err != nil {
				return err
			}
		}
		if !cmd.Flags().Changed("shape") || kind == debugfile.KindInvalid {
			first, err := firstValue(view, pattern)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("shape") {
				shape = first.Shape()
			}
			if kind == debugfile.KindInvalid {
				kind = first.Kind()
			}
		}

		data, err := debugfile.Gather(view, pattern, shape, kind)
		if err != nil {
			return err
		}
		return output(gatherResult{
			Pattern: pattern,
			Kind:    data.Kind().String(),
			Shape:   data.Shape(),
			Data:    data,
		})
	},
}

// parseShape parses "4,2". An empty string is a scalar.
func parseShape(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	shape := make([]int, len(parts))
	for i, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid --shape %q: want comma-separated non-negative sizes", s)
		}
		shape[i] = d
	}
	return shape, nil
}

// firstValue returns the value of the first leaf matching pattern.
func firstValue(view *debugfile.View, pattern string) (debugfile.Value, error) {
	for m, err := range view.SelectMany(pattern, debugfile.SelectOptions{OmitKeys: true}) {
		if err != nil {
			return debugfile.Value{}, err
		}
		if m.Scope != nil {
			return debugfile.Value{}, fmt.Errorf("%w: %s matches a scope", debugfile.ErrNotALeaf, pattern)
		}
		return m.Value, nil
	}
	return debugfile.Value{}, fmt.Errorf("%w: no match for %s", debugfile.ErrPathNotFound, pattern)
}

func init() {
	gatherCmd.Flags().StringVar(&gatherShape, "shape", "", "shape of each matched value, e.g. 4,2 (empty for scalars)")
	gatherCmd.Flags().StringVar(&gatherKind, "kind", "", "element kind: int, float or complex")

	addRunFlag(gatherCmd)
	rootCmd.AddCommand(gatherCmd)
}
