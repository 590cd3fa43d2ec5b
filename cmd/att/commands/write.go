package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiotesttools/att/pkg/cli"
	"github.com/audiotesttools/att/pkg/debugfile"
)

// WriteFile describes a debug file as directives plus recorder steps.
//
//	directives:
//	  - name: TOOL
//	    value: bench
//	steps:
//	  - push: frame
//	    indexed: true
//	  - index: 2
//	  - write: {name: gain, value: 0.5}
//	  - write: {name: mic, value: [[1, 2], [3, 4]]}
//	  - increment: true
//	  - write: {name: gain, value: "1+2j"}
//	  - pop: true
type WriteFile struct {
	Directives []WriteDirective `yaml:"directives" json:"directives"`
	Steps      []WriteStep      `yaml:"steps" json:"steps"`
}

// WriteDirective is one "!NAME: value" line.
type WriteDirective struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// WriteStep is one recorder call. Exactly one action field is set.
type WriteStep struct {
	Push      *string     `yaml:"push" json:"push"`
	Indexed   bool        `yaml:"indexed" json:"indexed"`
	Pop       bool        `yaml:"pop" json:"pop"`
	Index     *int        `yaml:"index" json:"index"`
	Increment bool        `yaml:"increment" json:"increment"`
	Write     *WriteEntry `yaml:"write" json:"write"`
}

// WriteEntry is a named value. Value is a number, a literal string such as
// "1+2j", or a nested list of those.
type WriteEntry struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

var errStepAction = errors.New("step must set exactly one of push, pop, index, increment, write")

var (
	writeFile   string
	writeDryRun bool
)

var writeCmd = &cobra.Command{
	Use:   "write -f <entries.yaml> <out>",
	Short: "Render a debug file from a YAML description",
	Long: `Replay a list of recorder steps (scope push/pop, index set/increment,
value writes) into a new debug file. OUT may be a local path or
s3://bucket/key. With --dry-run the steps are validated against a recorder
that discards everything and no file is written.

File layout:

  directives:
    - name: TOOL
      value: bench
  steps:
    - push: frame
      indexed: true
    - index: 2
    - write: {name: gain, value: 0.5}
    - write: {name: mic, value: [[1, 2], [3, 4]]}
    - increment: true
    - pop: true`,
	Args: func(cmd *cobra.Command, args []string) error {
		if writeDryRun {
			return cobra.MaximumNArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if writeFile == "" {
			return fmt.Errorf("input file is required, use -f flag")
		}
		var desc WriteFile
		if err := cli.LoadRequest(writeFile, &desc); err != nil {
			return fmt.Errorf("load %s: %w", writeFile, err)
		}

		if writeDryRun {
			if err := replay(debugfile.Discard, desc.Steps); err != nil {
				return err
			}
			cli.PrintSuccess("%d steps OK", len(desc.Steps))
			return nil
		}

		w, err := createDebugFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, d := range desc.Directives {
			if err := w.Directive(d.Name, d.Value); err != nil {
				w.Close()
				return err
			}
		}
		if err := replay(w, desc.Steps); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("write %s: %w", args[0], err)
		}
		logger.Debug("wrote debug file", "out", args[0], "steps", len(desc.Steps))
		cli.PrintSuccess("Wrote %s", args[0])
		return nil
	},
}

// replay applies steps to rec in order.
func replay(rec debugfile.Recorder, steps []WriteStep) error {
	for i, s := range steps {
		if err := applyStep(rec, s); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func applyStep(rec debugfile.Recorder, s WriteStep) error {
	actions := 0
	for _, set := range []bool{s.Push != nil, s.Pop, s.Index != nil, s.Increment, s.Write != nil} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return errStepAction
	}

	switch {
	case s.Push != nil:
		_, err := rec.ScopePush(*s.Push, s.Indexed)
		return err
	case s.Pop:
		return rec.ScopePop()
	case s.Index != nil:
		return rec.IndexSet(*s.Index)
	case s.Increment:
		return rec.IndexIncrement()
	}

	v, err := entryValue(s.Write.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", s.Write.Name, err)
	}
	switch {
	case v.IsScalar():
		return rec.WriteScalar(s.Write.Name, v)
	case len(v.Shape()) == 1:
		return rec.WriteVector(s.Write.Name, v)
	default:
		return rec.WriteNDArray(s.Write.Name, v)
	}
}

// entryValue converts decoded YAML or JSON data into a Value. Lists must be
// rectangular; the element kind is the widest kind present.
func entryValue(data any) (debugfile.Value, error) {
	if _, ok := data.([]any); !ok {
		return scalarValue(data)
	}

	var shape []int
	for cur := data; ; {
		list, ok := cur.([]any)
		if !ok {
			break
		}
		shape = append(shape, len(list))
		if len(list) == 0 {
			break
		}
		cur = list[0]
	}

	var elems []debugfile.Value
	if err := collectElems(data, shape, 0, &elems); err != nil {
		return debugfile.Value{}, err
	}

	kind := debugfile.KindFloat
	if len(elems) > 0 {
		kind = debugfile.KindInt
		for _, e := range elems {
			kind = max(kind, e.Kind())
		}
	}
	switch kind {
	case debugfile.KindInt:
		ints := make([]int64, len(elems))
		for i, e := range elems {
			ints[i], _ = e.Int64()
		}
		return debugfile.IntArray(shape, ints)
	case debugfile.KindFloat:
		floats := make([]float64, len(elems))
		for i, e := range elems {
			floats[i], _ = e.Float64()
		}
		return debugfile.FloatArray(shape, floats)
	default:
		cs := make([]complex128, len(elems))
		for i, e := range elems {
			cs[i], _ = e.Complex128()
		}
		return debugfile.ComplexArray(shape, cs)
	}
}

func collectElems(data any, shape []int, depth int, out *[]debugfile.Value) error {
	list, isList := data.([]any)
	if depth == len(shape) {
		if isList {
			return fmt.Errorf("%w: ragged list", debugfile.ErrShapeMismatch)
		}
		v, err := scalarValue(data)
		if err != nil {
			return err
		}
		*out = append(*out, v)
		return nil
	}
	if !isList || len(list) != shape[depth] {
		return fmt.Errorf("%w: ragged list", debugfile.ErrShapeMismatch)
	}
	for _, e := range list {
		if err := collectElems(e, shape, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}

func scalarValue(data any) (debugfile.Value, error) {
	switch v := data.(type) {
	case int:
		return debugfile.IntScalar(int64(v)), nil
	case int64:
		return debugfile.IntScalar(v), nil
	case uint64:
		return debugfile.ParseScalar(fmt.Sprint(v))
	case float64:
		return debugfile.FloatScalar(v), nil
	case json.Number:
		return debugfile.ParseScalar(v.String())
	case string:
		return debugfile.ParseScalar(v)
	default:
		return debugfile.Value{}, fmt.Errorf("%w: %T", debugfile.ErrUnsupportedType, data)
	}
}

func init() {
	writeCmd.Flags().StringVarP(&writeFile, "file", "f", "", "description file (YAML or JSON, - for stdin)")
	writeCmd.Flags().BoolVar(&writeDryRun, "dry-run", false, "validate the steps without writing a file")
	rootCmd.AddCommand(writeCmd)
}
