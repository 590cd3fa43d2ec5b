package debugfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	regexVersion   = regexp.MustCompile(`^!VERSION: (\d+)$`)
	regexDirective = regexp.MustCompile(`^!(.*): (.*)$`)
	regexEntry     = regexp.MustCompile(`^(.*):( <(.+)>)? (.*)$`)
)

// Version identifies a debug file format revision.
type Version int

// Version0 is the only format revision so far.
const Version0 Version = 0

// CurrentVersion is the revision written by Writer.
const CurrentVersion = Version0

// parseFunc fills tree and meta from the whole of src.
type parseFunc func(src io.ReaderAt, tree *Tree, meta *Metadata, lazy bool) (parseStats, error)

// parser returns the parse function for v.
func (v Version) parser() (parseFunc, error) {
	switch v {
	case Version0:
		return parseV0, nil
	}
	return nil, &UnsupportedVersionError{Version: int(v)}
}

type parseStats struct {
	lines      int
	entries    int
	directives int
	comments   int
}

// lineReader yields the lines of src with their starting byte offsets.
// Line terminators ("\n" or "\r\n") are stripped.
type lineReader struct {
	r    *bufio.Reader
	off  int64
	line int
}

func newLineReader(src io.ReaderAt) *lineReader {
	return &lineReader{r: bufio.NewReader(io.NewSectionReader(src, 0, math.MaxInt64))}
}

// next returns the next line, its offset and number. It returns io.EOF
// once the source is exhausted.
func (lr *lineReader) next() (line string, off int64, num int, err error) {
	raw, err := lr.r.ReadString('\n')
	if len(raw) == 0 && err != nil {
		return "", 0, 0, err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", 0, 0, err
	}
	off = lr.off
	lr.off += int64(len(raw))
	lr.line++
	line = strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
	return line, off, lr.line, nil
}

// detectVersion reads the first non-blank line of src, which must be a
// VERSION directive.
func detectVersion(src io.ReaderAt) (Version, error) {
	lr := newLineReader(src)
	for {
		line, _, _, err := lr.next()
		if errors.Is(err, io.EOF) {
			return 0, ErrMissingVersion
		}
		if err != nil {
			return 0, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := regexVersion.FindStringSubmatch(line)
		if m == nil {
			return 0, ErrMissingVersion
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, &UnsupportedVersionError{Version: -1}
		}
		return Version(n), nil
	}
}

// parseV0 consumes a version 0 file line by line. Directives update meta,
// comments and blank lines are skipped, every other line must be an entry.
func parseV0(src io.ReaderAt, tree *Tree, meta *Metadata, lazy bool) (parseStats, error) {
	var stats parseStats
	lr := newLineReader(src)
	for {
		line, off, num, err := lr.next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.lines++

		switch {
		case strings.TrimSpace(line) == "":
		case line[0] == '!':
			m := regexDirective.FindStringSubmatch(line)
			if m == nil {
				return stats, &LineError{Line: num, Content: line, Err: ErrUnparsableLine}
			}
			if err := meta.apply(m[1], m[2]); err != nil {
				return stats, &LineError{Line: num, Content: line, Err: err}
			}
			stats.directives++
		case line[0] == '#':
			stats.comments++
		default:
			if err := parseEntryV0(tree, line, off, lazy); err != nil {
				return stats, &LineError{Line: num, Content: line, Err: err}
			}
			stats.entries++
		}
	}
}

// parseEntryV0 handles "NAME[: <DIMS>] VALUE". off is the byte offset of
// the line in the source; a lazy entry records the offset of VALUE.
func parseEntryV0(tree *Tree, line string, off int64, lazy bool) error {
	m := regexEntry.FindStringSubmatchIndex(line)
	if m == nil {
		return ErrUnparsableLine
	}
	target := line[m[2]:m[3]]
	p, err := ParsePath(target)
	if err != nil {
		return err
	}

	var dims []int
	if m[6] >= 0 {
		if dims, err = parseDims(line[m[6]:m[7]]); err != nil {
			return err
		}
	}

	var leaf Leaf
	if lazy {
		leaf = Deferred{Offset: off + int64(m[8]), Dims: dims}
	} else {
		v, err := ParseValue(line[m[8]:m[9]], dims)
		if err != nil {
			return err
		}
		leaf = v
	}
	return tree.Set(p, leaf)
}

// Metadata holds the directives of a debug file.
type Metadata struct {
	// Version is the value of the VERSION directive.
	Version Version

	values map[string]string
	names  []string
}

func newMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

func (m *Metadata) apply(name, value string) error {
	if name == "VERSION" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: VERSION %q is not an integer", ErrUnparsableLine, value)
		}
		m.Version = Version(n)
	}
	if _, ok := m.values[name]; !ok {
		m.names = append(m.names, name)
	}
	m.values[name] = value
	return nil
}

// Get returns the raw value of a directive.
func (m *Metadata) Get(name string) (string, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Names returns directive names in order of first appearance.
func (m *Metadata) Names() []string {
	return append([]string(nil), m.names...)
}

// Map returns a copy of all directives.
func (m *Metadata) Map() map[string]string {
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
