package debugfile

import (
	"fmt"
	"iter"
)

// View is the public facade over a scope of a debug file. Targets passed to
// its methods may be in standard form ("frame[3].gain") or normalized form
// (a Path or []any); see Normalize. A View remembers the path leading to it
// from the root so query results can be re-qualified.
type View struct {
	tree   *Tree
	parent Path
	root   *View
}

// NewView returns a root view over t.
func NewView(t *Tree) *View {
	v := &View{tree: t}
	v.root = v
	return v
}

func (v *View) sub(t *Tree, rel Path) *View {
	return &View{tree: t, parent: v.parent.Concat(rel), root: v.root}
}

// Tree returns the scope node under the view.
func (v *View) Tree() *Tree { return v.tree }

// Path returns the absolute path of the view; empty for the root.
func (v *View) Path() Path { return v.parent.Concat(nil) }

// Root returns the top-level view regardless of nesting depth.
func (v *View) Root() *View { return v.root }

// scopePath normalizes a target for the scope-level operations, where nil
// means the view itself.
func scopePath(target any) (Path, error) {
	if target == nil {
		return nil, nil
	}
	return Normalize(target)
}

// Get returns the leaf value at target.
func (v *View) Get(target any) (Value, error) {
	p, err := Normalize(target)
	if err != nil {
		return Value{}, err
	}
	return v.tree.Get(p)
}

// Scope returns a view over the scope at target.
func (v *View) Scope(target any) (*View, error) {
	p, err := Normalize(target)
	if err != nil {
		return nil, err
	}
	t, err := v.tree.Scope(p)
	if err != nil {
		return nil, err
	}
	return v.sub(t, p), nil
}

// Lookup returns whatever is stored at target: a view when it is a scope,
// a value when it is a leaf.
func (v *View) Lookup(target any) (*View, Value, error) {
	p, err := Normalize(target)
	if err != nil {
		return nil, Value{}, err
	}
	parent, key, ch, err := v.tree.lookup(p)
	if err != nil {
		return nil, Value{}, err
	}
	if ch.scope != nil {
		return v.sub(ch.scope, p), Value{}, nil
	}
	val, err := parent.resolve(key)
	return nil, val, err
}

// Set stores a leaf at target, creating intermediate scopes.
func (v *View) Set(target any, leaf Leaf) error {
	p, err := Normalize(target)
	if err != nil {
		return err
	}
	return v.tree.Set(p, leaf)
}

// ChildCount returns the number of children of the scope at target; nil
// targets the view itself.
func (v *View) ChildCount(target any) (int, error) {
	p, err := scopePath(target)
	if err != nil {
		return 0, err
	}
	return v.tree.ChildCount(p)
}

// Keys returns the child keys of the scope at target in insertion order;
// nil targets the view itself.
func (v *View) Keys(target any) ([]Segment, error) {
	p, err := scopePath(target)
	if err != nil {
		return nil, err
	}
	return v.tree.Keys(p)
}

// Indices returns the integer keys of the scope at target in insertion
// order; nil targets the view itself.
func (v *View) Indices(target any) ([]int, error) {
	keys, err := v.Keys(target)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, k := range keys {
		if k.IsIndex() {
			out = append(out, k.Index())
		}
	}
	return out, nil
}

// Walk calls fn with the absolute path and value of every leaf under the
// view, in insertion order.
func (v *View) Walk(fn func(p Path, val Value) error) error {
	return v.tree.Walk(func(p Path, val Value) error {
		return fn(v.parent.Concat(p), val)
	})
}

// SelectOptions control how SelectMany reports its matches. The zero value
// reports normalized keys relative to the view together with values.
type SelectOptions struct {
	// OmitKeys leaves Match.Path, Key and Indices empty.
	OmitKeys bool
	// OmitValues skips reading values; deferred leaves stay unread.
	OmitValues bool
	// ParentKeys prefixes keys with the path of the view.
	ParentKeys bool
	// StandardKeys fills Match.Key with the standard form of the key.
	StandardKeys bool
	// IndexKeys fills Match.Indices with the key's index segments.
	IndexKeys bool
}

// Match is one result of View.SelectMany.
type Match struct {
	// Path is the normalized key, prefixed with the view path when
	// ParentKeys is set.
	Path Path
	// Key is the standard form of Path when StandardKeys is set.
	Key string
	// Indices holds the index segments of Path when IndexKeys is set.
	Indices []int
	// Value is the matched leaf value, unless values were omitted or the
	// match is a scope.
	Value Value
	// Scope is set when the match is a scope rather than a leaf.
	Scope *View
}

// SelectMany runs a wildcard query below the view. Keys are derived in a
// fixed order: raw normalized key, then the parent prefix, then the
// standard form and index list, both computed from the prefixed key.
func (v *View) SelectMany(target any, opts SelectOptions) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		p, err := Normalize(target)
		if err != nil {
			yield(Match{}, err)
			return
		}
		for sel, err := range v.tree.SelectMany(p, !opts.OmitValues) {
			if err != nil {
				yield(Match{}, err)
				return
			}
			m := Match{Value: sel.Value}
			if sel.Scope != nil {
				m.Scope = v.sub(sel.Scope, sel.Path)
			}
			if !opts.OmitKeys {
				key := sel.Path
				if opts.ParentKeys {
					key = v.parent.Concat(key)
				}
				m.Path = key
				if opts.StandardKeys {
					if m.Key, err = Standardize(key); err != nil {
						yield(Match{}, fmt.Errorf("select %v: %w", target, err))
						return
					}
				}
				if opts.IndexKeys {
					m.Indices = ExtractIndices(key)
				}
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// Collect runs SelectMany and gathers every match, stopping at the first
// error.
func (v *View) Collect(target any, opts SelectOptions) ([]Match, error) {
	var out []Match
	for m, err := range v.SelectMany(target, opts) {
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
