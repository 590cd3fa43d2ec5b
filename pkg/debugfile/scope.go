package debugfile

import (
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
)

// backing is shared by every node of one tree: the source deferred leaves
// are read from and the policy applied after reading them.
type backing struct {
	src    io.ReaderAt
	policy CachePolicy
}

// child is either a nested scope or a leaf.
type child struct {
	scope *Tree
	leaf  Leaf
}

// Tree is a scope node: an insertion-ordered map from path segment to a
// nested scope or a leaf. Trees are not safe for concurrent use; reads may
// write resolved values back into the tree.
type Tree struct {
	keys     []Segment
	children map[Segment]child
	store    *backing
}

// NewTree creates an empty root scope. src backs deferred leaves and may be
// nil for trees that only hold resolved values.
func NewTree(src io.ReaderAt, policy CachePolicy) *Tree {
	return &Tree{store: &backing{src: src, policy: policy}}
}

func (t *Tree) newScope() *Tree {
	return &Tree{store: t.store}
}

func (t *Tree) put(key Segment, ch child) {
	if t.children == nil {
		t.children = make(map[Segment]child)
	}
	if _, ok := t.children[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.children[key] = ch
}

// Set stores leaf at p, creating intermediate scopes as needed. An existing
// entry at p is replaced and keeps its position in the key order.
func (t *Tree) Set(p Path, leaf Leaf) error {
	if len(p) == 0 {
		return &MalformedPathError{Input: p, Reason: "empty path"}
	}
	if leaf == nil {
		return fmt.Errorf("%w: nil leaf at %s", ErrNotALeaf, p)
	}
	if p.HasWildcard() {
		return &MalformedPathError{Input: p.String(), Reason: "wildcard in assignment"}
	}
	node := t
	for i, key := range p[:len(p)-1] {
		ch, ok := node.children[key]
		if !ok {
			sub := node.newScope()
			node.put(key, child{scope: sub})
			node = sub
			continue
		}
		if ch.scope == nil {
			return fmt.Errorf("%w: %s", ErrNotAScope, p[:i+1])
		}
		node = ch.scope
	}
	node.put(p[len(p)-1], child{leaf: leaf})
	return nil
}

// lookup walks p and returns the node holding the final segment together
// with that segment. An empty p refers to t itself, which is reported with
// a nil parent.
func (t *Tree) lookup(p Path) (parent *Tree, key Segment, ch child, err error) {
	if len(p) == 0 {
		return nil, Segment{}, child{scope: t}, nil
	}
	node := t
	for i, k := range p[:len(p)-1] {
		c, ok := node.children[k]
		if !ok {
			return nil, Segment{}, child{}, &PathNotFoundError{Path: p, Missing: k}
		}
		if c.scope == nil {
			return nil, Segment{}, child{}, fmt.Errorf("%w: %s", ErrNotAScope, p[:i+1])
		}
		node = c.scope
	}
	last := p[len(p)-1]
	c, ok := node.children[last]
	if !ok {
		return nil, Segment{}, child{}, &PathNotFoundError{Path: p, Missing: last}
	}
	return node, last, c, nil
}

// resolve returns the value of the leaf stored under key, applying the
// tree's cache policy.
func (t *Tree) resolve(key Segment) (Value, error) {
	ch := t.children[key]
	v, kept, err := Resolve(ch.leaf, t.store.src, t.store.policy)
	if err != nil {
		return Value{}, err
	}
	t.children[key] = child{leaf: kept}
	return v, nil
}

// Get returns the value stored at p, reading it from the backing source if
// it is deferred.
func (t *Tree) Get(p Path) (Value, error) {
	parent, key, ch, err := t.lookup(p)
	if err != nil {
		return Value{}, err
	}
	if ch.scope != nil {
		return Value{}, fmt.Errorf("%w: %s", ErrNotALeaf, p)
	}
	return parent.resolve(key)
}

// Scope returns the scope node at p.
func (t *Tree) Scope(p Path) (*Tree, error) {
	_, _, ch, err := t.lookup(p)
	if err != nil {
		return nil, err
	}
	if ch.scope == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAScope, p)
	}
	return ch.scope, nil
}

// Leaf returns the leaf stored at p without resolving it.
func (t *Tree) Leaf(p Path) (Leaf, error) {
	_, _, ch, err := t.lookup(p)
	if err != nil {
		return nil, err
	}
	if ch.scope != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotALeaf, p)
	}
	return ch.leaf, nil
}

// ChildCount returns the number of children of the scope at p.
func (t *Tree) ChildCount(p Path) (int, error) {
	s, err := t.Scope(p)
	if err != nil {
		return 0, err
	}
	return len(s.keys), nil
}

// Keys returns the keys of the scope at p in insertion order.
func (t *Tree) Keys(p Path) ([]Segment, error) {
	s, err := t.Scope(p)
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.keys), nil
}

// Selected is one result of Tree.SelectMany. Path is relative to the tree
// the query ran on. Exactly one of Value and Scope is set, unless values
// were not requested, in which case leaves leave both empty.
type Selected struct {
	Path  Path
	Value Value
	Scope *Tree
}

// SelectMany returns every entry matching p. A wildcard segment expands to
// all current children of its scope in insertion order, names and indices
// alike; other segments must exist. When resolve is false deferred leaves
// are not read.
//
// The sequence is evaluated lazily and afresh on every iteration. A failure
// is yielded as the final element.
func (t *Tree) SelectMany(p Path, resolve bool) iter.Seq2[Selected, error] {
	return func(yield func(Selected, error) bool) {
		if len(p) == 0 {
			yield(Selected{}, &MalformedPathError{Input: p, Reason: "empty query"})
			return
		}
		t.selectMany(nil, p, p, resolve, yield)
	}
}

func (t *Tree) selectMany(prefix, full, p Path, resolve bool, yield func(Selected, error) bool) bool {
	key, rest := p[0], p[1:]
	keys := []Segment{key}
	if key.IsWildcard() {
		keys = slices.Clone(t.keys)
	}
	for _, k := range keys {
		matched := append(slices.Clip(prefix), k)
		ch, ok := t.children[k]
		if !ok {
			yield(Selected{}, &PathNotFoundError{Path: matched, Missing: k})
			return false
		}
		if len(rest) > 0 {
			if ch.scope == nil {
				yield(Selected{}, fmt.Errorf("%w: %s (query %s)", ErrNotAScope, matched, full))
				return false
			}
			if !ch.scope.selectMany(matched, full, rest, resolve, yield) {
				return false
			}
			continue
		}
		sel := Selected{Path: matched}
		switch {
		case ch.scope != nil:
			sel.Scope = ch.scope
		case resolve:
			v, err := t.resolve(k)
			if err != nil {
				yield(Selected{}, err)
				return false
			}
			sel.Value = v
		}
		if !yield(sel, nil) {
			return false
		}
	}
	return true
}

// Walk calls fn for every leaf in depth-first insertion order, resolving
// deferred leaves. Walking stops at the first error.
func (t *Tree) Walk(fn func(p Path, v Value) error) error {
	return t.walk(nil, fn)
}

func (t *Tree) walk(prefix Path, fn func(Path, Value) error) error {
	for _, k := range slices.Clone(t.keys) {
		p := append(slices.Clip(prefix), k)
		ch := t.children[k]
		if ch.scope != nil {
			if err := ch.scope.walk(p, fn); err != nil {
				return err
			}
			continue
		}
		v, err := t.resolve(k)
		if err != nil {
			return err
		}
		if err := fn(p, v); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of leaves in the tree.
func (t *Tree) Len() int {
	n := 0
	for _, ch := range t.children {
		if ch.scope != nil {
			n += ch.scope.Len()
		} else {
			n++
		}
	}
	return n
}

// String dumps the tree one leaf per line in insertion order without
// reading deferred leaves. Useful for debugging.
func (t *Tree) String() string {
	var lines []string
	t.dump(nil, &lines)
	return strings.Join(lines, "\n")
}

func (t *Tree) dump(prefix Path, lines *[]string) {
	for _, k := range t.keys {
		p := append(slices.Clip(prefix), k)
		ch := t.children[k]
		if ch.scope != nil {
			ch.scope.dump(p, lines)
			continue
		}
		switch leaf := ch.leaf.(type) {
		case Deferred:
			*lines = append(*lines, fmt.Sprintf("%s: <deferred @%d>", p, leaf.Offset))
		default:
			*lines = append(*lines, fmt.Sprintf("%s: %v", p, leaf))
		}
	}
}
