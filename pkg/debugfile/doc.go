// Package debugfile reads and writes variable-trace debug files. A debug
// file is a line-oriented text format: a "!VERSION: 0" directive, optional
// "!NAME: VALUE" metadata, and "path: value" entries whose paths (e.g.
// "frame[3].mic[0]") build a tree of named and indexed scopes.
//
// Open and Parse load a file into a View, deferring value parsing until a
// leaf is first read unless LoadOptions ask otherwise. Views navigate the
// tree with Get, Scope and SelectMany; Gather stacks matching leaves into
// one array. Writer produces files that read back to the same tree.
package debugfile
