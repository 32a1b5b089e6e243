// Package automaton implements multi-pattern substring matching with an
// Aho-Corasick automaton.
//
// Nodes live in a single arena and refer to each other by int32 index:
// parent->child edges form a tree, while failure and dictionary-suffix links
// point back toward the root. Node 0 is the root (the empty prefix).
//
// An Automaton is immutable once Build returns and may be scanned from any
// number of goroutines without locking.
package automaton

import (
	"errors"
	"sort"
)

// ErrInvalidPattern is returned by Build when a pattern cannot be inserted.
var ErrInvalidPattern = errors.New("invalid pattern")

// none marks an absent link or a non-terminal node.
const none int32 = -1

// root is the id of the empty-prefix node.
const root int32 = 0

// edge is one outgoing trie transition.
type edge struct {
	b  byte
	to int32
}

// node is one prefix shared by all patterns that start with it.
type node struct {
	edges   []edge // sorted by b
	depth   int32  // prefix length in bytes
	fail    int32  // longest proper suffix that is also a prefix
	dict    int32  // nearest terminal node along the failure chain, or none
	pattern int32  // pattern id terminating here, or none
}

// Automaton is a built, read-only matcher.
type Automaton struct {
	nodes    []node
	patterns []string
	shadowed []int
}

// Match is one pattern occurrence. Start and End are byte offsets into the
// scanned text; End is exclusive.
type Match struct {
	Pattern int
	Start   int
	End     int
}

// Len returns the number of nodes, root included.
func (a *Automaton) Len() int {
	return len(a.nodes)
}

// PatternCount returns the number of patterns passed to Build, including
// any that were shadowed by a later duplicate.
func (a *Automaton) PatternCount() int {
	return len(a.patterns)
}

// Pattern returns the text of pattern id, or "" if id is out of range.
func (a *Automaton) Pattern(id int) string {
	if id < 0 || id >= len(a.patterns) {
		return ""
	}
	return a.patterns[id]
}

// Shadowed returns the ids of patterns whose text was repeated by a later
// pattern. Those ids are never reported by Scan.
func (a *Automaton) Shadowed() []int {
	out := make([]int, len(a.shadowed))
	copy(out, a.shadowed)
	return out
}

// Depth returns the prefix length of node id.
func (a *Automaton) Depth(id int) int {
	return int(a.nodes[id].depth)
}

// Failure returns the failure link of node id. The root's failure link is
// the root itself and is never followed during scanning.
func (a *Automaton) Failure(id int) int {
	return int(a.nodes[id].fail)
}

// DictSuffix returns the dictionary-suffix link of node id, or -1 when no
// shorter pattern ends at the same position.
func (a *Automaton) DictSuffix(id int) int {
	return int(a.nodes[id].dict)
}

// Terminal returns the pattern id that ends at node id, or -1.
func (a *Automaton) Terminal(id int) int {
	return int(a.nodes[id].pattern)
}

// child returns the target of n's edge on b, or none.
func (a *Automaton) child(n int32, b byte) int32 {
	edges := a.nodes[n].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].b >= b })
	if i < len(edges) && edges[i].b == b {
		return edges[i].to
	}
	return none
}
