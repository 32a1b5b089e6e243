package automaton

import (
	"fmt"
	"sort"
)

// Build constructs an automaton over patterns. A pattern's id is its index
// in the slice.
//
// Textually identical patterns share one terminal node and the later id
// wins; the earlier ids are listed by Shadowed. An empty pattern fails the
// whole build with ErrInvalidPattern.
func Build(patterns []string) (*Automaton, error) {
	size := 1
	for id, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("%w: pattern %d is empty", ErrInvalidPattern, id)
		}
		size += len(p)
	}

	a := &Automaton{
		nodes:    make([]node, 1, size),
		patterns: make([]string, len(patterns)),
	}
	copy(a.patterns, patterns)
	a.nodes[root] = node{fail: root, dict: none, pattern: none}

	for id, p := range a.patterns {
		a.insert(id, p)
	}

	order := a.linkFailures()
	a.linkDictSuffixes(order)
	return a, nil
}

// insert walks p from the root, creating nodes for the missing suffix of
// the path, and marks the final node terminal.
func (a *Automaton) insert(id int, p string) {
	cur := root
	for i := 0; i < len(p); i++ {
		next := a.child(cur, p[i])
		if next == none {
			next = a.addChild(cur, p[i])
		}
		cur = next
	}
	if prev := a.nodes[cur].pattern; prev != none {
		a.shadowed = append(a.shadowed, int(prev))
	}
	a.nodes[cur].pattern = int32(id)
}

// addChild appends a node for parent+b and links it in sorted edge order.
func (a *Automaton) addChild(parent int32, b byte) int32 {
	id := int32(len(a.nodes))
	a.nodes = append(a.nodes, node{
		depth:   a.nodes[parent].depth + 1,
		fail:    root,
		dict:    none,
		pattern: none,
	})

	edges := a.nodes[parent].edges
	i := sort.Search(len(edges), func(i int) bool { return edges[i].b >= b })
	edges = append(edges, edge{})
	copy(edges[i+1:], edges[i:])
	edges[i] = edge{b: b, to: id}
	a.nodes[parent].edges = edges
	return id
}

// linkFailures computes every failure link breadth-first, so a node's
// parent chain is always resolved before the node itself. It returns the
// non-root nodes in the order they were visited.
func (a *Automaton) linkFailures() []int32 {
	order := make([]int32, 0, len(a.nodes)-1)
	for _, e := range a.nodes[root].edges {
		a.nodes[e.to].fail = root
		order = append(order, e.to)
	}

	for head := 0; head < len(order); head++ {
		parent := order[head]
		for _, e := range a.nodes[parent].edges {
			f := a.nodes[parent].fail
			target := root
			for {
				if t := a.child(f, e.b); t != none {
					target = t
					break
				}
				if f == root {
					break
				}
				f = a.nodes[f].fail
			}
			a.nodes[e.to].fail = target
			order = append(order, e.to)
		}
	}
	return order
}

// linkDictSuffixes points each node at the first terminal node strictly
// along its failure chain. order must be breadth-first: the failure target
// is shallower, so its own link is final by the time it is read.
func (a *Automaton) linkDictSuffixes(order []int32) {
	for _, n := range order {
		f := a.nodes[n].fail
		switch {
		case f == root:
			a.nodes[n].dict = none
		case a.nodes[f].pattern != none:
			a.nodes[n].dict = f
		default:
			a.nodes[n].dict = a.nodes[f].dict
		}
	}
}
