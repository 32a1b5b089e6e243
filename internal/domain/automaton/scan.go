package automaton

import "iter"

// Scan walks text once and yields every pattern occurrence.
//
// Matches come out in ascending End order. Matches sharing an End are
// always nested (each is a suffix of the text read so far), and they are
// yielded longest first: the node reached by the walk, then each node on
// its dictionary-suffix chain.
//
// Scan never fails; bytes with no transition simply reset toward the root.
// The returned sequence can be ranged over any number of times.
func (a *Automaton) Scan(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		cur := root
		for i := 0; i < len(text); i++ {
			cur = a.step(cur, text[i])

			n := cur
			if a.nodes[n].pattern == none {
				n = a.nodes[n].dict
			}
			for n != none {
				if !yield(a.matchAt(n, i+1)) {
					return
				}
				n = a.nodes[n].dict
			}
		}
	}
}

// FindAll collects Scan into a slice.
func (a *Automaton) FindAll(text string) []Match {
	var out []Match
	for m := range a.Scan(text) {
		out = append(out, m)
	}
	return out
}

// Contains reports whether any pattern occurs in text.
func (a *Automaton) Contains(text string) bool {
	for range a.Scan(text) {
		return true
	}
	return false
}

// step follows failure links until cur has an edge on b, or cur is root.
func (a *Automaton) step(cur int32, b byte) int32 {
	for {
		if next := a.child(cur, b); next != none {
			return next
		}
		if cur == root {
			return root
		}
		cur = a.nodes[cur].fail
	}
}

func (a *Automaton) matchAt(n int32, end int) Match {
	return Match{
		Pattern: int(a.nodes[n].pattern),
		Start:   end - int(a.nodes[n].depth),
		End:     end,
	}
}
