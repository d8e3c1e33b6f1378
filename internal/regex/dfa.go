package regex

import (
	"slices"
	"strconv"
	"strings"
)

// DFA is the subset construction of an NFA. State 0 is the start state.
// Runes that appear literally in the pattern have explicit transitions;
// every other rune follows the state's "other" transition, which exists only
// when the pattern contains '.'. Missing transitions mean the dead state,
// which is not stored.
type DFA struct {
	trans  []map[rune]int
	other  []int
	accept []bool
}

func (d *DFA) NumStates() int { return len(d.accept) }

// Step returns the successor of state on r.
func (d *DFA) Step(state int, r rune) (int, bool) {
	if next, ok := d.trans[state][r]; ok {
		return next, true
	}
	if next := d.other[state]; next >= 0 {
		return next, true
	}
	return 0, false
}

func (d *DFA) Accepting(state int) bool { return d.accept[state] }

// ToDFA determinizes n. DFA states are identified by their sorted set of
// NFA states, so equal sets built along different paths are merged.
func ToDFA(n *NFA) *DFA {
	var alphabet []rune
	hasAny := false
	for _, s := range n.states {
		switch s.edge {
		case edgeRune:
			alphabet = append(alphabet, s.r)
		case edgeAny:
			hasAny = true
		}
	}
	slices.Sort(alphabet)
	alphabet = slices.Compact(alphabet)

	d := &DFA{}
	ids := make(map[string]int)
	var sets [][]int

	intern := func(set []int) int {
		key := setKey(set)
		if id, ok := ids[key]; ok {
			return id
		}
		id := len(sets)
		ids[key] = id
		sets = append(sets, set)
		d.trans = append(d.trans, nil)
		d.other = append(d.other, -1)
		d.accept = append(d.accept, slices.Contains(set, n.Accept))
		return id
	}

	intern(n.closure([]int{n.Start}))
	for cur := 0; cur < len(sets); cur++ {
		set := sets[cur]
		for _, c := range alphabet {
			next := n.move(set, c, false)
			if len(next) == 0 {
				continue
			}
			id := intern(n.closure(next))
			if d.trans[cur] == nil {
				d.trans[cur] = make(map[rune]int)
			}
			d.trans[cur][c] = id
		}
		if hasAny {
			if next := n.move(set, 0, true); len(next) > 0 {
				d.other[cur] = intern(n.closure(next))
			}
		}
	}
	return d
}

// move follows consuming edges from set on c, or only '.' edges when
// otherOnly is set.
func (n *NFA) move(set []int, c rune, otherOnly bool) []int {
	var out []int
	for _, id := range set {
		s := n.states[id]
		switch {
		case s.edge == edgeAny:
			out = append(out, s.next)
		case s.edge == edgeRune && !otherOnly && s.r == c:
			out = append(out, s.next)
		}
	}
	return out
}

// closure returns the sorted epsilon closure of set.
func (n *NFA) closure(set []int) []int {
	seen := make(map[int]bool, len(set))
	stack := append([]int(nil), set...)
	for _, id := range set {
		seen[id] = true
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range n.states[id].eps {
			if !seen[e] {
				seen[e] = true
				stack = append(stack, e)
			}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func setKey(set []int) string {
	var b strings.Builder
	for i, id := range set {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
