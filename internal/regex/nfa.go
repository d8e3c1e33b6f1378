package regex

// edge labels of an NFA state's single consuming transition.
const (
	edgeNone = iota
	edgeRune
	edgeAny
)

type nfaState struct {
	eps  []int
	edge int
	r    rune
	next int
}

// NFA is a Thompson automaton stored as an arena of states. Every state has
// any number of epsilon edges and at most one consuming edge.
type NFA struct {
	states []nfaState
	Start  int
	Accept int
}

func (n *NFA) NumStates() int { return len(n.states) }

func (n *NFA) add() int {
	n.states = append(n.states, nfaState{next: -1})
	return len(n.states) - 1
}

func (n *NFA) epsilon(from, to int) {
	n.states[from].eps = append(n.states[from].eps, to)
}

// ToNFA compiles t by structural induction. The result has exactly one
// start and one accepting state.
func ToNFA(t *Tree) *NFA {
	n := &NFA{}
	n.Start, n.Accept = n.build(t)
	return n
}

func (n *NFA) build(t *Tree) (start, accept int) {
	switch t.Kind {
	case KindLiteral, KindAny:
		start, accept = n.add(), n.add()
		s := &n.states[start]
		s.edge, s.r, s.next = edgeRune, t.Rune, accept
		if t.Kind == KindAny {
			s.edge, s.r = edgeAny, 0
		}
	case KindConcat:
		s1, a1 := n.build(t.Left)
		s2, a2 := n.build(t.Right)
		n.epsilon(a1, s2)
		start, accept = s1, a2
	case KindAlt:
		s1, a1 := n.build(t.Left)
		s2, a2 := n.build(t.Right)
		start, accept = n.add(), n.add()
		n.epsilon(start, s1)
		n.epsilon(start, s2)
		n.epsilon(a1, accept)
		n.epsilon(a2, accept)
	case KindStar:
		s1, a1 := n.build(t.Left)
		start, accept = n.add(), n.add()
		n.epsilon(start, s1)
		n.epsilon(start, accept)
		n.epsilon(a1, s1)
		n.epsilon(a1, accept)
	default:
		panic("regex: unknown tree kind")
	}
	return start, accept
}
