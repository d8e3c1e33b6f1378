package regex

// Match reports whether any substring of candidate is accepted by d.
//
// The automaton is started at every offset in turn. From an offset it
// consumes characters until it reaches an accepting state, which succeeds,
// or has no transition or runs out of input, which moves on to the next
// offset. The empty suffix at the end is tried too, so patterns that accept
// the empty string match every candidate.
func Match(d *DFA, candidate string) bool {
	text := []rune(candidate)
	for offset := 0; offset <= len(text); offset++ {
		state := 0
		for pos := offset; ; pos++ {
			if d.accept[state] {
				return true
			}
			if pos == len(text) {
				break
			}
			next, ok := d.Step(state, text[pos])
			if !ok {
				break
			}
			state = next
		}
	}
	return false
}

// Compile parses pattern and builds its DFA.
func Compile(pattern string) (*DFA, error) {
	t, err := Parse(pattern)
	if err != nil {
		return nil, err
	}
	return ToDFA(ToNFA(t)), nil
}

// MatchString is Match with d as receiver.
func (d *DFA) MatchString(candidate string) bool {
	return Match(d, candidate)
}
