package levenshtein

import (
	"sort"
	"strconv"
	"strings"

	"github.com/arborly/sftrie/pkg/text"
)

// dfaState is one compiled automaton state: the offset into transitions
// where its outgoing edges begin, whether it accepts, and the minimum edit
// count among the NFA configurations it summarizes (only the accepting ones
// when the state accepts).
type dfaState struct {
	start int
	match bool
	edits int
	dead  bool // no NFA configuration survives here; every transition stays dead
}

// dfaTransition is one compiled edge. wildcard edges are tried only after
// every labeled edge from the same state has been ruled out, matching any
// symbol not explicitly present in the pattern.
type dfaTransition[S text.Symbol] struct {
	id       int
	next     int
	label    S
	wildcard bool
}

// DFA is a Levenshtein automaton compiled lazily from its NFA: each state
// reachable from the start state is explored once, memoized by the set of
// NFA configurations it represents, so the automaton never grows larger
// than the distinct reachable configuration sets actually demand.
//
// A DFA is stateful: Update/Back move a cursor over an internal stack of
// visited states so a caller walking a trie depth-first can retreat
// without recomputing anything.
type DFA[S text.Symbol] struct {
	Pattern  text.Text[S]
	MaxEdits int

	states      []dfaState
	transitions []dfaTransition[S]

	current []int
}

// New compiles the Levenshtein automaton matching every text within
// maxEdits edits of pattern.
func New[S text.Symbol](pattern text.Text[S], maxEdits int) *DFA[S] {
	n := newNFA(pattern, maxEdits)
	d := &DFA[S]{Pattern: pattern, MaxEdits: maxEdits}

	memo := make(map[string]int)
	counter := 0
	d.explore(n, n.start(), n.transitions(), memo, &counter)

	sort.SliceStable(d.transitions, func(i, j int) bool {
		a, b := d.transitions[i], d.transitions[j]
		if a.id != b.id {
			return a.id < b.id
		}
		if a.wildcard != b.wildcard {
			return !a.wildcard
		}
		return a.label < b.label
	})
	for i, t := range d.transitions {
		if i == 0 || d.transitions[i-1].id < t.id {
			d.states[t.id].start = i
		}
	}
	// sentinel so ChildrenEnd-style range math stays O(1) at the last state.
	d.states = append(d.states, dfaState{start: len(d.transitions), edits: maxEdits + 1, dead: true})

	d.current = []int{0}
	return d
}

func (d *DFA[S]) explore(n nfa[S], states []nfaState, alphabet []S, memo map[string]int, counter *int) int {
	key := nfaKey(states)
	if id, ok := memo[key]; ok {
		return id
	}

	id := *counter
	*counter++
	memo[key] = id

	isMatch := n.isMatch(states)
	bestEdits := d.MaxEdits + 1
	for _, s := range states {
		// Refined distance: once a state accepts, only its accepting
		// (pos == len(pattern)) pairs count toward the reported edit count.
		// Mixing in non-accepting pairs here is the older, incorrect
		// definition — it can under-report the true distance at a match.
		if isMatch && s.pos != len(n.pattern) {
			continue
		}
		if s.edits < bestEdits {
			bestEdits = s.edits
		}
	}
	d.states = append(d.states, dfaState{match: isMatch, edits: bestEdits, dead: !n.canMatch(states)})

	var wildcard S
	wildNext := d.explore(n, n.step(states, wildcard), alphabet, memo, counter)
	d.transitions = append(d.transitions, dfaTransition[S]{id: id, next: wildNext, wildcard: true})

	for _, label := range alphabet {
		next := d.explore(n, n.step(states, label), alphabet, memo, counter)
		if next != wildNext {
			d.transitions = append(d.transitions, dfaTransition[S]{id: id, next: next, label: label})
		}
	}

	return id
}

func nfaKey(states []nfaState) string {
	var b strings.Builder
	for _, s := range states {
		b.WriteString(strconv.Itoa(s.pos))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(s.edits))
		b.WriteByte(';')
	}
	return b.String()
}

// Update tries to advance from the current state on symbol c. It reports
// whether the resulting state is still within MaxEdits; on success the new
// state is pushed so a later Back can return to the one before it. On
// failure the cursor is left unmoved.
func (d *DFA[S]) Update(c S) bool {
	cur := d.current[len(d.current)-1]
	lo, hi := d.states[cur].start, d.states[cur+1].start
	wildcardIdx := hi - 1 // the wildcard edge always sorts last in a state's block
	next := d.transitions[wildcardIdx].next
	if i, ok := findTransition(d.transitions, lo, wildcardIdx, c); ok {
		next = d.transitions[i].next
	}
	if d.states[next].edits > d.MaxEdits {
		return false
	}
	d.current = append(d.current, next)
	return true
}

// findTransition looks up the labeled transition carrying label within
// [lo, hi) of a state's block, using the same halving-then-linear hybrid
// search sft.findInRange uses for sibling blocks: binary search narrows the
// range while it's wider than 16 entries, then a linear scan finds (or
// fails to find) the exact match. Non-wildcard transitions in a block are
// sorted ascending by label, so the narrowing is valid.
func findTransition[S text.Symbol](transitions []dfaTransition[S], lo, hi int, label S) (int, bool) {
	for hi-lo > 16 {
		mid := lo + (hi-lo)/2
		if transitions[mid].label < label {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for i := lo; i < hi; i++ {
		if transitions[i].label == label {
			return i, true
		}
	}
	return -1, false
}

// Matched reports whether the current state accepts: the text read so far
// is within MaxEdits of Pattern in its entirety.
func (d *DFA[S]) Matched() bool {
	return d.states[d.current[len(d.current)-1]].match
}

// CanMatch reports whether any extension of the text read so far could
// still bring the automaton to an accepting state. Once dead, a state stays
// dead under every further symbol, so a caller walking a trie can prune the
// rest of the current subtree outright instead of probing each child.
func (d *DFA[S]) CanMatch() bool {
	return !d.states[d.current[len(d.current)-1]].dead
}

// Back pops the cursor back to the state before the last successful
// Update, mirroring a trie walk's backtrack. It is a no-op at the start
// state.
func (d *DFA[S]) Back() {
	if len(d.current) > 1 {
		d.current = d.current[:len(d.current)-1]
	}
}

// MaxDistance returns the configured edit budget.
func (d *DFA[S]) MaxDistance() int { return d.MaxEdits }

// Distance returns the current state's edit count: for an accepting state,
// the minimum over its accepting configurations only (the refined distance
// used throughout search); otherwise the minimum over all of them.
func (d *DFA[S]) Distance() int {
	return d.states[d.current[len(d.current)-1]].edits
}
