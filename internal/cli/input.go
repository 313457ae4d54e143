// Package cli implements the interactive REPL: one line of input in, one
// batch of results out, following the grammar a trailing operator
// character selects (prefix/predict/approx/approx-predict) with no suffix
// meaning an exact lookup.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arborly/sftrie/pkg/search"
	"github.com/arborly/sftrie/pkg/sft"
	"github.com/arborly/sftrie/pkg/text"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// ExitCode mirrors the REPL's exit contract: 0 on exit/quit/bye, 1 on an
// unreadable input stream, 2 when a save= command fails. The REPL never
// loads an index itself, so load errors do not reach this code.
type ExitCode int

const (
	ExitNormal  ExitCode = 0
	ExitReadErr ExitCode = 1
	ExitFormat  ExitCode = 2
)

var exitLiterals = []string{"exit", "quit", "bye"}

// ValueLookup resolves a match node back to its associated value, for the
// map flavor. A set-flavor REPL passes nil and every result prints with no
// value column.
type ValueLookup func(node int) (uint32, bool)

// RawTrieValueLookup builds a ValueLookup over a map-flavor trie, for
// wiring a REPL to an sftrie.MapIndex's RawTrie.
func RawTrieValueLookup(m *sft.MapTrie[byte, uint32, uint32]) ValueLookup {
	return func(node int) (uint32, bool) { return m.Value(node) }
}

// REPL drives one interactive session against a search.Client.
type REPL struct {
	client          *search.Client[byte, uint32]
	lookup          ValueLookup
	defaultMaxEdits int
	limit           int
	suggestOnTypo   bool
	saveFn          func(path string) error

	in  *bufio.Reader
	out io.Writer

	styles replStyles
}

type replStyles struct {
	word   lipgloss.Style
	edits  lipgloss.Style
	hint   lipgloss.Style
	errMsg lipgloss.Style
}

// New builds a REPL reading from in and writing formatted results to out
// (normally os.Stdin/os.Stdout, swappable for tests).
func New(client *search.Client[byte, uint32], lookup ValueLookup, defaultMaxEdits, limit int, noColor, suggestOnTypo bool, saveFn func(string) error, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		client:          client,
		lookup:          lookup,
		defaultMaxEdits: defaultMaxEdits,
		limit:           limit,
		suggestOnTypo:   suggestOnTypo,
		saveFn:          saveFn,
		in:              bufio.NewReader(in),
		out:             out,
		styles:          newReplStyles(noColor),
	}
}

func newReplStyles(noColor bool) replStyles {
	if noColor {
		return replStyles{}
	}
	return replStyles{
		word:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}),
		edits:  lipgloss.NewStyle().Faint(true),
		hint:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.AdaptiveColor{Light: "#797593", Dark: "#908caa"}),
		errMsg: lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#b4637a", Dark: "#eb6f92"}),
	}
}

// Run drives the loop until a terminating literal, EOF, or an
// unrecoverable read error. The returned ExitCode is the process's
// intended exit status.
func (r *REPL) Run() ExitCode {
	for {
		line, err := r.in.ReadString('\n')
		if err != nil && err != io.EOF {
			log.Errorf("cli: reading input: %v", err)
			return ExitReadErr
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err == io.EOF {
				return ExitNormal
			}
			continue
		}

		if isExitLiteral(trimmed) {
			return ExitNormal
		}
		if r.suggestOnTypo {
			if lit, ok := suggestExitLiteral(trimmed); ok {
				r.hint("not a recognized command; did you mean %q?", lit)
			}
		}

		if path, ok := strings.CutPrefix(trimmed, "save="); ok {
			if err := r.saveFn(strings.TrimSpace(path)); err != nil {
				r.errorf("save failed: %v", err)
				return ExitFormat
			}
		} else {
			r.dispatch(trimmed)
		}

		if err == io.EOF {
			return ExitNormal
		}
	}
}

func isExitLiteral(line string) bool {
	lower := strings.ToLower(line)
	for _, lit := range exitLiterals {
		if lower == lit {
			return true
		}
	}
	return false
}

// dispatch inspects line's trailing operator and routes to the matching
// query form: trailing %/< is prefix, * is predictive, ? is approximate,
// & is approximate-predictive, anything else is exact.
func (r *REPL) dispatch(line string) {
	if len(line) > 1 {
		switch line[len(line)-1] {
		case '%', '<':
			r.runPrefix(line[:len(line)-1])
			return
		case '*':
			r.runPredict(line[:len(line)-1])
			return
		case '?':
			body, maxEdits := splitTrailingMaxEdits(line[:len(line)-1], r.defaultMaxEdits)
			r.runApprox(body, maxEdits)
			return
		case '&':
			body, maxEdits := splitTrailingMaxEdits(line[:len(line)-1], r.defaultMaxEdits)
			r.runApproxPredict(body, maxEdits)
			return
		}
	}
	r.runExact(line)
}

// splitTrailingMaxEdits reads a digit run immediately before the operator
// character, e.g. "corp2?" asks for maxEdits=2; absent digits fall back to
// the configured default.
func splitTrailingMaxEdits(body string, fallback int) (string, int) {
	i := len(body)
	for i > 0 && body[i-1] >= '0' && body[i-1] <= '9' {
		i--
	}
	if i == len(body) || i == 0 {
		return body, fallback
	}
	n, err := strconv.Atoi(body[i:])
	if err != nil || n < 0 {
		return body, fallback
	}
	return body[:i], n
}

func (r *REPL) runExact(q string) {
	if !r.client.Exact(text.FromString(q)) {
		r.printf("%s not found", r.styles.word.Render(q))
		return
	}
	r.printWordNode(q, -1, -1, -1)
}

func (r *REPL) runPrefix(q string) {
	n := 0
	r.client.Prefix(text.FromString(q), func(prefix text.Text[byte], node int) bool {
		r.printWordNode(text.String(prefix), node, -1, -1)
		n++
		return n < r.limit
	})
	if n == 0 {
		r.printf("no prefixes of %s found", r.styles.word.Render(q))
	}
}

func (r *REPL) runPredict(q string) {
	n := 0
	ok := r.client.Predict(text.FromString(q), func(key text.Text[byte], node int) bool {
		r.printWordNode(text.String(key), node, -1, -1)
		n++
		return n < r.limit
	})
	if !ok || n == 0 {
		r.printf("no completions for %s found", r.styles.word.Render(q))
	}
}

func (r *REPL) runApprox(q string, maxEdits int) {
	n := 0
	r.client.Approx(text.FromString(q), maxEdits, func(key text.Text[byte], node, edits int) bool {
		r.printWordNode(text.String(key), node, edits, -1)
		n++
		return n < r.limit
	})
	if n == 0 {
		r.printf("no matches within %d edits of %s", maxEdits, r.styles.word.Render(q))
	}
}

func (r *REPL) runApproxPredict(q string, maxEdits int) {
	n := 0
	r.client.ApproxPredict(text.FromString(q), maxEdits, func(key text.Text[byte], node, editsPrefix, editsWhole int) bool {
		r.printWordNode(text.String(key), node, editsPrefix, editsWhole)
		n++
		return n < r.limit
	})
	if n == 0 {
		r.printf("no approximate completions within %d edits of %s", maxEdits, r.styles.word.Render(q))
	}
}

func (r *REPL) printWordNode(word string, node, editsPrefix, editsWhole int) {
	var b strings.Builder
	b.WriteString(r.styles.word.Render(word))
	if r.lookup != nil && node >= 0 {
		if v, ok := r.lookup(node); ok {
			b.WriteString(" (")
			b.WriteString(strconv.FormatUint(uint64(v), 10))
			b.WriteString(")")
		}
	}
	switch {
	case editsPrefix >= 0 && editsWhole >= 0 && editsWhole != editsPrefix:
		b.WriteString(r.styles.edits.Render(fmt.Sprintf(" [d_prefix=%d d_whole=%d]", editsPrefix, editsWhole)))
	case editsPrefix >= 0:
		b.WriteString(r.styles.edits.Render(fmt.Sprintf(" [d=%d]", editsPrefix)))
	}
	fmt.Fprintln(r.out, b.String())
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintln(r.out, fmt.Sprintf(format, args...))
}

func (r *REPL) hint(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.hint.Render(fmt.Sprintf(format, args...)))
}

func (r *REPL) errorf(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.errMsg.Render(fmt.Sprintf(format, args...)))
}
