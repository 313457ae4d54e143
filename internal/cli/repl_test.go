package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/arborly/sftrie/pkg/search"
	"github.com/arborly/sftrie/pkg/sft"
	"github.com/arborly/sftrie/pkg/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestClient(t *testing.T, words ...string) *search.Client[byte, uint32] {
	t.Helper()
	keys := make([]text.Text[byte], len(words))
	for i, w := range words {
		keys[i] = text.FromString(w)
	}
	trie, err := sft.BuildFromUnsorted[byte, uint32](keys, 0)
	require.NoError(t, err)
	return search.New[byte, uint32](trie)
}

func runREPLLine(t *testing.T, client *search.Client[byte, uint32], line string, saveFn func(string) error) (string, ExitCode) {
	t.Helper()
	var out bytes.Buffer
	r := New(client, nil, 2, 10, true, false, saveFn, strings.NewReader(line), &out)
	code := r.Run()
	return out.String(), code
}

func TestREPLDispatchExactFound(t *testing.T) {
	client := buildTestClient(t, "cat", "car", "cart", "dog")
	out, code := runREPLLine(t, client, "cart\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "cart\n", out)
}

func TestREPLDispatchExactNotFound(t *testing.T) {
	client := buildTestClient(t, "cat", "car")
	out, code := runREPLLine(t, client, "zzz\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "zzz not found\n", out)
}

func TestREPLDispatchPrefixPercent(t *testing.T) {
	client := buildTestClient(t, "a", "ab", "abc")
	out, code := runREPLLine(t, client, "abc%\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "a\nab\nabc\n", out)
}

func TestREPLDispatchPrefixLessThan(t *testing.T) {
	client := buildTestClient(t, "a", "ab", "abc")
	out, code := runREPLLine(t, client, "abc<\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "a\nab\nabc\n", out)
}

func TestREPLDispatchPredict(t *testing.T) {
	client := buildTestClient(t, "cat", "car", "cart")
	out, code := runREPLLine(t, client, "ca*\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "car\ncart\ncat\n", out)
}

func TestREPLDispatchApproxDefaultEdits(t *testing.T) {
	client := buildTestClient(t, "corp", "dog")
	out, code := runREPLLine(t, client, "corp?\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "corp [d=0]\n", out)
}

func TestREPLDispatchApproxDigitOverride(t *testing.T) {
	client := buildTestClient(t, "car", "dog")
	out, code := runREPLLine(t, client, "cr1?\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "car [d=1]\n", out)
}

func TestREPLDispatchApproxPredict(t *testing.T) {
	client := buildTestClient(t, "cat")
	out, code := runREPLLine(t, client, "cat&\n", nil)
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "cat [d=0]\n", out)
}

func TestREPLDispatchSaveSuccess(t *testing.T) {
	client := buildTestClient(t, "cat")
	var gotPath string
	out, code := runREPLLine(t, client, "save=/tmp/out.sfti\n", func(path string) error {
		gotPath = path
		return nil
	})
	assert.Equal(t, ExitNormal, code)
	assert.Equal(t, "", out)
	assert.Equal(t, "/tmp/out.sfti", gotPath)
}

func TestREPLDispatchSaveFailure(t *testing.T) {
	client := buildTestClient(t, "cat")
	out, code := runREPLLine(t, client, "save=/bad/path\n", func(path string) error {
		return errors.New("disk full")
	})
	assert.Equal(t, ExitFormat, code)
	assert.Contains(t, out, "save failed")
}

func TestREPLExitLiterals(t *testing.T) {
	client := buildTestClient(t, "cat")
	for _, lit := range []string{"exit", "quit", "bye", "EXIT", "Quit"} {
		out, code := runREPLLine(t, client, lit+"\n", nil)
		assert.Equal(t, ExitNormal, code, lit)
		assert.Equal(t, "", out, lit)
	}
}
