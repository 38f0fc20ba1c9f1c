package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/lifecycle/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderYAML = `name: order
transitions:
  Created: [Paid, Cancelled]
  Paid: [Shipped, Cancelled]
  Shipped: [Delivered]
`

const returnsYAML = `transitions:
  Delivered: [Return2, Return10]
  Return10: [Refunded]
  Return2: [Refunded]
`

func writeDefinitions(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	order := filepath.Join(dir, "order.yaml")
	returns := filepath.Join(dir, "returns.yaml")

	require.NoError(t, os.WriteFile(order, []byte(orderYAML), 0o600))
	require.NoError(t, os.WriteFile(returns, []byte(returnsYAML), 0o600))

	return order, returns
}

// fsmctl reads its environment, so tests clear the variables it looks at.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"FSMCTL_DEFAULT", "FSMCTL_PLUGINS", "FSMCTL_LENIENT", "OTEL_ENABLED", "FSMCTL_NO_BANNER"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func runFSMCTL(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	code := run(t.Context(), args, &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func TestStates(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	order, returns := writeDefinitions(t)

	code, out, _ := runFSMCTL(t, "-default", order, "-plugin", returns, "states")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "Created\nPaid\nCancelled\nShipped\nDelivered\nReturn2\nReturn10\nRefunded\n", out)

	code, out, _ = runFSMCTL(t, "-default", order, "-plugin", returns, "states", "-sort")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "Cancelled\nCreated\nDelivered\nPaid\nRefunded\nReturn2\nReturn10\nShipped\n", out)
}

func TestNextFromEnv(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	order, returns := writeDefinitions(t)
	t.Setenv("FSMCTL_DEFAULT", order)
	t.Setenv("FSMCTL_PLUGINS", returns)

	code, out, _ := runFSMCTL(t, "next", "Delivered")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "Return2\nReturn10\n", out)

	code, _, errOut := runFSMCTL(t, "next", "Lost")
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, errOut, `unknown state: "Lost"`)
}

func TestCheck(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	order, _ := writeDefinitions(t)

	code, out, _ := runFSMCTL(t, "-default", order, "check", "Created", "Paid")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "ok: Created -> Paid\n", out)

	code, out, _ = runFSMCTL(t, "-default", order, "check", "Created", "Delivered")
	assert.Equal(t, exitFailed, code)
	assert.Equal(t, "invalid_transition: cannot transition from Created to Delivered\n", out)
}

func TestDiagram(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	order, _ := writeDefinitions(t)

	code, out, _ := runFSMCTL(t, "-default", order, "diagram")
	require.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(out, "stateDiagram-v2\n"))
	assert.Contains(t, out, "Paid --> Shipped")

	code, out, _ = runFSMCTL(t, "-default", order, "diagram", "-format", "dot", "-direction", "LR", "-highlight", "Paid")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, `digraph "order"`)
	assert.Contains(t, out, "rankdir=LR;")
	assert.Contains(t, out, `fillcolor="#fff9c4"`)

	code, _, errOut := runFSMCTL(t, "-default", order, "diagram", "-format", "svg")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, `unknown format "svg"`)
}

func TestWalkStopsAtTerminalState(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)
	t.Setenv("FSMCTL_NO_BANNER", "true")

	order, _ := writeDefinitions(t)

	code, out, _ := runFSMCTL(t, "-default", order, "walk", "Delivered")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "stopped at Delivered after 0 transition(s)")
}

// scriptedTerminal answers walk's prompts from fixed scripts and records what it
// was asked.
type scriptedTerminal struct {
	selections []string
	confirms   []bool

	offered [][]string
	asked   []string
}

var errScriptExhausted = errors.New("script exhausted")

func (s *scriptedTerminal) PromptState(string, func(string) bool) (string, error) {
	return "", errScriptExhausted
}

func (s *scriptedTerminal) SelectState(_ string, states []string) (string, error) {
	s.offered = append(s.offered, states)

	if len(states) == 0 {
		return "", cli.ErrDone
	}

	if len(s.selections) == 0 {
		return "", errScriptExhausted
	}

	next := s.selections[0]
	s.selections = s.selections[1:]

	if next == "" {
		return "", cli.ErrDone
	}

	return next, nil
}

func (s *scriptedTerminal) Confirm(label string) (bool, error) {
	s.asked = append(s.asked, label)

	if len(s.confirms) == 0 {
		return false, errScriptExhausted
	}

	answer := s.confirms[0]
	s.confirms = s.confirms[1:]

	return answer, nil
}

func TestWalkConfirmsEarlyStop(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)
	t.Setenv("FSMCTL_NO_BANNER", "true")

	order, _ := writeDefinitions(t)

	term := &scriptedTerminal{
		// Done at Created (declined), Paid, then Done at Paid (confirmed).
		selections: []string{"", "Paid", ""},
		confirms:   []bool{false, true},
	}

	var stdout bytes.Buffer

	a := &app{defaultPath: order, terminal: term, stdout: &stdout, stderr: &stdout}

	code, err := a.walk(t.Context(), []string{"Created"})
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	assert.Equal(t, []string{"Stop at Created", "Stop at Paid"}, term.asked)
	assert.Equal(t, [][]string{
		{"Paid", "Cancelled"},
		{"Paid", "Cancelled"},
		{"Shipped", "Cancelled"},
	}, term.offered)
	assert.Contains(t, stdout.String(), "stopped at Paid after 1 transition(s)")
}

func TestWalkNeedsNoConfirmationAtTerminalState(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)
	t.Setenv("FSMCTL_NO_BANNER", "true")

	order, _ := writeDefinitions(t)

	term := &scriptedTerminal{selections: []string{"Delivered"}}

	var stdout bytes.Buffer

	a := &app{defaultPath: order, terminal: term, stdout: &stdout, stderr: &stdout}

	code, err := a.walk(t.Context(), []string{"Shipped"})
	require.NoError(t, err)
	assert.Equal(t, exitOK, code)

	assert.Empty(t, term.asked)
	assert.Contains(t, stdout.String(), "stopped at Delivered after 1 transition(s)")
}

func TestWalkConfirmFailure(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)
	t.Setenv("FSMCTL_NO_BANNER", "true")

	order, _ := writeDefinitions(t)

	term := &scriptedTerminal{selections: []string{""}}

	a := &app{defaultPath: order, terminal: term, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}

	code, err := a.walk(t.Context(), []string{"Created"})
	require.ErrorIs(t, err, errScriptExhausted)
	assert.Equal(t, exitRuntime, code)
}

func TestUnnamedPluginsWithSameFileName(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	order, _ := writeDefinitions(t)

	dirA, dirB := t.TempDir(), t.TempDir()
	first := filepath.Join(dirA, "returns.yaml")
	second := filepath.Join(dirB, "returns.yaml")

	require.NoError(t, os.WriteFile(first, []byte("transitions:\n  Delivered: [Returned]\n"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("transitions:\n  Returned: [Refunded]\n"), 0o600))

	a := &app{defaultPath: order, pluginPaths: []string{first, second}}

	engine, err := a.loadEngine()
	require.NoError(t, err)
	assert.Equal(t, []string{"order", filepath.ToSlash(first), filepath.ToSlash(second)}, engine.Contributors())

	code, out, _ := runFSMCTL(t, "-default", order, "-plugin", first, "-plugin", second, "states")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Refunded\n")
}

func TestCaseCollisionFailsUnlessLenient(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	order, _ := writeDefinitions(t)
	sloppy := filepath.Join(t.TempDir(), "sloppy.yaml")
	require.NoError(t, os.WriteFile(sloppy, []byte("transitions:\n  Shipped: [delivered]\n"), 0o600))

	code, _, errOut := runFSMCTL(t, "-default", order, "-plugin", sloppy, "states")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "ambiguous state name")
	assert.Contains(t, errOut, `config "sloppy"`)

	code, out, _ := runFSMCTL(t, "-default", order, "-plugin", sloppy, "-lenient", "states")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "delivered\n")
}

func TestUsageErrors(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	isolateEnv(t)

	code, _, errOut := runFSMCTL(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "missing command")

	code, _, errOut = runFSMCTL(t, "states")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "no default definition")

	code, _, errOut = runFSMCTL(t, "-default", "x.yaml", "teleport")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, `unknown command: "teleport"`)

	code, _, _ = runFSMCTL(t, "-default", "x.yaml", "check", "Created")
	assert.Equal(t, exitUsage, code)
}
