package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/amp-labs/lifecycle/cli"
	"github.com/amp-labs/lifecycle/logger"
	"github.com/amp-labs/lifecycle/statemachine"
	"github.com/amp-labs/lifecycle/statemachine/visualizer"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUnknownState   = errors.New("unknown state")
	errNoDefault      = errors.New("no default definition: set -default or FSMCTL_DEFAULT")
)

// machine is the engine shape fsmctl works with: definitions come from YAML, so
// states are strings and there is no payload.
type machine = statemachine.Engine[string, struct{}]

// prompter is the part of cli.Terminal that walk drives.
type prompter interface {
	PromptState(label string, known func(string) bool) (string, error)
	SelectState(label string, states []string) (string, error)
	Confirm(label string) (bool, error)
}

type app struct {
	defaultPath string
	pluginPaths []string
	lenient     bool

	terminal prompter
	stdout   io.Writer
	stderr   io.Writer
}

func (a *app) dispatch(ctx context.Context, command string, args []string) (int, error) {
	ctx = logger.With(ctx, "command", command)

	switch command {
	case "states":
		return a.states(args)
	case "next":
		return a.next(args)
	case "check":
		return a.check(ctx, args)
	case "diagram":
		return a.diagram(args)
	case "walk":
		return a.walk(ctx, args)
	default:
		usage(a.stderr)

		return exitUsage, fmt.Errorf("%w: %q", errUnknownCommand, command)
	}
}

// loadEngine merges the default definition with the plugins, in flag order.
// Plugins without a name are named after their file, or after their path when
// several unnamed plugins share a file name.
func (a *app) loadEngine() (*machine, error) {
	if a.defaultPath == "" {
		return nil, errNoDefault
	}

	defaults, err := statemachine.LoadConfig[struct{}](a.defaultPath)
	if err != nil {
		return nil, err
	}

	customs := make([]statemachine.Config[string, struct{}], 0, len(a.pluginPaths))
	unnamed := make(map[string]int, len(a.pluginPaths))

	for _, path := range a.pluginPaths {
		cfg, err := statemachine.LoadConfig[struct{}](path)
		if err != nil {
			return nil, err
		}

		if cfg.Name == "" {
			unnamed[pluginName(path)]++
		}

		customs = append(customs, cfg)
	}

	for i, path := range a.pluginPaths {
		if customs[i].Name != "" {
			continue
		}

		customs[i].Name = pluginName(path)
		if unnamed[customs[i].Name] > 1 {
			customs[i].Name = filepath.ToSlash(filepath.Clean(path))
		}
	}

	opts := []statemachine.Option{statemachine.WithLogger(statemachine.NewDefaultLogger())}
	if a.lenient {
		opts = append(opts, statemachine.WithLenientStateNames())
	}

	return statemachine.NewEngine(defaults, customs, opts...)
}

func pluginName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	return fs
}

func (a *app) states(args []string) (int, error) {
	fs := a.flagSet("states")
	natural := fs.Bool("sort", false, "sort names naturally instead of definition order")

	if err := fs.Parse(args); err != nil { //nolint:noinlineerr
		return exitUsage, err
	}

	engine, err := a.loadEngine()
	if err != nil {
		return exitUsage, err
	}

	states := engine.States()
	if *natural {
		states = cli.NaturalSort(states)
	}

	for _, s := range states {
		fmt.Fprintln(a.stdout, s)
	}

	return exitOK, nil
}

func (a *app) next(args []string) (int, error) {
	if len(args) != 1 {
		return exitUsage, fmt.Errorf("%w: next takes exactly one state", errUsage)
	}

	engine, err := a.loadEngine()
	if err != nil {
		return exitUsage, err
	}

	if !engine.Graph().HasState(args[0]) {
		return exitFailed, fmt.Errorf("%w: %q", errUnknownState, args[0])
	}

	for _, s := range engine.NextStates(args[0]) {
		fmt.Fprintln(a.stdout, s)
	}

	return exitOK, nil
}

func (a *app) check(ctx context.Context, args []string) (int, error) {
	if len(args) != 2 { //nolint:mnd
		return exitUsage, fmt.Errorf("%w: check takes a source and a target state", errUsage)
	}

	engine, err := a.loadEngine()
	if err != nil {
		return exitUsage, err
	}

	from, to := args[0], args[1]

	result, err := engine.Transition(ctx, from, to, struct{}{})
	if err != nil {
		return exitRuntime, err
	}

	if !result.OK() {
		fmt.Fprintf(a.stdout, "%s: %s\n", result.Outcome, result.Reason)

		return exitFailed, nil
	}

	fmt.Fprintf(a.stdout, "ok: %s -> %s\n", from, to)

	return exitOK, nil
}

func (a *app) diagram(args []string) (int, error) {
	fs := a.flagSet("diagram")
	format := fs.String("format", "mermaid", "output format: mermaid or dot")
	direction := fs.String("direction", "TD", "layout direction: TD or LR")
	highlight := fs.String("highlight", "", "comma separated states to highlight")
	fenced := fs.Bool("fenced", false, "wrap mermaid output in a markdown code block")

	if err := fs.Parse(args); err != nil { //nolint:noinlineerr
		return exitUsage, err
	}

	engine, err := a.loadEngine()
	if err != nil {
		return exitUsage, err
	}

	opts := visualizer.DefaultOptions().
		WithDirection(*direction).
		WithFenced(*fenced)

	if *highlight != "" {
		opts = opts.WithHighlightPath(strings.Split(*highlight, ","))
	}

	var out string

	switch *format {
	case "mermaid":
		out, err = visualizer.GenerateMermaidWithOptions[string](engine, opts)
	case "dot":
		out, err = visualizer.GenerateDOT[string](engine, engine.Name(), opts)
	default:
		return exitUsage, fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}

	if err != nil {
		return exitUsage, err
	}

	fmt.Fprint(a.stdout, out)

	return exitOK, nil
}

// walk moves through the machine one chosen transition at a time, starting from
// the given state or a prompted one, until the user is done or a terminal state
// is reached. Finishing early at a state that still has next states asks for
// confirmation first.
func (a *app) walk(ctx context.Context, args []string) (int, error) {
	if len(args) > 1 {
		return exitUsage, fmt.Errorf("%w: walk takes at most one state", errUsage)
	}

	engine, err := a.loadEngine()
	if err != nil {
		return exitUsage, err
	}

	term := a.terminal
	if term == nil {
		term = cli.NewTerminal()
	}

	graph := engine.Graph()

	var state string

	if len(args) == 1 {
		state = args[0]
	} else {
		state, err = term.PromptState("Starting state", graph.HasState)
		if err != nil {
			return exitRuntime, err
		}
	}

	if !graph.HasState(state) {
		return exitFailed, fmt.Errorf("%w: %q", errUnknownState, state)
	}

	steps := 0

	for ctx.Err() == nil {
		fmt.Fprint(a.stdout, cli.BannerAutoWidth(fmt.Sprintf("%s: %s", engine.Name(), state), cli.AlignCenter))

		nextStates := engine.NextStates(state)

		target, err := term.SelectState("Next state", nextStates)
		if errors.Is(err, cli.ErrDone) {
			if len(nextStates) == 0 {
				break
			}

			stop, confirmErr := term.Confirm(fmt.Sprintf("Stop at %s", state))
			if confirmErr != nil {
				return exitRuntime, confirmErr
			}

			if stop {
				break
			}

			continue
		}

		if err != nil {
			return exitRuntime, err
		}

		result, err := engine.Transition(ctx, state, target, struct{}{})
		if err != nil {
			return exitRuntime, err
		}

		if !result.OK() {
			fmt.Fprintf(a.stdout, "%s: %s\n", result.Outcome, result.Reason)

			continue
		}

		state = target
		steps++

		fmt.Fprint(a.stdout, cli.DividerAutoWidth())
	}

	fmt.Fprintf(a.stdout, "stopped at %s after %d transition(s)\n", state, steps)

	if err := ctx.Err(); err != nil { //nolint:noinlineerr
		return exitRuntime, err
	}

	return exitOK, nil
}
