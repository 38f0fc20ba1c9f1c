// Command fsmctl loads a default machine definition plus plugin definitions,
// merges them the way an application would at startup, and lets you inspect and
// walk the result.
//
// Usage:
//
//	fsmctl [-default file] [-plugin file]... [-lenient] <command> [args]
//
// Commands:
//
//	states [-sort]                    list every state of the merged graph
//	next <state>                      list the states reachable from state
//	check <from> <to>                 attempt a transition; exits 1 if it fails
//	diagram [-format mermaid|dot]     render the merged graph
//	walk [state]                      interactively step through the machine
//
// FSMCTL_DEFAULT and FSMCTL_PLUGINS (comma separated) supply the definitions when
// the flags are omitted. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/amp-labs/lifecycle/logger"
	"github.com/amp-labs/lifecycle/telemetry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const appName = "fsmctl"

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitRuntime = 3
)

var errUsage = errors.New("usage error")

// envConfig is the environment surface of fsmctl. Flags take precedence.
type envConfig struct {
	Default string   `env:"FSMCTL_DEFAULT"`
	Plugins []string `env:"FSMCTL_PLUGINS" envSeparator:","`
	Lenient bool     `env:"FSMCTL_LENIENT" envDefault:"false"`
}

func main() {
	// Ignore errors - the .env file might not exist and that's ok
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr)) //nolint:gocritic // stop is a best-effort cleanup
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if _, err := logger.ConfigureLogging(appName, logger.WithOutput(stderr)); err != nil {
		fmt.Fprintf(stderr, "fsmctl: %v\n", err)

		return exitUsage
	}

	ctx = logger.WithSubsystem(ctx, appName)

	otelCfg, err := telemetry.LoadConfigFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "fsmctl: %v\n", err)

		return exitUsage
	}

	if err := telemetry.Initialize(ctx, otelCfg); err != nil { //nolint:noinlineerr
		logger.Get(ctx).Warn("Tracing unavailable", "error", err)
	}

	defer func() {
		if err := telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil { //nolint:noinlineerr
			logger.Get(ctx).Warn("Tracing shutdown failed", "error", err)
		}
	}()

	app, rest, err := parseGlobal(args, stderr)
	if err != nil {
		return exitUsage
	}

	app.stdout = stdout
	app.stderr = stderr

	if len(rest) == 0 {
		fmt.Fprintln(stderr, "fsmctl: missing command")
		usage(stderr)

		return exitUsage
	}

	code, err := app.dispatch(ctx, rest[0], rest[1:])
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(stderr, "fsmctl: %v\n", err)
	}

	return code
}

func parseGlobal(args []string, stderr io.Writer) (*app, []string, error) {
	cfg, err := env.ParseAs[envConfig]()
	if err != nil {
		fmt.Fprintf(stderr, "fsmctl: failed to read environment: %v\n", err)

		return nil, nil, err
	}

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }

	var plugins stringList

	defaultPath := fs.String("default", cfg.Default, "default machine definition (YAML)")
	fs.Var(&plugins, "plugin", "plugin machine definition (YAML), repeatable")
	lenient := fs.Bool("lenient", cfg.Lenient, "warn instead of failing on state names that differ only by case")

	if err := fs.Parse(args); err != nil { //nolint:noinlineerr
		return nil, nil, err
	}

	if len(plugins) == 0 {
		plugins = cfg.Plugins
	}

	return &app{
		defaultPath: *defaultPath,
		pluginPaths: plugins,
		lenient:     *lenient,
	}, fs.Args(), nil
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: fsmctl [-default file] [-plugin file]... [-lenient] <command> [args]

commands:
  states [-sort]                            list every state of the merged graph
  next <state>                              list the states reachable from state
  check <from> <to>                         attempt a transition; exits 1 if it fails
  diagram [-format mermaid|dot] [-direction TD|LR] [-highlight a,b,...]
                                            render the merged graph
  walk [state]                              interactively step through the machine,
                                            confirming before an early stop
`)
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprint([]string(*s))
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)

	return nil
}
