// Package logger configures process-wide structured logging and carries
// per-request logging attributes (subsystem, machine, arbitrary key-values)
// through context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
)

// Default subsystem name, set by ConfigureLogging. Read concurrently by Get.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes ConfigureLoggingWithOptions, which replaces slog's default.
var configMutex sync.Mutex //nolint:gochecknoglobals

type contextKey string

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer
}

// ConfigureLoggingWithOptions installs a JSON or text handler as slog's default
// and redirects the legacy log package into it. It returns the new default logger.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var handler slog.Handler

	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{Level: opts.MinLevel})
	} else {
		handler = slog.NewTextHandler(opts.Output, &slog.HandlerOptions{Level: opts.MinLevel})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	def := log.Default()
	*def = *slog.NewLogLogger(handler, opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// Option is a functional option for ConfigureLogging.
type Option func(*Options)

// WithOutput overrides the log destination.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// envConfig is the environment surface read by ConfigureLogging.
type envConfig struct {
	JSON        bool   `env:"LOG_JSON"         envDefault:"false"`
	Level       string `env:"LOG_LEVEL"        envDefault:"info"`
	LegacyLevel string `env:"LEGACY_LOG_LEVEL" envDefault:"info"`
	Output      string `env:"LOG_OUTPUT"       envDefault:"stdout"`
}

// ConfigureLogging configures logging from LOG_JSON, LOG_LEVEL, LEGACY_LOG_LEVEL
// and LOG_OUTPUT, then applies opts.
func ConfigureLogging(app string, opts ...Option) (*slog.Logger, error) {
	cfg, err := env.ParseAs[envConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to read logging environment: %w", err)
	}

	minLevel, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	legacyLevel, err := parseLevel(cfg.LegacyLevel)
	if err != nil {
		return nil, err
	}

	var output io.Writer

	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, cfg.Output)
	}

	options := Options{
		Subsystem:   app,
		JSON:        cfg.JSON,
		MinLevel:    minLevel,
		LegacyLevel: legacyLevel,
		Output:      output,
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(s)); err != nil { //nolint:noinlineerr
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}

	return level, nil
}

// WithMuted suppresses all logging done through Get for this context.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("mute"), muted)
}

func isMuted(ctx context.Context) bool {
	muted, ok := ctx.Value(contextKey("mute")).(bool)

	return ok && muted
}

// WithSubsystem overrides the subsystem for this context.
func WithSubsystem(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("subsystem"), name)
}

// GetSubsystem returns the subsystem from the context, falling back to the one
// set by ConfigureLogging.
func GetSubsystem(ctx context.Context) string { //nolint:contextcheck
	if ctx == nil {
		ctx = context.Background()
	}

	if sub, ok := ctx.Value(contextKey("subsystem")).(string); ok {
		return sub
	}

	if def, ok := subsystem.Load().(string); ok {
		return def
	}

	return ""
}

// WithMachine records which state machine the current work belongs to.
func WithMachine(ctx context.Context, machine string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("machine"), machine)
}

// GetMachine returns the machine name stored by WithMachine.
func GetMachine(ctx context.Context) (string, bool) { //nolint:contextcheck
	if ctx == nil {
		return "", false
	}

	machine, ok := ctx.Value(contextKey("machine")).(string)

	return machine, ok
}

// With returns a new context whose logger carries the given key-values.
func With(ctx context.Context, values ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(values) == 0 {
		return ctx
	}

	vals := append(getValues(ctx), values...) //nolint:gocritic

	return context.WithValue(ctx, contextKey("loggerValues"), vals)
}

// Values returns a copy of the key-values attached with With.
func Values(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	return getValues(ctx)
}

func getValues(ctx context.Context) []any {
	vals, ok := ctx.Value(contextKey("loggerValues")).([]any)
	if !ok {
		return nil
	}

	// Copy so that sibling contexts never share a backing array.
	out := make([]any, len(vals))
	copy(out, vals)

	return out
}

type nullHandler struct{}

func (nullHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nullHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nullHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nullHandler) WithGroup(string) slog.Handler           { return h }

var nullLogger = slog.New(nullHandler{}) //nolint:gochecknoglobals

// Get returns slog's default logger decorated with the subsystem, the machine and
// any values attached with With. A nil or absent context yields the plain
// decorated default logger.
//
//nolint:contextcheck
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := context.Background()

	for _, c := range ctx {
		if c != nil {
			realCtx = c

			break
		}
	}

	if isMuted(realCtx) {
		return nullLogger
	}

	logger := slog.Default()

	if sub := GetSubsystem(realCtx); sub != "" {
		logger = logger.With("subsystem", sub)
	}

	if machine, ok := GetMachine(realCtx); ok {
		logger = logger.With("machine", machine)
	}

	if vals := getValues(realCtx); len(vals) > 0 {
		logger = logger.With(vals...)
	}

	return logger
}
