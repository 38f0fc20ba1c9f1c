package logger

import "errors"

var (
	// ErrInvalidLogOutput is returned when LOG_OUTPUT names an unknown destination.
	ErrInvalidLogOutput = errors.New("invalid log output")
	// ErrInvalidLogLevel is returned when a level variable cannot be parsed.
	ErrInvalidLogLevel = errors.New("invalid log level")
)
