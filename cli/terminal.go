// Package cli holds the interactive terminal helpers used by fsmctl: prompts,
// next-state selection, natural-order listings and banners.
package cli

import (
	"io"
	"os"
)

// Terminal binds prompts to a pair of streams. The zero value is not usable;
// use NewTerminal or set both streams.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser

	// PageSize is the number of choices shown at once by SelectState.
	PageSize int
}

const defaultPageSize = 10

// NewTerminal returns a Terminal on the process's standard streams.
func NewTerminal() *Terminal {
	return &Terminal{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		PageSize: defaultPageSize,
	}
}
