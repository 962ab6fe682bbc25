package logger

import (
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether f is attached to a terminal (enables color).
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
