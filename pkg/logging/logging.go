// Package logging provides the "[+]"/"[-]"/"[ERROR]" prefixed progress
// reporting style used throughout this module's command-line tools,
// matching the teacher's own fmt.Printf/fmt.Errorf idiom (pkg/pe/pe.go,
// pkg/sh/sh.go, cmd/main.go) behind a small leveled wrapper so tests can
// silence or capture it.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger wraps a standard *log.Logger with the three prefixes this
// codebase's output has always used.
type Logger struct {
	out *log.Logger
}

// Default writes to os.Stderr with no extra timestamp, matching the
// teacher's bare fmt.Printf calls as closely as the standard log
// package allows.
func Default() *Logger {
	return New(os.Stderr)
}

// New builds a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{out: log.New(w, "", 0)}
}

// Info reports progress, prefixed "[+]".
func (l *Logger) Info(format string, args ...interface{}) {
	l.out.Printf("[+] "+format, args...)
}

// Warn reports a non-fatal problem, prefixed "[-]".
func (l *Logger) Warn(format string, args ...interface{}) {
	l.out.Printf("[-] "+format, args...)
}

// Error reports a failure, prefixed "[ERROR]".
func (l *Logger) Error(format string, args ...interface{}) {
	l.out.Printf("[ERROR] "+format, args...)
}

// Errorf builds an error value with the same "[ERROR]" prefix, for
// call sites that need to both log and return an error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("[ERROR] "+format, args...)
}
