package common

import (
	"io"
	"log"
	"os"
)

// Logger holds several logger instances with different prefixes
type Logger struct {
	Debug *log.Logger
	Info  *log.Logger
	Warn  *log.Logger
	Err   *log.Logger
}

// GetNewLogger creates an instance of all needed loggers;
// debug output is discarded unless verbose is set
func GetNewLogger(verbose bool) *Logger {
	return NewLogger(os.Stderr, verbose)
}

// NewLogger creates loggers which write to w
func NewLogger(w io.Writer, verbose bool) *Logger {
	debugOut := io.Discard
	if verbose {
		debugOut = w
	}
	return &Logger{
		Debug: log.New(debugOut, "[ Debug ] ", log.LstdFlags|log.Lshortfile),
		Info:  log.New(w, "[ Info ] ", log.LstdFlags|log.Lshortfile),
		Warn:  log.New(w, "[ Warn ] ", log.LstdFlags|log.Lshortfile),
		Err:   log.New(w, "[ Error ] ", log.LstdFlags|log.Lshortfile),
	}
}

// NopLogger discards everything
func NopLogger() *Logger {
	return NewLogger(io.Discard, false)
}
