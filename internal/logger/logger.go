package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Logger prints "[HH:MM:SS] LEVEL: msg" lines. Debug lines only appear when
// Verbose is set.
type Logger struct {
	Verbose bool
	out     *log.Logger
	now     func() time.Time
}

func New(w io.Writer, verbose bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{Verbose: verbose, out: log.New(w, "", 0), now: time.Now}
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	return New(io.Discard, false)
}

func (l *Logger) print(level, format string, args ...any) {
	if l == nil {
		return
	}
	l.out.Printf("[%s] %s: %s", l.now().Format("15:04:05"), level, fmt.Sprintf(format, args...))
}

// Debugf prints only if Verbose is true
func (l *Logger) Debugf(format string, args ...any) {
	if l != nil && l.Verbose {
		l.print("DEBUG", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any)  { l.print("INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.print("WARNING", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.print("ERROR", format, args...) }
