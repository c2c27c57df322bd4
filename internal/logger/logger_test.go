package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormatAndVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.now = func() time.Time { return time.Date(2024, 12, 9, 14, 3, 7, 0, time.UTC) }

	l.Debugf("hidden %d", 1)
	l.Infof("scan %s", "started")
	l.Warnf("bandit not found")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line printed without verbose: %q", got)
	}
	if !strings.Contains(got, "[14:03:07] INFO: scan started\n") {
		t.Errorf("unexpected info line: %q", got)
	}
	if !strings.Contains(got, "[14:03:07] WARNING: bandit not found\n") {
		t.Errorf("unexpected warning line: %q", got)
	}

	buf.Reset()
	l.Verbose = true
	l.Debugf("shown")
	if !strings.Contains(buf.String(), "DEBUG: shown") {
		t.Errorf("verbose debug missing: %q", buf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Infof("nothing")
	l.Debugf("nothing")
}
