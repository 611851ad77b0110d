package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForService(name), buf
}

func TestPrefixInfo(t *testing.T) {
	SetGlobalDebug(false)

	const name = "prefix_service_test"
	l, buf := newTestLogger(t, name)

	l.Infof("hello world")
	out := buf.String()

	if !strings.Contains(out, "INFO ["+name+">] hello world") {
		t.Fatalf("expected level, prefix and message in output, got: %q", out)
	}
}

func TestDebugPerService(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_specific"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("debug message appeared while debug disabled")
	}

	EnableDebugFor(name)
	defer DisableDebugFor(name)
	l.Debugf("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Fatalf("expected debug message after enabling per-service debug; got: %q", buf.String())
	}
}

func TestDebugGlobal(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_global"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message appeared while global debug disabled")
	}

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	l.Debugf("global visible")
	if !strings.Contains(buf.String(), "global visible") {
		t.Fatalf("expected debug message after enabling global debug; got: %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	l, buf := newTestLogger(t, "fields_service_test")

	l.With("type", "database_row", "err", "no such column: x").Errorf("building projection")
	out := buf.String()

	if !strings.Contains(out, "ERROR [fields_service_test>] building projection") {
		t.Fatalf("expected message in output, got: %q", out)
	}
	if !strings.Contains(out, "type=database_row") {
		t.Fatalf("expected plain field in output, got: %q", out)
	}
	if !strings.Contains(out, `err="no such column: x"`) {
		t.Fatalf("expected quoted field in output, got: %q", out)
	}
}

func TestWithDoesNotMutateParent(t *testing.T) {
	l, buf := newTestLogger(t, "fields_parent_test")

	child := l.With("request_id", "abc")
	child.With("odd").Warnf("child")
	l.Warnf("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "request_id=abc odd=(missing)") {
		t.Errorf("unexpected child line: %q", lines[0])
	}
	if strings.Contains(lines[1], "request_id") {
		t.Errorf("parent logger picked up child fields: %q", lines[1])
	}
}
