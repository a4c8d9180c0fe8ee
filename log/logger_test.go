package log

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(lvl Lvl) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return FromZap(zap.New(core), lvl), logs
}

func TestLoggerContext(t *testing.T) {
	l, logs := newObserved(LvlInfo)
	l.New("module", "bft").Info("Block accepted", "index", 3, "err", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("unexpected entry count: have %d want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["module"] != "bft" {
		t.Fatalf("missing inherited context: %v", fields)
	}
	if fields["index"] != int64(3) {
		t.Fatalf("unexpected index field: %#v", fields["index"])
	}
	if fields["err"] != "boom" {
		t.Fatalf("errors should be rendered as strings, have %#v", fields["err"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	l, logs := newObserved(LvlWarn)
	l.Info("dropped")
	l.Debug("dropped")
	l.Warn("kept")
	l.Error("kept")
	if n := logs.Len(); n != 2 {
		t.Fatalf("unexpected entry count: have %d want 2", n)
	}
}

func TestLoggerOddContext(t *testing.T) {
	l, logs := newObserved(LvlTrace)
	l.Trace("odd", "key")
	fields := logs.All()[0].ContextMap()
	if _, ok := fields[errorKey]; !ok {
		t.Fatalf("odd context should be normalized, have %v", fields)
	}
	if fields["trace"] != true {
		t.Fatalf("trace records should carry the trace marker")
	}
}

func TestLvlFromString(t *testing.T) {
	for in, want := range map[string]Lvl{"trace": LvlTrace, "DEBUG": LvlDebug, "info": LvlInfo, "warn": LvlWarn, "eror": LvlError, "crit": LvlCrit} {
		have, err := LvlFromString(in)
		if err != nil || have != want {
			t.Errorf("LvlFromString(%q) = %v, %v; want %v", in, have, err, want)
		}
	}
	if _, err := LvlFromString("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

type shortValue string

func (v shortValue) String() string         { return string(v) }
func (v shortValue) TerminalString() string { return string(v[:4]) + "…" }

func TestTerminalStringer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	console := &logger{z: zap.New(core).Sugar(), lvl: LvlInfo, terminal: true}
	console.New("head", shortValue("abcdef0123")).Info("Block accepted", "hash", shortValue("0123456789"))

	fields := logs.All()[0].ContextMap()
	if fields["hash"] != "0123…" || fields["head"] != "abcd…" {
		t.Fatalf("console output should use the short form, have %v", fields)
	}

	l, logs := newObserved(LvlInfo)
	l.Info("Block accepted", "hash", shortValue("0123456789"))
	if have := logs.All()[0].ContextMap()["hash"]; have != "0123456789" {
		t.Fatalf("structured output should use the full form, have %#v", have)
	}
}
