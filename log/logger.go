// Package log provides the leveled key/value logger used across gaudit.
//
// The call style follows log15: a message followed by alternating keys and
// values,
//
//	log.Info("Block accepted", "index", 7, "hash", hash)
//
// Records are written through zap. When stderr is a terminal the output is
// coloured console text, otherwise plain text or one JSON object per line.
package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const errorKey = "LOG15_ERROR"

// Lvl is a log level.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

// String returns the name of a Lvl.
func (l Lvl) String() string {
	switch l {
	case LvlTrace:
		return "trce"
	case LvlDebug:
		return "dbug"
	case LvlInfo:
		return "info"
	case LvlWarn:
		return "warn"
	case LvlError:
		return "eror"
	case LvlCrit:
		return "crit"
	default:
		panic("bad level")
	}
}

// LvlFromString returns the appropriate Lvl from a string name.
// Useful for parsing command line args and configuration files.
func LvlFromString(lvlString string) (Lvl, error) {
	switch strings.ToLower(lvlString) {
	case "trace", "trce":
		return LvlTrace, nil
	case "debug", "dbug":
		return LvlDebug, nil
	case "info":
		return LvlInfo, nil
	case "warn":
		return LvlWarn, nil
	case "error", "eror":
		return LvlError, nil
	case "crit":
		return LvlCrit, nil
	default:
		return LvlDebug, fmt.Errorf("unknown level: %v", lvlString)
	}
}

// zapLevel maps a Lvl onto the zap level it is emitted at. zap has no trace
// level, trace records go out at debug with a "trace" marker.
func (l Lvl) zapLevel() zapcore.Level {
	switch l {
	case LvlTrace, LvlDebug:
		return zapcore.DebugLevel
	case LvlInfo:
		return zapcore.InfoLevel
	case LvlWarn:
		return zapcore.WarnLevel
	case LvlError:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

// A Logger writes key/value pairs to a Handler
type Logger interface {
	// New returns a new Logger that has this logger's context plus the given context
	New(ctx ...interface{}) Logger

	// Log a message at the given level with context key/value pairs
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	z        *zap.SugaredLogger
	lvl      Lvl
	terminal bool // values implementing TerminalStringer use their short form
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{z: l.z.With(normalize(ctx, l.terminal)...), lvl: l.lvl, terminal: l.terminal}
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	if lvl > l.lvl {
		return
	}
	kv := normalize(ctx, l.terminal)
	switch lvl {
	case LvlTrace:
		l.z.Debugw(msg, append(kv, "trace", true)...)
	case LvlDebug:
		l.z.Debugw(msg, kv...)
	case LvlInfo:
		l.z.Infow(msg, kv...)
	case LvlWarn:
		l.z.Warnw(msg, kv...)
	case LvlError:
		l.z.Errorw(msg, kv...)
	case LvlCrit:
		l.z.Fatalw(msg, kv...)
	}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }

// Crit logs the message and terminates the process.
func (l *logger) Crit(msg string, ctx ...interface{}) { l.write(LvlCrit, msg, ctx) }

// normalize pads odd context lists and turns keys into strings, so a bad call
// site still produces a readable record instead of a zap DPanic.
func normalize(ctx []interface{}, terminal bool) []interface{} {
	if len(ctx)%2 != 0 {
		ctx = append(ctx, nil, errorKey, "Normalized odd number of arguments by adding nil")
	}
	out := make([]interface{}, len(ctx))
	for i := 0; i < len(ctx); i += 2 {
		key, ok := ctx[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", ctx[i])
		}
		out[i] = key
		out[i+1] = formatValue(ctx[i+1], terminal)
	}
	return out
}

// TerminalStringer is an analogous interface to the stdlib stringer, allowing
// own types to have custom shortened serialization formats when printed to the
// screen.
type TerminalStringer interface {
	TerminalString() string
}

func formatValue(v interface{}, terminal bool) interface{} {
	if ts, ok := v.(TerminalStringer); ok && terminal {
		return ts.TerminalString()
	}
	switch v := v.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}
