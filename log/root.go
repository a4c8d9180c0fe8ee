package log

import (
	"os"
	"sync/atomic"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root atomic.Value

func init() {
	root.Store(NewLogger(LvlInfo, false))
}

// NewLogger builds a logger writing to stderr at the given verbosity.
// With json unset and a terminal attached, output is coloured console text.
// Console output renders TerminalStringer values in their short form.
func NewLogger(lvl Lvl, json bool) Logger {
	usecolor := !json && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "t"
	encCfg.MessageKey = "msg"
	encCfg.LevelKey = "lvl"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		enc zapcore.Encoder
		out zapcore.WriteSyncer
	)
	if usecolor {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
		out = zapcore.AddSync(colorable.NewColorableStderr())
	} else if json {
		enc = zapcore.NewJSONEncoder(encCfg)
		out = zapcore.Lock(os.Stderr)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
		out = zapcore.Lock(os.Stderr)
	}
	core := zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(lvl.zapLevel()))
	return &logger{z: zap.New(core).Sugar(), lvl: lvl, terminal: !json}
}

// FromZap wraps an existing zap logger. Records above lvl are dropped before
// they reach zap.
func FromZap(z *zap.Logger, lvl Lvl) Logger {
	return &logger{z: z.Sugar(), lvl: lvl}
}

// Root returns the root logger
func Root() Logger {
	return root.Load().(Logger)
}

// SetRoot replaces the root logger used by the package level functions.
func SetRoot(l Logger) {
	root.Store(l)
}

// New returns a new logger with the given context.
// New is a convenient alias for Root().New
func New(ctx ...interface{}) Logger {
	return Root().New(ctx...)
}

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...interface{}) {
	Root().Trace(msg, ctx...)
}

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...interface{}) {
	Root().Debug(msg, ctx...)
}

// Info is a convenient alias for Root().Info
func Info(msg string, ctx ...interface{}) {
	Root().Info(msg, ctx...)
}

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...interface{}) {
	Root().Warn(msg, ctx...)
}

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...interface{}) {
	Root().Error(msg, ctx...)
}

// Crit is a convenient alias for Root().Crit
func Crit(msg string, ctx ...interface{}) {
	Root().Crit(msg, ctx...)
}
