package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// global backs the package-level functions. Its loggers carry CallerSkip(1).
var global atomic.Pointer[zap.Logger]

func setGlobalLoggerInternal(l *zap.Logger) {
	global.Store(l)
}

// current returns the global logger, building the default on first use.
// Concurrent first callers may each build one; only the first stored wins.
func current() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	built := buildDefault()
	if global.CompareAndSwap(nil, built) {
		return built
	}
	return global.Load()
}

// buildDefault falls back to a no-op logger when stdout can't be opened
func buildDefault() *zap.Logger {
	cfg := DefaultConfig()
	l, err := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig(),
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.DPanicLevel))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetGlobalLogger replaces the logger behind the package-level functions.
// Build l with zap.AddCallerSkip(1) to keep caller locations right.
func SetGlobalLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

// GetGlobalLogger returns the logger behind the package-level functions
func GetGlobalLogger() *zap.Logger {
	return current()
}

// Component returns the global logger named after a background component,
// for code that runs outside any cache and has no Logger handed to it.
// The caller skip is undone so entries point at the component's own code.
func Component(name string) Logger {
	return current().WithOptions(zap.AddCallerSkip(-1)).Named(name)
}

// Debug, Info, Warn and Error log through the global logger.
func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { current().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { current().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }

// Sync flushes the global logger
func Sync() error {
	return current().Sync()
}
