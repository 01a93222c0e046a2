package logger

import "sync/atomic"

// NopLogger discards every message. It still tracks its level so callers
// that query Level() observe the value they set.
type NopLogger struct {
	level atomic.Int32
}

var _ Logger = (*NopLogger)(nil)

// NewNop returns a Logger that discards all output.
func NewNop() Logger {
	l := &NopLogger{}
	l.level.Store(int32(InfoLevel))

	return l
}

func (l *NopLogger) Debug(string, ...any) {}
func (l *NopLogger) Info(string, ...any)  {}
func (l *NopLogger) Warn(string, ...any)  {}
func (l *NopLogger) Error(string, ...any) {}
func (l *NopLogger) Fatal(string, ...any) {}

func (l *NopLogger) With(...any) Logger { return l }

func (l *NopLogger) Level() Level { return Level(l.level.Load()) }

func (l *NopLogger) SetLevel(level Level) { l.level.Store(int32(level)) }
