package brickyard

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", l)
	}
}

// DefaultLogger writes debug and info lines to one log.Logger and warnings
// and errors to another.
type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewWriterLogger(prefix, debug, os.Stdout, os.Stderr)
}

func NewWriterLogger(prefix string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) logf(level Level, format string, args ...any) {
	if level == LevelDebug && !l.DebugEnabled() {
		return
	}
	msg := level.String() + ": " + fmt.Sprintf(format, args...)
	if l.prefix != "" {
		msg = "[" + l.prefix + "] " + msg
	}
	if level >= LevelWarn {
		l.err.Print(msg)
		return
	}
	l.out.Print(msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

// fieldLogger prepends key=value pairs to every message.
type fieldLogger struct {
	Logger
	fields string
}

// WithFields returns a logger tagging each message with the given key/value
// pairs, e.g. WithFields(l, "brick", id, "layer", 3). A trailing key without
// a value is logged as key=?.
func WithFields(l Logger, kv ...any) Logger {
	l = loggerOrNop(l)
	if len(kv) == 0 {
		return l
	}
	var b strings.Builder
	if fl, ok := l.(*fieldLogger); ok {
		b.WriteString(fl.fields)
		l = fl.Logger
	}
	for i := 0; i < len(kv); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=", kv[i])
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v", kv[i+1])
		} else {
			b.WriteByte('?')
		}
	}
	return &fieldLogger{Logger: l, fields: b.String()}
}

func (f *fieldLogger) Debugf(format string, args ...any) {
	f.Logger.Debugf("%s %s", f.fields, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Infof(format string, args ...any) {
	f.Logger.Infof("%s %s", f.fields, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Warnf(format string, args ...any) {
	f.Logger.Warnf("%s %s", f.fields, fmt.Sprintf(format, args...))
}

func (f *fieldLogger) Errorf(format string, args ...any) {
	f.Logger.Errorf("%s %s", f.fields, fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger { return &nopLogger{} }
func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

func loggerOrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
