package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is a printf-style facade over slog. Errors are mirrored into a
// separate file so operators can tail failures only.
type Logger struct {
	out   *slog.Logger
	err   *slog.Logger
	errMu sync.Mutex
	errW  io.WriteCloser
}

type Options struct {
	Level  string
	Format string
}

func New(errorsPath string, opts Options) (*Logger, error) {
	// Clear the log file on startup
	if err := os.Truncate(errorsPath, 0); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	f, err := os.OpenFile(errorsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		out:  slog.New(newHandler(os.Stdout, opts.Format, parseLevel(opts.Level))),
		err:  slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelError})),
		errW: f,
	}, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{
		out: slog.New(slog.NewTextHandler(io.Discard, nil)),
		err: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	o := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, o)
	}
	return slog.NewTextHandler(w, o)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Close() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if l.errW != nil {
		err := l.errW.Close()
		l.errW = nil
		return err
	}
	return nil
}

func (l *Logger) Debugf(format string, args ...any) {
	l.out.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.out.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.out.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.out.Error(msg)
	l.errMu.Lock()
	defer l.errMu.Unlock()
	l.err.Error(msg)
}

func (l *Logger) Error(err error) {
	if err == nil {
		return
	}
	l.Errorf("%v", err)
}
