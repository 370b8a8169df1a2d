// Package logging adapts logrus to the printf-style Logger used by the
// import pipeline.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options configures a logger.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Default info.
	Level string

	// Format is "json" or "text". Default text.
	Format string

	// File, when set, receives the log in addition to Output.
	File string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger wraps a logrus entry. It satisfies converter.Logger and
// submit.Logger.
type Logger struct {
	entry  *logrus.Entry
	closer io.Closer
}

// New builds a logger from opts.
func New(opts Options) (*Logger, error) {
	logg := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}
	logg.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		logg.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format: %s", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	l := &Logger{}
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(out, file)
		l.closer = file
	}
	logg.SetOutput(out)

	l.entry = logrus.NewEntry(logg)
	return l, nil
}

// With returns a logger that adds key=value to every entry.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }

// LogError records err with the module and function that hit it.
func LogError(l *Logger, module, funcName string, data any, err error) {
	fields := logrus.Fields{
		"module":   module,
		"funcName": funcName,
	}
	if data != nil {
		fields["data"] = data
	}
	l.entry.WithFields(fields).Error(err.Error())
}
