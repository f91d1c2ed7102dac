package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"subtitle-hub/pkg/config"
)

// Logger wraps logrus so the rest of the service never imports it directly.
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var globalLogger = &Logger{entry: logrus.StandardLogger()}

// NewLogger builds a logger from configuration (level, format, output target).
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Log.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger := &Logger{entry: l}

	switch strings.ToLower(cfg.Log.Output) {
	case "file":
		if cfg.Log.Filename != "" {
			f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				logger.file = f
				l.SetOutput(io.MultiWriter(os.Stdout, f))
				break
			}
			l.Warnf("failed to open log file, falling back to stdout file=%s error=%v", cfg.Log.Filename, err)
		}
		l.SetOutput(os.Stdout)
	default:
		l.SetOutput(os.Stdout)
	}

	return logger
}

// SetGlobalLogger replaces the process-wide logger used by package helpers.
func SetGlobalLogger(l *Logger) {
	if l != nil {
		globalLogger = l
	}
}

// Close releases the log file, if any.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

// Debug logs a message with structured fields.
func Debug(msg string, fields map[string]interface{}) {
	globalLogger.entry.WithFields(fields).Debug(msg)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	globalLogger.entry.Debugf(format, args...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	globalLogger.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	globalLogger.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	globalLogger.entry.Errorf(format, args...)
}

// Fatal logs a message and exits the process.
func Fatal(msg string) {
	globalLogger.entry.Fatal(msg)
}
