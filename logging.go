package kihost

import (
	"github.com/sirupsen/logrus"
)

// logging.go - a session logs structured fields through logrus rather than
// printf-style frame dumps: frame traffic at Debug, retries and settling
// waits at Info, protocol errors (checksum mismatch, codec desync, fatal
// firmware error, command failure) at Warn/Error, and parsed notifications
// at Info with fields like saddr/id/sq/bytes/dport/sport instead of being
// folded into a formatted string.

// Logger is the leveled logging contract a Session uses. A Config without
// a Logger gets discardLogger; NewLogrusLogger builds a thin
// *logrus.Logger wrapper for callers that want output.
type Logger interface {
	Debug(fields map[string]interface{}, msg string)
	Info(fields map[string]interface{}, msg string)
	Warn(fields map[string]interface{}, msg string)
	Error(fields map[string]interface{}, msg string)
}

// logrusLogger is the default Logger, routing every level through a
// *logrus.Logger.
type logrusLogger struct {
	log *logrus.Logger
}

// NewLogrusLogger builds a Logger backed by a fresh *logrus.Logger at the
// given level.
func NewLogrusLogger(level logrus.Level) Logger {
	l := logrus.New()
	l.SetLevel(level)
	return &logrusLogger{log: l}
}

func (l *logrusLogger) Debug(fields map[string]interface{}, msg string) {
	l.log.WithFields(fields).Debug(msg)
}

func (l *logrusLogger) Info(fields map[string]interface{}, msg string) {
	l.log.WithFields(fields).Info(msg)
}

func (l *logrusLogger) Warn(fields map[string]interface{}, msg string) {
	l.log.WithFields(fields).Warn(msg)
}

func (l *logrusLogger) Error(fields map[string]interface{}, msg string) {
	l.log.WithFields(fields).Error(msg)
}

// discardLogger drops every record; used when a caller does not supply a
// Logger.
type discardLogger struct{}

func (discardLogger) Debug(map[string]interface{}, string) {}
func (discardLogger) Info(map[string]interface{}, string)  {}
func (discardLogger) Warn(map[string]interface{}, string)  {}
func (discardLogger) Error(map[string]interface{}, string) {}
