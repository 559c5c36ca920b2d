package util

import (
	"fmt"

	"github.com/pion/logging"
)

// LoggerFactory hands out pion leveled loggers that write through the pterm
// helpers above. It is used both as the protocol engine's trace channel and
// as the webrtc SettingEngine logger factory.
var LoggerFactory logging.LoggerFactory = loggerFactory{}

type loggerFactory struct{}

func (loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &scopedLogger{prefix: "[" + scope + "] "}
}

// scopedLogger prefixes every line with its scope.
type scopedLogger struct {
	prefix string
}

func (l *scopedLogger) Trace(msg string) { LogTrace("%s%s", l.prefix, msg) }
func (l *scopedLogger) Tracef(format string, args ...interface{}) {
	l.Trace(fmt.Sprintf(format, args...))
}

func (l *scopedLogger) Debug(msg string) { LogDebug("%s%s", l.prefix, msg) }
func (l *scopedLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l *scopedLogger) Info(msg string) { LogInfo("%s%s", l.prefix, msg) }
func (l *scopedLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *scopedLogger) Warn(msg string) { LogWarning("%s%s", l.prefix, msg) }
func (l *scopedLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *scopedLogger) Error(msg string) { LogError("%s%s", l.prefix, msg) }
func (l *scopedLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}
