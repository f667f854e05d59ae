package utils

import "github.com/sirupsen/logrus"

// Debugf/Infof/Warnf/Errorf are backed by logrus rather than a
// hand-rolled logger, so the engine gets levels, fields and formatters
// for free. Group swaps, decode outcomes and auth failures are logged
// densely enough that a real leveled logger earns its keep.
var log = logrus.StandardLogger()

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// SetLogger lets an embedding application point the engine's logging at
// its own *logrus.Logger instance (e.g. to share output/formatter config).
func SetLogger(l *logrus.Logger) {
	log = l
}
