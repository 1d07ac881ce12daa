package dlttoolkit

import "github.com/sirupsen/logrus"

var log logrus.FieldLogger

func init() {
	// Give a default logger at the start to avoid null pointer error
	log = logrus.New()
}

// SetLogger lets the CLIs inject a configured logger (level, formatter)
// before any core package logs anything.
func SetLogger(logger logrus.FieldLogger) {
	log = logger
}

// Log exposes the package logger to sibling packages (dlt, search,
// partition, pipeline, parallel, analytics) without import cycles.
func Log() logrus.FieldLogger {
	return log
}
