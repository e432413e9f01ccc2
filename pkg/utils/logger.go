package utils

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// GetLogger returns the process-wide structured logger, creating it on
// first use. Level comes from LOG_LEVEL; output is JSON on stdout so the
// log shipper can pick it up.
func GetLogger() *logrus.Logger {
	if logger == nil {
		logger = newLogger()
	}
	return logger
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return l
}
