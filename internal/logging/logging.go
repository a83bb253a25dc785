// Package logging build logrus loggers of the process and keep the auth attempt audit log.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// New build the process logger. format is "json" or "text".
func New(level string, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Component return entry tagged with component name
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Discard is logger that write nothing, use in tests
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

var (
	authMu     sync.RWMutex
	authLogger *logrus.Logger
	authFile   *os.File
)

// ConfigureAuthLog enable auth attempt log written as JSON lines into path.
// Passing enabled=false turn it off and close previous file.
func ConfigureAuthLog(enabled bool, path string) error {
	authMu.Lock()
	defer authMu.Unlock()

	if authFile != nil {
		_ = authFile.Close()
		authFile = nil
	}
	authLogger = nil

	if !enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})

	authFile = f
	authLogger = logger
	return nil
}

// AuthAttempt record an authentication attempt.
// level: debug|info|warning|error, authType: Local|Google|Logout, status: Success|Fail.
// identifier and message are optional.
func AuthAttempt(level string, authType string, status string, identifier string, message string) {
	authMu.RLock()
	logger := authLogger
	authMu.RUnlock()
	if logger == nil {
		return
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	fields := logrus.Fields{
		"auth_type": authType,
		"status":    status,
	}
	if identifier != "" {
		fields["identifier"] = identifier
	}
	logger.WithFields(fields).Log(lvl, message)
}
