package config

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

var logLevels = map[string]log.Level{
	"DEBUG":    log.DebugLevel,
	"INFO":     log.InfoLevel,
	"WARNING":  log.WarnLevel,
	"WARN":     log.WarnLevel,
	"ERROR":    log.ErrorLevel,
	"CRITICAL": log.FatalLevel,
}

// ParseLogLevel maps DEBUG, INFO, WARNING, ERROR and CRITICAL (any case)
// to logrus levels.
func ParseLogLevel(s string) (log.Level, error) {
	l, ok := logLevels[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return log.InfoLevel, fmt.Errorf("%w: unknown log level %q", ErrInvalid, s)
	}
	return l, nil
}

// SetupLogging configures the standard logger.
func SetupLogging(level string) error {
	l, err := ParseLogLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(l)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}
