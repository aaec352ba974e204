package config

import (
	"os"

	"github.com/mpapenbr/lapboard/log"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// InitLogger creates the default logger from LogLevel, LogFormat and LogFilter
func InitLogger() error {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if LogFilter != "" {
		filter, err := log.WithFilterRules(LogFilter)
		if err != nil {
			return err
		}
		opts = append(opts, filter)
	}
	var logger *log.Logger
	switch LogFormat {
	case "json":
		logger = log.New(os.Stderr, parseLogLevel(LogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(os.Stderr, parseLogLevel(LogLevel, log.DebugLevel), opts...)
	}
	log.ResetDefault(logger)
	return nil
}
