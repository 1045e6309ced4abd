package userbase

import (
	"github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger used across the package.
type Logger = glog.Logger

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

type staticLoggerProvider struct {
	logger Logger
}

func (p staticLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithName("userbase"),
		glog.WithLoggerTypePretty(),
		glog.WithAddSource(false),
	).GetLogger("userbase")
}

// ResolveLogger returns a provider and a scoped logger for name. A provider
// wins over a plain logger; a provider returning nil falls back to logger
// and then to the default logger.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if scoped := provider.GetLogger(name); scoped != nil {
			return provider, scoped
		}
	}

	if logger == nil {
		logger = defaultLogger()
	}

	return staticLoggerProvider{logger: logger}, logger
}
