// Package log configures structured logging for ThreatSleuth binaries.
//
// Initialize installs a Zap backed handler as the slog default. After that,
// code logs with slog.InfoContext and friends, and attributes attached to a
// context with ContextWithAttrs are added to every record logged with it.
package log

import (
	golog "log"
	"log/slog"
	"strings"

	"github.com/blendle/zapdriver"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// Env selects the logging configuration.
type Env string

const (
	// EnvDev writes human readable logs at debug level.
	EnvDev Env = "dev"

	// EnvProd writes JSON in the format expected by Cloud Logging.
	EnvProd Env = "prod"
)

// String implements the fmt.Stringer interface.
func (e Env) String() string {
	return string(e)
}

var currentEnv = EnvDev

// Initialize configures logging for env, which is usually read from the
// LOGGER_ENV environment variable. Unrecognised values fall back to EnvDev.
//
// The returned logger is the Zap logger backing slog.Default. Callers should
// Sync it before exiting.
func Initialize(env string) *zap.Logger {
	var err error
	var logger *zap.Logger
	switch Env(strings.ToLower(env)) {
	case EnvProd:
		currentEnv = EnvProd
		config := zapdriver.NewProductionConfig()
		config.Sampling = nil
		// The zapdriver core turns "labels." prefixed fields into labels.
		logger, err = config.Build(zapdriver.WrapCore())
	default:
		currentEnv = EnvDev
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		golog.Panic(err)
	}
	zap.RedirectStdLog(logger)
	slog.SetDefault(slog.New(NewContextLogHandler(zapslog.NewHandler(logger.Core()))))
	return logger
}

// LabelAttr returns an attribute that is indexed as a label by Cloud Logging
// when running with EnvProd, and a plain string attribute otherwise.
func LabelAttr(key, value string) slog.Attr {
	if currentEnv == EnvProd {
		return slog.String("labels."+key, value)
	}
	return slog.String(key, value)
}
