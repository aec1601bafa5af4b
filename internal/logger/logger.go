package logger

import (
	"context"
	"os"
	"sync"

	"emperror.dev/errors"
	"github.com/bombsimon/logrusr/v3"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

const KeyCmd = "command"

var ErrInvalidConfig = errors.NewPlain("invalid config")

var (
	loggers   = map[string]logr.Logger{} //nolint:gochecknoglobals // simple logging
	loggersMu sync.Mutex                 //nolint:gochecknoglobals // simple logging
	level     = logrus.InfoLevel         //nolint:gochecknoglobals // simple logging
)

// SetLevel sets the level of loggers created after the call.
// Unknown level names are reported and the level is not changed.
func SetLevel(levelName string) error {
	lvl, err := logrus.ParseLevel(levelName)
	if err != nil {
		return errors.WrapIfWithDetails(err, "unable to parse log level", "level", levelName)
	}
	loggersMu.Lock()
	defer loggersMu.Unlock()
	level = lvl

	return nil
}

// GetLogger returns the named logger, writing to stderr.
func GetLogger(app string) logr.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	if logger, has := loggers[app]; has {
		return logger
	}
	lr := logrus.New()
	lr.Out = os.Stderr
	lr.Level = level
	loggers[app] = logrusr.New(lr).WithName(app)

	return loggers[app]
}

// FromContext returns the logger from ctx (discarding, if none), extended by keysAndValues.
// The extended logger is stored in the returned context.
func FromContext(ctx context.Context, keysAndValues ...interface{}) (context.Context, logr.Logger) {
	log := logr.FromContextOrDiscard(ctx)
	if len(keysAndValues) == 0 {
		return ctx, log
	}
	log = log.WithValues(keysAndValues...)

	return logr.NewContext(ctx, log), log
}
