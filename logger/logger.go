// Package logger provides the shared zap logger for both binaries.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Log is the global logger instance.
	Log *zap.Logger
	// Sugar is the sugared logger for convenience.
	Sugar *zap.SugaredLogger
)

// Init builds the global logger. Development mode uses a colored console
// encoder at debug level; production logs JSON at info level.
func Init(development bool) error {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	var err error
	Log, err = config.Build(zap.AddCaller())
	if err != nil {
		return err
	}
	Sugar = Log.Sugar()
	return nil
}

// With creates a child logger with additional fields.
func With(fields ...zap.Field) *zap.Logger {
	return Log.With(fields...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return Log.Sync()
}

func init() {
	// Safe default so packages can log before Init runs (tests mostly).
	Log = zap.NewNop()
	Sugar = Log.Sugar()
}
