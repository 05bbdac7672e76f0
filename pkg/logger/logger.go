package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// log is a no-op until Init runs so packages can log from tests.
var log = zap.NewNop().Sugar()

// Init builds the process logger from LOG_LEVEL and APP_ENV. Every entry
// carries app=cockpit; unknown levels fall back to info.
func Init(logLevel, appEnv string) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(logLevel))
	if err != nil {
		level = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      appEnv == "development",
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"app": "cockpit", "env": appEnv},
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to example logger instead of panicking
		fallbackLogger := zap.NewExample()
		log = fallbackLogger.Sugar()
		log.Warn("Failed to initialize custom logger, using fallback", "error", err)
		return
	}

	log = logger.Sugar()
}

// Bind adds fields to every later entry, e.g. the terminal's device id
// once it is resolved.
func Bind(keysAndValues ...interface{}) {
	log = log.With(keysAndValues...)
}

// Replace swaps the process logger and returns a func restoring the
// previous one.
func Replace(l *zap.Logger) func() {
	prev := log
	log = l.Sugar()
	return func() { log = prev }
}

// StoreWriter adapts the logger to gorm's Printf-style writer. Store
// messages are logged at warn level under component=store.
type StoreWriter struct{}

func (StoreWriter) Printf(format string, args ...interface{}) {
	log.Warnw(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "store")
}

func Debug(msg string, keysAndValues ...interface{}) {
	log.Debugw(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	log.Infow(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	log.Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	log.Errorw(msg, keysAndValues...)
}

func Fatal(msg string, err error) {
	log.Fatalw(msg, "error", err)
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
