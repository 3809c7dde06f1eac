package log

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper providing logging facilities.
type Logger struct {
	x *zap.SugaredLogger
}

// root logger. Stored in an atomic pointer so that Init can be called
// at any time, including before the first log line.
var root atomic.Pointer[Logger]

func init() {
	l, _ := newLogger(Config{
		Environment: EnvironmentDevelopment,
		Level:       "debug",
		Outputs:     []string{"stderr"},
	})
	root.Store(l)
}

// Init the logger with defined level. Outputs defines the outputs where the
// logs will be sent. By default outputs contains "stdout", which prints the
// logs at the output of the process. To add a log file as output, the path
// of the file should be added as output. A file can't be used as output if
// it doesn't exist or if it has bad permissions.
func Init(cfg Config) {
	l, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	root.Store(l)
}

func newLogger(cfg Config) (*Logger, error) {
	var level zap.AtomicLevel
	err := level.UnmarshalText([]byte(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("error on setting log level: %s", err)
	}

	var zapCfg zap.Config
	switch cfg.Environment {
	case EnvironmentProduction:
		zapCfg = zap.NewProductionConfig()
	default:
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = level
	zapCfg.OutputPaths = cfg.Outputs
	zapCfg.InitialFields = map[string]interface{}{
		"pid":      os.Getpid(),
		"hostname": hostname(),
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync() //nolint:errcheck

	// skip 2 callers: one for our wrapper methods and one for the package functions
	withOptions := logger.WithOptions(zap.AddCallerSkip(2)) //nolint:gomnd
	return &Logger{x: withOptions.Sugar()}, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return strings.Split(h, ".")[0]
}

// WithFields returns a new Logger (derived from the root one) with additional
// fields as per keyValuePairs. The root Logger instance is not affected.
func WithFields(keyValuePairs ...interface{}) *Logger {
	return root.Load().WithFields(keyValuePairs...)
}

// WithFields returns a new Logger with additional fields as per keyValuePairs.
// The original Logger instance is not affected.
func (l *Logger) WithFields(keyValuePairs ...interface{}) *Logger {
	return &Logger{x: l.x.With(keyValuePairs...)}
}

// Debug calls log.Debug on the root Logger.
func Debug(args ...interface{}) { root.Load().x.Debug(args...) }

// Info calls log.Info on the root Logger.
func Info(args ...interface{}) { root.Load().x.Info(args...) }

// Warn calls log.Warn on the root Logger.
func Warn(args ...interface{}) { root.Load().x.Warn(args...) }

// Error calls log.Error on the root Logger.
func Error(args ...interface{}) { root.Load().x.Error(args...) }

// Fatal calls log.Fatal on the root Logger.
func Fatal(args ...interface{}) { root.Load().x.Fatal(args...) }

// Debugf calls log.Debugf on the root Logger.
func Debugf(template string, args ...interface{}) { root.Load().x.Debugf(template, args...) }

// Infof calls log.Infof on the root Logger.
func Infof(template string, args ...interface{}) { root.Load().x.Infof(template, args...) }

// Warnf calls log.Warnf on the root Logger.
func Warnf(template string, args ...interface{}) { root.Load().x.Warnf(template, args...) }

// Errorf calls log.Errorf on the root Logger.
func Errorf(template string, args ...interface{}) { root.Load().x.Errorf(template, args...) }

// Fatalf calls log.Fatalf on the root Logger.
func Fatalf(template string, args ...interface{}) { root.Load().x.Fatalf(template, args...) }

// Debug calls log.Debug on the Logger.
func (l *Logger) Debug(args ...interface{}) { l.x.Debug(args...) }

// Info calls log.Info on the Logger.
func (l *Logger) Info(args ...interface{}) { l.x.Info(args...) }

// Warn calls log.Warn on the Logger.
func (l *Logger) Warn(args ...interface{}) { l.x.Warn(args...) }

// Error calls log.Error on the Logger.
func (l *Logger) Error(args ...interface{}) { l.x.Error(args...) }

// Debugf calls log.Debugf on the Logger.
func (l *Logger) Debugf(template string, args ...interface{}) { l.x.Debugf(template, args...) }

// Infof calls log.Infof on the Logger.
func (l *Logger) Infof(template string, args ...interface{}) { l.x.Infof(template, args...) }

// Warnf calls log.Warnf on the Logger.
func (l *Logger) Warnf(template string, args ...interface{}) { l.x.Warnf(template, args...) }

// Errorf calls log.Errorf on the Logger.
func (l *Logger) Errorf(template string, args ...interface{}) { l.x.Errorf(template, args...) }
