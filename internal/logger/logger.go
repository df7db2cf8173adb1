package logger

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with additional functionality
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Config contains logger configuration
type Config struct {
	Level  string
	Format string // json or console
	File   *FileConfig
}

// FileConfig contains file logging configuration
type FileConfig struct {
	Enabled bool
	Path    string
}

// New creates a new logger instance
func New(config Config) (*Logger, error) {
	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	if config.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if config.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
	}

	if config.File != nil && config.File.Enabled {
		file, err := os.OpenFile(config.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(file),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{Logger: logger, level: level}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the level of this logger and every logger derived from it
func (l *Logger) SetLevel(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	if parsed != l.level.Level() {
		l.level.SetLevel(parsed)
		l.Info("Log level changed", zap.String("level", level))
	}
	return nil
}

// Level returns the current level
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// WithRequestID adds a request ID to the logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID)), level: l.level}
}

// WithComponent adds a component name to the logger context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component)), level: l.level}
}

// LogRequest logs a completed HTTP request
func (l *Logger) LogRequest(method, path string, status, size int, duration time.Duration) {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", status),
		zap.Int("response_size", size),
		zap.Duration("duration", duration),
	}

	switch {
	case status >= 500:
		l.Error("HTTP request completed", fields...)
	case status >= 400:
		l.Warn("HTTP request completed", fields...)
	default:
		l.Info("HTTP request completed", fields...)
	}
}
