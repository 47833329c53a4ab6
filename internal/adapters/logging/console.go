package logging

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// ConsoleLogger writes structured entries to the console through zap,
// optionally mirroring them as JSON into a rotated log file.
type ConsoleLogger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
	file  *lumberjack.Logger
}

type consoleConfig struct {
	out          io.Writer
	level        ports.Level
	jsonFormat   bool
	includeTime  bool
	includeLevel bool
	file         *lumberjack.Logger
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*consoleConfig)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(c *consoleConfig) {
		c.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(c *consoleConfig) {
		c.level = level
	}
}

// WithJSONFormat enables JSON output format.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(c *consoleConfig) {
		c.jsonFormat = enabled
	}
}

// WithTimestamp includes timestamp in log entries.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(c *consoleConfig) {
		c.includeTime = enabled
	}
}

// WithLevelLabel includes level label in log entries.
func WithLevelLabel(enabled bool) ConsoleLoggerOption {
	return func(c *consoleConfig) {
		c.includeLevel = enabled
	}
}

// WithFile mirrors every entry at debug level and above into path as JSON.
// The file is rotated at 10 MB and three backups are kept.
func WithFile(path string) ConsoleLoggerOption {
	return func(c *consoleConfig) {
		if path == "" {
			c.file = nil
			return
		}
		c.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	cfg := consoleConfig{
		out:          os.Stderr,
		level:        ports.LevelInfo,
		includeTime:  true,
		includeLevel: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	atomic := zap.NewAtomicLevelAt(toZapLevel(cfg.level))

	var consoleEncoder zapcore.Encoder
	if cfg.jsonFormat {
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig(cfg, "time", zapcore.ISO8601TimeEncoder, zapcore.LowercaseLevelEncoder))
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConfig(cfg, "time", zapcore.TimeEncoderOfLayout("15:04:05"), zapcore.CapitalLevelEncoder))
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(cfg.out), atomic),
	}

	if cfg.file != nil {
		fileEncoderCfg := zap.NewProductionEncoderConfig()
		fileEncoderCfg.TimeKey = "time"
		fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		fileLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.DebugLevel
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderCfg), zapcore.AddSync(cfg.file), fileLevel))
	}

	return &ConsoleLogger{
		zl:    zap.New(zapcore.NewTee(cores...)),
		level: atomic,
		file:  cfg.file,
	}
}

func encoderConfig(cfg consoleConfig, timeKey string, encodeTime zapcore.TimeEncoder, encodeLevel zapcore.LevelEncoder) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.MessageKey = "msg"
	ec.CallerKey = zapcore.OmitKey
	ec.StacktraceKey = zapcore.OmitKey
	ec.TimeKey = zapcore.OmitKey
	ec.LevelKey = zapcore.OmitKey
	if cfg.includeTime {
		ec.TimeKey = timeKey
		ec.EncodeTime = encodeTime
	}
	if cfg.includeLevel {
		ec.LevelKey = "level"
		ec.EncodeLevel = encodeLevel
	}
	return ec
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.zl.Debug(msg, toZapFields(fields)...)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.zl.Info(msg, toZapFields(fields)...)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.zl.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.zl.Error(msg, toZapFields(fields)...)
}

// With returns a new logger with additional fields.
// The child shares the parent's level and file sink.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	return &ConsoleLogger{
		zl:    l.zl.With(toZapFields(fields)...),
		level: l.level,
		file:  l.file,
	}
}

// Level returns the minimum console log level.
func (l *ConsoleLogger) Level() ports.Level {
	return fromZapLevel(l.level.Level())
}

// SetLevel sets the minimum console log level.
func (l *ConsoleLogger) SetLevel(level ports.Level) {
	l.level.SetLevel(toZapLevel(level))
}

// Sync flushes buffered entries.
func (l *ConsoleLogger) Sync() error {
	return l.zl.Sync()
}

// Close flushes and releases the log file, if any.
func (l *ConsoleLogger) Close() error {
	_ = l.zl.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func toZapFields(fields []ports.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.NamedError(f.Key, err))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func toZapLevel(level ports.Level) zapcore.Level {
	switch level {
	case ports.LevelDebug:
		return zapcore.DebugLevel
	case ports.LevelWarn:
		return zapcore.WarnLevel
	case ports.LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func fromZapLevel(level zapcore.Level) ports.Level {
	switch {
	case level <= zapcore.DebugLevel:
		return ports.LevelDebug
	case level == zapcore.InfoLevel:
		return ports.LevelInfo
	case level == zapcore.WarnLevel:
		return ports.LevelWarn
	default:
		return ports.LevelError
	}
}

// Ensure ConsoleLogger implements Logger.
var _ ports.Logger = (*ConsoleLogger)(nil)
