package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to INFO for unknown values.
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a leveled, structured logger backed by zap. Message formatting is
// printf-style; key-value context is attached with With.
type Logger struct {
	sugar      *zap.SugaredLogger
	level      LogLevel
	jsonFormat bool
	out        zapcore.WriteSyncer
}

// Options configures optional logger behavior.
type Options struct {
	// JSONFormat emits JSON records instead of console output.
	JSONFormat bool
	// FilePath, when set, also writes to a size-rotated log file.
	FilePath string
}

// NewLogger creates a logger at the given level ("debug", "info", "warning",
// "error", "fatal"). Unknown levels fall back to info.
func NewLogger(level string) *Logger {
	return NewLoggerWithOptions(level, Options{})
}

// NewLoggerWithOptions creates a logger with explicit output options.
func NewLoggerWithOptions(level string, opts Options) *Logger {
	l := &Logger{
		level:      ParseLevel(level),
		jsonFormat: opts.JSONFormat,
		out:        zapcore.Lock(os.Stderr),
	}
	if opts.FilePath != "" {
		rotated := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
		})
		l.out = zapcore.NewMultiWriteSyncer(l.out, rotated)
	}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if l.jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, l.out, l.level.zapLevel())
	l.sugar = zap.New(core).Sugar()
}

// SetOutput redirects log output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = zapcore.AddSync(w)
	l.rebuild()
}

// SetJSONFormat switches between JSON and console encoding.
func (l *Logger) SetJSONFormat(enabled bool) {
	l.jsonFormat = enabled
	l.rebuild()
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(level string) {
	l.level = ParseLevel(level)
	l.rebuild()
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	return l.level
}

// With returns a logger with additional key-value context attached to every
// record.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar:      l.sugar.With(keysAndValues...),
		level:      l.level,
		jsonFormat: l.jsonFormat,
		out:        l.out,
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// Sync flushes buffered records.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
