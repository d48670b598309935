package logger

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ********************************************************
// ********* LOGGING **************************************
// ********************************************************

const logFilePath = "/tmp/valuebet.log"

var (
	mu           sync.RWMutex
	base         *zap.Logger
	atomicLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	showDateTime bool
	outputType   = 'c'
	development  = true
	logFile      *os.File
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	INFORM
	HIGHLIGHT
	WARN
	ERROR
	FATAL
)

func init() {
	rebuild()
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case INFORM:
		return "INFORM"
	case HIGHLIGHT:
		return "HIGHLIGHT"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// zapLevel maps our levels onto zap's. INFORM and HIGHLIGHT are info lines with a tag.
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel sets the minimum level written
func SetLevel(level LogLevel) {
	atomicLevel.SetLevel(level.zapLevel())
}

// SetDevelopment switches between the console encoder (true) and JSON (false)
func SetDevelopment(value bool) {
	mu.Lock()
	development = value
	mu.Unlock()
	rebuild()
}

func SetShowDateTime(value bool) {
	mu.Lock()
	showDateTime = value
	mu.Unlock()
	rebuild()
}

// SetLogOutput sets the output destination for logs
// 'c' for console, 'f' for file, 'b' for both
func SetLogOutput(t rune) {
	switch t {
	case 'c', 'f', 'b':
	default:
		fmt.Fprintf(os.Stderr, "Invalid log output type: %c\n", t)
		os.Exit(1)
	}
	mu.Lock()
	outputType = t
	mu.Unlock()
	rebuild()
}

func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var encCfg zapcore.EncoderConfig
	if development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if !showDateTime {
		encCfg.TimeKey = ""
	}
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if development {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var sinks []zapcore.WriteSyncer
	if outputType == 'c' || outputType == 'b' {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}
	if outputType == 'f' || outputType == 'b' {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			sinks = append(sinks, zapcore.Lock(os.Stderr))
		} else {
			logFile = f
			sinks = append(sinks, zapcore.AddSync(f))
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), atomicLevel)
	base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))
}

// L returns the underlying zap logger for callers that want structured fields
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithOptions(zap.AddCallerSkip(-2))
}

// Sync flushes any buffered entries
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

func log(level LogLevel, format string, v ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()

	msg, fields := processArgs(format, v...)
	switch level {
	case INFORM, HIGHLIGHT:
		fields = append(fields, zap.String("tag", strings.ToLower(level.String())))
	}
	if ce := l.Check(level.zapLevel(), msg); ce != nil {
		ce.Write(fields...)
	}
}

// processArgs appends primitive arguments to the message and turns anything else into a structured field
func processArgs(format string, args ...any) (string, []zap.Field) {
	if len(args) == 0 {
		return format, nil
	}

	var primitives []string
	var fields []zap.Field

	for i, arg := range args {
		if isPrimitive(arg) {
			switch v := arg.(type) {
			case float32:
				primitives = append(primitives, fmt.Sprintf("%.2f", v))
			case float64:
				primitives = append(primitives, fmt.Sprintf("%.2f", v))
			case error:
				primitives = append(primitives, v.Error())
			case nil:
				primitives = append(primitives, "nil")
			default:
				primitives = append(primitives, fmt.Sprintf("%v", v))
			}
			continue
		}
		primitives = append(primitives, fmt.Sprintf("[Object of type %s]", reflect.TypeOf(arg)))
		fields = append(fields, zap.Any(fmt.Sprintf("arg%d", i), arg))
	}
	return format + " " + strings.Join(primitives, " "), fields
}

// isPrimitive checks if a value is a primitive type
func isPrimitive(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, error:
		return true
	default:
		return false
	}
}

// Convenience methods using the default logger
func Debug(format string, v ...any) {
	log(DEBUG, format, v...)
}

func Info(format string, v ...any) {
	log(INFO, format, v...)
}

func Inform(format string, v ...any) {
	log(INFORM, format, v...)
}

func Highlight(format string, v ...any) {
	log(HIGHLIGHT, format, v...)
}

func Warn(format string, v ...any) {
	log(WARN, format, v...)
}

func Error(format string, v ...any) {
	log(ERROR, format, v...)
}

func Fatal(format string, v ...any) {
	log(FATAL, format, v...)
	os.Exit(1)
}
