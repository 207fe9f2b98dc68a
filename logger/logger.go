// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel maps a LOG_LEVEL value to a LogLevel. Unknown values fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type Logger struct {
	debugLogger        *log.Logger
	infoLogger         *log.Logger
	warnLogger         *log.Logger
	errorLogger        *log.Logger
	debugLoggerNoColor *log.Logger
	infoLoggerNoColor  *log.Logger
	warnLoggerNoColor  *log.Logger
	errorLoggerNoColor *log.Logger
	file               *os.File
	consoleOutput      io.Writer
	fileOutput         io.Writer
	minLevel           LogLevel
}

var (
	defaultLogger *Logger
	mu            sync.Mutex
)

// ensureInitialized creates a default logger if one doesn't exist
func ensureInitialized() {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger != nil {
		return
	}
	defaultLogger = &Logger{
		consoleOutput: os.Stdout,
		minLevel:      INFO,
	}
	defaultLogger.setupLoggers()
}

// Init initializes the logger with optional file and console output.
// If filename is empty, logs only to console. If console is false, logs only to file.
// Lambda collects stdout, so console output is the normal deployment mode.
func Init(filename string, console bool, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
	}

	l := &Logger{minLevel: level}

	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		l.fileOutput = file
	}

	if console {
		l.consoleOutput = os.Stdout
	}

	if l.fileOutput == nil && l.consoleOutput == nil {
		return fmt.Errorf("no output destination specified")
	}

	l.setupLoggers()
	defaultLogger = l
	return nil
}

// SetOutput routes all levels, uncolored, to w. Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.consoleOutput = nil
	defaultLogger.fileOutput = w
	defaultLogger.setupLoggers()
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

func (l *Logger) setupLoggers() {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC | log.Lshortfile

	l.debugLogger, l.infoLogger, l.warnLogger, l.errorLogger = nil, nil, nil, nil
	if l.consoleOutput != nil {
		l.debugLogger = log.New(l.consoleOutput, colorGray+"[DEBUG] "+colorReset, flags)
		l.infoLogger = log.New(l.consoleOutput, colorReset+"[INFO]  "+colorReset, flags)
		l.warnLogger = log.New(l.consoleOutput, colorYellow+"[WARN]  "+colorReset, flags)
		l.errorLogger = log.New(l.consoleOutput, colorRed+"[ERROR] "+colorReset, flags)
	}

	l.debugLoggerNoColor, l.infoLoggerNoColor, l.warnLoggerNoColor, l.errorLoggerNoColor = nil, nil, nil, nil
	if l.fileOutput != nil {
		l.debugLoggerNoColor = log.New(l.fileOutput, "[DEBUG] ", flags)
		l.infoLoggerNoColor = log.New(l.fileOutput, "[INFO]  ", flags)
		l.warnLoggerNoColor = log.New(l.fileOutput, "[WARN]  ", flags)
		l.errorLoggerNoColor = log.New(l.fileOutput, "[ERROR] ", flags)
	}
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.fileOutput = nil
		defaultLogger.setupLoggers()
	}
}

func (l *Logger) output(level LogLevel, colorLogger, noColorLogger *log.Logger, msg string) {
	if level < l.minLevel {
		return
	}
	if colorLogger != nil {
		colorLogger.Output(4, msg)
	}
	if noColorLogger != nil {
		noColorLogger.Output(4, msg)
	}
}

func emit(level LogLevel, msg string) {
	ensureInitialized()
	mu.Lock()
	l := defaultLogger
	mu.Unlock()

	switch level {
	case DEBUG:
		l.output(level, l.debugLogger, l.debugLoggerNoColor, msg)
	case INFO:
		l.output(level, l.infoLogger, l.infoLoggerNoColor, msg)
	case WARN:
		l.output(level, l.warnLogger, l.warnLoggerNoColor, msg)
	default:
		l.output(level, l.errorLogger, l.errorLoggerNoColor, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { emit(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { emit(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { emit(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { emit(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { emit(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { emit(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { emit(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { emit(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	emit(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	emit(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
