package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sensor_data_migrator/config"

	gormlogger "gorm.io/gorm/logger"
)

// LogLevel constants
const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
)

var levels = map[string]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

// Logger writes levelled lines to a log file and optionally the console
type Logger struct {
	infoLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	warnLogger  *log.Logger
	logFile     *os.File
	logLevel    string
}

var (
	stdMu sync.RWMutex
	std   = New(os.Stdout, INFO)
)

// New creates a logger that writes every level to w
func New(w io.Writer, level string) *Logger {
	return newLogger(w, w, level)
}

func newLogger(out, errOut io.Writer, level string) *Logger {
	return &Logger{
		infoLogger:  log.New(out, "", log.LstdFlags),
		errorLogger: log.New(errOut, "", log.LstdFlags),
		debugLogger: log.New(out, "", log.LstdFlags),
		warnLogger:  log.New(out, "", log.LstdFlags),
		logLevel:    level,
	}
}

// Open creates a logger from configuration. Output goes to the configured
// log file, and to the console as well when LogToConsole is set.
func Open(cfg *config.Config) (*Logger, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	logPath := cfg.Logging.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cwd, logPath)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	var out, errOut io.Writer = logFile, logFile
	if cfg.Logging.LogToConsole {
		out = io.MultiWriter(os.Stdout, logFile)
		errOut = io.MultiWriter(os.Stderr, logFile)
	}

	l := newLogger(out, errOut, cfg.Logging.LogLevel)
	l.logFile = logFile

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.Printf("=== Session started at %s ===\n", timestamp)
	l.Printf("Log file: %s\n", logPath)
	l.Printf("Log level: %s\n", l.logLevel)
	l.Printf("Log to console: %t\n", cfg.Logging.LogToConsole)
	l.LogDivider()

	return l, nil
}

// Init opens a logger from configuration and installs it as the default
func Init(cfg *config.Config) error {
	l, err := Open(cfg)
	if err != nil {
		return err
	}
	SetDefault(l)
	return nil
}

// SetDefault replaces the logger behind the package-level functions
func SetDefault(l *Logger) {
	stdMu.Lock()
	std = l
	stdMu.Unlock()
}

// Default returns the logger behind the package-level functions
func Default() *Logger {
	stdMu.RLock()
	defer stdMu.RUnlock()
	return std
}

// Close ends the session and closes the log file, if any
func (l *Logger) Close() error {
	if l.logFile == nil {
		return nil
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	l.LogDivider()
	l.Printf("=== Session ended at %s ===\n\n", timestamp)
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

// shouldLog determines if a message should be logged based on log level
func (l *Logger) shouldLog(messageLevel string) bool {
	currentLevel, exists := levels[l.logLevel]
	if !exists {
		currentLevel = levels[INFO] // Default to INFO if invalid level
	}

	messageLogLevel, exists := levels[messageLevel]
	if !exists {
		return true
	}

	return messageLogLevel >= currentLevel
}

// Printf prints formatted text to log (respects log level)
func (l *Logger) Printf(format string, v ...interface{}) {
	if l.shouldLog(INFO) {
		l.infoLogger.Printf(format, v...)
	}
}

// Println prints a line to log (respects log level)
func (l *Logger) Println(v ...interface{}) {
	if l.shouldLog(INFO) {
		l.infoLogger.Println(v...)
	}
}

// Debugf prints formatted debug text
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.debugLogger.Printf("DEBUG: "+format, v...)
	}
}

// Warnf prints formatted warning text
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.shouldLog(WARN) {
		l.warnLogger.Printf("WARN: "+format, v...)
	}
}

// Errorf prints formatted error text (always logged regardless of level)
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.errorLogger.Printf("ERROR: "+format, v...)
}

// LogDivider prints a divider line for better log organization
func (l *Logger) LogDivider() {
	l.Println("------------------------------------------------------------")
}

// LogResult logs a result with status
func (l *Logger) LogResult(operation string, success bool, details string) {
	status := "SUCCESS"
	mark := "✅"
	if !success {
		status = "FAILED"
		mark = "❌"
	}
	if details != "" {
		l.Printf("%s %s: %s - %s\n", mark, operation, status, details)
		return
	}
	l.Printf("%s %s: %s\n", mark, operation, status)
}

// LogProgress logs progress information
func (l *Logger) LogProgress(current, total int, item string) {
	l.Printf("Progress: [%d/%d] %s\n", current, total, item)
}

// FileName returns the current log file name
func (l *Logger) FileName() string {
	if l.logFile != nil {
		return l.logFile.Name()
	}
	return ""
}

// Gorm returns a gorm logger that writes SQL traces through l. Statements
// are only traced at debug level.
func (l *Logger) Gorm() gormlogger.Interface {
	level := gormlogger.Warn
	switch l.logLevel {
	case DEBUG:
		level = gormlogger.Info
	case ERROR:
		level = gormlogger.Error
	}
	return gormlogger.New(l, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Printf prints formatted text to the default log
func Printf(format string, v ...interface{}) { Default().Printf(format, v...) }

// Println prints a line to the default log
func Println(v ...interface{}) { Default().Println(v...) }

// Debugf prints formatted debug text to the default log
func Debugf(format string, v ...interface{}) { Default().Debugf(format, v...) }

// Warnf prints formatted warning text to the default log
func Warnf(format string, v ...interface{}) { Default().Warnf(format, v...) }

// Errorf prints formatted error text to the default log
func Errorf(format string, v ...interface{}) { Default().Errorf(format, v...) }

// LogDivider prints a divider line to the default log
func LogDivider() { Default().LogDivider() }

// Close closes the default log
func Close() error { return Default().Close() }

// Fatalf prints formatted fatal error and exits (always logged)
func Fatalf(format string, v ...interface{}) {
	l := Default()
	l.errorLogger.Printf("FATAL: "+format, v...)
	_ = l.Close()
	os.Exit(1)
}

// LogCommand logs the command being executed
func LogCommand(command string, args []string) {
	if len(args) > 1 {
		Printf("Command executed: %s %v\n", command, args[1:])
		return
	}
	Printf("Command executed: %s\n", command)
}
