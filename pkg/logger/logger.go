package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	appLogger *log.Logger
)

// Init initializes the file-based logging system
// Logs are written to stdout and a rotated app-<date>.log file in logDir
func Init(logDir string) error {
	absLogDir, err := filepath.Abs(logDir)
	if err != nil {
		absLogDir = logDir
	}

	if err := os.MkdirAll(absLogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", absLogDir, err)
	}

	currentDate := time.Now().Format("2006-01-02")

	appLogFile := &lumberjack.Logger{
		Filename:   filepath.Join(absLogDir, fmt.Sprintf("app-%s.log", currentDate)),
		MaxSize:    10, // MB
		MaxBackups: 30,
		MaxAge:     30, // days
		Compress:   true,
		LocalTime:  true,
	}

	out := io.MultiWriter(os.Stdout, appLogFile)
	appLogger = log.New(out, "", log.LstdFlags)

	// gorm and gin write through the default logger
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags)

	appLogger.Printf("[INFO] Logger initialized, log directory: %s", absLogDir)
	return nil
}

// Info logs info level messages
func Info(format string, v ...interface{}) {
	output("[INFO] "+format, v...)
}

// Warn logs warning level messages
func Warn(format string, v ...interface{}) {
	output("[WARN] "+format, v...)
}

// Error logs error level messages
func Error(format string, v ...interface{}) {
	output("[ERROR] "+format, v...)
}

// Debug logs debug level messages
func Debug(format string, v ...interface{}) {
	output("[DEBUG] "+format, v...)
}

func output(format string, v ...interface{}) {
	if appLogger != nil {
		appLogger.Printf(format, v...)
	} else {
		log.Printf(format, v...)
	}
}
