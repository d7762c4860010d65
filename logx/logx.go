package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxAgeDays = 14
)

var (
	logger   = log.New(newLogWriter(), "", log.Ldate|log.Ltime|log.Lmicroseconds)
	minLevel = minLevelFromEnv()
)

// newLogWriter builds the rotating file sink, mirrored to stderr
// unless LOG_STDERR=0.
func newLogWriter() io.Writer {
	sink := &lumberjack.Logger{
		Filename: logFilename(),
		MaxSize:  envInt("LOGFILE_MAX_SIZE_MB", defaultMaxSizeMB), // megabytes
		MaxAge:   envInt("LOGFILE_MAX_AGE_DAYS", defaultMaxAgeDays), // days
	}
	if os.Getenv("LOG_STDERR") == "0" {
		return sink
	}
	return io.MultiWriter(sink, os.Stderr)
}

func logFilename() string {
	if name := os.Getenv("LOGFILE"); name != "" {
		return "./logs/" + name
	}
	return "./logs/mtl.log"
}

// envInt reads a positive integer from the environment, keeping the
// fallback on absent or malformed values.
func envInt(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func minLevelFromEnv() int {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func emit(level int, label, color, category string, content ...interface{}) {
	if level < minLevel {
		return
	}
	logger.Printf("%s[%s][%s]%s: %s", color, label, category, ColorReset, fmt.Sprint(content...))
}

func Debug(category string, content ...interface{}) {
	emit(LevelDebug, "DEBUG", ColorBlue, category, content...)
}

func Info(category string, content ...interface{}) {
	emit(LevelInfo, "INFO", ColorGreen, category, content...)
}

func Warn(category string, content ...interface{}) {
	emit(LevelWarn, "WARN", ColorYellow, category, content...)
}

func Error(category string, content ...interface{}) {
	emit(LevelError, "ERROR", ColorRed, category, content...)
}

// Errorf logs the formatted message at error level and returns it as
// an error, so call sites can log and propagate in one step.
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
