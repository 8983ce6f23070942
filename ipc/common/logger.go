package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Names of the loggers used across the module
const (
	LoggerIPC       = "ipc"
	LoggerClient    = "ipc/client"
	LoggerServer    = "ipc/server"
	LoggerTransport = "ipc/transport"
	LoggerCodec     = "ipc/codec"
	LoggerCLI       = "dipc"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// dIPCLogger implements the ILogger interface with custom formatting.
// The level may change while other goroutines log.
type dIPCLogger struct {
	name   string
	level  atomic.Int32
	logger *log.Logger
}

func (l *dIPCLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *dIPCLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *dIPCLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *dIPCLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *dIPCLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *dIPCLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

func (l *dIPCLogger) Panicf(format string, args ...interface{}) {
	if l.enabled(logger.CRITICAL) {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *dIPCLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements dragonboats logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	// Create standard logger with custom flags
	stdLogger := log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	l := &dIPCLogger{
		name:   pkgName,
		logger: stdLogger,
	}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

var factoryOnce sync.Once

// InitLoggers installs the custom logger factory and applies the configured level
// to all loggers of the module. A silent configuration only lets panics through.
func InitLoggers(config *Config) error {
	level, err := ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}
	if config.Silent {
		level = logger.CRITICAL
	}

	// Set as the global logger factory for Dragonboat
	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})

	for _, name := range []string{LoggerIPC, LoggerClient, LoggerServer, LoggerTransport, LoggerCodec, LoggerCLI} {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
