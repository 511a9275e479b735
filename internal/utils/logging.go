package utils

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	zeroLogger      *zerolog.Logger
	zeroLoggerLevel = zerolog.InfoLevel
	zeroLoggerFile  io.Writer
	zeroLoggerLock  sync.Mutex
)

// verbosity to zerolog level, 0=silent .. 5=trace
var verbosityLevels = []zerolog.Level{
	zerolog.Disabled,
	zerolog.ErrorLevel,
	zerolog.WarnLevel,
	zerolog.InfoLevel,
	zerolog.DebugLevel,
	zerolog.TraceLevel,
}

// SetLogVerbosity sets the verbosity of the global logger.
// 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace
func SetLogVerbosity(verbosity int) {
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity >= len(verbosityLevels) {
		verbosity = len(verbosityLevels) - 1
	}
	zeroLoggerLock.Lock()
	defer zeroLoggerLock.Unlock()
	zeroLoggerLevel = verbosityLevels[verbosity]
	if zeroLogger != nil {
		logger := zeroLogger.Level(zeroLoggerLevel)
		zeroLogger = &logger
	}
}

// AddLogFile makes the global logger also write into a rotating log file.
// maxSize is in megabytes.
func AddLogFile(filePath string, maxSize int) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "cannot create log folder for %s", filePath)
	}
	zeroLoggerLock.Lock()
	zeroLoggerFile = &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSize,
		MaxBackups: 10,
		MaxAge:     28,
		Compress:   true,
	}
	zeroLogger = nil
	zeroLoggerLock.Unlock()
	return nil
}

// Logger returns the process wide zerolog logger.
func Logger() *zerolog.Logger {
	zeroLoggerLock.Lock()
	defer zeroLoggerLock.Unlock()
	if zeroLogger == nil {
		var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
		if zeroLoggerFile != nil {
			out = zerolog.MultiLevelWriter(out, zeroLoggerFile)
		}
		logger := zerolog.New(out).
			Level(zeroLoggerLevel).
			With().
			Timestamp().
			Logger()
		zeroLogger = &logger
	}
	return zeroLogger
}

// GetLogger returns a sub logger tagged with the given module name.
func GetLogger(module string) zerolog.Logger {
	return Logger().With().Str("module", module).Logger()
}
