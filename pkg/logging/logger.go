package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger

// InitLogging initializes logging. Output goes to stdout and, when logFile
// is non-empty, to an append-only file. The file is what the health monitor
// scans for its error-rate check, so the timestamp format here and the
// parsing in the monitor must stay in sync.
func InitLogging(logFile string) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.Errorf("Failed to open log file %s: %v", logFile, err)
			return
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}
}

func get() *logrus.Logger {
	if logger == nil {
		// Fallback for code paths that log before InitLogging runs (tests).
		logger = logrus.New()
	}
	return logger
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	get().Infof(format, v...)
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	get().Warnf(format, v...)
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	get().Errorf(format, v...)
}
