// Package logging configures the standard logger.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log file
const (
	MaxSizeMB  = 50
	MaxBackups = 5
	MaxAgeDays = 28
)

// Setup points the standard logger at stderr and, when path is set, a rotating
// file. The returned closer must be closed on shutdown.
func Setup(path string) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if path == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return rotator
}
