// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the logger.
type Options struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string

	// File is the log file path. Rotated by size.
	File string

	MaxSizeMB  int // default 10
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Writer replaces the rotating file when set.
	Writer io.Writer
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger is a zap logger that owns its output file.
type Logger struct {
	*zap.Logger
	rotator *lumberjack.Logger
}

// New builds a JSON logger from opts.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	l := &Logger{}
	var sink zapcore.WriteSyncer
	switch {
	case opts.Writer != nil:
		sink = zapcore.AddSync(opts.Writer)
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		l.rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize, // megabytes
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays, // days
			LocalTime:  true,
			Compress:   opts.Compress,
		}
		sink = zapcore.AddSync(l.rotator)
	default:
		return Nop(), nil
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(sink), level)
	l.Logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Named returns a child logger tagged with module.
func (l *Logger) Named(module string) *zap.Logger {
	return l.Logger.Named(module).With(zap.String("module", module))
}

// Close flushes buffered entries and closes the log file. Both steps run
// even when the first fails.
func (l *Logger) Close() error {
	err := l.Logger.Sync()
	if l.rotator != nil {
		err = multierr.Append(err, l.rotator.Close())
	}
	return err
}

// =============================================================================
// GLOBAL LOGGER
// =============================================================================

var (
	globalMu sync.RWMutex
	global   = Nop()
)

// SetGlobal installs l as the process logger. Nil restores the no-op logger.
func SetGlobal(l *Logger) {
	if l == nil {
		l = Nop()
	}
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

// L returns the process logger.
func L() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Named returns a child of the process logger tagged with module.
func Named(module string) *zap.Logger {
	return L().Named(module)
}
