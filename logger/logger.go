// Copyright 2025 Andrei Grigoriu
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides component loggers that write to stdout, a shared
// flinkctl.log and a per-component <component>.log.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// Format represents the log output format
type Format string

const (
	FormatText Format = "text" // Human-readable text
	FormatJSON Format = "json" // JSON lines
)

const genericLogName = "flinkctl.log"

// Config holds logger configuration
type Config struct {
	LogDir    string // Base log directory (default: $FLINKCTL_LOG_DIR or ./logs)
	Format    Format // Output format (text or json)
	Debug     bool   // Enable debug logging
	ToConsole bool   // Log to the console
	Stderr    bool   // Console is stderr instead of stdout
	ToFile    bool   // Log to files under LogDir
	BufSize   int    // Async buffer size in entries (default: 1000)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LogDir:    getDefaultLogDir(),
		Format:    FormatText,
		Debug:     os.Getenv("FLINKCTL_DEBUG") == "true",
		ToConsole: true,
		ToFile:    true,
		BufSize:   1000,
	}
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text or json)", s)
	}
}

// Logger is a component logger. Writes are asynchronous; entries are
// dropped with a warning on stderr when the buffer is full.
type Logger struct {
	component string
	config    *Config

	componentFile *os.File // <component>.log
	out           diode.Writer
	zl            zerolog.Logger
	once          sync.Once
}

var (
	globalConfig     = DefaultConfig()
	genericLogFile   *os.File
	componentLoggers = make(map[string]*Logger)
	globalMu         sync.RWMutex
)

// SetGlobalConfig sets the configuration used by loggers created afterwards
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// NewComponent creates or retrieves a logger for a specific component
func NewComponent(component string) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if logger, exists := componentLoggers[component]; exists {
		return logger
	}

	cfg := globalConfig
	logger := &Logger{
		component: component,
		config:    cfg,
	}

	var sinks []io.Writer
	if cfg.ToConsole {
		if cfg.Stderr {
			sinks = append(sinks, os.Stderr)
		} else {
			sinks = append(sinks, os.Stdout)
		}
	}
	if cfg.ToFile {
		if err := initGenericLogFile(cfg.LogDir); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize generic log file: %v\n", err)
		} else {
			sinks = append(sinks, genericLogFile)
		}

		if err := logger.initComponentFile(); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize log file for %s: %v\n", component, err)
		} else {
			sinks = append(sinks, logger.componentFile)
		}
	}

	var w io.Writer = io.MultiWriter(sinks...)
	if cfg.Format != FormatJSON {
		w = newConsoleWriter(w)
	}

	bufSize := cfg.BufSize
	if bufSize <= 0 {
		bufSize = 1000
	}
	logger.out = diode.NewWriter(w, bufSize, 10*time.Millisecond, func(missed int) {
		fmt.Fprintf(os.Stderr, "WARNING: Log buffer full for component %s, dropped %d messages\n", component, missed)
	})

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger.zl = zerolog.New(logger.out).Level(level).With().Timestamp().Str("component", component).Logger()

	componentLoggers[component] = logger
	return logger
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("[%-5s]", strings.ToUpper(fmt.Sprint(i)))
		},
	}
}

// initGenericLogFile opens the shared log file (called with globalMu held)
func initGenericLogFile(logDir string) error {
	if genericLogFile != nil {
		return nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	file, err := os.OpenFile(filepath.Join(logDir, genericLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open generic log file: %w", err)
	}
	genericLogFile = file
	return nil
}

func (l *Logger) initComponentFile() error {
	if err := os.MkdirAll(l.config.LogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", l.config.LogDir, err)
	}

	componentPath := filepath.Join(l.config.LogDir, fmt.Sprintf("%s.log", l.component))
	file, err := os.OpenFile(componentPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open component log file: %w", err)
	}
	l.componentFile = file
	return nil
}

// Component returns the component name
func (l *Logger) Component() string { return l.component }

// Zerolog exposes the underlying logger for structured fields
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zl }

func (l *Logger) Infof(format string, args ...interface{})  { l.zl.Info().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.zl.Error().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.zl.Warn().Msgf(format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.zl.Debug().Msgf(format, args...) }

// Close flushes pending entries and closes the component file.
// The shared file stays open until CloseAll.
func (l *Logger) Close() error {
	var closeErr error
	l.once.Do(func() {
		if err := l.out.Close(); err != nil {
			closeErr = err
		}

		if l.componentFile != nil {
			if err := l.componentFile.Close(); err != nil && closeErr == nil {
				closeErr = err
			}
		}
	})
	return closeErr
}

// CloseAll closes all component loggers and the generic log file.
// Returns the first error encountered, but attempts to close all loggers.
func CloseAll() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	var firstErr error

	for _, logger := range componentLoggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if genericLogFile != nil {
		if err := genericLogFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		genericLogFile = nil
	}

	componentLoggers = make(map[string]*Logger)

	return firstErr
}

func getDefaultLogDir() string {
	if dir := os.Getenv("FLINKCTL_LOG_DIR"); dir != "" {
		return dir
	}
	return "logs"
}
