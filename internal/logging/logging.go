// Package logging builds the zap logger shared by the store, the watcher and
// the chat client.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination.
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "console" or "json"
	File   string `koanf:"file"`   // empty means stderr
}

// Validate rejects unknown levels and formats.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(levelOrDefault(c.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch strings.ToLower(c.Format) {
	case "", "console", "json":
		return nil
	}
	return fmt.Errorf("log format %q: want console or json", c.Format)
}

// New builds a logger from cfg. The returned func syncs the logger and
// closes the log file, if there is one; call it once when done.
func New(cfg Config) (*zap.Logger, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level, _ := zapcore.ParseLevel(levelOrDefault(cfg.Level))

	var out zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	closeOut := func() {}
	if cfg.File != "" {
		ws, closeFile, err := zap.Open(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closeOut = ws, closeFile
	}

	log := zap.New(zapcore.NewCore(newEncoder(cfg.Format), out, zap.NewAtomicLevelAt(level)))
	return log, func() {
		_ = log.Sync()
		closeOut()
	}, nil
}

// NewForTerminalUI is New, except that without a log file nothing is written:
// the full-screen UI owns the terminal.
func NewForTerminalUI(cfg Config) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		return zap.NewNop(), func() {}, nil
	}
	return New(cfg)
}

func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if strings.ToLower(format) == "json" {
		return zapcore.NewJSONEncoder(encoderCfg)
	}
	return zapcore.NewConsoleEncoder(encoderCfg)
}

func levelOrDefault(l string) string {
	if l == "" {
		return "info"
	}
	return l
}
