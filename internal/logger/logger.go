// Package logger builds the service's logrus logger from configuration.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/apoyet/cl2pd/internal/config"
)

// New returns a logger configured from cfg.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	l := logrus.New()
	if err := Configure(l, cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// Configure applies level, format and output to l. An empty file or
// "stdout" writes to standard output, "stderr" to standard error; any
// other value is a path rotated by size.
func Configure(l *logrus.Logger, cfg config.LoggingConfig) error {
	level := strings.ToLower(cfg.Level)
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	l.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "json", "":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	l.SetOutput(output(cfg))
	return nil
}

func output(cfg config.LoggingConfig) io.Writer {
	switch cfg.File {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		return &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
}
