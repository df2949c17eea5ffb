package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB   = 10
	maxArchives = 3
)

// file 是当前的滚动日志文件, 重新 Init 时关闭
var file *lumberjack.Logger

// Logger is the global logger instance
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(os.Stderr).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// Options controls Init.
type Options struct {
	Level  string
	Pretty bool
	// File 非空时每条日志也写入该文件, 按大小滚动
	File string
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init reconfigures the global logger.
func Init(opts Options) error {
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	var console io.Writer = os.Stderr
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	if file != nil {
		_ = file.Close()
		file = nil
	}

	out := console
	var fileErr error
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			fileErr = fmt.Errorf("open log file: %w", err)
		} else {
			file = &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    maxSizeMB,
				MaxBackups: maxArchives,
			}
			out = zerolog.MultiLevelWriter(console, file)
		}
	}

	Logger = zerolog.New(out).With().Timestamp().Logger()
	log.Logger = Logger
	return fileErr
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
