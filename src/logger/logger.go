package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var Logger zerolog.Logger
var logFile *os.File

// Options selects where and how logs are written. Out is the console sink:
// stderr in stream mode so stdout carries only protocol output, stdout when
// serving HTTP.
type Options struct {
	Level  string
	Pretty bool
	File   string
	Out    io.Writer
}

// New builds a logger from opts without touching the global one. The returned
// file, if any, must be closed by the caller.
func New(opts Options) (zerolog.Logger, zerolog.Level, *os.File) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	var file *os.File
	switch opts.File {
	case "", "none", "disabled":
	default:
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fallback := zerolog.New(out)
			fallback.Error().Err(err).Str("log_file", opts.File).Msg("Failed to open log file, using console only")
			file = nil
		} else {
			out = zerolog.MultiLevelWriter(out, file)
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), level, file
}

// InitLogger installs the logger built from opts as the global logger.
func InitLogger(opts Options) {
	var level zerolog.Level
	Logger, level, logFile = New(opts)
	zerolog.SetGlobalLevel(level)
	log.Logger = Logger

	if logFile != nil {
		Logger.Info().
			Str("log_file", opts.File).
			Str("log_level", level.String()).
			Msg("Logger initialized - writing to console and file")
	} else {
		Logger.Debug().
			Str("log_level", level.String()).
			Msg("Logger initialized - writing to console only")
	}
}

// Component returns a child of the global logger tagged with name.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

func CloseLogger() {
	if logFile != nil {
		_ = logFile.Sync()
		_ = logFile.Close()
		logFile = nil
	}
}

func GetLogger() zerolog.Logger {
	return Logger
}
