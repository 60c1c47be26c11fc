// Package poollog configures the package-level zerolog logger (level,
// console or JSON output, optional lumberjack rotation) and offers an
// Origin helper that tags a logger with a pool's origin. telemetry.LogSink,
// the fallback used when no telemetry.Sink is attached to a Pool, logs
// through it.
package poollog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how pool log lines are written. The zero value
// logs JSON to stdout at info level.
type Config struct {
	Level    string // debug, info, warn, error; default info
	Console  bool   // human-readable console writer instead of JSON
	FilePath string // when set, rotate logs through lumberjack
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup installs cfg as the global zerolog logger. Safe to call once at
// process startup; library code that never calls Setup still logs (to
// zerolog's default stderr writer, at zerolog's default level).
func Setup(cfg Config) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stdout
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}
	}
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		}
		w = io.MultiWriter(w, lj)
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// Origin returns a logger carrying the given origin identity, used for
// the origin-scoped idle-exceeded log lines telemetry.LogSink writes.
func Origin(origin string) zerolog.Logger {
	return log.With().Str("origin", origin).Logger()
}
