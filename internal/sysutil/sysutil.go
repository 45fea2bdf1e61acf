// Package sysutil holds process bootstrap helpers shared by the server
// entrypoint: .env loading and global zerolog setup.
package sysutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoadEnvFiles loads each existing file into the process environment without
// overriding variables that are already set. Missing files are skipped; it
// returns the files that were loaded.
func LoadEnvFiles(files ...string) ([]string, error) {
	var loaded []string
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, err
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// LogOptions configures ConfigureLogging.
type LogOptions struct {
	Level   string
	Pretty  bool // human-readable console output for local development
	Service string
	Version string
	Out     io.Writer // defaults to os.Stdout
}

// ConfigureLogging installs the global logger: level, RFC3339 UTC timestamps
// and service/version fields on every line.
func ConfigureLogging(o LogOptions) {
	SetLogLevel(o.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	lc := zerolog.New(out).With().Timestamp()
	if o.Service != "" {
		lc = lc.Str("service", o.Service)
	}
	if o.Version != "" {
		lc = lc.Str("version", o.Version)
	}
	log.Logger = lc.Logger()
}

// FirstNonEmpty returns the first non-blank string from a variadic list.
// If all values are blank, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
