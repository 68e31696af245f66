// Package logging configures the process-wide logrus logger from
// environment variables at startup.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures Init. The zero value logs at info level, in text
// format, to stderr.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Init applies opts to logrus's standard logger.
func Init(opts Options) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if opts.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	logrus.SetOutput(output)
}

// FromEnv builds Options from PROXY_LOG_LEVEL ("debug"/"info"/"warn"/
// "error", default "info"), PROXY_LOG_FORMAT ("json"/"text", default
// "text"), and PROXY_LOG_OUTPUT ("stdout", "stderr", or a file path,
// default "stderr"). A file path that can't be opened for append
// returns an error.
func FromEnv() (Options, error) {
	opts := Options{
		Level:  envOrDefault("PROXY_LOG_LEVEL", "info"),
		Format: envOrDefault("PROXY_LOG_FORMAT", "text"),
	}

	switch dest := os.Getenv("PROXY_LOG_OUTPUT"); dest {
	case "", "stderr":
		opts.Output = os.Stderr
	case "stdout":
		opts.Output = os.Stdout
	default:
		f, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return Options{}, err
		}
		opts.Output = f
	}

	return opts, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
