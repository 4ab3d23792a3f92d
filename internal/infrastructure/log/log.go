package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config installs the default JSON logger on stdout.
func Config(ctx context.Context, level string) error {
	return ConfigWriter(ctx, os.Stdout, level)
}

func ConfigWriter(ctx context.Context, w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return fmt.Errorf("ParseLevel: %w", err)
	}

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "level" {
				lowerCaseLevel := strings.ToLower(a.Value.String())

				return slog.Attr{
					Key:   "severity",
					Value: slog.StringValue(lowerCaseLevel),
				}
			}

			if a.Key == "msg" {
				return slog.Attr{
					Key:   "message",
					Value: a.Value,
				}
			}

			return a
		},
	})

	logger := slog.New(jsonHandler)
	slog.SetDefault(logger)

	slog.DebugContext(ctx, "logger configured", "level", lvl.String())
	return nil
}

func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", level, err)
	}

	return lvl, nil
}
