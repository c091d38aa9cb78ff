package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newLogger builds the root logger. format is "console" or "json".
func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = l
	}
	var out io.Writer
	switch strings.ToLower(format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	case "json":
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format: %s", format)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// splitCSV splits a comma separated list, trimming blanks and dropping empty
// entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Flag resolution: an explicit flag wins, then the config file value, then
// the flag default (which already reflects RGBCTL_* variables).

func stringFlag(cmd *cobra.Command, name, fileVal string) string {
	f := cmd.Flags().Lookup(name)
	if f.Changed || fileVal == "" {
		return f.Value.String()
	}
	return fileVal
}

func durationFlag(cmd *cobra.Command, name string, fileVal time.Duration) time.Duration {
	f := cmd.Flags().Lookup(name)
	if !f.Changed && fileVal != 0 {
		return fileVal
	}
	d, _ := cmd.Flags().GetDuration(name)
	return d
}

func floatFlag(cmd *cobra.Command, name string, fileVal float64) float64 {
	f := cmd.Flags().Lookup(name)
	if !f.Changed && fileVal != 0 {
		return fileVal
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}

func intFlag(cmd *cobra.Command, name string, fileVal int) int {
	f := cmd.Flags().Lookup(name)
	if !f.Changed && fileVal != 0 {
		return fileVal
	}
	v, _ := cmd.Flags().GetInt(name)
	return v
}

func listFlag(cmd *cobra.Command, name string, fileVal []string) []string {
	f := cmd.Flags().Lookup(name)
	if !f.Changed && len(fileVal) > 0 {
		return fileVal
	}
	return splitCSV(f.Value.String())
}
