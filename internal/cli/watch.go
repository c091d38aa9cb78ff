package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rgbctl/internal/config"
	"rgbctl/internal/console"
	"rgbctl/internal/eventstream"
	"rgbctl/internal/linesensor"
	"rgbctl/pkg/types"
)

func (a *app) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Stream device events to the terminal until interrupted",
		Example: "  rgbctl watch --device 192.168.4.1\n  rgbctl watch --device led.local --targets console --metrics-addr :9100",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			device := stringFlag(cmd, "device", a.cfg.Device)
			base, err := config.StreamURL(device)
			if err != nil {
				return err
			}
			opts := watchOptions{
				URL:         base,
				Targets:     listFlag(cmd, "targets", a.cfg.Targets),
				Floor:       durationFlag(cmd, "backoff-floor", a.cfg.BackoffFloor.Duration),
				Ceiling:     durationFlag(cmd, "backoff-ceiling", a.cfg.BackoffCeiling.Duration),
				DialTimeout: durationFlag(cmd, "dial-timeout", a.cfg.DialTimeout.Duration),
				MetricsAddr: stringFlag(cmd, "metrics-addr", a.cfg.MetricsAddr),
				ConsoleLog:  stringFlag(cmd, "console-log", a.cfg.ConsoleLog),
			}
			return runWatch(cmd.Context(), opts, a.out, a.log)
		},
	}
	cmd.Flags().String("device", envStr("RGBCTL_DEVICE", ""), "Device host[:port] or stream URL (defaults RGBCTL_DEVICE)")
	cmd.Flags().String("targets", envStr("RGBCTL_TARGETS", "console,line_sensor"), "Comma separated event names to subscribe to")
	cmd.Flags().Duration("backoff-floor", envDuration("RGBCTL_BACKOFF_FLOOR", time.Second), "First reconnect delay")
	cmd.Flags().Duration("backoff-ceiling", envDuration("RGBCTL_BACKOFF_CEILING", 30*time.Second), "Largest reconnect delay")
	cmd.Flags().Duration("dial-timeout", envDuration("RGBCTL_DIAL_TIMEOUT", 5*time.Second), "Connect and response-header timeout per attempt")
	cmd.Flags().String("metrics-addr", envStr("RGBCTL_METRICS_ADDR", ""), "Serve Prometheus /metrics on this address when set")
	cmd.Flags().String("console-log", envStr("RGBCTL_CONSOLE_LOG", ""), "Write the console history to this file on exit")
	return cmd
}

type watchOptions struct {
	URL         string
	Targets     []string
	Floor       time.Duration
	Ceiling     time.Duration
	DialTimeout time.Duration
	MetricsAddr string
	ConsoleLog  string
}

// runWatch streams until ctx is done, then disconnects and writes the
// console history if requested.
func runWatch(ctx context.Context, opts watchOptions, out io.Writer, log zerolog.Logger) error {
	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(opts.MetricsAddr, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	client := eventstream.New(eventstream.Config{
		URL:            opts.URL,
		BackoffFloor:   opts.Floor,
		BackoffCeiling: opts.Ceiling,
	},
		eventstream.WithLogger(log),
		eventstream.WithHTTPClient(streamHTTPClient(opts.DialTimeout)),
	)
	defer client.Close()

	client.OnStatusChange(func(s eventstream.Status) {
		ev := log.Info()
		if s == eventstream.StatusError {
			ev = log.Warn().AnErr("cause", client.LastError())
			if d, ok := client.PendingRetry(); ok {
				ev = ev.Dur("retry_in", d)
			}
		}
		ev.Str("status", string(s)).Str("target", client.Target()).Msg("stream status")
	})

	// Handlers all run on the client's dispatch goroutine, so they share out
	// without locking.
	sink := console.New(out)
	for _, name := range opts.Targets {
		switch name {
		case types.TargetConsole:
			client.Subscribe(name, func(p eventstream.Payload) { sink.Handle(p) })
		case types.TargetLineSensor:
			client.Subscribe(name, lineSensorHandler(out, log))
		default:
			client.Subscribe(name, rawHandler(name, out))
		}
	}

	client.Connect()
	<-ctx.Done()
	client.Disconnect()

	if opts.ConsoleLog != "" {
		if err := writeConsoleLog(opts.ConsoleLog, sink); err != nil {
			return err
		}
		log.Info().Str("path", opts.ConsoleLog).Int("lines", len(sink.Lines())).Msg("console log written")
	}
	return nil
}

func lineSensorHandler(out io.Writer, log zerolog.Logger) eventstream.Handler {
	return func(p eventstream.Payload) {
		f, err := linesensor.Decode(p)
		if err != nil {
			log.Debug().Err(err).Msg("line_sensor payload skipped")
			return
		}
		fmt.Fprintf(out, "[%s] %s\n", f.Source, f)
	}
}

func rawHandler(name string, out io.Writer) eventstream.Handler {
	return func(p eventstream.Payload) {
		b, err := json.Marshal(p)
		if err != nil {
			return
		}
		fmt.Fprintf(out, "%s %s\n", name, b)
	}
}

// streamHTTPClient bounds connection setup without limiting the stream's
// lifetime.
func streamHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return &http.Client{}
	}
	return &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		ResponseHeaderTimeout: timeout,
		TLSHandshakeTimeout:   timeout,
	}}
}

func serveMetrics(addr string, log zerolog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}
	r := chi.NewRouter()
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("metrics listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func writeConsoleLog(path string, sink *console.Sink) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("console log: %w", err)
	}
	if err := sink.Dump(f); err != nil {
		f.Close()
		return fmt.Errorf("console log: %w", err)
	}
	return f.Close()
}
