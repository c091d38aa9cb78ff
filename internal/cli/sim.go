package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rgbctl/internal/devsim"
	"rgbctl/internal/eventstream"
)

func (a *app) simCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sim",
		Short:   "Run a device simulator serving the controller's event stream",
		Example: "  rgbctl sim --addr :9090 --demo-interval 1s",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := a.cfg.Sim
			addr := stringFlag(cmd, "addr", sc.Addr)
			opts := simOptions{
				Server: devsim.Options{
					Keepalive:   durationFlag(cmd, "keepalive", sc.Keepalive.Duration),
					CORSOrigins: listFlag(cmd, "cors-origins", sc.CORSOrigins),
					PushRate:    floatFlag(cmd, "push-rate", sc.PushRate),
					PushBurst:   intFlag(cmd, "push-burst", sc.PushBurst),
				},
				DemoInterval: durationFlag(cmd, "demo-interval", sc.DemoInterval.Duration),
			}
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			return serveSim(cmd.Context(), ln, opts, a.log)
		},
	}
	cmd.Flags().String("addr", envStr("RGBCTL_SIM_ADDR", fmt.Sprintf(":%d", eventstream.DefaultPort)), "HTTP listen address")
	cmd.Flags().Duration("keepalive", envDuration("RGBCTL_SIM_KEEPALIVE", devsim.DefaultKeepalive), "Interval between keepalive comments (0 disables)")
	cmd.Flags().String("cors-origins", envStr("RGBCTL_SIM_CORS_ORIGINS", ""), "Comma separated origins allowed by CORS")
	cmd.Flags().Float64("push-rate", envFloat("RGBCTL_SIM_PUSH_RATE", 0), "Push requests per second (0 = unlimited)")
	cmd.Flags().Int("push-burst", envInt("RGBCTL_SIM_PUSH_BURST", 0), "Push limiter burst")
	cmd.Flags().Duration("demo-interval", envDuration("RGBCTL_SIM_DEMO_INTERVAL", 0), "Publish demo console and line-sensor events at this interval")
	return cmd
}

type simOptions struct {
	Server       devsim.Options
	DemoInterval time.Duration
}

// serveSim serves the simulator on ln until ctx is done.
func serveSim(ctx context.Context, ln net.Listener, opts simOptions, log zerolog.Logger) error {
	devsim.SetLogger(log)
	hub := devsim.NewHub()
	srv := &http.Server{Handler: devsim.NewMux(hub, opts.Server), ReadHeaderTimeout: 5 * time.Second}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go hub.Run(runCtx, opts.Server.Keepalive)
	go devsim.Demo(runCtx, hub, opts.DemoInterval)

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("simulator listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Streams only end once their clients are dropped.
	hub.Close()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}
