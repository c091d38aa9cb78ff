package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rgbctl/internal/config"
	"rgbctl/pkg/types"
)

// PushPath is the device's event injection endpoint.
const PushPath = "/api/sse/push"

func (a *app) pushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "push <target> <text>",
		Short:   "Inject an event into a device's stream",
		Example: "  rgbctl push console \"hello\" --device led.local\n  rgbctl push sse '{\"msg\":\"hi\"}' --json",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := config.StreamURL(stringFlag(cmd, "device", a.cfg.Device))
			if err != nil {
				return err
			}
			req := types.PushRequest{Target: args[0]}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("--json: message is not valid JSON")
				}
				req.Message = json.RawMessage(args[1])
			} else {
				req.Text = args[1]
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")
			res, err := push(cmd.Context(), &http.Client{Timeout: timeout}, base, req)
			if err != nil {
				return err
			}
			a.log.Debug().Str("target", res.Target).Int("delivered", res.Delivered).Msg("pushed")
			fmt.Fprintf(a.out, "delivered %s event to %d client(s)\n", res.Target, res.Delivered)
			return nil
		},
	}
	cmd.Flags().String("device", envStr("RGBCTL_DEVICE", ""), "Device host[:port] or stream URL (defaults RGBCTL_DEVICE)")
	cmd.Flags().Bool("json", false, "Send <text> as a JSON message instead of plain text")
	cmd.Flags().Duration("timeout", 10*time.Second, "Request timeout")
	return cmd
}

// pushURL replaces the stream path of base with the push endpoint.
func pushURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = PushPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func push(ctx context.Context, hc *http.Client, base string, body types.PushRequest) (types.PushResponse, error) {
	var out types.PushResponse
	target, err := pushURL(base)
	if err != nil {
		return out, err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return out, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := hc.Do(req)
	if err != nil {
		return out, fmt.Errorf("push: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		var e types.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&e); err == nil && e.Error != "" {
			return out, fmt.Errorf("push: %s (%d)", strings.TrimSpace(e.Error), res.StatusCode)
		}
		return out, fmt.Errorf("push: unexpected status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("push: decode response: %w", err)
	}
	return out, nil
}
