package devsim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"rgbctl/pkg/types"
)

// Demo publishes a console heartbeat and a sweeping line-sensor pattern every
// interval until ctx is done.
func Demo(ctx context.Context, hub *Hub, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		tick++
		msg := fmt.Sprintf("heartbeat %d heap=%d", tick, 180000+rand.IntN(4096))
		if _, err := hub.Publish("console", types.TargetConsole, []byte(msg)); err != nil {
			zlog.Warn().Err(err).Msg("demo publish")
		}
		if _, err := hub.Publish("i2c_line", types.TargetLineSensor, SweepPattern(tick, 2)); err != nil {
			zlog.Warn().Err(err).Msg("demo publish")
		}
	}
}

// SweepPattern returns n bytes with a single set bit that moves one position
// per step, wrapping across the whole row.
func SweepPattern(step uint64, n int) []byte {
	if n <= 0 {
		return nil
	}
	out := make([]byte, n)
	bit := int(step % uint64(n*8))
	out[bit/8] = 0x80 >> (bit % 8)
	return out
}
