package eventstream

import (
	"testing"
	"time"
)

func TestRetryBackoff_DoublesUpToCeiling(t *testing.T) {
	b := newRetryBackoff(time.Second, 30*time.Second)
	want := []time.Duration{1, 2, 4, 8, 16, 30, 30}
	for i, w := range want {
		if got := b.Advance(); got != w*time.Second {
			t.Fatalf("attempt %d: delay %v, want %v", i, got, w*time.Second)
		}
	}
	b.Reset()
	if got := b.Peek(); got != time.Second {
		t.Fatalf("after reset Peek = %v, want 1s", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.BackoffFloor != time.Second || cfg.BackoffCeiling != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	cfg = Config{BackoffFloor: 5 * time.Second, BackoffCeiling: time.Second}.withDefaults()
	if cfg.BackoffCeiling != 5*time.Second {
		t.Fatalf("ceiling below floor should be raised, got %v", cfg.BackoffCeiling)
	}
}
