package memory

import (
	"math"
	"runtime/debug"
	"testing"
	"time"
)

func newTestMonitor(limit int64, samples ...uint64) *Monitor {
	m := NewMonitor(Config{
		LimitBytes:        limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Hour,
	})
	i := 0
	m.sample = func() uint64 {
		v := samples[i]
		if i < len(samples)-1 {
			i++
		}
		return v
	}
	return m
}

func TestMonitorPressureHysteresis(t *testing.T) {
	// 50%, 90%, 80%, 60%
	m := newTestMonitor(100, 50, 90, 80, 60)

	want := []bool{false, true, true, false}
	for i, w := range want {
		m.check()
		if got := m.UnderPressure(); got != w {
			t.Errorf("check %d: UnderPressure() = %v, want %v", i, got, w)
		}
	}
	if got := m.Usage(); got != 0.6 {
		t.Errorf("Usage() = %v, want 0.6", got)
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	prev := debug.SetMemoryLimit(math.MaxInt64)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })

	m := NewMonitor(DefaultConfig())
	m.Start()
	m.Stop()

	if m.UnderPressure() {
		t.Error("UnderPressure() = true without a limit")
	}
	if m.Usage() != 0 {
		t.Errorf("Usage() = %v, want 0", m.Usage())
	}
}

func TestMonitorStartStop(t *testing.T) {
	m := NewMonitor(Config{
		LimitBytes:        1 << 40,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     10 * time.Millisecond,
	})
	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	if m.UnderPressure() {
		t.Error("a 1 TiB limit should not be under pressure")
	}
}

func TestConfigureFromEnv(t *testing.T) {
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })

	tests := []struct {
		name       string
		goMemLimit string
		limit      string
		ratio      string
		wantSource string
		wantLimit  int64
	}{
		{"nothing set", "", "", "", "none", 0},
		{"invalid limit", "", "lots", "", "none", 0},
		{"default ratio", "", "1000000000", "", "MEMORY_LIMIT", 600000000},
		{"custom ratio", "", "1000000000", "0.5", "MEMORY_LIMIT", 500000000},
		{"ratio out of range", "", "1000000000", "1.5", "MEMORY_LIMIT", 600000000},
		{"explicit GOMEMLIMIT wins", "512MiB", "1000000000", "", "GOMEMLIMIT", 512 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOMEMLIMIT", tt.goMemLimit)
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)
			if tt.goMemLimit != "" {
				// The runtime reads GOMEMLIMIT only at startup.
				debug.SetMemoryLimit(512 << 20)
			}

			result := ConfigureFromEnv()
			if result.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", result.Source, tt.wantSource)
			}
			if result.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, tt.wantLimit)
			}
			if result.Configured != (tt.wantLimit > 0) {
				t.Errorf("Configured = %v, want %v", result.Configured, tt.wantLimit > 0)
			}
		})
	}
}
