package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"video-captioner/internal/logging"
	"video-captioner/internal/metrics"
)

// Config holds monitor thresholds.
type Config struct {
	// LimitBytes is the reference limit; 0 uses GOMEMLIMIT.
	LimitBytes int64
	// HighWaterMark is the usage below which pressure clears (0.0-1.0).
	HighWaterMark float64
	// CriticalWaterMark is the usage at which pressure is reported (0.0-1.0).
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage against the memory limit.
type Monitor struct {
	config   Config
	limit    int64
	stopChan chan struct{}
	doneChan chan struct{}
	sample   func() uint64

	mu       sync.RWMutex
	current  uint64
	pressure bool
}

func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, pressure reporting disabled")
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		sample:   heapAlloc,
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins sampling. It does nothing when no limit is known.
func (m *Monitor) Start() {
	if m.limit == 0 {
		close(m.doneChan)
		return
	}
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.stopChan)
	<-m.doneChan
}

func (m *Monitor) loop() {
	defer close(m.doneChan)
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) check() {
	current := m.sample()
	usage := float64(current) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = current

	switch {
	case usage >= m.config.CriticalWaterMark && !m.pressure:
		logging.Warn("Memory critical (%.1f%% of limit), refusing new work", usage*100)
		m.pressure = true
		metrics.MemoryPressure.Set(1)
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.pressure:
		logging.Info("Memory recovered (%.1f%% of limit)", usage*100)
		m.pressure = false
		metrics.MemoryPressure.Set(0)
	}
}

// UnderPressure reports whether heap usage crossed the critical mark and
// has not yet fallen below the high mark.
func (m *Monitor) UnderPressure() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pressure
}

// Usage returns the last sampled heap usage as a fraction of the limit, or 0
// without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
