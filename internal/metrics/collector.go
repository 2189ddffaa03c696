package metrics

import (
	"time"

	"video-captioner/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() (Stats, error)
}

// Stats describes the current contents of the storage area.
type Stats struct {
	TotalBytes int64
	// Files maps an artifact kind (upload, caption, output, ...) to a count.
	Files map[string]int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats()
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	for _, kind := range storageKinds {
		StorageFiles.WithLabelValues(kind).Set(float64(stats.Files[kind]))
	}
	StorageBytes.Set(float64(stats.TotalBytes))

	logging.Debug("Metrics collected: bytes=%d, files=%v", stats.TotalBytes, stats.Files)
}
