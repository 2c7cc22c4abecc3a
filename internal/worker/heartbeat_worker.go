package worker

import (
	"sync"
	"time"

	"github.com/finance-tracker/pkg/logger"
)

// Pinger pings live notification sessions and evicts idle ones
type Pinger interface {
	Ping(maxIdle time.Duration) int
}

// HeartbeatWorker keeps websocket notification sessions alive and
// drops the ones that stopped answering pings
type HeartbeatWorker struct {
	hub      Pinger
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHeartbeatWorker creates a new heartbeat worker
func NewHeartbeatWorker(hub Pinger, interval time.Duration) *HeartbeatWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HeartbeatWorker{
		hub:      hub,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the heartbeat loop and blocks until Stop is called
func (w *HeartbeatWorker) Start() {
	logger.Info("Heartbeat worker started with interval: %v", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.beat()
		case <-w.stopChan:
			logger.Info("Heartbeat worker stopped")
			return
		}
	}
}

// Stop stops the heartbeat loop. Safe to call more than once.
func (w *HeartbeatWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// beat allows two missed intervals before a session counts as dead
func (w *HeartbeatWorker) beat() {
	if evicted := w.hub.Ping(2 * w.interval); evicted > 0 {
		logger.Debug("Heartbeat worker: evicted %d idle session(s)", evicted)
	}
}
