package main

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Telemetry event types
const (
	EvtSnapshotSent     = "snapshot_sent"
	EvtDeltaSent        = "delta_sent"
	EvtResyncRequested  = "resync_requested"
	EvtResyncServed     = "resync_served"
	EvtReconcileFailed  = "reconcile_failed"
	EvtClientConnected  = "client_connected"
	EvtClientDisconnect = "client_disconnected"
)

const telemetryFlushPeriod = 30 * time.Second

// Telemetry counts protocol events and flushes periodic summaries to the
// log. Tracking is non-blocking: when the channel is full the event is
// dropped rather than stalling the tick loop.
type Telemetry struct {
	log    *logrus.Logger
	events chan string
	stop   chan struct{}
	wg     sync.WaitGroup

	mu       sync.RWMutex
	counters map[string]uint64
}

// NewTelemetry creates and starts the background counter.
func NewTelemetry(log *logrus.Logger) *Telemetry {
	t := &Telemetry{
		log:      log,
		events:   make(chan string, 1024),
		stop:     make(chan struct{}),
		counters: make(map[string]uint64),
	}
	t.wg.Add(1)
	go t.writer()
	return t
}

// Track enqueues an event (non-blocking).
func (t *Telemetry) Track(evtType string) {
	if t == nil {
		return
	}
	select {
	case t.events <- evtType:
	default:
	}
}

// Count returns the current count for an event type.
func (t *Telemetry) Count(evtType string) uint64 {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.counters[evtType]
}

// Stop drains pending events and stops the writer.
func (t *Telemetry) Stop() {
	if t == nil {
		return
	}
	close(t.stop)
	t.wg.Wait()
}

func (t *Telemetry) writer() {
	defer t.wg.Done()
	ticker := time.NewTicker(telemetryFlushPeriod)
	defer ticker.Stop()
	for {
		select {
		case evt := <-t.events:
			t.mu.Lock()
			t.counters[evt]++
			t.mu.Unlock()
		case <-ticker.C:
			t.flush()
		case <-t.stop:
			for {
				select {
				case evt := <-t.events:
					t.mu.Lock()
					t.counters[evt]++
					t.mu.Unlock()
				default:
					t.flush()
					return
				}
			}
		}
	}
}

func (t *Telemetry) flush() {
	if t.log == nil {
		return
	}
	t.mu.RLock()
	fields := logrus.Fields{}
	for evt, n := range t.counters {
		fields[evt] = n
	}
	t.mu.RUnlock()
	if len(fields) > 0 {
		t.log.WithFields(fields).Info("telemetry")
	}
}
