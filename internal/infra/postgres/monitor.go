package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor is the connectivity oracle: it pings the database on an interval
// and remembers whether the last probe succeeded.
type Monitor struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
	online   atomic.Bool

	mu          sync.Mutex
	onReconnect []func(context.Context)
}

func NewMonitor(p Pinger, interval time.Duration, log logrus.FieldLogger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &Monitor{pinger: p, interval: interval, timeout: interval / 2, log: log}
	m.online.Store(true)
	return m
}

// Online reports the result of the most recent probe.
func (m *Monitor) Online() bool { return m.online.Load() }

// OnReconnect registers fn to run each time a probe succeeds after a
// failed one. fn runs on the probing goroutine.
func (m *Monitor) OnReconnect(fn func(context.Context)) {
	m.mu.Lock()
	m.onReconnect = append(m.onReconnect, fn)
	m.mu.Unlock()
}

// Check probes once and records the outcome.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.pinger.Ping(probeCtx)
	cancel()
	up := err == nil
	if prev := m.online.Swap(up); prev != up {
		if up {
			m.log.Info("remote store reachable")
			m.mu.Lock()
			hooks := append([]func(context.Context){}, m.onReconnect...)
			m.mu.Unlock()
			for _, fn := range hooks {
				fn(ctx)
			}
		} else {
			m.log.WithError(err).Warn("remote store unreachable")
		}
	}
	return up
}

// Run probes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}
