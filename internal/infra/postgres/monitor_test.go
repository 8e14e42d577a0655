package postgres

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

type fakePinger struct {
	fail atomic.Bool
}

func (p *fakePinger) Ping(context.Context) error {
	if p.fail.Load() {
		return errors.New("dial tcp: connection refused")
	}
	return nil
}

func TestMonitorTracksProbe(t *testing.T) {
	log, hook := test.NewNullLogger()
	p := &fakePinger{}
	m := NewMonitor(p, time.Second, log)

	if !m.Online() {
		t.Fatalf("monitor should start online")
	}
	p.fail.Store(true)
	if m.Check(context.Background()) || m.Online() {
		t.Fatalf("expected offline after failed ping")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "remote store unreachable" {
		t.Fatalf("expected transition to be logged")
	}
	p.fail.Store(false)
	if !m.Check(context.Background()) || !m.Online() {
		t.Fatalf("expected online after successful ping")
	}
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(hook.AllEntries()))
	}
}

func TestMonitorRunStopsOnCancel(t *testing.T) {
	p := &fakePinger{}
	p.fail.Store(true)
	m := NewMonitor(p, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if m.Online() {
		t.Fatalf("expected offline")
	}
}

func TestMonitorRunsReconnectHooks(t *testing.T) {
	log, _ := test.NewNullLogger()
	p := &fakePinger{}
	m := NewMonitor(p, time.Second, log)
	var calls atomic.Int32
	m.OnReconnect(func(context.Context) { calls.Add(1) })

	ctx := context.Background()
	m.Check(ctx)
	if calls.Load() != 0 {
		t.Fatalf("hook must not run while the remote stays up")
	}
	p.fail.Store(true)
	m.Check(ctx)
	p.fail.Store(false)
	m.Check(ctx)
	m.Check(ctx)
	if calls.Load() != 1 {
		t.Fatalf("expected 1 reconnect hook call, got %d", calls.Load())
	}
}
