// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// mockService is a controllable suture.Service for tree tests.
type mockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

// setFailCount makes the next n Serve calls return an error.
func (m *mockService) setFailCount(n int32) {
	m.failCount.Store(n)
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)

	if m.failCount.Load() > 0 {
		m.failCount.Add(-1)
		return errors.New("mock failure")
	}

	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string {
	return m.name
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTree(t *testing.T) {
	t.Run("creates layered supervisor tree", func(t *testing.T) {
		tree := NewTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})

		if tree.root == nil || tree.api == nil || tree.background == nil {
			t.Error("tree layers should not be nil")
		}
	})

	t.Run("applies defaults for zero config", func(t *testing.T) {
		// Defaults are applied inside NewTree; just verify DefaultTreeConfig.
		config := DefaultTreeConfig()
		if config.FailureThreshold != 5.0 {
			t.Errorf("expected FailureThreshold 5.0, got %f", config.FailureThreshold)
		}
		if config.FailureDecay != 30.0 {
			t.Errorf("expected FailureDecay 30.0, got %f", config.FailureDecay)
		}
		if config.FailureBackoff != 15*time.Second {
			t.Errorf("expected FailureBackoff 15s, got %v", config.FailureBackoff)
		}
		if config.ShutdownTimeout != 10*time.Second {
			t.Errorf("expected ShutdownTimeout 10s, got %v", config.ShutdownTimeout)
		}
	})
}

func TestTreeLifecycle(t *testing.T) {
	t.Run("starts services in both layers and stops gracefully", func(t *testing.T) {
		tree := NewTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		apiSvc := newMockService("mock-api")
		bgSvc := newMockService("mock-background")
		tree.AddAPIService(apiSvc)
		tree.AddBackgroundService(bgSvc)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- tree.Serve(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}

		if apiSvc.startCount.Load() < 1 {
			t.Error("api service was not started")
		}
		if bgSvc.startCount.Load() < 1 {
			t.Error("background service was not started")
		}
	})

	t.Run("ServeBackground returns terminal error channel", func(t *testing.T) {
		tree := NewTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("did not receive from error channel")
		}
	})
}

func TestTreeFailureIsolation(t *testing.T) {
	t.Run("failing background service is restarted without touching api layer", func(t *testing.T) {
		tree := NewTree(testLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		failingSvc := newMockService("failing")
		failingSvc.setFailCount(2)

		stableSvc := newMockService("stable")

		tree.AddBackgroundService(failingSvc)
		tree.AddAPIService(stableSvc)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go tree.Serve(ctx)
		time.Sleep(200 * time.Millisecond)

		if failingSvc.startCount.Load() < 3 {
			t.Errorf("expected at least 3 starts for failing service, got %d", failingSvc.startCount.Load())
		}
		if stableSvc.startCount.Load() != 1 {
			t.Errorf("expected stable service started exactly once, got %d", stableSvc.startCount.Load())
		}
	})
}
