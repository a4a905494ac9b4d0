package main

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"hub/internal/hub"
)

func TestProduceReachesRecorder(t *testing.T) {
	h := hub.New()
	rec := newRecorder()
	observers := rec.observe(h)

	if err := produce(context.Background(), zap.NewNop(), h, 3, 9); err != nil {
		t.Fatalf("produce: %v", err)
	}

	if got := rec.logins.Load(); got != 27 {
		t.Fatalf("logins = %d, want 27", got)
	}
	// i%3 == 0 for i in 0..8 gives three tokenless logins per producer
	if got := rec.missingTokens.Load(); got != 9 {
		t.Fatalf("missing tokens = %d, want 9", got)
	}
	if got := rec.tokens.Load(); got != 18 {
		t.Fatalf("tokens = %d, want 18", got)
	}
	if got := rec.uniqueUsers(); got != 27 {
		t.Fatalf("unique users = %d, want 27", got)
	}

	for _, obs := range observers {
		obs.Remove()
	}
	hub.Post(h, UserLoggedIn, "late")
	if got := rec.logins.Load(); got != 27 {
		t.Fatalf("removed observers still received posts")
	}
}

func TestProduceStopsOnCancel(t *testing.T) {
	h := hub.New()
	rec := newRecorder()
	rec.observe(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := produce(ctx, zap.NewNop(), h, 2, 5); err == nil {
		t.Fatalf("expected context error")
	}
	if got := rec.logins.Load(); got != 0 {
		t.Fatalf("logins = %d, want 0 after cancellation", got)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := newLogger("not-a-level")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected info level fallback")
	}
	if !logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected info level enabled")
	}
}
