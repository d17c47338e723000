package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestUnlimitedNeverBlocks(t *testing.T) {
	t.Parallel()

	l := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for range 100 {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(0.001) // effectively blocks after the first token
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}
	if err := l.Wait(ctx); err == nil {
		t.Fatal("second Wait() expected context error")
	}
}
