package flowstate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTakeConsumesFlow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	flow := Flow{Nonce: "n-1", ReturnPath: "/books/42", Popup: true, CreatedAt: time.Now()}
	if err := store.Save(ctx, "handle-1", flow, time.Minute); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.Take(ctx, "handle-1")
	if err != nil {
		t.Fatalf("Take() error: %v", err)
	}
	if got.Nonce != "n-1" || got.ReturnPath != "/books/42" || !got.Popup {
		t.Fatalf("Take() = %+v", got)
	}

	if _, err := store.Take(ctx, "handle-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Take() error = %v, want ErrNotFound", err)
	}
}

func TestTakeUnknownHandle(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Take(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Take() error = %v, want ErrNotFound", err)
	}
}

func TestTakeRejectsExpiredFlow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "handle-1", Flow{Nonce: "n"}, time.Nanosecond); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, err := store.Take(ctx, "handle-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Take() error = %v, want ErrNotFound for expired flow", err)
	}
}

func TestSweepDropsOnlyExpiredFlows(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.Save(ctx, "stale", Flow{Nonce: "a"}, time.Nanosecond)
	_ = store.Save(ctx, "live", Flow{Nonce: "b"}, time.Minute)
	time.Sleep(time.Millisecond)

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("Sweep() = %d, want 1", removed)
	}
	if _, err := store.Take(ctx, "live"); err != nil {
		t.Fatalf("live flow gone after sweep: %v", err)
	}
}
