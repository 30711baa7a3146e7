package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSettleStableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stable.txt")
	if err := os.WriteFile(path, []byte("settled content"), 0o644); err != nil {
		t.Fatal(err)
	}

	gate := NewStabilityGate(4, 5*time.Millisecond)
	if err := gate.Settle(context.Background(), path); err != nil {
		t.Errorf("expected stable file to settle, got: %v", err)
	}
}

func TestSettleVanishedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghost.txt")

	gate := NewStabilityGate(3, 5*time.Millisecond)
	err := gate.Settle(context.Background(), path)
	if !errors.Is(err, ErrVanished) {
		t.Errorf("expected ErrVanished, got: %v", err)
	}
}

func TestSettleGrowingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Keep appending faster than the gate probes so it never sees two
	// identical fingerprints.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		for {
			select {
			case <-stop:
				return
			default:
				f.WriteString("more data arriving ")
				time.Sleep(2 * time.Millisecond)
			}
		}
	}()

	gate := NewStabilityGate(4, 10*time.Millisecond)
	err := gate.Settle(context.Background(), path)
	close(stop)
	<-done

	if !errors.Is(err, ErrUnstable) {
		t.Errorf("expected ErrUnstable for a file under active write, got: %v", err)
	}
}

func TestSettleContextCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slow.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Stability needs two agreeing probes, so the delay before the second
	// probe must observe the cancelled context.
	gate := NewStabilityGate(10, 50*time.Millisecond)
	err := gate.Settle(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
