package scan

import (
	"context"
	"errors"
	"os"
	"time"
)

var (
	// ErrUnstable means the file never settled within the probe budget.
	ErrUnstable = errors.New("file did not stabilize")
	// ErrVanished means the file disappeared while being probed.
	ErrVanished = errors.New("file vanished before stabilizing")
)

// StabilityGate decides when a file is safe to read. A file is stable once
// two successive size/mtime probes agree and the file can be opened for
// reading. Files still being written keep changing between probes and are
// skipped after a bounded number of attempts.
type StabilityGate struct {
	Probes int
	Delay  time.Duration
}

// NewStabilityGate builds a gate with the given probe budget and inter-probe
// delay.
func NewStabilityGate(probes int, delay time.Duration) *StabilityGate {
	return &StabilityGate{Probes: probes, Delay: delay}
}

// Settle blocks until the file is stable, the probe budget is exhausted
// (ErrUnstable), the file disappears (ErrVanished), or the context ends.
func (g *StabilityGate) Settle(ctx context.Context, path string) error {
	var lastSize, lastMod int64
	havePrev := false

	for attempt := 0; attempt < g.Probes; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.Delay):
			}
		}

		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return ErrVanished
			}
			// Transient stat failure, try again.
			havePrev = false
			continue
		}

		size := info.Size()
		mod := info.ModTime().UnixNano()
		if havePrev && size == lastSize && mod == lastMod {
			if f, err := os.Open(path); err == nil {
				f.Close()
				return nil
			}
			// Open contention: the writer still holds the file.
			havePrev = false
			continue
		}
		lastSize, lastMod = size, mod
		havePrev = true
	}
	return ErrUnstable
}
