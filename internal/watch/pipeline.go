package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vigil-dlp/vigil/internal/enforce"
	"github.com/vigil-dlp/vigil/internal/scan"
	"github.com/vigil-dlp/vigil/internal/store"
)

// Pipeline is the per-event processing chain: stability gate, dedup,
// whitelist, scan, enforcement. Every skip reason is logged and swallowed;
// only store failures propagate, so one bad file never stalls the queue.
type Pipeline struct {
	gate           *scan.StabilityGate
	dedup          *scan.DedupCache
	whitelist      *store.Whitelist
	scanner        *scan.Scanner
	engine         *enforce.Engine
	settings       *store.Settings
	quarantineRoot string
	log            *zap.Logger
}

func NewPipeline(gate *scan.StabilityGate, dedup *scan.DedupCache, whitelist *store.Whitelist, scanner *scan.Scanner, engine *enforce.Engine, settings *store.Settings, quarantineRoot string, log *zap.Logger) *Pipeline {
	return &Pipeline{
		gate:           gate,
		dedup:          dedup,
		whitelist:      whitelist,
		scanner:        scanner,
		engine:         engine,
		settings:       settings,
		quarantineRoot: filepath.Clean(quarantineRoot),
		log:            log,
	}
}

// Process runs one file through the chain. It returns the created alert, or
// nil when the event was skipped or the content is clean.
func (p *Pipeline) Process(ctx context.Context, path string) (*store.Alert, error) {
	path = filepath.Clean(path)
	if p.insideQuarantine(path) {
		return nil, nil
	}

	if err := p.gate.Settle(ctx, path); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Debug("file did not settle", zap.String("path", path), zap.Error(err))
		return nil, nil
	}

	id, err := scan.Identify(path)
	if err != nil {
		p.log.Debug("file vanished before identify", zap.String("path", path))
		return nil, nil
	}
	if !p.dedup.ShouldProcess(id) {
		p.log.Debug("duplicate event suppressed", zap.String("path", path))
		return nil, nil
	}

	exempt, err := p.whitelist.IsWhitelisted(path)
	if err != nil {
		return nil, err
	}
	if exempt {
		p.log.Debug("whitelisted, skipping", zap.String("path", path))
		return nil, nil
	}

	res, err := p.scanner.Scan(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("scan failed, treating as no match",
			zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	if !res.Matched() {
		return nil, nil
	}

	return p.engine.HandleMatch(path, res, p.settings.PolicyMode())
}

// insideQuarantine keeps quarantined files from being rescanned and
// requarantined in a loop. Paths under the quarantine root are excluded, and
// so is any file elsewhere whose basename follows the quarantine naming
// scheme, such as a copy dragged out of quarantine by hand.
func (p *Pipeline) insideQuarantine(path string) bool {
	if path == p.quarantineRoot ||
		strings.HasPrefix(path, p.quarantineRoot+string(filepath.Separator)) {
		return true
	}
	return enforce.IsQuarantineName(filepath.Base(path))
}

// ScanSummary reports the outcome of a manual tree scan.
type ScanSummary struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Skipped int `json:"skipped"`
}

// ScanTree runs the pipeline over every existing file under root, bypassing
// the live event path, and records the completion time.
func (p *Pipeline) ScanTree(ctx context.Context, root string) (ScanSummary, error) {
	var summary ScanSummary
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			summary.Skipped++
			return nil
		}
		if d.IsDir() {
			if p.insideQuarantine(filepath.Clean(path)) {
				return fs.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Scanned++
		alert, perr := p.Process(ctx, path)
		if perr != nil {
			return perr
		}
		if alert != nil {
			summary.Matched++
		}
		return nil
	})
	if err != nil {
		return summary, err
	}
	if serr := p.settings.SetLastScanTime(time.Now()); serr != nil {
		p.log.Warn("failed to record scan time", zap.Error(serr))
	}
	p.log.Info("manual scan finished",
		zap.String("root", root),
		zap.Int("scanned", summary.Scanned),
		zap.Int("matched", summary.Matched))
	return summary, nil
}
