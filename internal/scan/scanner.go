package scan

import (
	"context"
	"io"
	"os"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vigil-dlp/vigil/internal/patterns"
)

// Result is the outcome of scanning one file.
type Result struct {
	// Rules holds every matching rule name, in rule order.
	Rules []string
	// Truncated is set when the file exceeded the scan cap and only the
	// leading bytes were inspected.
	Truncated bool
	// Binary is set when content sniffing identified a non-text format;
	// such files are never pattern-matched (fail closed as no-match).
	Binary bool
	// SizeBytes is the file size at scan time.
	SizeBytes int64
}

// Matched reports whether any rule matched.
func (r Result) Matched() bool {
	return len(r.Rules) > 0
}

// Scanner evaluates file content against the active pattern set. Content is
// read up to a bounded cap; binary and unreadable files are treated as
// no-match rather than errors that could stall the pipeline.
type Scanner struct {
	patterns *patterns.Set
	maxBytes int64
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewScanner builds a scanner. maxIOPerSecond of zero disables rate
// limiting.
func NewScanner(set *patterns.Set, maxBytes int64, maxIOPerSecond int, log *zap.Logger) *Scanner {
	var limiter *rate.Limiter
	if maxIOPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxIOPerSecond), maxIOPerSecond)
	}
	return &Scanner{patterns: set, maxBytes: maxBytes, limiter: limiter, log: log}
}

// Scan reads the file and returns the full set of matching rules. Errors are
// returned only for I/O failures; callers treat those as a skipped event.
func (s *Scanner) Scan(ctx context.Context, path string) (Result, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return Result{}, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, err
	}
	res := Result{SizeBytes: info.Size()}

	// Read one byte past the cap so truncation is detectable.
	content, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return Result{}, err
	}
	if int64(len(content)) > s.maxBytes {
		content = content[:s.maxBytes]
		res.Truncated = true
		s.log.Warn("scan truncated at cap",
			zap.String("path", path),
			zap.Int64("cap_bytes", s.maxBytes),
			zap.Int64("size_bytes", info.Size()))
	}

	if kind, _ := filetype.Match(content); kind != filetype.Unknown {
		res.Binary = true
		s.log.Debug("skipping binary content",
			zap.String("path", path),
			zap.String("type", kind.MIME.Value))
		return res, nil
	}

	res.Rules = s.patterns.MatchAll(content)
	return res, nil
}
