package enforce

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vigil-dlp/vigil/internal/scan"
	"github.com/vigil-dlp/vigil/internal/store"
)

// Engine turns detections into alerts and, in block mode, quarantined files.
// It computes the action; the Mover executes the filesystem side. All state
// mutation on alerts after creation goes through Allow/Dismiss.
type Engine struct {
	alerts     *store.AlertLedger
	quarantine *store.QuarantineStore
	whitelist  *store.Whitelist
	mover      *Mover
	log        *zap.Logger
}

func NewEngine(alerts *store.AlertLedger, quarantine *store.QuarantineStore, whitelist *store.Whitelist, mover *Mover, log *zap.Logger) *Engine {
	return &Engine{
		alerts:     alerts,
		quarantine: quarantine,
		whitelist:  whitelist,
		mover:      mover,
		log:        log,
	}
}

// HandleMatch records a detection. Block mode quarantines the file first; a
// failed move still produces an alert, flagged with the failure reason, and
// is never retried automatically. Warn mode records only.
func (e *Engine) HandleMatch(path string, res scan.Result, mode string) (*store.Alert, error) {
	if !res.Matched() {
		return nil, errors.New("handle match called without matched rules")
	}
	now := time.Now()
	alert := &store.Alert{
		ID:           uuid.NewString(),
		FilePath:     path,
		OriginPath:   path,
		MatchedRules: store.StringArray(res.Rules),
		PolicyMode:   mode,
		Status:       store.StatusPending,
		Truncated:    res.Truncated,
		SizeBytes:    res.SizeBytes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if mode == store.ModeBlock {
		qpath, sum, err := e.mover.Quarantine(path)
		if err != nil {
			alert.MoveFailed = true
			alert.FailureReason = err.Error()
			e.log.Error("quarantine move failed",
				zap.String("path", path),
				zap.Error(err))
		} else {
			rec := &store.QuarantineRecord{
				ID:             uuid.NewString(),
				OriginalPath:   path,
				QuarantinePath: qpath,
				MatchedRule:    res.Rules[0],
				SizeBytes:      res.SizeBytes,
				Checksum:       sum,
				MovedAt:        now,
			}
			if err := e.quarantine.Create(rec); err != nil {
				// The move succeeded but the mapping could not be saved; put
				// the file back rather than strand it without a record.
				if rerr := e.mover.Restore(qpath, path); rerr != nil {
					e.log.Error("rollback of unrecorded quarantine failed",
						zap.String("quarantine_path", qpath),
						zap.Error(rerr))
				}
				alert.MoveFailed = true
				alert.FailureReason = err.Error()
			} else {
				alert.FilePath = qpath
				alert.QuarantineID = &rec.ID
			}
		}
	}

	if err := e.alerts.Append(alert); err != nil {
		return nil, err
	}
	e.log.Warn("sensitive content detected",
		zap.String("path", alert.OriginPath),
		zap.Strings("rules", res.Rules),
		zap.String("mode", mode),
		zap.Bool("move_failed", alert.MoveFailed))
	return alert, nil
}

// Allow restores the quarantined file (if any), whitelists the origin path
// and marks the alert allowed. A restore conflict leaves the alert unchanged.
func (e *Engine) Allow(id string) (*store.Alert, error) {
	alert, err := e.alerts.Get(id)
	if err != nil {
		return nil, err
	}

	if alert.QuarantineID != nil {
		rec, err := e.quarantine.Get(*alert.QuarantineID)
		switch {
		case err == nil:
			if err := e.mover.Restore(rec.QuarantinePath, rec.OriginalPath); err != nil {
				return nil, err
			}
			if err := e.quarantine.Delete(rec.ID); err != nil {
				return nil, err
			}
		case errors.Is(err, store.ErrQuarantineNotFound):
			// Stale link; nothing to restore.
		default:
			return nil, err
		}
		if err := e.alerts.MarkRestored(alert.ID, alert.OriginPath); err != nil {
			return nil, err
		}
		alert.QuarantineID = nil
		alert.FilePath = alert.OriginPath
	}

	if _, err := e.whitelist.AddAuto(alert.OriginPath); err != nil {
		return nil, err
	}
	if err := e.alerts.UpdateStatus(alert.ID, store.StatusAllowed); err != nil {
		return nil, err
	}
	alert.Status = store.StatusAllowed
	e.log.Info("alert allowed",
		zap.String("alert_id", alert.ID),
		zap.String("path", alert.OriginPath))
	return alert, nil
}

// Dismiss retires the alert. A quarantined file stays in quarantine; only the
// alert status changes.
func (e *Engine) Dismiss(id string) (*store.Alert, error) {
	alert, err := e.alerts.Get(id)
	if err != nil {
		return nil, err
	}
	if err := e.alerts.UpdateStatus(id, store.StatusDismissed); err != nil {
		return nil, err
	}
	alert.Status = store.StatusDismissed
	e.log.Info("alert dismissed", zap.String("alert_id", id))
	return alert, nil
}

// ItemResult is the outcome for one id within a bulk operation.
type ItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BulkAllow applies Allow to each id independently; one failure never aborts
// the rest.
func (e *Engine) BulkAllow(ids []string) []ItemResult {
	return e.bulk(ids, func(id string) error {
		_, err := e.Allow(id)
		return err
	})
}

// BulkDismiss applies Dismiss to each id independently.
func (e *Engine) BulkDismiss(ids []string) []ItemResult {
	return e.bulk(ids, func(id string) error {
		_, err := e.Dismiss(id)
		return err
	})
}

func (e *Engine) bulk(ids []string, op func(string) error) []ItemResult {
	results := make([]ItemResult, 0, len(ids))
	for _, id := range ids {
		res := ItemResult{ID: id, OK: true}
		if err := op(id); err != nil {
			res.OK = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}
