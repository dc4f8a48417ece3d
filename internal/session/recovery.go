package session

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const recoveryKey = "session-recovery"

// Recovery deduplicates concurrent session-recovery attempts. When several
// in-flight requests fail with 401 at the same time, the first caller runs
// the recovery (clear the store, notify the observer) and the rest await the
// same execution. Once it settles, a later 401 starts a fresh recovery.
type Recovery struct {
	group    singleflight.Group
	store    Store
	observer Observer
	logger   *zap.Logger
}

// NewRecovery creates a recovery handler. The observer may be nil.
func NewRecovery(store Store, observer Observer, logger *zap.Logger) *Recovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recovery{store: store, observer: observer, logger: logger}
}

// Trigger runs the recovery, or joins the one already in flight. The clear
// is detached from the triggering request's cancellation: a request being
// cancelled after it observed a 401 must not abort the shared recovery.
func (r *Recovery) Trigger(ctx context.Context) error {
	_, err, shared := r.group.Do(recoveryKey, func() (any, error) {
		detached := context.WithoutCancel(ctx)

		r.logger.Info("session recovery started")
		if clearErr := r.store.Clear(detached); clearErr != nil {
			r.logger.Warn("credential clear failed", zap.Error(clearErr))
			return nil, clearErr
		}
		if r.observer != nil {
			r.observer.SessionExpired()
		}
		r.logger.Info("session recovery completed")
		return nil, nil
	})
	if shared {
		r.logger.Debug("joined in-flight session recovery")
	}
	return err
}
