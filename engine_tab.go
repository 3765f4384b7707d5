package quizAuth

import (
	"context"
	"errors"

	"github.com/quizdeck/quizAuth/account"
)

// RegisterTab overwrites the account's current-tab pointer with tabID. Login
// mints its own registration; this entry point serves tabs that generated an
// id lazily on first load.
//
// The tab layer is observational only: registering a new tab leaves any
// session created under the old tab fully valid.
func (e *Engine) RegisterTab(ctx context.Context, accountID, tabID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	err := e.store.RegisterTab(ctx, e.now(), accountID, tabID)
	switch {
	case errors.Is(err, account.ErrRecordAbsent), errors.Is(err, account.ErrRecordCorrupt):
		return ErrAccountNotFound
	case err != nil:
		return mapStoreErr(err)
	}

	e.metricInc(MetricTabRegistered)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventTabRegistered,
		AccountID: accountID,
		TabID:     tabID,
		Success:   true,
	})
	return nil
}

// IsCurrentTab reports whether tabID is the account's most recently
// registered tab. A stale observation is recorded and nothing else happens:
// multiple simultaneous tabs stay allowed, and no enforcement hangs off this
// check.
func (e *Engine) IsCurrentTab(ctx context.Context, accountID, tabID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}

	current, err := e.store.IsCurrentTab(ctx, accountID, tabID)
	if err != nil {
		return false, mapStoreErr(err)
	}

	if !current && e.config.Tab.AuditStaleObservations {
		e.metricInc(MetricStaleTabObserved)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventStaleTabObserved,
			AccountID: accountID,
			TabID:     tabID,
		})
	}
	return current, nil
}

// ClearTab nulls the tab pointer; idempotent. Logout already does this for
// the explicit-logout path.
func (e *Engine) ClearTab(ctx context.Context, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if err := e.store.ClearTab(ctx, accountID); err != nil {
		return mapStoreErr(err)
	}
	return nil
}
