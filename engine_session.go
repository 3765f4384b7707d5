package quizAuth

import (
	"context"
	"errors"
	"time"

	"github.com/quizdeck/quizAuth/account"
)

// Validate reports whether sessionID is the account's current session inside
// the expiry horizon. A valid session's last-activity timestamp is refreshed
// as a side effect.
//
// Absent accounts and mismatched or expired sessions are (false, nil); a
// caller seeing false during rehydration is expected to clear its local
// state explicitly. Transient store failures return [ErrStoreUnavailable]
// and mean "not yet verified", not "logged out".
func (e *Engine) Validate(ctx context.Context, accountID, sessionID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}

	start := time.Now()
	ok, err := e.store.ValidateSession(ctx, e.now(), accountID, sessionID)
	if e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		return false, mapStoreErr(err)
	}

	if ok {
		e.metricInc(MetricValidateSuccess)
	} else {
		e.metricInc(MetricValidateFailure)
	}
	return ok, nil
}

// Logout clears the account's session and tab pointers. Idempotent: logging
// out an already-logged-out account is a no-op.
func (e *Engine) Logout(ctx context.Context, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.store.ClearSession(ctx, accountID); err != nil {
		return mapStoreErr(err)
	}
	if err := e.store.ClearTab(ctx, accountID); err != nil {
		return mapStoreErr(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogoutSession,
		AccountID: accountID,
		Success:   true,
	})
	return nil
}

// LogoutIf clears the session only while sessionID is still the current
// one. It backs beacon-style unload cleanup: an old tab whose unload fires
// after a login elsewhere must not null out the newer session.
func (e *Engine) LogoutIf(ctx context.Context, accountID, sessionID string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}

	cleared, err := e.store.ClearSessionIf(ctx, accountID, sessionID)
	if err != nil {
		return false, mapStoreErr(err)
	}

	if !cleared {
		e.metricInc(MetricConditionalClearSkipped)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventConditionalClearSkip,
			AccountID: accountID,
			SessionID: sessionID,
		})
		return false, nil
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLogoutSession,
		AccountID: accountID,
		SessionID: sessionID,
		Success:   true,
	})
	return true, nil
}

// Rehydrate resolves a persisted bearer token back to a live session, the
// app-reload path for clients that no longer hold the account id directly.
//
// An unknown, superseded, or expired token yields (nil, nil): the caller
// clears its local cache and prompts a fresh login. Transient store failures
// return [ErrStoreUnavailable] and must leave the local cache untouched.
func (e *Engine) Rehydrate(ctx context.Context, token string) (*RehydrateResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	now := e.now()

	rec, err := e.store.LookupByToken(ctx, token)
	switch {
	case errors.Is(err, account.ErrRecordAbsent), errors.Is(err, account.ErrRecordCorrupt):
		return e.failRehydrate(ctx, ""), nil
	case err != nil:
		return nil, mapStoreErr(err)
	}

	ok, err := e.store.ValidateSession(ctx, now, rec.AccountID, rec.SessionID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if !ok {
		return e.failRehydrate(ctx, rec.AccountID), nil
	}

	e.metricInc(MetricRehydrateSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRehydrateSuccess,
		AccountID: rec.AccountID,
		SessionID: rec.SessionID,
		Success:   true,
	})
	return &RehydrateResult{
		Account:   rec,
		SessionID: rec.SessionID,
		Token:     token,
	}, nil
}

func (e *Engine) failRehydrate(ctx context.Context, accountID string) *RehydrateResult {
	e.metricInc(MetricRehydrateFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventRehydrateFailure,
		AccountID: accountID,
	})
	return nil
}
