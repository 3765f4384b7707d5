package quizAuth

import "context"

const (
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginRateLimited       = "login_rate_limited"
	auditEventSessionSuperseded      = "session_superseded"
	auditEventLogoutSession          = "logout_session"
	auditEventConditionalClearSkip   = "conditional_clear_skipped"
	auditEventRehydrateSuccess       = "rehydrate_success"
	auditEventRehydrateFailure       = "rehydrate_failure"
	auditEventForcedLogout           = "forced_logout"
	auditEventTabRegistered          = "tab_registered"
	auditEventStaleTabObserved       = "stale_tab_observed"
	auditEventPasswordUpgraded       = "password_upgraded"
	auditEventPasswordUpgradeFailed  = "password_upgrade_failed"
	auditEventAccountCreated         = "account_creation_success"
	auditEventAccountCreationFailure = "account_creation_failure"
)

func (e *Engine) emitAudit(ctx context.Context, event AuditEvent) {
	if e == nil || e.audit == nil {
		return
	}
	event.Timestamp = e.now()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	e.audit.Emit(ctx, event)
}
