package quizAuth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/google/uuid"

	"github.com/quizdeck/quizAuth/account"
	"github.com/quizdeck/quizAuth/internal"
	"github.com/quizdeck/quizAuth/internal/rate"
)

// Login authenticates the account and establishes a fresh session and tab
// registration, unconditionally replacing any prior pointers for the same
// account. A previously logged-in client observes the replacement through
// its watch subscription and performs its own forced logout; Login itself
// never reaches out to other clients.
//
// Bad credentials return [ErrInvalidCredentials]; an unknown account id is
// reported identically so login cannot probe for registered ids. Only
// transient store failures surface as [ErrStoreUnavailable].
func (e *Engine) Login(ctx context.Context, accountID, plaintext string) (*LoginResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	now := e.now()
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, accountID, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, AuditEvent{
					EventType: auditEventLoginRateLimited,
					AccountID: accountID,
				})
				return nil, ErrLoginRateLimited
			}
			return nil, mapStoreErr(err)
		}
	}

	cred, err := e.provider.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, e.failLogin(ctx, accountID, ip, "unknown account")
		}
		return nil, mapStoreErr(err)
	}

	ok, legacy, err := e.verifyStored(plaintext, cred.PasswordField)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.failLogin(ctx, accountID, ip, "password mismatch")
	}

	if legacy && e.config.Password.UpgradeOnLogin {
		e.upgradePassword(ctx, accountID, plaintext)
	}

	if e.rateLimiter != nil {
		// Best-effort: a failed counter reset must not abort a valid login.
		_ = e.rateLimiter.ResetLogin(ctx, accountID, ip)
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	token, err := internal.NewBearerToken()
	if err != nil {
		return nil, err
	}
	tabID := uuid.NewString()

	if prev, err := e.store.Get(ctx, accountID); err == nil && prev.HasSession() {
		e.metricInc(MetricSessionSuperseded)
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventSessionSuperseded,
			AccountID: accountID,
			SessionID: prev.SessionID,
			Success:   true,
			Metadata:  map[string]string{"superseded_by": sid.String()},
		})
	}

	identity := account.Identity{
		AccountID:   accountID,
		DisplayName: cred.DisplayName,
		Roles:       cred.Roles,
	}
	dev := account.SnapshotDevice(platformFromContext(ctx), userAgentFromContext(ctx), now)

	if err := e.store.CreateSession(ctx, now, identity, sid.String(), token, dev); err != nil {
		return nil, mapStoreErr(err)
	}
	if err := e.store.RegisterTab(ctx, now, accountID, tabID); err != nil {
		// A failed login must not leave the fresh session live. Conditional,
		// so a login that raced in between keeps its own session.
		_, _ = e.store.ClearSessionIf(ctx, accountID, sid.String())
		return nil, mapStoreErr(err)
	}

	rec, err := e.store.Get(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricTabRegistered)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginSuccess,
		AccountID: accountID,
		SessionID: sid.String(),
		TabID:     tabID,
		Success:   true,
	})

	return &LoginResult{
		Account:   rec,
		SessionID: sid.String(),
		Token:     token,
		TabID:     tabID,
	}, nil
}

func (e *Engine) failLogin(ctx context.Context, accountID, ip, cause string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, accountID, ip); err != nil && errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventLoginFailure,
		AccountID: accountID,
		Error:     cause,
	})
	return ErrInvalidCredentials
}

// upgradePassword rewrites a legacy plaintext credential as a digest. An
// upgrade failure is recorded but does not abort the login; the next
// successful login retries.
func (e *Engine) upgradePassword(ctx context.Context, accountID, plaintext string) {
	digest, err := e.activeHasher().Hash(plaintext)
	if err == nil {
		err = e.provider.UpdatePasswordField(ctx, accountID, digest)
	}
	if err != nil {
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventPasswordUpgradeFailed,
			AccountID: accountID,
			Error:     err.Error(),
		})
		return
	}

	e.metricInc(MetricPasswordUpgraded)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventPasswordUpgraded,
		AccountID: accountID,
		Success:   true,
	})
}

// RegisterAccount hashes the initial password and hands the record to the
// credential provider. A duplicate id returns [ErrAccountExists].
func (e *Engine) RegisterAccount(ctx context.Context, accountID, displayName string, roles []string, plaintext string) error {
	if e == nil || e.provider == nil {
		return ErrEngineNotReady
	}

	digest, err := e.activeHasher().Hash(plaintext)
	if err != nil {
		return err
	}

	err = e.provider.CreateAccount(ctx, CredentialRecord{
		AccountID:     accountID,
		DisplayName:   displayName,
		Roles:         roles,
		PasswordField: digest,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricAccountCreationDuplicate)
		}
		e.emitAudit(ctx, AuditEvent{
			EventType: auditEventAccountCreationFailure,
			AccountID: accountID,
			Error:     err.Error(),
		})
		return err
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: auditEventAccountCreated,
		AccountID: accountID,
		Success:   true,
	})
	return nil
}

// constantTimeEqual compares legacy plaintext credentials without timing
// leaks. LooksHashed gating means this only ever sees pre-migration values.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
