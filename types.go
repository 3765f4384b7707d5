package quizAuth

import (
	"context"

	"github.com/quizdeck/quizAuth/account"
)

// CredentialRecord is the credential-store view of one account, as returned
// by [CredentialProvider.GetAccount]. The password field may hold either a
// structural digest or a legacy plaintext value; the engine upgrades legacy
// values in place on the first successful login.
type CredentialRecord struct {
	AccountID   string
	DisplayName string
	Roles       []string

	// PasswordField is the stored credential exactly as the provider holds
	// it. It is never echoed back to callers of the engine.
	PasswordField string
}

// CredentialProvider is the primary interface that callers must implement to
// integrate quizAuth with their account database. The engine consumes
// credentials; it never owns them.
//
// GetAccount must return [ErrAccountNotFound] for unknown ids. All other
// errors are treated as transient store failures.
type CredentialProvider interface {
	GetAccount(ctx context.Context, accountID string) (CredentialRecord, error)
	UpdatePasswordField(ctx context.Context, accountID, newValue string) error
	CreateAccount(ctx context.Context, record CredentialRecord) error
}

// LoginResult defines a public type used by quizAuth APIs.
//
// LoginResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginResult struct {
	Account   *account.Record
	SessionID string

	// Token is the opaque bearer value a client persists for rehydration.
	// It resolves back to the account through [Engine.Rehydrate].
	Token string

	// TabID is the fresh tab registration minted for this login.
	TabID string
}

// RehydrateResult is returned by [Engine.Rehydrate] when a persisted token
// still resolves to the current session.
type RehydrateResult struct {
	Account   *account.Record
	SessionID string
	Token     string
}

// WatchHooks carries the callbacks wired by [Engine.Watch].
//
// OnForcedLogout fires at most once per watch, when the delivered record no
// longer carries the session id the watch was started with (or the record is
// gone). OnRecord fires on every delivery and may be nil.
type WatchHooks struct {
	OnForcedLogout func(reason ForcedLogoutReason)
	OnRecord       func(rec *account.Record)
}

// ForcedLogoutReason defines a public type used by quizAuth APIs.
//
// ForcedLogoutReason instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ForcedLogoutReason string

const (
	// ForcedLogoutSuperseded is reported when another login replaced the
	// watched session.
	ForcedLogoutSuperseded ForcedLogoutReason = "superseded"
	// ForcedLogoutAccountGone is reported when the watched account record
	// was deleted server-side.
	ForcedLogoutAccountGone ForcedLogoutReason = "account_gone"
)
