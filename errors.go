package quizAuth

import "errors"

var (
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is an exported constant or variable used by the session engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is an exported constant or variable used by the session engine.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is an exported constant or variable used by the session engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrLoginRateLimited is an exported constant or variable used by the session engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrStoreUnavailable signals a transient record-store failure. Callers
	// must treat it as "not yet verified", never as a logout.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
