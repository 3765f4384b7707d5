package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	quizAuth "github.com/quizdeck/quizAuth"
)

type sessionContextKey struct{}

// SessionFromContext returns the rehydrated session attached by [Guard].
func SessionFromContext(ctx context.Context) (*quizAuth.RehydrateResult, bool) {
	res, ok := ctx.Value(sessionContextKey{}).(*quizAuth.RehydrateResult)
	return res, ok
}

// Guard authenticates requests by their bearer token against the session
// registry. Every request hits the registry, so a session superseded by a
// newer login is rejected on its next request even if the push channel
// never reached the client.
//
// A transient store failure maps to 503, not 401: flaky infrastructure must
// not read as "logged out".
func Guard(engine *quizAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Rehydrate(r.Context(), token)
			if err != nil {
				if errors.Is(err, quizAuth.ErrStoreUnavailable) {
					http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if res == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
