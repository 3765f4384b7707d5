package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	quizAuth "github.com/quizdeck/quizAuth"
)

type staticProvider struct {
	record quizAuth.CredentialRecord
}

func (p *staticProvider) GetAccount(_ context.Context, accountID string) (quizAuth.CredentialRecord, error) {
	if accountID != p.record.AccountID {
		return quizAuth.CredentialRecord{}, quizAuth.ErrAccountNotFound
	}
	return p.record, nil
}

func (p *staticProvider) UpdatePasswordField(_ context.Context, _, newValue string) error {
	p.record.PasswordField = newValue
	return nil
}

func (p *staticProvider) CreateAccount(context.Context, quizAuth.CredentialRecord) error {
	return quizAuth.ErrAccountExists
}

func newGuardTest(t *testing.T) (*quizAuth.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := quizAuth.New().
		WithRedis(rdb).
		WithCredentialProvider(&staticProvider{record: quizAuth.CredentialRecord{
			AccountID:     "s-100",
			DisplayName:   "Kai Osei",
			PasswordField: "hunter2",
		}}).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})
	return engine, mr
}

func guardHandler(t *testing.T, engine *quizAuth.Engine) http.Handler {
	t.Helper()
	return Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := SessionFromContext(r.Context())
		if !ok || res == nil {
			t.Error("guarded handler reached without a session in context")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Account.AccountID))
	}))
}

func TestGuardAcceptsLiveToken(t *testing.T) {
	engine, _ := newGuardTest(t)

	login, err := engine.Login(context.Background(), "s-100", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req := httptest.NewRequest("GET", "/quizzes", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()

	guardHandler(t, engine).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if rec.Body.String() != "s-100" {
		t.Fatalf("body %q", rec.Body.String())
	}
}

func TestGuardRejectsMissingOrUnknownToken(t *testing.T) {
	engine, _ := newGuardTest(t)
	h := guardHandler(t, engine)

	for _, auth := range []string{"", "Bearer ", "Bearer never-issued", "Basic abc"} {
		req := httptest.NewRequest("GET", "/quizzes", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: status %d, want 401", auth, rec.Code)
		}
	}
}

func TestGuardRejectsSupersededToken(t *testing.T) {
	engine, _ := newGuardTest(t)
	ctx := context.Background()

	first, err := engine.Login(ctx, "s-100", "hunter2")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := engine.Login(ctx, "s-100", "hunter2"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	req := httptest.NewRequest("GET", "/quizzes", nil)
	req.Header.Set("Authorization", "Bearer "+first.Token)
	rec := httptest.NewRecorder()

	guardHandler(t, engine).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestGuardReportsOutageAs503(t *testing.T) {
	engine, mr := newGuardTest(t)

	login, err := engine.Login(context.Background(), "s-100", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	mr.SetError("simulated outage")
	req := httptest.NewRequest("GET", "/quizzes", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rec := httptest.NewRecorder()

	guardHandler(t, engine).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rec.Code)
	}
}
