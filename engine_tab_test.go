package quizAuth

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterTabUnknownAccount(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.engine.RegisterTab(context.Background(), "never-seen", "tab-1")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestIsCurrentTabObservesWithoutEnforcing(t *testing.T) {
	env := newTestEnv(t, nil)
	seedAccount(t, env, "s-100", "hunter2")
	ctx := context.Background()

	res, err := env.engine.Login(ctx, "s-100", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	ok, err := env.engine.IsCurrentTab(ctx, "s-100", res.TabID)
	if err != nil || !ok {
		t.Fatalf("login tab current: ok=%v err=%v", ok, err)
	}

	// A newer tab registers; the old tab now observes it is stale, and
	// nothing else changes.
	if err := env.engine.RegisterTab(ctx, "s-100", "tab-newer"); err != nil {
		t.Fatalf("register: %v", err)
	}

	ok, err = env.engine.IsCurrentTab(ctx, "s-100", res.TabID)
	if err != nil {
		t.Fatalf("stale check: %v", err)
	}
	if ok {
		t.Fatal("superseded tab still current")
	}

	if valid, _ := env.engine.Validate(ctx, "s-100", res.SessionID); !valid {
		t.Fatal("stale tab observation invalidated the session")
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricStaleTabObserved] != 1 {
		t.Fatalf("stale tab counter = %d, want 1", snap.Counters[MetricStaleTabObserved])
	}
}

func TestClearTabIdempotentEngine(t *testing.T) {
	env := newTestEnv(t, nil)
	seedAccount(t, env, "s-100", "hunter2")
	ctx := context.Background()

	res, err := env.engine.Login(ctx, "s-100", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := env.engine.ClearTab(ctx, "s-100"); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := env.engine.ClearTab(ctx, "s-100"); err != nil {
		t.Fatalf("second clear: %v", err)
	}

	if ok, _ := env.engine.IsCurrentTab(ctx, "s-100", res.TabID); ok {
		t.Fatal("cleared tab still current")
	}
	if valid, _ := env.engine.Validate(ctx, "s-100", res.SessionID); !valid {
		t.Fatal("tab clear invalidated the session")
	}
}
