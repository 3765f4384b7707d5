package quizAuth

import (
	"context"
	"sync"

	"github.com/quizdeck/quizAuth/account"
)

// Watch opens a change subscription on the account record and wires it to
// forced-logout detection. Deliveries carrying a different session id than
// sessionID — or an absent record — fire hooks.OnForcedLogout exactly once,
// after which the subscription winds down on its own.
//
// The returned stop function must be called on every exit path (logout,
// component teardown, error paths); a leaked subscription is the primary
// resource-leak risk of this subsystem. stop is idempotent.
func (e *Engine) Watch(ctx context.Context, accountID, sessionID string, hooks WatchHooks) (func(), error) {
	if e == nil || e.watcher == nil {
		return nil, ErrEngineNotReady
	}

	var once sync.Once
	var stop func()
	// The initial snapshot can be delivered before Subscribe returns, so the
	// teardown goroutine must wait for the stop assignment below.
	ready := make(chan struct{})

	forcedLogout := func(reason ForcedLogoutReason) {
		once.Do(func() {
			e.metricInc(MetricForcedLogout)
			e.emitAudit(ctx, AuditEvent{
				EventType: auditEventForcedLogout,
				AccountID: accountID,
				SessionID: sessionID,
				Metadata:  map[string]string{"reason": string(reason)},
			})
			if hooks.OnForcedLogout != nil {
				hooks.OnForcedLogout(reason)
			}
			// stop blocks until the delivery goroutine exits, so it cannot
			// run inline on that same goroutine.
			go func() {
				<-ready
				stop()
			}()
		})
	}

	stop = e.watcher.Subscribe(ctx, accountID, func(ev account.Event) {
		if ev.Record != nil && hooks.OnRecord != nil {
			hooks.OnRecord(ev.Record)
		}

		switch {
		case ev.Absent:
			forcedLogout(ForcedLogoutAccountGone)
		case ev.Record == nil:
			// Malformed delivery; the next one carries real state.
		case ev.Record.SessionID != sessionID:
			forcedLogout(ForcedLogoutSuperseded)
		}
	})
	close(ready)

	return stop, nil
}
