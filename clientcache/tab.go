package clientcache

import (
	"sync"

	"github.com/google/uuid"
)

// TabHandle models tab-scoped storage: an id that lives exactly as long as
// one tab. It is generated lazily on first use, replaced wholesale by a
// login, and never shared across tabs.
type TabHandle struct {
	mu sync.Mutex
	id string
}

// NewTabHandle returns an empty handle; the id is minted on first EnsureID.
func NewTabHandle() *TabHandle {
	return &TabHandle{}
}

// EnsureID returns the tab id, generating one if the handle is still empty.
func (t *TabHandle) EnsureID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id == "" {
		t.id = uuid.NewString()
	}
	return t.id
}

// Set overwrites the tab id, as a fresh login does.
func (t *TabHandle) Set(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = id
}

// ID returns the current id without generating one.
func (t *TabHandle) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// Clear empties the handle, as an explicit logout does.
func (t *TabHandle) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.id = ""
}
