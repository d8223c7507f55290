package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type pendingLogin struct {
	verifier string
	expires  time.Time
}

// pendingLogins remembers issued OAuth states until they are used once or expire.
type pendingLogins struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]pendingLogin
}

func newPendingLogins(ttl time.Duration) *pendingLogins {
	return &pendingLogins{ttl: ttl, items: make(map[string]pendingLogin)}
}

// begin issues a state and its PKCE verifier. Expired entries are dropped on
// the way so abandoned logins do not accumulate.
func (p *pendingLogins) begin(now time.Time) (state, verifier string) {
	state, verifier = uuid.NewString(), oauth2.GenerateVerifier()
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.items {
		if now.After(v.expires) {
			delete(p.items, k)
		}
	}
	p.items[state] = pendingLogin{verifier: verifier, expires: now.Add(p.ttl)}
	return state, verifier
}

// finish consumes state and returns its verifier if it was still valid.
func (p *pendingLogins) finish(state string, now time.Time) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.items[state]
	delete(p.items, state)
	if !ok || now.After(entry.expires) {
		return "", false
	}
	return entry.verifier, true
}

func (p *pendingLogins) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
