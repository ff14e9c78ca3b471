package auth

import (
	"context"
	"sync"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// StateChange is delivered to listeners when a user signs in or out
type StateChange struct {
	UserID   string
	Identity *Identity // nil on sign-out
}

// SignedIn reports whether the change is a sign-in
func (c StateChange) SignedIn() bool {
	return c.Identity != nil
}

// Listener reacts to auth state changes. Its error is logged, never returned to the caller.
type Listener func(ctx context.Context, change StateChange) error

// Provider verifies tokens and notifies listeners of sign-in and sign-out
type Provider struct {
	verifier *Verifier
	logger   *zap.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewProvider creates a new auth provider
func NewProvider(verifier *Verifier) *Provider {
	return &Provider{
		verifier: verifier,
		logger:   util.GetLogger(),
	}
}

// Verify validates a bearer token
func (p *Provider) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}
	return p.verifier.Verify(token)
}

// OnAuthStateChanged registers a listener. Listeners run in registration order.
func (p *Provider) OnAuthStateChanged(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// SignIn announces that identity has started a session
func (p *Provider) SignIn(ctx context.Context, identity *Identity) {
	if identity == nil {
		return
	}
	p.notify(ctx, StateChange{UserID: identity.UserID, Identity: identity})
}

// SignOut announces that userID has ended its session
func (p *Provider) SignOut(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	p.notify(ctx, StateChange{UserID: userID})
}

func (p *Provider) notify(ctx context.Context, change StateChange) {
	p.mu.RLock()
	listeners := make([]Listener, len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, change); err != nil {
			p.logger.Error("Auth state listener failed",
				zap.String("user_id", change.UserID),
				zap.Bool("signed_in", change.SignedIn()),
				zap.Error(err))
		}
	}
}
