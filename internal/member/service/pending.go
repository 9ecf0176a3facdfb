package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/crewlane/memberd/pkg/slogx"
)

// PendingAcceptanceCapture parks an invite token for a visitor who followed
// an acceptance link without being logged in, keyed by their session id, and
// replays it exactly once after the auth system reports a successful login.
//
// Entries are in-memory: a deferred acceptance that does not survive a
// process restart just means the visitor clicks the emailed link again.
type PendingAcceptanceCapture struct {
	Invites *InviteService

	// RequireRegistration gates the whole mechanism. When the deployment
	// does not want deferral, Defer refuses and the visitor simply follows
	// their emailed link again after logging in.
	RequireRegistration bool

	// MaxAge bounds how long a parked token waits for a login. Zero means
	// 30 minutes.
	MaxAge time.Duration

	mu      sync.Mutex
	pending map[string]pendingEntry
}

type pendingEntry struct {
	token    string
	parkedAt time.Time
}

// ResumeOutcome reports what happened when a parked token was replayed.
// Warning is set instead of an error for anything that must not fail the
// login itself.
type ResumeOutcome struct {
	Accepted   bool
	TenantID   string
	TenantSlug string
	// RedirectTo is the one-shot post-login redirect target, set on
	// acceptance and on the already-a-member case.
	RedirectTo string
	Warning    string
}

// Warning codes for ResumeOutcome.
const (
	WarnInviteInvalid = "invite_invalid"
	WarnEmailMismatch = "email_mismatch"
	WarnAlreadyMember = "already_member"
)

// Defer parks a token for the session. Reports false when deferral is
// disabled or the token is empty; the most recent token wins when a session
// defers twice.
func (p *PendingAcceptanceCapture) Defer(sessionID, token string) bool {
	if !p.RequireRegistration || sessionID == "" || token == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		p.pending = make(map[string]pendingEntry)
	}
	p.pending[sessionID] = pendingEntry{token: token, parkedAt: time.Now()}
	return true
}

// Resume pops the session's parked token, if any, and attempts acceptance on
// behalf of the now-authenticated user. The token is discarded after one
// attempt no matter how the attempt ends; a failed replay never blocks the
// login, it only surfaces a warning.
func (p *PendingAcceptanceCapture) Resume(ctx context.Context, sessionID, userID string) (ResumeOutcome, error) {
	log := slogx.FromContext(ctx)

	entry, ok := p.take(sessionID)
	if !ok {
		return ResumeOutcome{}, nil
	}

	resolved, err := p.Invites.ResolveByToken(ctx, entry.token)
	if errors.Is(err, ErrInvalidInviteToken) {
		return ResumeOutcome{Warning: WarnInviteInvalid}, nil
	}
	if err != nil {
		return ResumeOutcome{}, err
	}

	outcome := ResumeOutcome{
		TenantID:   resolved.Tenant.ID,
		TenantSlug: resolved.Tenant.Slug,
	}

	_, err = p.Invites.Accept(ctx, resolved, userID)
	switch {
	case err == nil:
		outcome.Accepted = true
		outcome.RedirectTo = "/t/" + resolved.Tenant.Slug
	case errors.Is(err, ErrAlreadyMember):
		outcome.Warning = WarnAlreadyMember
		outcome.RedirectTo = "/t/" + resolved.Tenant.Slug
	case errors.Is(err, ErrEmailMismatch):
		// The account that logged in is not the invited one. The login
		// stands; the invite stays pending for the right account.
		outcome.Warning = WarnEmailMismatch
	case errors.Is(err, ErrInvalidInviteToken):
		outcome.Warning = WarnInviteInvalid
	default:
		log.Error("failed to resume deferred acceptance",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
		return ResumeOutcome{}, err
	}

	log.Info("deferred acceptance resumed",
		slog.String("session_id", sessionID),
		slog.String("tenant_id", outcome.TenantID),
		slog.Bool("accepted", outcome.Accepted),
		slog.String("warning", outcome.Warning),
	)
	return outcome, nil
}

// Release drops any parked token for the session. Call on logout or session
// expiry.
func (p *PendingAcceptanceCapture) Release(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, sessionID)
}

func (p *PendingAcceptanceCapture) take(sessionID string) (pendingEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.pending[sessionID]
	if !ok {
		return pendingEntry{}, false
	}
	delete(p.pending, sessionID)

	maxAge := p.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	if time.Since(entry.parkedAt) > maxAge {
		return pendingEntry{}, false
	}
	return entry, true
}
