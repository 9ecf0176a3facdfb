package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewlane/memberd/pkg/cryptox"
	"github.com/crewlane/memberd/pkg/slogx"
)

// InviteNotification carries everything a mail sender needs to render an
// invitation email. Rendering and delivery live outside this service; we
// only emit the event.
type InviteNotification struct {
	InviteID   string
	TenantID   string
	TenantName string
	Email      string
	Role       string
	AcceptURL  string
	ExpiresAt  time.Time
	Resend     bool
}

// Notifier receives invite lifecycle events. Implementations must tolerate
// being called after the invite row is committed; there is no rollback path
// back into the store.
type Notifier interface {
	InviteCreated(ctx context.Context, n InviteNotification)
}

// LogNotifier is the default Notifier: it logs the event instead of
// delivering anything. The accept URL is fingerprinted so the raw token
// never lands in log output.
type LogNotifier struct{}

func (LogNotifier) InviteCreated(ctx context.Context, n InviteNotification) {
	slogx.FromContext(ctx).Info("invite created",
		slog.String("invite_id", n.InviteID),
		slog.String("tenant_id", n.TenantID),
		slog.String("email", n.Email),
		slog.String("role", n.Role),
		slog.String("accept_url_fp", cryptox.FingerprintToken(n.AcceptURL)),
		slog.Time("expires_at", n.ExpiresAt),
		slog.Bool("resend", n.Resend),
	)
}
