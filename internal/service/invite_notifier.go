package service

import (
	"context"
	"log/slog"
	"time"
)

type NodeInvitation struct {
	NodeID        uint
	LegalID       string
	Email         string
	ActivationURL string
	ExpiresAt     time.Time
}

// InviteNotifier delivers the onboarding invitation to a clinic contact.
// The orchestrator treats it as fire-and-forget.
type InviteNotifier interface {
	SendNodeInvitation(ctx context.Context, invitation NodeInvitation) error
}

type DevInviteNotifier struct {
	logger *slog.Logger
}

func NewDevInviteNotifier(logger *slog.Logger) *DevInviteNotifier {
	return &DevInviteNotifier{logger: logger}
}

func (n *DevInviteNotifier) SendNodeInvitation(ctx context.Context, invitation NodeInvitation) error {
	n.logger.InfoContext(ctx, "node invitation issued",
		"node_id", invitation.NodeID,
		"legal_id", invitation.LegalID,
		"email", invitation.Email,
		"expires_at", invitation.ExpiresAt,
		"activation_url", invitation.ActivationURL,
	)
	return nil
}
