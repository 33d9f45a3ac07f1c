package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"clinic-federation-service/internal/domain"
	"clinic-federation-service/internal/observability"
	"clinic-federation-service/internal/provisioning"
	"clinic-federation-service/internal/repository"
	"clinic-federation-service/internal/security"
)

var (
	ErrBlankLegalID         = errors.New("legal id must not be blank")
	ErrRemoteBaseURLMissing = errors.New("node has no remote base url configured")
	ErrUnknownResyncAction  = errors.New("unknown resync action")
	ErrRemoteSyncFailed     = errors.New("peripheral node sync failed")
)

// Resync actions accepted by NotifyPeripheralNode.
const (
	ResyncActionInit   = "init"
	ResyncActionUpdate = "update"
	ResyncActionDelete = "delete"
)

// emailPattern matches the first RFC-shaped address inside free-form contact
// text such as "Dr. Smith <admin@clinic.com>, ext. 204".
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// ProvisioningClient is the outbound surface the orchestrator needs; the
// concrete implementation lives in the provisioning package.
type ProvisioningClient interface {
	InitializeTenant(ctx context.Context, baseURL string, payload provisioning.TenantPayload) provisioning.InitResult
	UpdateTenant(ctx context.Context, baseURL string, payload provisioning.TenantPayload) bool
	DeleteTenant(ctx context.Context, baseURL, legalID string) bool
}

// NodeLifecycleService owns the peripheral-node state machine:
// PENDING → ACTIVE → INACTIVE. Create/update/delete notify the remote side
// best-effort; only the explicit resync path treats remote failure as fatal.
type NodeLifecycleService struct {
	nodes             repository.NodeRepository
	remote            ProvisioningClient
	notifier          InviteNotifier
	logger            *slog.Logger
	activationTTL     time.Duration
	activationURLBase string
}

func NewNodeLifecycleService(
	nodes repository.NodeRepository,
	remote ProvisioningClient,
	notifier InviteNotifier,
	logger *slog.Logger,
	activationTTL time.Duration,
	activationURLBase string,
) *NodeLifecycleService {
	return &NodeLifecycleService{
		nodes:             nodes,
		remote:            remote,
		notifier:          notifier,
		logger:            logger,
		activationTTL:     activationTTL,
		activationURLBase: activationURLBase,
	}
}

// CreateAndNotify persists the node, attaches a fresh activation token and
// URL, and best-effort emails the first address found in the contact field.
// A notifier failure never fails the create.
func (s *NodeLifecycleService) CreateAndNotify(ctx context.Context, node *domain.PeripheralNode) (*domain.PeripheralNode, error) {
	if strings.TrimSpace(node.LegalID) == "" {
		return nil, ErrBlankLegalID
	}
	if node.State == "" {
		node.State = domain.NodeStatePending
	}
	if err := s.nodes.Create(node); err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "create", "error")
		return nil, fmt.Errorf("create node: %w", err)
	}

	token, err := security.NewRandomString(32)
	if err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "create", "error")
		return nil, fmt.Errorf("generate activation token: %w", err)
	}
	expiresAt := time.Now().UTC().Add(s.activationTTL)
	activationURL := fmt.Sprintf("%s?token=%s", s.activationURLBase, url.QueryEscape(token))
	if err := s.nodes.SetActivation(node.ID, token, activationURL, expiresAt); err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "create", "error")
		return nil, fmt.Errorf("persist activation token: %w", err)
	}
	node.ActivationToken = &token
	node.ActivationURL = &activationURL
	node.TokenExpiresAt = &expiresAt

	if email := extractEmail(node.Contact); email != "" {
		invitation := NodeInvitation{
			NodeID:        node.ID,
			LegalID:       node.LegalID,
			Email:         email,
			ActivationURL: activationURL,
			ExpiresAt:     expiresAt,
		}
		if err := s.notifier.SendNodeInvitation(ctx, invitation); err != nil {
			s.logger.WarnContext(ctx, "invitation delivery failed",
				"node_id", node.ID, "email", email, "error", err)
		}
	}

	observability.RecordNodeLifecycleEvent(ctx, "create", "success")
	return node, nil
}

// UpdateAndNotify persists the update unconditionally, then best-effort
// pushes it to the remote side. The local write is never rolled back.
func (s *NodeLifecycleService) UpdateAndNotify(ctx context.Context, node *domain.PeripheralNode) (*domain.PeripheralNode, error) {
	if err := s.nodes.Save(node); err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "update", "error")
		return nil, fmt.Errorf("update node: %w", err)
	}

	if baseURL := provisioning.NormalizeBaseURL(strings.TrimSpace(node.RemoteBaseURL)); baseURL != "" {
		if ok := s.remote.UpdateTenant(ctx, baseURL, tenantPayload(node)); !ok {
			s.logger.WarnContext(ctx, "best-effort remote update failed",
				"node_id", node.ID, "base_url", baseURL)
		}
	}

	observability.RecordNodeLifecycleEvent(ctx, "update", "success")
	return node, nil
}

// DeleteAndNotify best-effort tears the tenant down remotely, then always
// deactivates the local record.
func (s *NodeLifecycleService) DeleteAndNotify(ctx context.Context, id uint) error {
	node, err := s.nodes.FindByID(id)
	if err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "delete", "error")
		return err
	}

	if baseURL := provisioning.NormalizeBaseURL(strings.TrimSpace(node.RemoteBaseURL)); baseURL != "" {
		if ok := s.remote.DeleteTenant(ctx, baseURL, node.LegalID); !ok {
			s.logger.WarnContext(ctx, "best-effort remote teardown failed",
				"node_id", node.ID, "base_url", baseURL)
		}
	}

	if err := s.nodes.UpdateState(id, domain.NodeStateInactive); err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "delete", "error")
		return fmt.Errorf("deactivate node: %w", err)
	}
	observability.RecordNodeLifecycleEvent(ctx, "delete", "success")
	return nil
}

// NotifyPeripheralNode is the explicit resync: its whole point is to confirm
// or repair connectivity, so remote failure here is fatal.
func (s *NodeLifecycleService) NotifyPeripheralNode(ctx context.Context, id uint, action string) error {
	node, err := s.nodes.FindByID(id)
	if err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
		return err
	}
	baseURL := provisioning.NormalizeBaseURL(strings.TrimSpace(node.RemoteBaseURL))
	if baseURL == "" {
		observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
		return ErrRemoteBaseURLMissing
	}

	switch action {
	case ResyncActionInit:
		res := s.remote.InitializeTenant(ctx, baseURL, tenantPayload(node))
		if !res.Success {
			observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
			return fmt.Errorf("%w: %s", ErrRemoteSyncFailed, res.ErrorMessage)
		}
		if node.State == domain.NodeStatePending {
			if err := s.nodes.UpdateState(id, domain.NodeStateActive); err != nil {
				observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
				return fmt.Errorf("activate node after init: %w", err)
			}
		}
	case ResyncActionUpdate:
		if ok := s.remote.UpdateTenant(ctx, baseURL, tenantPayload(node)); !ok {
			observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
			return fmt.Errorf("%w: update rejected by %s", ErrRemoteSyncFailed, baseURL)
		}
	case ResyncActionDelete:
		if ok := s.remote.DeleteTenant(ctx, baseURL, node.LegalID); !ok {
			observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
			return fmt.Errorf("%w: delete rejected by %s", ErrRemoteSyncFailed, baseURL)
		}
	default:
		observability.RecordNodeLifecycleEvent(ctx, "resync", "error")
		return fmt.Errorf("%w: %q", ErrUnknownResyncAction, action)
	}

	observability.RecordNodeLifecycleEvent(ctx, "resync", "success")
	return nil
}

// UpdateState applies a direct state transition. A missing node is a no-op,
// not an error.
func (s *NodeLifecycleService) UpdateState(ctx context.Context, id uint, state domain.NodeState) error {
	err := s.nodes.UpdateState(id, state)
	if errors.Is(err, repository.ErrNodeNotFound) {
		observability.RecordNodeLifecycleEvent(ctx, "update_state", "not_found")
		return nil
	}
	if err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "update_state", "error")
		return err
	}
	observability.RecordNodeLifecycleEvent(ctx, "update_state", "success")
	return nil
}

// Purge physically removes an INACTIVE node.
func (s *NodeLifecycleService) Purge(ctx context.Context, id uint) error {
	if err := s.nodes.Purge(id); err != nil {
		observability.RecordNodeLifecycleEvent(ctx, "purge", "error")
		return err
	}
	observability.RecordNodeLifecycleEvent(ctx, "purge", "success")
	return nil
}

func (s *NodeLifecycleService) GetNode(id uint) (*domain.PeripheralNode, error) {
	return s.nodes.FindByID(id)
}

func (s *NodeLifecycleService) ListNodes(page repository.PageRequest) (repository.PageResult[domain.PeripheralNode], error) {
	return s.nodes.List(page)
}

func tenantPayload(node *domain.PeripheralNode) provisioning.TenantPayload {
	return provisioning.TenantPayload{
		ID:             node.ID,
		LegalID:        node.LegalID,
		Name:           node.Name,
		Department:     node.Department,
		Locality:       node.Locality,
		Address:        node.Address,
		RemoteBaseURL:  node.RemoteBaseURL,
		RemoteUser:     node.RemoteUser,
		RemotePassword: node.RemotePassword,
		Contact:        node.Contact,
		URL:            node.URL,
	}
}

func extractEmail(contact string) string {
	return emailPattern.FindString(contact)
}
