package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"clinic-federation-service/internal/domain"
	"clinic-federation-service/internal/observability"
)

var (
	ErrNodeNotFound      = errors.New("peripheral node not found")
	ErrDuplicateLegalID  = errors.New("legal id already registered")
	ErrNodeNotPurgeable  = errors.New("only inactive nodes can be purged")
)

type NodeRepository interface {
	Create(node *domain.PeripheralNode) error
	Save(node *domain.PeripheralNode) error
	SetActivation(id uint, token, activationURL string, expiresAt time.Time) error
	FindByID(id uint) (*domain.PeripheralNode, error)
	FindByLegalID(legalID string) (*domain.PeripheralNode, error)
	List(page PageRequest) (PageResult[domain.PeripheralNode], error)
	UpdateState(id uint, state domain.NodeState) error
	Purge(id uint) error
}

type GormNodeRepository struct{ db *gorm.DB }

func NewNodeRepository(db *gorm.DB) NodeRepository {
	return &GormNodeRepository{db: db}
}

func (r *GormNodeRepository) Create(node *domain.PeripheralNode) error {
	node.LegalID = strings.TrimSpace(node.LegalID)
	if err := r.db.Create(node).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "create", "conflict")
			return ErrDuplicateLegalID
		}
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "create", "success")
	return nil
}

func (r *GormNodeRepository) Save(node *domain.PeripheralNode) error {
	if err := r.db.Save(node).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "save", "conflict")
			return ErrDuplicateLegalID
		}
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "save", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "save", "success")
	return nil
}

func (r *GormNodeRepository) SetActivation(id uint, token, activationURL string, expiresAt time.Time) error {
	res := r.db.Model(&domain.PeripheralNode{}).Where("id = ?", id).Updates(map[string]any{
		"activation_token": token,
		"activation_url":   activationURL,
		"token_expires_at": expiresAt,
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "set_activation", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "set_activation", "not_found")
		return ErrNodeNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "set_activation", "success")
	return nil
}

func (r *GormNodeRepository) FindByID(id uint) (*domain.PeripheralNode, error) {
	var node domain.PeripheralNode
	if err := r.db.First(&node, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "find_by_id", "not_found")
			return nil, ErrNodeNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "find_by_id", "success")
	return &node, nil
}

func (r *GormNodeRepository) FindByLegalID(legalID string) (*domain.PeripheralNode, error) {
	var node domain.PeripheralNode
	err := r.db.Where("legal_id = ?", strings.TrimSpace(legalID)).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "find_by_legal_id", "not_found")
			return nil, ErrNodeNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "find_by_legal_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "find_by_legal_id", "success")
	return &node, nil
}

func (r *GormNodeRepository) List(page PageRequest) (PageResult[domain.PeripheralNode], error) {
	page = normalizePageRequest(page)
	var total int64
	if err := r.db.Model(&domain.PeripheralNode{}).Count(&total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "list", "error")
		return PageResult[domain.PeripheralNode]{}, err
	}
	var nodes []domain.PeripheralNode
	err := r.db.Order("legal_id asc").
		Offset((page.Page - 1) * page.PageSize).
		Limit(page.PageSize).
		Find(&nodes).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "list", "error")
		return PageResult[domain.PeripheralNode]{}, err
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "list", "success")
	return PageResult[domain.PeripheralNode]{
		Items:      nodes,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      total,
		TotalPages: calcTotalPages(total, page.PageSize),
	}, nil
}

// UpdateState writes the new state. Activation material is only valid while a
// node is PENDING, so leaving that state clears it in the same write.
func (r *GormNodeRepository) UpdateState(id uint, state domain.NodeState) error {
	updates := map[string]any{"state": state}
	if state != domain.NodeStatePending {
		updates["activation_token"] = nil
		updates["activation_url"] = nil
		updates["token_expires_at"] = nil
	}
	res := r.db.Model(&domain.PeripheralNode{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "update_state", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "update_state", "not_found")
		return ErrNodeNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "update_state", "success")
	return nil
}

// Purge physically removes an INACTIVE node, releasing its legal id for
// re-onboarding. Active and pending nodes are protected.
func (r *GormNodeRepository) Purge(id uint) error {
	res := r.db.Where("id = ? AND state = ?", id, domain.NodeStateInactive).Delete(&domain.PeripheralNode{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "purge", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		var node domain.PeripheralNode
		if err := r.db.First(&node, id).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "purge", "not_found")
			return ErrNodeNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "purge", "conflict")
		return ErrNodeNotPurgeable
	}
	observability.RecordRepositoryOperation(context.Background(), "peripheral_node", "purge", "success")
	return nil
}
