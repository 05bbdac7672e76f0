package repositories

import (
	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

const defaultAuditLimit = 500

// AuditFilter narrows the audit listing. Zero fields match everything.
type AuditFilter struct {
	Action      string
	EntityType  string
	EntityID    string
	ActorUserID *uint
	Limit       int
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// List returns matching entries, newest first.
func (r *AuditRepository) List(filter AuditFilter) ([]models.AuditLog, error) {
	q := r.db.Model(&models.AuditLog{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.ActorUserID != nil {
		q = q.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	var entries []models.AuditLog
	if err := q.Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to list audit log")
	}
	return entries, nil
}
