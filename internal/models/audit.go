package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog rows are write-once; the store rejects UPDATE and DELETE.
type AuditLog struct {
	ID            uint           `gorm:"primaryKey"`
	ActorUserID   *uint          `gorm:"index"`
	ActorDeviceID string         `gorm:"type:varchar(255);not null"`
	Action        string         `gorm:"type:varchar(64);not null;index"`
	EntityType    string         `gorm:"type:varchar(32);not null;index"`
	EntityID      *string        `gorm:"type:varchar(64)"`
	PreviousState datatypes.JSON `gorm:"column:previous_state_json"`
	NewState      datatypes.JSON `gorm:"column:new_state_json"`
	Metadata      datatypes.JSON `gorm:"column:metadata_json"`
	CreatedAt     time.Time      `gorm:"not null;index"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}
