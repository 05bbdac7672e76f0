package models

import (
	"time"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SlipStatus string

const (
	SlipEncoded  SlipStatus = "ENCODED"
	SlipPrinted  SlipStatus = "PRINTED"
	SlipPaid     SlipStatus = "PAID"
	SlipArchived SlipStatus = "ARCHIVED"
)

type BetSlip struct {
	ID           uint           `gorm:"primaryKey"`
	SlipNumber   string         `gorm:"type:varchar(32);uniqueIndex;not null"`
	MatchID      uint           `gorm:"not null;index"`
	Match        FightMatch     `gorm:"foreignKey:MatchID;constraint:OnDelete:RESTRICT"`
	Side         Side           `gorm:"type:varchar(8);not null;check:chk_bet_slips_side,side IN ('WALA','MERON','DRAW')"`
	Amount       int64          `gorm:"not null;check:chk_bet_slips_amount,amount > 0"`
	OddsSnapshot datatypes.JSON `gorm:"not null"`
	Status       SlipStatus     `gorm:"type:varchar(16);not null;index;check:chk_bet_slips_status,status IN ('ENCODED','PRINTED','PAID','ARCHIVED')"`
	EncodedBy    *uint          `gorm:"index"`
	EncodedAt    time.Time      `gorm:"not null;index"`
	PrintedAt    *time.Time
	PayoutBy     *uint
	PayoutAt     *time.Time
	PayoutAmount *int64
	QRPayload    string `gorm:"column:qr_payload;type:varchar(64);uniqueIndex;not null"`
	DeviceID     string `gorm:"type:varchar(255)"`
	ArchivedAt   *time.Time
}

// BeforeCreate hook for validation
func (b *BetSlip) BeforeCreate(tx *gorm.DB) error {
	if !b.Side.BetSide() {
		return errors.Validation("side must be WALA, MERON, or DRAW")
	}
	if b.Amount <= 0 {
		return errors.Validation("amount must be > 0")
	}
	if b.QRPayload == "" || b.SlipNumber == "" {
		return errors.Validation("slip number and QR payload are required")
	}
	return nil
}

func (BetSlip) TableName() string {
	return "bet_slips"
}
