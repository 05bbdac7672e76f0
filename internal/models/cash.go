package models

import (
	"time"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

type DrawerType string

const (
	DrawerBettingCashier DrawerType = "BETTING_CASHIER"
	DrawerCanteen        DrawerType = "CANTEEN"
)

func (t DrawerType) Valid() bool {
	return t == DrawerBettingCashier || t == DrawerCanteen
}

type MovementType string

const (
	MovementBetIn         MovementType = "BET_IN"
	MovementPayoutOut     MovementType = "PAYOUT_OUT"
	MovementCanteenSaleIn MovementType = "CANTEEN_SALE_IN"
	MovementAdjustmentIn  MovementType = "ADJUSTMENT_IN"
	MovementAdjustmentOut MovementType = "ADJUSTMENT_OUT"
)

// Inflow reports whether the movement adds to the drawer balance. Every
// other movement type is an outflow.
func (t MovementType) Inflow() bool {
	switch t {
	case MovementBetIn, MovementAdjustmentIn, MovementCanteenSaleIn:
		return true
	}
	return false
}

func (t MovementType) Valid() bool {
	switch t {
	case MovementBetIn, MovementPayoutOut, MovementCanteenSaleIn, MovementAdjustmentIn, MovementAdjustmentOut:
		return true
	}
	return false
}

// AllowedOn reports whether the movement may be booked on a drawer of
// type d. Betting and canteen movements never cross drawer families.
func (t MovementType) AllowedOn(d DrawerType) bool {
	switch t {
	case MovementBetIn, MovementPayoutOut:
		return d == DrawerBettingCashier
	case MovementCanteenSaleIn:
		return d == DrawerCanteen
	}
	return d.Valid()
}

// Delta returns the signed balance change for amount.
func (t MovementType) Delta(amount int64) int64 {
	if t.Inflow() {
		return amount
	}
	return -amount
}

type CashDrawer struct {
	ID          uint       `gorm:"primaryKey"`
	DrawerType  DrawerType `gorm:"type:varchar(20);not null;index;check:chk_cash_drawers_type,drawer_type IN ('BETTING_CASHIER','CANTEEN')"`
	Name        string     `gorm:"type:varchar(100);not null"`
	OwnerUserID *uint      `gorm:"index"`
	OpenedAt    time.Time  `gorm:"not null"`
	ClosedAt    *time.Time
	OpeningCash int64 `gorm:"not null;check:chk_cash_drawers_opening,opening_cash >= 0"`
	CurrentCash int64 `gorm:"not null"`
}

func (d *CashDrawer) Open() bool {
	return d.ClosedAt == nil
}

func (CashDrawer) TableName() string {
	return "cash_drawers"
}

// CashMovement is one append-only signed ledger line against a drawer.
type CashMovement struct {
	ID            uint         `gorm:"primaryKey"`
	DrawerID      uint         `gorm:"not null;index"`
	Drawer        CashDrawer   `gorm:"foreignKey:DrawerID;constraint:OnDelete:RESTRICT"`
	MovementType  MovementType `gorm:"type:varchar(20);not null;index;check:chk_cash_movements_type,movement_type IN ('BET_IN','PAYOUT_OUT','CANTEEN_SALE_IN','ADJUSTMENT_IN','ADJUSTMENT_OUT')"`
	ReferenceType string       `gorm:"type:varchar(32)"`
	ReferenceID   string       `gorm:"type:varchar(64)"`
	Amount        int64        `gorm:"not null;check:chk_cash_movements_amount,amount > 0"`
	Notes         string       `gorm:"type:text"`
	CreatedBy     *uint
	CreatedAt     time.Time `gorm:"not null;index"`
}

// BeforeCreate hook for validation
func (m *CashMovement) BeforeCreate(tx *gorm.DB) error {
	if !m.MovementType.Valid() {
		return errors.Validation("unknown movement type")
	}
	if m.Amount <= 0 {
		return errors.Validation("amount must be > 0")
	}
	return nil
}

func (CashMovement) TableName() string {
	return "cash_movements"
}
