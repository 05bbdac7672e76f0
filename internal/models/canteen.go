package models

import (
	"time"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

type CanteenItem struct {
	ID        uint      `gorm:"primaryKey"`
	SKU       string    `gorm:"column:sku;type:varchar(64);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(255);not null"`
	UnitPrice int64     `gorm:"not null;check:chk_canteen_items_price,unit_price >= 0"`
	IsActive  bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CanteenItem) TableName() string {
	return "canteen_items"
}

type StockMovementType string

const (
	StockIn  StockMovementType = "IN"
	StockOut StockMovementType = "OUT"
)

// Stock movement reference types
const (
	StockRefManual = "MANUAL"
	StockRefSale   = "SALE"
)

type StockMovement struct {
	ID            uint              `gorm:"primaryKey"`
	ItemID        uint              `gorm:"not null;index"`
	Item          CanteenItem       `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
	MovementType  StockMovementType `gorm:"type:varchar(8);not null;check:chk_stock_movements_type,movement_type IN ('IN','OUT')"`
	Qty           int64             `gorm:"not null;check:chk_stock_movements_qty,qty > 0"`
	UnitCost      *int64            `gorm:"check:chk_stock_movements_cost,unit_cost IS NULL OR unit_cost >= 0"`
	ReferenceType string            `gorm:"type:varchar(32)"`
	ReferenceID   string            `gorm:"type:varchar(64)"`
	CreatedBy     *uint
	CreatedAt     time.Time `gorm:"not null"`
}

// BeforeCreate hook for validation
func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.MovementType != StockIn && m.MovementType != StockOut {
		return errors.Validation("stock movement must be IN or OUT")
	}
	if m.Qty <= 0 {
		return errors.Validation("qty must be > 0")
	}
	if m.UnitCost != nil && *m.UnitCost < 0 {
		return errors.Validation("unit cost must be >= 0")
	}
	return nil
}

func (StockMovement) TableName() string {
	return "canteen_stock_movements"
}

// Sale status constants
const (
	SaleStatusPaid = "PAID"
)

type Sale struct {
	ID            uint       `gorm:"primaryKey"`
	ReceiptNumber string     `gorm:"type:varchar(32);uniqueIndex;not null"`
	DrawerID      uint       `gorm:"not null;index"`
	Drawer        CashDrawer `gorm:"foreignKey:DrawerID;constraint:OnDelete:RESTRICT"`
	SoldBy        *uint      `gorm:"index"`
	SoldAt        time.Time  `gorm:"not null;index"`
	TotalAmount   int64      `gorm:"not null;check:chk_canteen_sales_total,total_amount >= 0"`
	Status        string     `gorm:"type:varchar(16);not null"`
	Lines         []SaleLine `gorm:"foreignKey:SaleID"`
}

func (Sale) TableName() string {
	return "canteen_sales"
}

type SaleLine struct {
	ID        uint        `gorm:"primaryKey"`
	SaleID    uint        `gorm:"not null;index"`
	ItemID    uint        `gorm:"not null;index"`
	Item      CanteenItem `gorm:"foreignKey:ItemID;constraint:OnDelete:RESTRICT"`
	Qty       int64       `gorm:"not null;check:chk_canteen_sale_lines_qty,qty > 0"`
	UnitPrice int64       `gorm:"not null"`
	LineTotal int64       `gorm:"not null"`
}

func (SaleLine) TableName() string {
	return "canteen_sale_lines"
}
