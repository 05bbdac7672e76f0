package services

import (
	"strings"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/errors"
	"github.com/mroshb/cockpit/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleLineInput struct {
	ItemID uint
	Qty    int64
}

// SaleReceipt is what the POS prints.
type SaleReceipt struct {
	SaleID        uint
	ReceiptNumber string
	TotalAmount   int64
	Lines         []models.SaleLine
}

// CanteenService keeps the item catalog, its stock ledger, and sales.
type CanteenService struct {
	db    *gorm.DB
	audit *AuditService
	now   clock.Clock
}

func NewCanteenService(db *gorm.DB, audit *AuditService, now clock.Clock) *CanteenService {
	return &CanteenService{db: db, audit: audit, now: now}
}

// ListItems returns the active catalog by name. Pass true to include
// inactive items.
func (s *CanteenService) ListItems(includeInactive bool) ([]models.CanteenItem, error) {
	var items []models.CanteenItem
	q := s.db.Order("name")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, errors.Internal(err, "failed to list items")
	}
	return items, nil
}

// UpsertItem creates the item with sku, or updates its name and price.
func (s *CanteenService) UpsertItem(actor Actor, sku, name string, unitPrice int64) (uint, error) {
	sku = strings.TrimSpace(sku)
	name = security.SanitizeText(name)
	if sku == "" || name == "" {
		return 0, errors.Validation("sku and name are required")
	}
	if unitPrice < 0 {
		return 0, errors.Validation("unit price must be >= 0")
	}

	var existing models.CanteenItem
	err := s.db.Where("sku = ?", sku).Take(&existing).Error
	if err != nil && !isRecordNotFound(err) {
		return 0, errors.Internal(err, "failed to load item")
	}

	if isRecordNotFound(err) {
		item := &models.CanteenItem{SKU: sku, Name: name, UnitPrice: unitPrice, IsActive: true, CreatedAt: s.now()}
		if err := s.db.Create(item).Error; err != nil {
			return 0, storeError(err, "failed to create item")
		}
		err = s.audit.Record(actor, ActionCanteenItemCreate, EntityCanteenItem, idString(item.ID), nil,
			State{"sku": sku, "name": name, "unit_price": unitPrice}, nil)
		return item.ID, err
	}

	err = s.db.Model(&models.CanteenItem{}).Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"name": name, "unit_price": unitPrice}).Error
	if err != nil {
		return 0, storeError(err, "failed to update item")
	}
	err = s.audit.Record(actor, ActionCanteenItemUpdate, EntityCanteenItem, idString(existing.ID),
		State{"name": existing.Name, "unit_price": existing.UnitPrice},
		State{"name": name, "unit_price": unitPrice}, nil)
	return existing.ID, err
}

func (s *CanteenService) SetItemActive(actor Actor, itemID uint, active bool) error {
	item, err := s.getItem(itemID)
	if err != nil {
		return err
	}
	if item.IsActive == active {
		return nil
	}
	if err := s.db.Model(&models.CanteenItem{}).Where("id = ?", itemID).Update("is_active", active).Error; err != nil {
		return errors.Internal(err, "failed to update item")
	}
	return s.audit.Record(actor, ActionCanteenItemUpdate, EntityCanteenItem, idString(itemID),
		State{"is_active": item.IsActive}, State{"is_active": active}, nil)
}

// StockIn appends a manual IN movement.
func (s *CanteenService) StockIn(actor Actor, createdBy *uint, itemID uint, qty int64, unitCost *int64, notes string) error {
	if qty <= 0 {
		return errors.Validation("qty must be > 0")
	}
	if unitCost != nil && *unitCost < 0 {
		return errors.Validation("unit cost must be >= 0")
	}
	if _, err := s.getItem(itemID); err != nil {
		return err
	}

	movement := &models.StockMovement{
		ItemID:        itemID,
		MovementType:  models.StockIn,
		Qty:           qty,
		UnitCost:      unitCost,
		ReferenceType: models.StockRefManual,
		CreatedBy:     createdBy,
		CreatedAt:     s.now(),
	}
	if err := s.db.Omit(clause.Associations).Create(movement).Error; err != nil {
		return storeError(err, "failed to record stock")
	}
	return s.audit.Record(actor, ActionCanteenStockIn, EntityCanteenItem, idString(itemID), nil,
		State{"qty": qty, "unit_cost": unitCost, "notes": security.SanitizeText(notes)}, nil)
}

// CurrentStock is the sum of IN minus OUT quantities.
func (s *CanteenService) CurrentStock(itemID uint) (int64, error) {
	var stock int64
	err := s.db.Model(&models.StockMovement{}).
		Select("COALESCE(SUM(CASE WHEN movement_type = 'IN' THEN qty WHEN movement_type = 'OUT' THEN -qty ELSE 0 END), 0)").
		Where("item_id = ?", itemID).
		Scan(&stock).Error
	if err != nil {
		return 0, errors.Internal(err, "failed to compute stock")
	}
	return stock, nil
}

// CreateSale prices every line from the catalog and checks stock for the
// whole basket before writing the sale, its lines, and one OUT movement
// per line.
func (s *CanteenService) CreateSale(actor Actor, drawerID uint, soldBy *uint, lines []SaleLineInput) (*SaleReceipt, error) {
	if len(lines) == 0 {
		return nil, errors.Validation("sale requires at least one item")
	}

	requested := make(map[uint]int64, len(lines))
	saleLines := make([]models.SaleLine, 0, len(lines))
	var total int64
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, errors.Validation("qty must be > 0")
		}
		var item models.CanteenItem
		err := s.db.Where("id = ? AND is_active = ?", line.ItemID, true).Take(&item).Error
		if isRecordNotFound(err) {
			return nil, errors.Validation("invalid item")
		}
		if err != nil {
			return nil, errors.Internal(err, "failed to load item")
		}

		requested[item.ID] += line.Qty
		stock, err := s.CurrentStock(item.ID)
		if err != nil {
			return nil, err
		}
		if stock < requested[item.ID] {
			return nil, errors.New(errors.ErrCodeInsufficientStock, "insufficient stock for "+item.Name)
		}

		lineTotal := item.UnitPrice * line.Qty
		total += lineTotal
		saleLines = append(saleLines, models.SaleLine{
			ItemID:    item.ID,
			Qty:       line.Qty,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	now := s.now()
	receipt, err := utils.DatedNumber("C", now)
	if err != nil {
		return nil, errors.Internal(err, "failed to generate receipt number")
	}
	sale := &models.Sale{
		ReceiptNumber: receipt,
		DrawerID:      drawerID,
		SoldBy:        soldBy,
		SoldAt:        now,
		TotalAmount:   total,
		Status:        models.SaleStatusPaid,
	}
	if err := s.db.Omit(clause.Associations).Create(sale).Error; err != nil {
		return nil, storeError(err, "failed to create sale")
	}

	for i := range saleLines {
		saleLines[i].SaleID = sale.ID
	}
	if err := s.db.Omit(clause.Associations).Create(&saleLines).Error; err != nil {
		return nil, storeError(err, "failed to create sale lines")
	}

	outs := make([]models.StockMovement, 0, len(saleLines))
	audited := make([]State, 0, len(saleLines))
	for _, line := range saleLines {
		outs = append(outs, models.StockMovement{
			ItemID:        line.ItemID,
			MovementType:  models.StockOut,
			Qty:           line.Qty,
			ReferenceType: models.StockRefSale,
			ReferenceID:   idString(sale.ID),
			CreatedBy:     soldBy,
			CreatedAt:     now,
		})
		audited = append(audited, State{"item_id": line.ItemID, "qty": line.Qty, "unit_price": line.UnitPrice, "line_total": line.LineTotal})
	}
	if err := s.db.Omit(clause.Associations).Create(&outs).Error; err != nil {
		return nil, storeError(err, "failed to record stock out")
	}

	err = s.audit.Record(actor, ActionCanteenSale, EntityCanteenSale, idString(sale.ID), nil,
		State{"receipt_number": receipt, "drawer_id": drawerID, "total_amount": total, "lines": audited}, nil)
	if err != nil {
		return nil, err
	}
	return &SaleReceipt{SaleID: sale.ID, ReceiptNumber: receipt, TotalAmount: total, Lines: saleLines}, nil
}

func (s *CanteenService) getItem(itemID uint) (*models.CanteenItem, error) {
	var item models.CanteenItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.NotFound("item not found")
		}
		return nil, errors.Internal(err, "failed to load item")
	}
	return &item, nil
}
