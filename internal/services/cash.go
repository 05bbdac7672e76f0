package services

import (
	"fmt"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement reference types
const (
	RefBetSlip     = "BET_SLIP"
	RefCanteenSale = "CANTEEN_SALE"
)

type MovementInput struct {
	CreatedBy     *uint
	DrawerID      uint
	Type          models.MovementType
	Amount        int64
	ReferenceType string
	ReferenceID   string
	Notes         string
}

// Reconciliation compares a drawer's running balance with its ledger.
type Reconciliation struct {
	DrawerID     uint
	OpeningCash  int64
	MovementsNet int64
	Expected     int64
	CurrentCash  int64
	Balanced     bool
}

// CashService keeps one running balance per drawer. Betting and canteen
// drawers never share movements; the store rejects cross-family postings.
type CashService struct {
	db    *gorm.DB
	audit *AuditService
	now   clock.Clock
}

func NewCashService(db *gorm.DB, audit *AuditService, now clock.Clock) *CashService {
	return &CashService{db: db, audit: audit, now: now}
}

func (s *CashService) OpenDrawer(actor Actor, drawerType models.DrawerType, name string, ownerUserID *uint, openingCash int64) (uint, error) {
	if !drawerType.Valid() {
		return 0, errors.Validation("unknown drawer type")
	}
	if openingCash < 0 {
		return 0, errors.Validation("opening cash must be >= 0")
	}
	name = security.SanitizeText(name)
	if name == "" {
		return 0, errors.Validation("drawer name is required")
	}

	drawer := &models.CashDrawer{
		DrawerType:  drawerType,
		Name:        name,
		OwnerUserID: ownerUserID,
		OpenedAt:    s.now(),
		OpeningCash: openingCash,
		CurrentCash: openingCash,
	}
	if err := s.db.Create(drawer).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, errors.Validation("an open drawer already exists for this owner")
		}
		return 0, storeError(err, "failed to open drawer")
	}

	err := s.audit.Record(actor, ActionDrawerOpen, EntityCashDrawer, idString(drawer.ID), nil,
		State{"drawer_type": drawerType, "name": name, "owner_user_id": ownerUserID, "opening_cash": openingCash}, nil)
	return drawer.ID, err
}

// GetOrOpenUserDrawer returns the user's open drawer of drawerType,
// opening an empty one if there is none.
func (s *CashService) GetOrOpenUserDrawer(actor Actor, drawerType models.DrawerType, userID uint) (uint, error) {
	var drawer models.CashDrawer
	err := s.db.Where("drawer_type = ? AND owner_user_id = ? AND closed_at IS NULL", drawerType, userID).Take(&drawer).Error
	if err == nil {
		return drawer.ID, nil
	}
	if !isRecordNotFound(err) {
		return 0, errors.Internal(err, "failed to load drawer")
	}
	return s.OpenDrawer(actor, drawerType, fmt.Sprintf("%s#%d", drawerType, userID), &userID, 0)
}

// RecordMovement appends one movement and applies its signed amount to
// the drawer balance.
func (s *CashService) RecordMovement(actor Actor, in MovementInput) (uint, error) {
	if !in.Type.Valid() {
		return 0, errors.Validation("unknown movement type")
	}
	if in.Amount <= 0 {
		return 0, errors.Validation("amount must be > 0")
	}
	drawer, err := s.GetDrawer(in.DrawerID)
	if err != nil {
		return 0, err
	}
	if !drawer.Open() {
		return 0, errors.Validation("drawer is closed")
	}
	if !in.Type.AllowedOn(drawer.DrawerType) {
		return 0, errors.Validation(fmt.Sprintf("%s is not allowed on a %s drawer", in.Type, drawer.DrawerType))
	}

	movement := &models.CashMovement{
		DrawerID:      in.DrawerID,
		MovementType:  in.Type,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		Amount:        in.Amount,
		Notes:         security.SanitizeText(in.Notes),
		CreatedBy:     in.CreatedBy,
		CreatedAt:     s.now(),
	}
	if err := s.db.Omit(clause.Associations).Create(movement).Error; err != nil {
		return 0, storeError(err, "failed to record movement")
	}

	delta := in.Type.Delta(in.Amount)
	err = s.db.Model(&models.CashDrawer{}).Where("id = ?", in.DrawerID).
		Update("current_cash", gorm.Expr("current_cash + ?", delta)).Error
	if err != nil {
		return 0, errors.Internal(err, "failed to update drawer balance")
	}

	err = s.audit.Record(actor, ActionCashMove, EntityCashMovement, idString(movement.ID), nil,
		State{"drawer_id": in.DrawerID, "movement_type": in.Type, "amount": in.Amount, "delta": delta,
			"reference_type": in.ReferenceType, "reference_id": in.ReferenceID}, nil)
	return movement.ID, err
}

// CloseDrawer stops a drawer from taking movements. Closing twice is a
// no-op.
func (s *CashService) CloseDrawer(actor Actor, drawerID uint) error {
	drawer, err := s.GetDrawer(drawerID)
	if err != nil {
		return err
	}
	if !drawer.Open() {
		return nil
	}
	now := s.now()
	if err := s.db.Model(&models.CashDrawer{}).Where("id = ?", drawerID).Update("closed_at", now).Error; err != nil {
		return errors.Internal(err, "failed to close drawer")
	}
	return s.audit.Record(actor, ActionDrawerClose, EntityCashDrawer, idString(drawerID),
		State{"closed_at": nil}, State{"closed_at": now, "current_cash": drawer.CurrentCash}, nil)
}

func (s *CashService) GetDrawer(drawerID uint) (*models.CashDrawer, error) {
	var drawer models.CashDrawer
	if err := s.db.First(&drawer, drawerID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.NotFound("drawer not found")
		}
		return nil, errors.Internal(err, "failed to load drawer")
	}
	return &drawer, nil
}

// Reconcile recomputes the drawer balance from its movements.
func (s *CashService) Reconcile(drawerID uint) (*Reconciliation, error) {
	drawer, err := s.GetDrawer(drawerID)
	if err != nil {
		return nil, err
	}
	var net int64
	err = s.db.Model(&models.CashMovement{}).
		Select(`COALESCE(SUM(CASE WHEN movement_type IN ('BET_IN', 'ADJUSTMENT_IN', 'CANTEEN_SALE_IN')
			THEN amount ELSE -amount END), 0)`).
		Where("drawer_id = ?", drawerID).
		Scan(&net).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to sum movements")
	}
	expected := drawer.OpeningCash + net
	return &Reconciliation{
		DrawerID:     drawerID,
		OpeningCash:  drawer.OpeningCash,
		MovementsNet: net,
		Expected:     expected,
		CurrentCash:  drawer.CurrentCash,
		Balanced:     expected == drawer.CurrentCash,
	}, nil
}
