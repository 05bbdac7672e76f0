package services

import (
	"encoding/json"
	"strconv"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/notify"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor is the (user, device) pair a privileged action is attributed to.
// A nil UserID means the system acted on its own.
type Actor struct {
	UserID   *uint
	DeviceID string
}

func UserActor(userID uint, deviceID string) Actor {
	return Actor{UserID: &userID, DeviceID: deviceID}
}

func SystemActor(deviceID string) Actor {
	return Actor{DeviceID: deviceID}
}

// State is a JSON snapshot stored with an audit entry.
type State map[string]any

// Audit actions
const (
	ActionUserCreate          = "USER_CREATE"
	ActionUserFreeze          = "USER_FREEZE"
	ActionUserUnfreeze        = "USER_UNFREEZE"
	ActionUserActivate        = "USER_ACTIVATE"
	ActionUserDeactivate      = "USER_DEACTIVATE"
	ActionUserPasswordChange  = "USER_PASSWORD_CHANGE"
	ActionLogin               = "LOGIN"
	ActionLogout              = "LOGOUT"
	ActionSessionAutoLogout   = "SESSION_AUTO_LOGOUT"
	ActionRoleCreate          = "ROLE_CREATE"
	ActionRolePermsSet        = "ROLE_PERMS_SET"
	ActionUserRolesSet        = "USER_ROLES_SET"
	ActionStructureUpsert     = "FIGHT_STRUCTURE_UPSERT"
	ActionMatchCreate         = "MATCH_CREATE"
	ActionMatchCancelPrelock  = "MATCH_CANCEL_PRELOCK"
	ActionMatchStart          = "MATCH_START"
	ActionMatchStop           = "MATCH_STOP"
	ActionMatchResultSet      = "MATCH_RESULT_SET"
	ActionMatchResultOverride = "MATCH_RESULT_OVERRIDE"
	ActionMatchVoid           = "MATCH_VOID"
	ActionEntryCreate         = "ENTRY_CREATE"
	ActionEntryCancelPrelock  = "ENTRY_CANCEL_PRELOCK"
	ActionBetEncode           = "BET_ENCODE"
	ActionBetPrint            = "BET_PRINT"
	ActionBetPayout           = "BET_PAYOUT"
	ActionBetArchive          = "BET_ARCHIVE"
	ActionDrawerOpen          = "DRAWER_OPEN"
	ActionDrawerClose         = "DRAWER_CLOSE"
	ActionCashMove            = "CASH_MOVE"
	ActionCanteenItemCreate   = "CANTEEN_ITEM_CREATE"
	ActionCanteenItemUpdate   = "CANTEEN_ITEM_UPDATE"
	ActionCanteenStockIn      = "CANTEEN_STOCK_IN"
	ActionCanteenSale         = "CANTEEN_SALE"
)

// Audited entity types
const (
	EntityUser           = "user"
	EntitySession        = "session"
	EntityRole           = "role"
	EntityFightStructure = "fight_structure"
	EntityFightMatch     = "fight_match"
	EntityFightEntry     = "fight_entry"
	EntityFightResult    = "fight_result"
	EntityBetSlip        = "bet_slip"
	EntityCashDrawer     = "cash_drawer"
	EntityCashMovement   = "cash_movement"
	EntityCanteenItem    = "canteen_item"
	EntityCanteenSale    = "canteen_sale"
)

// alertActions are forwarded to the supervisor notifier once committed.
var alertActions = map[string]bool{
	ActionMatchVoid:           true,
	ActionMatchResultOverride: true,
	ActionUserFreeze:          true,
}

// AuditService appends entries to the audit trail inside the caller's unit
// of work. It has no update or delete operation.
type AuditService struct {
	db     *gorm.DB
	now    clock.Clock
	alerts []notify.Alert
}

func NewAuditService(db *gorm.DB, now clock.Clock) *AuditService {
	return &AuditService{db: db, now: now}
}

// Record appends one entry. An empty entityID is stored as NULL. A failed
// write is returned so the enclosing unit of work rolls back.
func (s *AuditService) Record(actor Actor, action, entityType, entityID string, prev, next, meta State) error {
	entry := &models.AuditLog{
		ActorUserID:   actor.UserID,
		ActorDeviceID: actor.DeviceID,
		Action:        action,
		EntityType:    entityType,
		CreatedAt:     s.now(),
	}
	if entityID != "" {
		entry.EntityID = &entityID
	}

	var err error
	if entry.PreviousState, err = marshalState(prev); err != nil {
		return errors.Internal(err, "failed to encode audit snapshot")
	}
	if entry.NewState, err = marshalState(next); err != nil {
		return errors.Internal(err, "failed to encode audit snapshot")
	}
	if entry.Metadata, err = marshalState(meta); err != nil {
		return errors.Internal(err, "failed to encode audit metadata")
	}

	if err := s.db.Create(entry).Error; err != nil {
		return errors.Internal(err, "failed to write audit entry")
	}

	if alertActions[action] {
		s.alerts = append(s.alerts, notify.Alert{
			Action:      action,
			EntityType:  entityType,
			EntityID:    entityID,
			ActorUserID: actor.UserID,
			DeviceID:    actor.DeviceID,
			At:          entry.CreatedAt,
			Metadata:    meta,
		})
	}
	return nil
}

// Alerts returns the alert-worthy entries recorded so far.
func (s *AuditService) Alerts() []notify.Alert {
	return s.alerts
}

func marshalState(v State) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
