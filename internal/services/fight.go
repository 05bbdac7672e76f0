package services

import (
	"strings"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NewMatch struct {
	MatchNumber   string
	StructureCode string
	Rounds        int
	CreatedBy     *uint
}

type NewEntry struct {
	MatchID       uint
	Side          models.Side
	EntryName     string
	Owner         string
	NumCocks      int
	WeightPerCock float64
	Color         string
}

// MatchSnapshot is a match with its live entries and result, if any.
type MatchSnapshot struct {
	Match   models.FightMatch
	Entries []models.FightEntry
	Result  *models.FightResult
}

// FightService owns matches, entries, and results. The lock set by the
// first wager is enforced by the store; the checks here only give clearer
// errors.
type FightService struct {
	db    *gorm.DB
	audit *AuditService
	now   clock.Clock
}

func NewFightService(db *gorm.DB, audit *AuditService, now clock.Clock) *FightService {
	return &FightService{db: db, audit: audit, now: now}
}

func (s *FightService) CreateMatch(actor Actor, in NewMatch) (uint, error) {
	if in.Rounds < 1 {
		return 0, errors.Validation("rounds must be >= 1")
	}
	number := security.SanitizeText(in.MatchNumber)
	if number == "" {
		return 0, errors.Validation("match number is required")
	}

	var structure models.FightStructure
	err := s.db.Where("code = ? AND is_active = ?", in.StructureCode, true).Take(&structure).Error
	if isRecordNotFound(err) {
		return 0, errors.Validation("invalid or inactive fight structure")
	}
	if err != nil {
		return 0, errors.Internal(err, "failed to load fight structure")
	}

	match := &models.FightMatch{
		MatchNumber:   number,
		StructureCode: structure.Code,
		Rounds:        in.Rounds,
		State:         models.MatchDraft,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     s.now(),
	}
	if err := s.db.Create(match).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, errors.New(errors.ErrCodeAlreadyExists, "match number already exists")
		}
		return 0, storeError(err, "failed to create match")
	}
	// The fight number shown to the floor is the match id.
	if err := s.db.Model(&models.FightMatch{}).Where("id = ?", match.ID).
		Update("fight_number", gorm.Expr("COALESCE(fight_number, ?)", match.ID)).Error; err != nil {
		return 0, errors.Internal(err, "failed to assign fight number")
	}

	err = s.audit.Record(actor, ActionMatchCreate, EntityFightMatch, idString(match.ID), nil,
		State{"match_number": match.MatchNumber, "structure_code": match.StructureCode, "rounds": match.Rounds, "state": match.State}, nil)
	return match.ID, err
}

func (s *FightService) AddEntry(actor Actor, in NewEntry) (uint, error) {
	if !in.Side.EntrySide() {
		return 0, errors.Validation("side must be WALA or MERON")
	}
	if in.NumCocks < 1 {
		return 0, errors.Validation("number of cocks must be >= 1")
	}
	if in.WeightPerCock <= 0 {
		return 0, errors.Validation("weight must be > 0")
	}
	name := security.SanitizeText(in.EntryName)
	if name == "" {
		return 0, errors.Validation("entry name is required")
	}

	match, err := s.GetMatch(in.MatchID)
	if err != nil {
		return 0, err
	}
	if match.State.Closed() {
		return 0, errors.Validation("match is " + strings.ToLower(string(match.State)))
	}

	now := s.now()
	entry := &models.FightEntry{
		MatchID:       in.MatchID,
		Side:          in.Side,
		EntryName:     name,
		Owner:         security.SanitizeText(in.Owner),
		NumCocks:      in.NumCocks,
		WeightPerCock: in.WeightPerCock,
		Color:         security.SanitizeText(in.Color),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// A locked match is rejected by the store.
	if err := s.db.Omit(clause.Associations).Create(entry).Error; err != nil {
		return 0, storeError(err, "failed to add entry")
	}

	err = s.audit.Record(actor, ActionEntryCreate, EntityFightEntry, idString(entry.ID), nil,
		State{"match_id": entry.MatchID, "side": entry.Side, "entry_name": entry.EntryName, "owner": entry.Owner,
			"num_cocks": entry.NumCocks, "weight_per_cock": entry.WeightPerCock, "color": entry.Color}, nil)
	return entry.ID, err
}

// CancelEntryPrelock soft-deletes an entry of an unlocked match.
func (s *FightService) CancelEntryPrelock(actor Actor, entryID uint, reason string) error {
	var entry models.FightEntry
	if err := s.db.First(&entry, entryID).Error; err != nil {
		if isRecordNotFound(err) {
			return errors.NotFound("entry not found")
		}
		return errors.Internal(err, "failed to load entry")
	}
	match, err := s.GetMatch(entry.MatchID)
	if err != nil {
		return err
	}
	if match.Locked() {
		return errors.Validation("fight is locked; cannot cancel entry")
	}
	if entry.DeletedAt != nil {
		return nil
	}

	now := s.now()
	err = s.db.Model(&models.FightEntry{}).Where("id = ?", entryID).
		Updates(map[string]interface{}{"deleted_at": now, "updated_at": now}).Error
	if err != nil {
		return storeError(err, "failed to cancel entry")
	}
	return s.audit.Record(actor, ActionEntryCancelPrelock, EntityFightEntry, idString(entryID),
		State{"deleted_at": nil}, State{"deleted_at": now},
		State{"reason": security.SanitizeText(reason), "match_id": entry.MatchID})
}

// CancelMatchPrelock voids a match nobody has bet on yet.
func (s *FightService) CancelMatchPrelock(actor Actor, matchID uint, reason string) error {
	match, err := s.GetMatch(matchID)
	if err != nil {
		return err
	}
	if match.Locked() {
		return errors.Validation("fight is locked; cannot cancel pre-lock")
	}
	if match.State == models.MatchVoided {
		return nil
	}
	if err := s.setState(matchID, models.MatchVoided); err != nil {
		return err
	}
	return s.audit.Record(actor, ActionMatchCancelPrelock, EntityFightMatch, idString(matchID),
		State{"state": match.State}, State{"state": models.MatchVoided},
		State{"reason": security.SanitizeText(reason)})
}

func (s *FightService) StartMatch(actor Actor, matchID uint) error {
	match, err := s.GetMatch(matchID)
	if err != nil {
		return err
	}
	if match.State != models.MatchDraft && match.State != models.MatchLocked {
		return errors.Validation("match cannot be started from state " + string(match.State))
	}
	now := s.now()
	err = s.db.Model(&models.FightMatch{}).Where("id = ?", matchID).Updates(map[string]interface{}{
		"state":      models.MatchActive,
		"started_at": gorm.Expr("COALESCE(started_at, ?)", now),
	}).Error
	if err != nil {
		return storeError(err, "failed to start match")
	}
	return s.audit.Record(actor, ActionMatchStart, EntityFightMatch, idString(matchID),
		State{"state": match.State}, State{"state": models.MatchActive, "started_at": now}, nil)
}

// StopMatch stamps the end of the fight. The match stays ACTIVE until a
// result is set.
func (s *FightService) StopMatch(actor Actor, matchID uint) error {
	match, err := s.GetMatch(matchID)
	if err != nil {
		return err
	}
	if match.State != models.MatchActive {
		return errors.Validation("match must be ACTIVE to stop")
	}
	now := s.now()
	if err := s.db.Model(&models.FightMatch{}).Where("id = ?", matchID).Update("stopped_at", now).Error; err != nil {
		return storeError(err, "failed to stop match")
	}
	return s.audit.Record(actor, ActionMatchStop, EntityFightMatch, idString(matchID),
		State{"stopped_at": match.StoppedAt}, State{"stopped_at": now}, nil)
}

// SetResult records the outcome and finishes the match. A voided match
// only takes a result with override, and stays VOIDED.
func (s *FightService) SetResult(actor Actor, matchID uint, result models.ResultType, notes string, override bool) error {
	if !result.Valid() {
		return errors.Validation("invalid result type")
	}
	match, err := s.GetMatch(matchID)
	if err != nil {
		return err
	}
	if match.State == models.MatchVoided && !override {
		return errors.Validation("match is voided")
	}

	prev, err := s.GetResult(matchID)
	if err != nil {
		return err
	}

	notes = security.SanitizeText(notes)
	if err := s.upsertResult(matchID, result, actor.UserID, notes); err != nil {
		return err
	}
	err = s.db.Model(&models.FightMatch{}).
		Where("id = ? AND state <> ?", matchID, models.MatchVoided).
		Update("state", models.MatchFinished).Error
	if err != nil {
		return storeError(err, "failed to finish match")
	}

	action := ActionMatchResultSet
	if prev != nil && override {
		action = ActionMatchResultOverride
	}
	var prevState State
	if prev != nil {
		prevState = State{"result_type": prev.ResultType, "notes": prev.Notes}
	}
	return s.audit.Record(actor, action, EntityFightResult, idString(matchID), prevState,
		State{"result_type": result, "notes": notes}, State{"override": override, "match_state": match.State})
}

// VoidMatch forces a match to VOIDED from any state. When a user does it,
// a CANCELLED result is recorded as well so every stake is refundable.
func (s *FightService) VoidMatch(actor Actor, matchID uint, reason string) error {
	match, err := s.GetMatch(matchID)
	if err != nil {
		return err
	}
	reason = security.SanitizeText(reason)
	if err := s.setState(matchID, models.MatchVoided); err != nil {
		return err
	}
	if actor.UserID != nil {
		if err := s.upsertResult(matchID, models.ResultCancelled, actor.UserID, "VOIDED: "+reason); err != nil {
			return err
		}
	}
	return s.audit.Record(actor, ActionMatchVoid, EntityFightMatch, idString(matchID),
		State{"state": match.State}, State{"state": models.MatchVoided}, State{"reason": reason})
}

// UpsertStructure creates or updates a match template by code.
func (s *FightService) UpsertStructure(actor Actor, in models.FightStructure) error {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return errors.Validation("structure code is required")
	}
	if in.CocksPerEntry < 1 || in.DefaultRounds < 1 {
		return errors.Validation("cocks per entry and default rounds must be >= 1")
	}
	name := security.SanitizeText(in.Name)
	if name == "" {
		return errors.Validation("structure name is required")
	}

	var prev models.FightStructure
	err := s.db.Where("code = ?", code).Take(&prev).Error
	if err != nil && !isRecordNotFound(err) {
		return errors.Internal(err, "failed to load fight structure")
	}
	var prevState State
	if err == nil {
		prevState = State{"name": prev.Name, "cocks_per_entry": prev.CocksPerEntry, "default_rounds": prev.DefaultRounds, "is_active": prev.IsActive}
	}

	row := models.FightStructure{
		Code:          code,
		Name:          name,
		CocksPerEntry: in.CocksPerEntry,
		DefaultRounds: in.DefaultRounds,
		IsActive:      in.IsActive,
		CreatedAt:     s.now(),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "cocks_per_entry", "default_rounds", "is_active"}),
	}).Create(&row).Error
	if err != nil {
		return storeError(err, "failed to save fight structure")
	}

	return s.audit.Record(actor, ActionStructureUpsert, EntityFightStructure, code, prevState,
		State{"name": name, "cocks_per_entry": in.CocksPerEntry, "default_rounds": in.DefaultRounds, "is_active": in.IsActive}, nil)
}

func (s *FightService) Structures() ([]models.FightStructure, error) {
	var rows []models.FightStructure
	if err := s.db.Order("cocks_per_entry, code").Find(&rows).Error; err != nil {
		return nil, errors.Internal(err, "failed to list fight structures")
	}
	return rows, nil
}

func (s *FightService) GetMatch(matchID uint) (*models.FightMatch, error) {
	var match models.FightMatch
	if err := s.db.First(&match, matchID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.NotFound("match not found")
		}
		return nil, errors.Internal(err, "failed to load match")
	}
	return &match, nil
}

// GetResult returns the match result, or nil when none is set.
func (s *FightService) GetResult(matchID uint) (*models.FightResult, error) {
	var result models.FightResult
	err := s.db.Where("match_id = ?", matchID).Take(&result).Error
	if isRecordNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Internal(err, "failed to load result")
	}
	return &result, nil
}

func (s *FightService) Snapshot(matchID uint) (*MatchSnapshot, error) {
	match, err := s.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	snap := &MatchSnapshot{Match: *match}
	err = s.db.Where("match_id = ? AND deleted_at IS NULL", matchID).
		Order("side, id").
		Find(&snap.Entries).Error
	if err != nil {
		return nil, errors.Internal(err, "failed to load entries")
	}
	if snap.Result, err = s.GetResult(matchID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *FightService) setState(matchID uint, state models.MatchState) error {
	if err := s.db.Model(&models.FightMatch{}).Where("id = ?", matchID).Update("state", state).Error; err != nil {
		return storeError(err, "failed to update match state")
	}
	return nil
}

func (s *FightService) upsertResult(matchID uint, result models.ResultType, decidedBy *uint, notes string) error {
	row := models.FightResult{
		MatchID:    matchID,
		ResultType: result,
		DecidedBy:  decidedBy,
		DecidedAt:  s.now(),
		Notes:      notes,
	}
	err := s.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"result_type", "decided_by", "decided_at", "notes"}),
	}).Create(&row).Error
	if err != nil {
		return storeError(err, "failed to save result")
	}
	return nil
}
