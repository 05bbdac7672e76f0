package models

import (
	"strings"
	"time"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

type Side string

// Betting and entry sides. DRAW is a betting side only.
const (
	SideWala  Side = "WALA"
	SideMeron Side = "MERON"
	SideDraw  Side = "DRAW"
)

// EntrySide reports whether s may register an entry.
func (s Side) EntrySide() bool {
	return s == SideWala || s == SideMeron
}

// BetSide reports whether s may receive a wager.
func (s Side) BetSide() bool {
	return s == SideWala || s == SideMeron || s == SideDraw
}

type MatchState string

const (
	MatchDraft    MatchState = "DRAFT"
	MatchLocked   MatchState = "LOCKED"
	MatchActive   MatchState = "ACTIVE"
	MatchFinished MatchState = "FINISHED"
	MatchVoided   MatchState = "VOIDED"
)

// Closed reports whether the match no longer accepts wagers.
func (s MatchState) Closed() bool {
	return s == MatchFinished || s == MatchVoided
}

type ResultType string

const (
	ResultWala      ResultType = "WALA"
	ResultMeron     ResultType = "MERON"
	ResultDraw      ResultType = "DRAW"
	ResultCancelled ResultType = "CANCELLED"
	ResultNoContest ResultType = "NO_CONTEST"
)

func (r ResultType) Valid() bool {
	switch r {
	case ResultWala, ResultMeron, ResultDraw, ResultCancelled, ResultNoContest:
		return true
	}
	return false
}

type FightStructure struct {
	Code          string    `gorm:"primaryKey;type:varchar(32)"`
	Name          string    `gorm:"type:varchar(100);not null"`
	CocksPerEntry int       `gorm:"not null;check:chk_fight_structures_cocks,cocks_per_entry >= 1"`
	DefaultRounds int       `gorm:"not null;check:chk_fight_structures_rounds,default_rounds >= 1"`
	IsActive      bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (FightStructure) TableName() string {
	return "fight_structures"
}

// DefaultStructures are the templates present on every initialized store.
var DefaultStructures = []FightStructure{
	{Code: "SINGLE", Name: "Single Cock", CocksPerEntry: 1, DefaultRounds: 1, IsActive: true},
	{Code: "DERBY_2", Name: "2-Cock Derby", CocksPerEntry: 2, DefaultRounds: 1, IsActive: true},
	{Code: "DERBY_3", Name: "3-Cock Derby", CocksPerEntry: 3, DefaultRounds: 1, IsActive: true},
	{Code: "DERBY_5", Name: "5-Cock Derby", CocksPerEntry: 5, DefaultRounds: 1, IsActive: true},
}

type FightMatch struct {
	ID            uint       `gorm:"primaryKey"`
	MatchNumber   string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	FightNumber   *uint      `gorm:"uniqueIndex"`
	StructureCode string     `gorm:"type:varchar(32);not null;index"`
	Rounds        int        `gorm:"not null;check:chk_fight_matches_rounds,rounds >= 1"`
	State         MatchState `gorm:"type:varchar(16);not null;index;check:chk_fight_matches_state,state IN ('DRAFT','LOCKED','ACTIVE','FINISHED','VOIDED')"`
	LockedAt      *time.Time
	StartedAt     *time.Time
	StoppedAt     *time.Time
	CreatedBy     *uint
	CreatedAt     time.Time `gorm:"not null"`
}

// BeforeCreate hook for validation
func (m *FightMatch) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(m.MatchNumber) == "" {
		return errors.Validation("match number is required")
	}
	if m.Rounds < 1 {
		return errors.Validation("rounds must be >= 1")
	}
	return nil
}

func (m *FightMatch) Locked() bool {
	return m.LockedAt != nil
}

func (FightMatch) TableName() string {
	return "fight_matches"
}

type FightEntry struct {
	ID            uint       `gorm:"primaryKey"`
	MatchID       uint       `gorm:"not null;index"`
	Match         FightMatch `gorm:"foreignKey:MatchID;constraint:OnDelete:RESTRICT"`
	Side          Side       `gorm:"type:varchar(8);not null;check:chk_fight_entries_side,side IN ('WALA','MERON')"`
	EntryName     string     `gorm:"type:varchar(255);not null"`
	Owner         string     `gorm:"type:varchar(255)"`
	NumCocks      int        `gorm:"not null;check:chk_fight_entries_cocks,num_cocks >= 1"`
	WeightPerCock float64    `gorm:"not null;check:chk_fight_entries_weight,weight_per_cock > 0"`
	Color         string     `gorm:"type:varchar(64)"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
	DeletedAt     *time.Time `gorm:"index"`
}

// BeforeCreate hook for validation
func (e *FightEntry) BeforeCreate(tx *gorm.DB) error {
	if !e.Side.EntrySide() {
		return errors.Validation("side must be WALA or MERON")
	}
	if e.NumCocks < 1 {
		return errors.Validation("number of cocks must be >= 1")
	}
	if e.WeightPerCock <= 0 {
		return errors.Validation("weight must be > 0")
	}
	return nil
}

func (FightEntry) TableName() string {
	return "fight_entries"
}

type FightResult struct {
	MatchID    uint       `gorm:"primaryKey;autoIncrement:false"`
	Match      FightMatch `gorm:"foreignKey:MatchID;constraint:OnDelete:RESTRICT"`
	ResultType ResultType `gorm:"type:varchar(16);not null;check:chk_fight_results_type,result_type IN ('WALA','MERON','DRAW','CANCELLED','NO_CONTEST')"`
	DecidedBy  *uint
	DecidedAt  time.Time `gorm:"not null"`
	Notes      string    `gorm:"type:text"`
}

func (FightResult) TableName() string {
	return "fight_results"
}
