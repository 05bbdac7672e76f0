package repositories

import (
	"time"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

// MatchBoard is one open match with its pools, as shown on the floor.
type MatchBoard struct {
	ID            uint
	MatchNumber   string
	FightNumber   *uint
	StructureCode string
	State         models.MatchState
	LockedAt      *time.Time
	StartedAt     *time.Time
	TotalWala     int64
	TotalMeron    int64
	TotalDraw     int64
	TotalAll      int64
}

type DrawerBalance struct {
	ID          uint
	DrawerType  models.DrawerType
	Name        string
	OwnerUserID *uint
	Owner       string
	OpenedAt    time.Time
	CurrentCash int64
}

type Dashboard struct {
	Matches []MatchBoard
	Drawers []DrawerBalance
}

type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Dashboard returns the matches still in play and every open drawer.
func (r *DashboardRepository) Dashboard() (*Dashboard, error) {
	matches, err := r.OpenMatches()
	if err != nil {
		return nil, err
	}
	drawers, err := r.OpenDrawers()
	if err != nil {
		return nil, err
	}
	return &Dashboard{Matches: matches, Drawers: drawers}, nil
}

func (r *DashboardRepository) OpenMatches() ([]MatchBoard, error) {
	var rows []MatchBoard
	err := r.db.Table("fight_matches fm").
		Select(`fm.id, fm.match_number, fm.fight_number, fm.structure_code, fm.state, fm.locked_at, fm.started_at,
			COALESCE(t.total_wala, 0) AS total_wala, COALESCE(t.total_meron, 0) AS total_meron,
			COALESCE(t.total_draw, 0) AS total_draw, COALESCE(t.total_all, 0) AS total_all`).
		Joins("LEFT JOIN vw_bet_totals t ON t.match_id = fm.id").
		Where("fm.state IN ?", []models.MatchState{models.MatchDraft, models.MatchLocked, models.MatchActive}).
		Order("fm.id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to load open matches")
	}
	return rows, nil
}

func (r *DashboardRepository) OpenDrawers() ([]DrawerBalance, error) {
	var rows []DrawerBalance
	err := r.db.Table("cash_drawers d").
		Select("d.id, d.drawer_type, d.name, d.owner_user_id, COALESCE(u.username, '') AS owner, d.opened_at, d.current_cash").
		Joins("LEFT JOIN users u ON u.id = d.owner_user_id").
		Where("d.closed_at IS NULL").
		Order("d.drawer_type, d.id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to load open drawers")
	}
	return rows, nil
}
