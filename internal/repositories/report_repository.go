package repositories

import (
	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

type DailyIncome struct {
	Day          string
	BetIn        int64
	BetPayouts   int64
	BetNet       int64
	CanteenSales int64
}

type CashierPerformance struct {
	Cashier   string
	BetsCount int64
	BetIn     int64
	Payouts   int64
}

type CanteenSeller struct {
	Seller     string
	SalesCount int64
	SalesTotal int64
}

type FightHistory struct {
	MatchNumber string
	FightNumber *uint
	State       string
	Result      string
	DecidedAt   string
}

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// DailyIncome totals stakes by the day they were taken, payouts by the
// day they were paid, and canteen sales by sale day, newest day first.
func (r *ReportRepository) DailyIncome(limit int) ([]DailyIncome, error) {
	var rows []DailyIncome
	err := r.db.Raw(`
		WITH stakes AS (
		  SELECT substr(encoded_at, 1, 10) AS day, SUM(amount) AS bet_in
		  FROM bet_slips
		  GROUP BY 1
		),
		payouts AS (
		  SELECT substr(payout_at, 1, 10) AS day, SUM(payout_amount) AS bet_payouts
		  FROM bet_slips
		  WHERE payout_at IS NOT NULL
		  GROUP BY 1
		),
		canteen AS (
		  SELECT substr(sold_at, 1, 10) AS day, SUM(total_amount) AS sales
		  FROM canteen_sales
		  WHERE status = 'PAID'
		  GROUP BY 1
		),
		days AS (
		  SELECT day FROM stakes UNION SELECT day FROM payouts UNION SELECT day FROM canteen
		)
		SELECT
		  d.day AS day,
		  COALESCE(s.bet_in, 0) AS bet_in,
		  COALESCE(p.bet_payouts, 0) AS bet_payouts,
		  COALESCE(s.bet_in, 0) - COALESCE(p.bet_payouts, 0) AS bet_net,
		  COALESCE(c.sales, 0) AS canteen_sales
		FROM days d
		LEFT JOIN stakes s ON s.day = d.day
		LEFT JOIN payouts p ON p.day = d.day
		LEFT JOIN canteen c ON c.day = d.day
		ORDER BY d.day DESC
		LIMIT ?`, limitOr(limit, 60)).Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to build daily income report")
	}
	return rows, nil
}

func (r *ReportRepository) CashierPerformance(limit int) ([]CashierPerformance, error) {
	var rows []CashierPerformance
	err := r.db.Table("bet_slips b").
		Select("u.username AS cashier, COUNT(b.id) AS bets_count, SUM(b.amount) AS bet_in, SUM(COALESCE(b.payout_amount, 0)) AS payouts").
		Joins("JOIN users u ON u.id = b.encoded_by").
		Group("u.username").
		Order("bet_in DESC").
		Limit(limitOr(limit, 100)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to build cashier report")
	}
	return rows, nil
}

func (r *ReportRepository) CanteenSellers(limit int) ([]CanteenSeller, error) {
	var rows []CanteenSeller
	err := r.db.Table("canteen_sales s").
		Select("u.username AS seller, COUNT(s.id) AS sales_count, SUM(s.total_amount) AS sales_total").
		Joins("JOIN users u ON u.id = s.sold_by").
		Where("s.status = ?", "PAID").
		Group("u.username").
		Order("sales_total DESC").
		Limit(limitOr(limit, 100)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to build canteen report")
	}
	return rows, nil
}

// FightHistory lists the most recent matches with their results.
func (r *ReportRepository) FightHistory(limit int) ([]FightHistory, error) {
	var rows []FightHistory
	err := r.db.Table("fight_matches fm").
		Select("fm.match_number, fm.fight_number, fm.state, COALESCE(fr.result_type, '') AS result, COALESCE(substr(fr.decided_at, 1, 19), '') AS decided_at").
		Joins("LEFT JOIN fight_results fr ON fr.match_id = fm.id").
		Order("fm.id DESC").
		Limit(limitOr(limit, 200)).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to build fight history")
	}
	return rows, nil
}

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
