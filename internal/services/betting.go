package services

import (
	"encoding/json"
	"math/bits"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/internal/security"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/errors"
	"github.com/mroshb/cockpit/pkg/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	qrPayloadBytes = 16
	oddsPlaces     = 4
)

// Odds are the pool totals of one match. Multipliers are for display
// only and are nil when their side has no stakes.
type Odds struct {
	TotalWala       int64            `json:"total_wala"`
	TotalMeron      int64            `json:"total_meron"`
	TotalDraw       int64            `json:"total_draw"`
	TotalAll        int64            `json:"total_all"`
	WalaMultiplier  *decimal.Decimal `json:"wala_multiplier"`
	MeronMultiplier *decimal.Decimal `json:"meron_multiplier"`
}

func (o Odds) pool(side models.Side) int64 {
	switch side {
	case models.SideWala:
		return o.TotalWala
	case models.SideMeron:
		return o.TotalMeron
	case models.SideDraw:
		return o.TotalDraw
	}
	return 0
}

type EncodeBetInput struct {
	EncodedBy *uint
	DeviceID  string
	MatchID   uint
	Side      models.Side
	Amount    int64
}

// EncodedBet is what the terminal prints on the slip.
type EncodedBet struct {
	ID         uint
	SlipNumber string
	QRPayload  string
	Odds       Odds
}

type PayoutResult struct {
	BetID        uint
	SlipNumber   string
	PayoutAmount int64
}

type BettingService struct {
	db             *gorm.DB
	audit          *AuditService
	now            clock.Clock
	minBet         int64
	drawMultiplier int64
}

func NewBettingService(db *gorm.DB, audit *AuditService, opts Options) *BettingService {
	return &BettingService{
		db:             db,
		audit:          audit,
		now:            opts.Clock,
		minBet:         opts.MinBet,
		drawMultiplier: opts.DrawMultiplier,
	}
}

// GetOdds reads the current pool totals. A match without bets has zero
// pools.
func (s *BettingService) GetOdds(matchID uint) (Odds, error) {
	var odds Odds
	err := s.db.Table("vw_bet_totals").
		Select("total_wala, total_meron, total_draw, total_all").
		Where("match_id = ?", matchID).
		Scan(&odds).Error
	if err != nil {
		return Odds{}, errors.Internal(err, "failed to read pool totals")
	}
	odds.WalaMultiplier = multiplier(odds.TotalAll, odds.TotalWala)
	odds.MeronMultiplier = multiplier(odds.TotalAll, odds.TotalMeron)
	return odds, nil
}

func multiplier(total, side int64) *decimal.Decimal {
	if side <= 0 {
		return nil
	}
	m := decimal.NewFromInt(total).DivRound(decimal.NewFromInt(side), oddsPlaces)
	return &m
}

// EncodeBet issues a slip. The store locks the match on its first slip
// in the same statement.
func (s *BettingService) EncodeBet(actor Actor, in EncodeBetInput) (*EncodedBet, error) {
	if !in.Side.BetSide() {
		return nil, errors.Validation("side must be WALA, MERON, or DRAW")
	}
	if in.Amount < s.minBet {
		return nil, errors.Validation("amount is below the minimum bet")
	}

	var match models.FightMatch
	if err := s.db.First(&match, in.MatchID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.NotFound("match not found")
		}
		return nil, errors.Internal(err, "failed to load match")
	}
	if match.State.Closed() {
		return nil, errors.Validation("cannot bet on a finished or voided match")
	}

	odds, err := s.GetOdds(in.MatchID)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(odds)
	if err != nil {
		return nil, errors.Internal(err, "failed to encode odds snapshot")
	}

	now := s.now()
	slipNumber, err := utils.DatedNumber("S", now)
	if err != nil {
		return nil, errors.Internal(err, "failed to generate slip number")
	}
	qr, err := security.GenerateRandomToken(qrPayloadBytes)
	if err != nil {
		return nil, errors.Internal(err, "failed to generate QR payload")
	}

	slip := &models.BetSlip{
		SlipNumber:   slipNumber,
		MatchID:      in.MatchID,
		Side:         in.Side,
		Amount:       in.Amount,
		OddsSnapshot: datatypes.JSON(snapshot),
		Status:       models.SlipEncoded,
		EncodedBy:    in.EncodedBy,
		EncodedAt:    now,
		QRPayload:    qr,
		DeviceID:     in.DeviceID,
	}
	if err := s.db.Omit(clause.Associations).Create(slip).Error; err != nil {
		return nil, storeError(err, "failed to encode bet")
	}

	err = s.audit.Record(actor, ActionBetEncode, EntityBetSlip, idString(slip.ID), nil,
		State{"slip_number": slipNumber, "match_id": in.MatchID, "side": in.Side, "amount": in.Amount}, nil)
	if err != nil {
		return nil, err
	}
	return &EncodedBet{ID: slip.ID, SlipNumber: slipNumber, QRPayload: qr, Odds: odds}, nil
}

// MarkPrinted moves an ENCODED slip to PRINTED. Reprinting keeps the
// first print time.
func (s *BettingService) MarkPrinted(actor Actor, betID uint) error {
	slip, err := s.GetSlip(betID)
	if err != nil {
		return err
	}
	if slip.Status != models.SlipEncoded && slip.Status != models.SlipPrinted {
		return errors.Validation("slip cannot be printed in its current state")
	}
	now := s.now()
	err = s.db.Model(&models.BetSlip{}).Where("id = ?", betID).Updates(map[string]interface{}{
		"status":     models.SlipPrinted,
		"printed_at": gorm.Expr("COALESCE(printed_at, ?)", now),
	}).Error
	if err != nil {
		return errors.Internal(err, "failed to mark slip printed")
	}
	return s.audit.Record(actor, ActionBetPrint, EntityBetSlip, idString(betID),
		State{"status": slip.Status}, State{"status": models.SlipPrinted, "printed_at": now}, nil)
}

// ComputePayoutForSlip settles a slip against its match result and the
// pool totals at the time of the call.
func (s *BettingService) ComputePayoutForSlip(betID uint) (int64, error) {
	slip, err := s.GetSlip(betID)
	if err != nil {
		return 0, err
	}
	var result models.FightResult
	if err := s.db.Where("match_id = ?", slip.MatchID).Take(&result).Error; err != nil {
		if isRecordNotFound(err) {
			return 0, errors.Validation("match has no result yet")
		}
		return 0, errors.Internal(err, "failed to load result")
	}
	odds, err := s.GetOdds(slip.MatchID)
	if err != nil {
		return 0, err
	}
	return ComputePayout(slip.Side, slip.Amount, result.ResultType, odds, s.drawMultiplier)
}

// ComputePayout is the settlement rule:
//
//   - CANCELLED, NO_CONTEST: every stake is refunded.
//   - DRAW: DRAW slips pay drawMultiplier times the stake, WALA and MERON
//     slips are refunded.
//   - WALA, MERON: winning slips pay floor(amount * total / winning pool),
//     every other slip pays 0. An empty winning pool pays 0.
func ComputePayout(side models.Side, amount int64, result models.ResultType, odds Odds, drawMultiplier int64) (int64, error) {
	if amount <= 0 {
		return 0, errors.Validation("amount must be > 0")
	}
	switch result {
	case models.ResultCancelled, models.ResultNoContest:
		return amount, nil
	case models.ResultDraw:
		if side == models.SideDraw {
			return amount * drawMultiplier, nil
		}
		return amount, nil
	case models.ResultWala, models.ResultMeron:
		winner := models.Side(result)
		if side != winner {
			return 0, nil
		}
		pool := odds.pool(winner)
		if pool <= 0 || odds.TotalAll <= 0 {
			return 0, nil
		}
		return mulDiv(amount, odds.TotalAll, pool)
	}
	return 0, errors.New(errors.ErrCodeInternalError, "unsupported result type "+string(result))
}

// mulDiv returns floor(a*b/c) without intermediate overflow.
func mulDiv(a, b, c int64) (int64, error) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(c) {
		return 0, errors.New(errors.ErrCodeInternalError, "payout overflows")
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > 1<<63-1 {
		return 0, errors.New(errors.ErrCodeInternalError, "payout overflows")
	}
	return int64(q), nil
}

// PayoutByQR settles the PRINTED slip carrying qr and archives it. A QR
// payload can be paid once.
func (s *BettingService) PayoutByQR(actor Actor, payoutBy *uint, qr string) (*PayoutResult, error) {
	if qr == "" {
		return nil, errors.Validation("invalid QR / slip not found")
	}
	var slip models.BetSlip
	if err := s.db.Where("qr_payload = ?", qr).Take(&slip).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.Validation("invalid QR / slip not found")
		}
		return nil, errors.Internal(err, "failed to load slip")
	}
	if slip.Status != models.SlipPrinted {
		return nil, errors.Validation("slip is not eligible for payout")
	}

	amount, err := s.ComputePayoutForSlip(slip.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := s.db.Model(&models.BetSlip{}).
		Where("id = ? AND status = ?", slip.ID, models.SlipPrinted).
		Updates(map[string]interface{}{
			"status":        models.SlipArchived,
			"payout_by":     payoutBy,
			"payout_at":     now,
			"payout_amount": amount,
			"archived_at":   now,
		})
	if res.Error != nil {
		return nil, errors.Internal(res.Error, "failed to settle slip")
	}
	if res.RowsAffected != 1 {
		return nil, errors.Validation("slip is not eligible for payout")
	}

	err = s.audit.Record(actor, ActionBetPayout, EntityBetSlip, idString(slip.ID),
		State{"status": slip.Status, "payout_amount": slip.PayoutAmount},
		State{"status": models.SlipArchived, "payout_amount": amount}, nil)
	if err != nil {
		return nil, err
	}
	return &PayoutResult{BetID: slip.ID, SlipNumber: slip.SlipNumber, PayoutAmount: amount}, nil
}

// ArchivePaidSlip archives a PAID slip. Any other state is left alone.
func (s *BettingService) ArchivePaidSlip(actor Actor, betID uint) error {
	var slip models.BetSlip
	err := s.db.First(&slip, betID).Error
	if isRecordNotFound(err) {
		return nil
	}
	if err != nil {
		return errors.Internal(err, "failed to load slip")
	}
	if slip.Status != models.SlipPaid {
		return nil
	}
	now := s.now()
	err = s.db.Model(&models.BetSlip{}).Where("id = ?", betID).Updates(map[string]interface{}{
		"status":      models.SlipArchived,
		"archived_at": now,
	}).Error
	if err != nil {
		return errors.Internal(err, "failed to archive slip")
	}
	return s.audit.Record(actor, ActionBetArchive, EntityBetSlip, idString(betID),
		State{"status": slip.Status}, State{"status": models.SlipArchived, "archived_at": now}, nil)
}

func (s *BettingService) GetSlip(betID uint) (*models.BetSlip, error) {
	var slip models.BetSlip
	if err := s.db.First(&slip, betID).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, errors.NotFound("bet slip not found")
		}
		return nil, errors.Internal(err, "failed to load slip")
	}
	return &slip, nil
}
