package services

import (
	"context"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/errors"
	"github.com/mroshb/cockpit/pkg/logger"
)

// Login throttles attempts per username and per device, then opens a
// session in its own unit of work.
func (l *Ledger) Login(ctx context.Context, username, password, deviceID string) (*LoginResult, error) {
	userKey, deviceKey := "user:"+username, "device:"+deviceID
	if !l.opts.LoginLimiter.Allow(userKey) || !l.opts.LoginLimiter.Allow(deviceKey) {
		return nil, errors.New(errors.ErrCodeRateLimitExceeded, "too many login attempts; try again later")
	}

	var result *LoginResult
	err := l.Run(ctx, func(s *Services) error {
		var err error
		result, err = s.Auth.Login(username, password, deviceID)
		return err
	})
	if err != nil {
		if errors.IsAuth(err) {
			logger.Warn("Login rejected", "username", username, "device_id", deviceID,
				"attempts_left", l.opts.LoginLimiter.Remaining(userKey))
		}
		return nil, err
	}
	l.opts.LoginLimiter.Clear(userKey)
	l.opts.LoginLimiter.Clear(deviceKey)
	return result, nil
}

// Heartbeat marks the terminal's session alive. A forged token is an auth
// error; a session that already closed is left alone.
func (l *Ledger) Heartbeat(ctx context.Context, token string) error {
	return l.Run(ctx, func(s *Services) error {
		return s.Auth.HeartbeatToken(token)
	})
}

// Logout ends the session named by token. A closed session is a no-op.
func (l *Ledger) Logout(ctx context.Context, token, deviceID string) error {
	return l.Run(ctx, func(s *Services) error {
		session, err := s.Auth.VerifyToken(token)
		if errors.IsAuth(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.Auth.Logout(UserActor(session.UserID, deviceID), session.ID)
	})
}

// EncodeBetWithCash issues a slip and books its stake into the cashier's
// drawer as one unit of work.
func (l *Ledger) EncodeBetWithCash(ctx context.Context, actor Actor, cashierUserID uint, deviceID string, matchID uint, side models.Side, amount int64) (*EncodedBet, error) {
	var bet *EncodedBet
	err := l.Run(ctx, func(s *Services) error {
		drawerID, err := s.Cash.GetOrOpenUserDrawer(actor, models.DrawerBettingCashier, cashierUserID)
		if err != nil {
			return err
		}
		bet, err = s.Betting.EncodeBet(actor, EncodeBetInput{
			EncodedBy: &cashierUserID,
			DeviceID:  deviceID,
			MatchID:   matchID,
			Side:      side,
			Amount:    amount,
		})
		if err != nil {
			return err
		}
		_, err = s.Cash.RecordMovement(actor, MovementInput{
			CreatedBy:     &cashierUserID,
			DrawerID:      drawerID,
			Type:          models.MovementBetIn,
			Amount:        amount,
			ReferenceType: RefBetSlip,
			ReferenceID:   idString(bet.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return bet, nil
}

// PayoutBetWithCash settles a slip by QR and pays it out of the cashier's
// drawer as one unit of work. Losing slips are archived without a cash
// movement.
func (l *Ledger) PayoutBetWithCash(ctx context.Context, actor Actor, cashierUserID uint, qr string) (*PayoutResult, error) {
	var result *PayoutResult
	err := l.Run(ctx, func(s *Services) error {
		drawerID, err := s.Cash.GetOrOpenUserDrawer(actor, models.DrawerBettingCashier, cashierUserID)
		if err != nil {
			return err
		}
		result, err = s.Betting.PayoutByQR(actor, &cashierUserID, qr)
		if err != nil {
			return err
		}
		if result.PayoutAmount < 0 {
			return errors.New(errors.ErrCodeInternalError, "invalid payout amount")
		}
		if result.PayoutAmount == 0 {
			return nil
		}
		_, err = s.Cash.RecordMovement(actor, MovementInput{
			CreatedBy:     &cashierUserID,
			DrawerID:      drawerID,
			Type:          models.MovementPayoutOut,
			Amount:        result.PayoutAmount,
			ReferenceType: RefBetSlip,
			ReferenceID:   idString(result.BetID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CanteenSaleWithCash records a sale, its stock out, and its cash in as
// one unit of work. A nil drawerID uses the seller's own canteen drawer.
func (l *Ledger) CanteenSaleWithCash(ctx context.Context, actor Actor, canteenUserID uint, drawerID *uint, lines []SaleLineInput) (*SaleReceipt, error) {
	var receipt *SaleReceipt
	err := l.Run(ctx, func(s *Services) error {
		var id uint
		if drawerID != nil {
			drawer, err := s.Cash.GetDrawer(*drawerID)
			if err != nil {
				return err
			}
			if drawer.DrawerType != models.DrawerCanteen || !drawer.Open() {
				return errors.Validation("sales need an open canteen drawer")
			}
			id = drawer.ID
		} else {
			var err error
			if id, err = s.Cash.GetOrOpenUserDrawer(actor, models.DrawerCanteen, canteenUserID); err != nil {
				return err
			}
		}

		var err error
		receipt, err = s.Canteen.CreateSale(actor, id, &canteenUserID, lines)
		if err != nil {
			return err
		}
		if receipt.TotalAmount == 0 {
			return nil
		}
		_, err = s.Cash.RecordMovement(actor, MovementInput{
			CreatedBy:     &canteenUserID,
			DrawerID:      id,
			Type:          models.MovementCanteenSaleIn,
			Amount:        receipt.TotalAmount,
			ReferenceType: RefCanteenSale,
			ReferenceID:   idString(receipt.SaleID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
