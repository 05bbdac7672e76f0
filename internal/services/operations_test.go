package services

import (
	"context"
	"testing"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) userDrawer(drawerType models.DrawerType, userID uint) *models.CashDrawer {
	f.t.Helper()
	var d models.CashDrawer
	require.NoError(f.t, f.db.Where("drawer_type = ? AND owner_user_id = ? AND closed_at IS NULL", drawerType, userID).Take(&d).Error)
	return &d
}

func TestEncodeBetWithCash(t *testing.T) {
	f := newFixture(t)
	cashier := f.createUser("cashier1", models.RoleCashier)
	matchID := f.createMatch("M-1")

	bet, err := f.ledger.EncodeBetWithCash(context.Background(), UserActor(cashier, testDevice), cashier, testDevice, matchID, models.SideWala, 100)
	require.NoError(t, err)

	drawer := f.userDrawer(models.DrawerBettingCashier, cashier)
	assert.Equal(t, int64(100), drawer.CurrentCash)
	assert.Equal(t, int64(1), f.countAudit(ActionBetEncode))
	assert.Equal(t, int64(1), f.countAudit(ActionCashMove))

	var movement models.CashMovement
	require.NoError(t, f.db.Where("drawer_id = ?", drawer.ID).Take(&movement).Error)
	assert.Equal(t, models.MovementBetIn, movement.MovementType)
	assert.Equal(t, RefBetSlip, movement.ReferenceType)
	assert.Equal(t, idString(bet.ID), movement.ReferenceID)
	require.NotNil(t, movement.CreatedBy)
	assert.Equal(t, cashier, *movement.CreatedBy)
}

func TestEncodeBetWithCash_RollsBackTogether(t *testing.T) {
	f := newFixture(t)
	cashier := f.createUser("cashier1", models.RoleCashier)
	matchID := f.createMatch("M-1")

	// Fail the cash leg after the slip is written.
	drawer := f.openDrawer(models.DrawerBettingCashier, "Window 1", &cashier, 0)
	require.NoError(t, f.db.Exec(`CREATE TRIGGER trg_cash_movements_fail BEFORE INSERT ON cash_movements
		BEGIN SELECT RAISE(ABORT, 'drawer is closed'); END`).Error)

	_, err := f.ledger.EncodeBetWithCash(context.Background(), UserActor(cashier, testDevice), cashier, testDevice, matchID, models.SideWala, 100)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var slips int64
	require.NoError(t, f.db.Model(&models.BetSlip{}).Count(&slips).Error)
	assert.Zero(t, slips)
	assert.Nil(t, f.match(matchID).LockedAt, "lock rolls back with the slip")
	assert.Zero(t, f.countAudit(ActionBetEncode))

	d, err := f.view().Cash.GetDrawer(drawer)
	require.NoError(t, err)
	assert.Zero(t, d.CurrentCash)
}

func TestPayoutBetWithCash(t *testing.T) {
	f := newFixture(t)
	cashier := f.createUser("cashier1", models.RoleCashier)
	other := f.createUser("cashier2", models.RoleCashier)
	matchID := f.createMatch("M-1")

	wala := f.placePrintedBet(cashier, matchID, models.SideWala, 100)
	meron := f.placePrintedBet(other, matchID, models.SideMeron, 110)
	f.setResult(matchID, models.ResultWala)

	// Any cashier pays any slip out of their own drawer.
	_, err := f.ledger.PayoutBetWithCash(context.Background(), UserActor(other, testDevice), other, wala.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, int64(110-210), f.userDrawer(models.DrawerBettingCashier, other).CurrentCash)
	assert.Equal(t, int64(100), f.userDrawer(models.DrawerBettingCashier, cashier).CurrentCash)

	before := f.countAudit(ActionCashMove)
	_, err = f.ledger.PayoutBetWithCash(context.Background(), UserActor(cashier, testDevice), cashier, meron.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, before, f.countAudit(ActionCashMove), "losing slips move no cash")

	for _, id := range []uint{cashier, other} {
		rec, err := f.view().Cash.Reconcile(f.userDrawer(models.DrawerBettingCashier, id).ID)
		require.NoError(t, err)
		assert.True(t, rec.Balanced)
	}
}

func TestCanteenSaleWithCash(t *testing.T) {
	f := newFixture(t)
	seller := f.createUser("canteen1", models.RoleCanteen)
	soda := f.stockedItem("SODA", "Soda", 25, 10)
	water := f.stockedItem("WATER", "Water", 0, 10)
	actor := UserActor(seller, testDevice)

	receipt, err := f.ledger.CanteenSaleWithCash(context.Background(), actor, seller, nil, []SaleLineInput{{ItemID: soda, Qty: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(50), receipt.TotalAmount)

	drawer := f.userDrawer(models.DrawerCanteen, seller)
	assert.Equal(t, int64(50), drawer.CurrentCash)

	free, err := f.ledger.CanteenSaleWithCash(context.Background(), actor, seller, &drawer.ID, []SaleLineInput{{ItemID: water, Qty: 1}})
	require.NoError(t, err)
	assert.Zero(t, free.TotalAmount)
	assert.Equal(t, int64(1), f.countAudit(ActionCashMove))
	assert.Equal(t, int64(9), f.stock(water))
}

func TestCanteenSaleWithCash_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	seller := f.createUser("canteen1", models.RoleCanteen)
	soda := f.stockedItem("SODA", "Soda", 25, 10)
	chips := f.stockedItem("CHIPS", "Chips", 15, 1)

	_, err := f.ledger.CanteenSaleWithCash(context.Background(), UserActor(seller, testDevice), seller, nil,
		[]SaleLineInput{{ItemID: soda, Qty: 2}, {ItemID: chips, Qty: 2}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInsufficientStock))

	assert.Equal(t, int64(10), f.stock(soda))
	assert.Equal(t, int64(1), f.stock(chips))
	var sales, drawers int64
	require.NoError(t, f.db.Model(&models.Sale{}).Count(&sales).Error)
	require.NoError(t, f.db.Model(&models.CashDrawer{}).Count(&drawers).Error)
	assert.Zero(t, sales)
	assert.Zero(t, drawers)
}

func TestCanteenSaleWithCash_WrongDrawer(t *testing.T) {
	f := newFixture(t)
	seller := f.createUser("canteen1", models.RoleCanteen)
	soda := f.stockedItem("SODA", "Soda", 25, 10)
	betting := f.openDrawer(models.DrawerBettingCashier, "Window 1", nil, 0)
	closed := f.openDrawer(models.DrawerCanteen, "Canteen 2", nil, 0)
	f.mustRun(func(s *Services) error { return s.Cash.CloseDrawer(f.system, closed) })

	for _, id := range []uint{betting, closed} {
		drawerID := id
		_, err := f.ledger.CanteenSaleWithCash(context.Background(), UserActor(seller, testDevice), seller, &drawerID,
			[]SaleLineInput{{ItemID: soda, Qty: 1}})
		assert.True(t, errors.IsValidation(err))
	}
	assert.Equal(t, int64(10), f.stock(soda))
}
