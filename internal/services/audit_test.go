package services

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecord(t *testing.T) {
	f := newFixture(t)
	userID := uint(7)

	f.mustRun(func(s *Services) error {
		return s.Audit.Record(UserActor(userID, "A"), ActionCashMove, EntityCashDrawer, "3",
			State{"current_cash": 100}, State{"current_cash": 150}, State{"reason": "float"})
	})
	f.mustRun(func(s *Services) error {
		return s.Audit.Record(SystemActor("A"), ActionDrawerClose, EntityCashDrawer, "", nil, nil, nil)
	})

	var entries []models.AuditLog
	require.NoError(t, f.db.Order("id").Find(&entries).Error)
	require.Len(t, entries, 2)

	first := entries[0]
	require.NotNil(t, first.ActorUserID)
	assert.Equal(t, userID, *first.ActorUserID)
	assert.Equal(t, "A", first.ActorDeviceID)
	require.NotNil(t, first.EntityID)
	assert.Equal(t, "3", *first.EntityID)
	assert.JSONEq(t, `{"current_cash":100}`, string(first.PreviousState))
	assert.JSONEq(t, `{"current_cash":150}`, string(first.NewState))
	assert.JSONEq(t, `{"reason":"float"}`, string(first.Metadata))
	assert.True(t, first.CreatedAt.Equal(f.clock.Now()))

	second := entries[1]
	assert.Nil(t, second.ActorUserID)
	assert.Nil(t, second.EntityID)
	assert.Empty(t, second.Metadata)
}

func TestAuditTrail_AppendOnly(t *testing.T) {
	f := newFixture(t)
	f.createUser("admin", models.RoleAdmin)

	err := f.db.Exec("UPDATE audit_log SET action = 'TAMPERED'").Error
	assert.ErrorContains(t, err, "append-only")
	err = f.db.Exec("DELETE FROM audit_log").Error
	assert.ErrorContains(t, err, "append-only")
	assert.Equal(t, int64(1), f.countAudit(ActionUserCreate))
}

func TestAuditTrail_RolledBackWithUnitOfWork(t *testing.T) {
	f := newFixture(t)
	id := f.createUser("cashier1")
	boom := stderrors.New("printer jammed")

	err := f.run(func(s *Services) error {
		if err := s.Auth.SetUserFrozen(f.system, id, true, "test"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, f.countAudit(ActionUserFreeze))
	assert.Empty(t, f.alerts.Alerts, "alerts must not leave an aborted unit of work")

	var user models.User
	require.NoError(t, f.db.First(&user, id).Error)
	assert.False(t, user.IsFrozen)
}

func TestAuditAlerts_OnlySensitiveActions(t *testing.T) {
	f := newFixture(t)
	matchID := f.createMatch("M-1")
	f.setResult(matchID, models.ResultWala)
	assert.Empty(t, f.alerts.Alerts)

	f.mustRun(func(s *Services) error {
		return s.Fights.SetResult(f.system, matchID, models.ResultMeron, "video review", true)
	})
	require.Len(t, f.alerts.Alerts, 1)
	alert := f.alerts.Alerts[0]
	assert.Equal(t, ActionMatchResultOverride, alert.Action)
	assert.Equal(t, EntityFightResult, alert.EntityType)
	assert.Equal(t, idString(matchID), alert.EntityID)
}

func TestLedgerRun_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := f.ledger.Run(ctx, func(s *Services) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
