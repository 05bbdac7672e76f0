package services

import (
	"testing"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/mroshb/cockpit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRun_SeveralModelsInOneUnit(t *testing.T) {
	f := newFixture(t)

	var matchID, entryID uint
	f.mustRun(func(s *Services) error {
		if err := s.Access.SeedDefaults(); err != nil {
			return err
		}
		var err error
		matchID, err = s.Fights.CreateMatch(f.system, NewMatch{MatchNumber: "M-1", StructureCode: "SINGLE", Rounds: 1})
		if err != nil {
			return err
		}
		entryID, err = s.Fights.AddEntry(f.system, NewEntry{MatchID: matchID, Side: models.SideWala, EntryName: "Red", Owner: "Owner", NumCocks: 1, WeightPerCock: 2.1, Color: "Red"})
		if err != nil {
			return err
		}
		_, err = s.Cash.OpenDrawer(f.system, models.DrawerBettingCashier, "Window 1", nil, 500)
		return err
	})

	assert.NotZero(t, entryID)
	assert.Equal(t, models.MatchDraft, f.match(matchID).State)
	assert.Equal(t, int64(1), f.countAudit(ActionMatchCreate))
	assert.Equal(t, int64(1), f.countAudit(ActionEntryCreate))
	assert.Equal(t, int64(1), f.countAudit(ActionDrawerOpen))
}

func TestLedgerRun_RecoversAfterStoreError(t *testing.T) {
	f := newFixture(t)

	err := f.run(func(s *Services) error {
		if _, err := s.Fights.CreateMatch(f.system, NewMatch{MatchNumber: "M-1", StructureCode: "SINGLE", Rounds: 1}); err != nil {
			return err
		}
		if err := s.Fights.db.Exec("UPDATE fight_structures SET default_rounds = 0").Error; err != nil {
			return errors.Internal(err, "failed to update structures")
		}
		return nil
	})
	require.Error(t, err)
	assert.Zero(t, f.countAudit(ActionMatchCreate))

	needs := false
	f.mustRun(func(s *Services) error {
		var err error
		needs, err = s.Auth.NeedsBootstrap()
		return err
	})
	assert.True(t, needs)

	id := f.createMatch("M-1")
	assert.Equal(t, "M-1", f.match(id).MatchNumber)
}
