package database

import (
	"context"
	"testing"

	"github.com/mroshb/cockpit/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestImmediate_QueriesDoNotShareConditions(t *testing.T) {
	db := openTestStore(t)
	insertUser(t, db, "cashier1")

	var structures int64
	require.NoError(t, db.Model(&models.FightStructure{}).Count(&structures).Error)
	require.NotZero(t, structures)

	err := Immediate(context.Background(), db, func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", "cashier1").First(&user).Error; err != nil {
			return err
		}
		var inUnit int64
		if err := tx.Model(&models.FightStructure{}).Count(&inUnit).Error; err != nil {
			return err
		}
		assert.Equal(t, structures, inUnit)
		return tx.Model(&models.User{}).Where("id = ?", user.ID).Update("full_name", "Cashier One").Error
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.Where("username = ?", "cashier1").First(&user).Error)
	assert.Equal(t, "Cashier One", user.FullName)
}

func TestImmediate_StoreErrorReleasesWriterLock(t *testing.T) {
	db := openTestStore(t)

	err := Immediate(context.Background(), db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.User{Username: "ghost", PasswordHash: "x", CreatedAt: seedTime, UpdatedAt: seedTime}).Error; err != nil {
			return err
		}
		return tx.Exec("UPDATE fight_structures SET default_rounds = 0").Error
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECK")

	for i := 0; i < 3; i++ {
		err = Immediate(context.Background(), db, func(tx *gorm.DB) error {
			var count int64
			return tx.Model(&models.User{}).Where("username = ?", "ghost").Count(&count).Error
		})
		require.NoError(t, err)
	}

	var ghosts int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "ghost").Count(&ghosts).Error)
	assert.Zero(t, ghosts)
}
