package database

import (
	"context"

	"github.com/mroshb/cockpit/pkg/errors"
	"gorm.io/gorm"
)

// Immediate runs fn as one unit of work on a single pinned connection
// opened with BEGIN IMMEDIATE, so the writer lock is held from the first
// statement. Waiting for the lock is bounded by the store's busy timeout.
// Any error or panic from fn rolls the whole unit back.
func Immediate(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Connection(func(pinned *gorm.DB) (err error) {
		// Transaction control gets its own statement so an error left on
		// the unit's handle cannot swallow COMMIT or ROLLBACK.
		control := func(c context.Context) *gorm.DB {
			return pinned.Session(&gorm.Session{NewDB: true, Context: c})
		}

		if err := control(ctx).Exec("BEGIN IMMEDIATE").Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to acquire writer lock")
		}

		committed := false
		defer func() {
			if !committed {
				// Roll back even when ctx is already cancelled, so the
				// connection never returns to the pool mid-transaction.
				control(context.Background()).Exec("ROLLBACK")
			}
		}()

		if err := fn(pinned.Session(&gorm.Session{})); err != nil {
			return err
		}

		if err := control(ctx).Exec("COMMIT").Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to commit")
		}
		committed = true
		return nil
	})
}
