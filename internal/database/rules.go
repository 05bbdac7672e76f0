package database

// storageRules are the invariants the store itself enforces, so they hold
// for every writer, including ones that bypass the services.
var storageRules = []string{
	// One active session per user.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_sessions_active_user
	 ON sessions(user_id) WHERE logged_out_at IS NULL`,

	// One open drawer per (type, owner).
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_drawers_open_owner
	 ON cash_drawers(drawer_type, owner_user_id)
	 WHERE closed_at IS NULL AND owner_user_id IS NOT NULL`,

	// Append-only ledgers.
	`CREATE TRIGGER IF NOT EXISTS trg_audit_log_no_update
	 BEFORE UPDATE ON audit_log
	 BEGIN SELECT RAISE(ABORT, 'audit_log is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_audit_log_no_delete
	 BEFORE DELETE ON audit_log
	 BEGIN SELECT RAISE(ABORT, 'audit_log is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_cash_movements_no_update
	 BEFORE UPDATE ON cash_movements
	 BEGIN SELECT RAISE(ABORT, 'cash_movements is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_cash_movements_no_delete
	 BEFORE DELETE ON cash_movements
	 BEGIN SELECT RAISE(ABORT, 'cash_movements is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_stock_movements_no_update
	 BEFORE UPDATE ON canteen_stock_movements
	 BEGIN SELECT RAISE(ABORT, 'canteen_stock_movements is append-only'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_stock_movements_no_delete
	 BEFORE DELETE ON canteen_stock_movements
	 BEGIN SELECT RAISE(ABORT, 'canteen_stock_movements is append-only'); END`,

	// Betting closes with the match.
	`CREATE TRIGGER IF NOT EXISTS trg_bet_slips_match_open
	 BEFORE INSERT ON bet_slips
	 WHEN (SELECT state FROM fight_matches WHERE id = NEW.match_id) IN ('FINISHED', 'VOIDED')
	 BEGIN SELECT RAISE(ABORT, 'match is closed for betting'); END`,

	// The first accepted wager locks the match in the same statement.
	`CREATE TRIGGER IF NOT EXISTS trg_bet_slips_lock_match
	 AFTER INSERT ON bet_slips
	 BEGIN
	   UPDATE fight_matches
	   SET locked_at = COALESCE(locked_at, NEW.encoded_at),
	       state = CASE WHEN state = 'DRAFT' THEN 'LOCKED' ELSE state END
	   WHERE id = NEW.match_id;
	 END`,

	// A lock is never lifted or moved.
	`CREATE TRIGGER IF NOT EXISTS trg_fight_matches_lock_irreversible
	 BEFORE UPDATE OF locked_at ON fight_matches
	 WHEN OLD.locked_at IS NOT NULL
	  AND (NEW.locked_at IS NULL OR NEW.locked_at <> OLD.locked_at)
	 BEGIN SELECT RAISE(ABORT, 'match lock is irreversible'); END`,

	// Entries are frozen once their match is locked.
	`CREATE TRIGGER IF NOT EXISTS trg_fight_entries_locked_insert
	 BEFORE INSERT ON fight_entries
	 WHEN (SELECT locked_at FROM fight_matches WHERE id = NEW.match_id) IS NOT NULL
	 BEGIN SELECT RAISE(ABORT, 'fight is locked; entries are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_fight_entries_locked_update
	 BEFORE UPDATE ON fight_entries
	 WHEN (SELECT locked_at FROM fight_matches WHERE id = OLD.match_id) IS NOT NULL
	 BEGIN SELECT RAISE(ABORT, 'fight is locked; entries are immutable'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_fight_entries_locked_delete
	 BEFORE DELETE ON fight_entries
	 WHEN (SELECT locked_at FROM fight_matches WHERE id = OLD.match_id) IS NOT NULL
	 BEGIN SELECT RAISE(ABORT, 'fight is locked; entries are immutable'); END`,

	// Betting and canteen cash never cross drawers.
	`CREATE TRIGGER IF NOT EXISTS trg_cash_movements_drawer_family
	 BEFORE INSERT ON cash_movements
	 WHEN (NEW.movement_type IN ('BET_IN', 'PAYOUT_OUT')
	       AND (SELECT drawer_type FROM cash_drawers WHERE id = NEW.drawer_id) <> 'BETTING_CASHIER')
	   OR (NEW.movement_type = 'CANTEEN_SALE_IN'
	       AND (SELECT drawer_type FROM cash_drawers WHERE id = NEW.drawer_id) <> 'CANTEEN')
	 BEGIN SELECT RAISE(ABORT, 'movement type does not belong to this drawer type'); END`,
	`CREATE TRIGGER IF NOT EXISTS trg_cash_movements_drawer_open
	 BEFORE INSERT ON cash_movements
	 WHEN (SELECT closed_at FROM cash_drawers WHERE id = NEW.drawer_id) IS NOT NULL
	 BEGIN SELECT RAISE(ABORT, 'drawer is closed'); END`,

	// Pool totals per match.
	`CREATE VIEW IF NOT EXISTS vw_bet_totals AS
	 SELECT
	   match_id,
	   COALESCE(SUM(CASE WHEN side = 'WALA' THEN amount END), 0) AS total_wala,
	   COALESCE(SUM(CASE WHEN side = 'MERON' THEN amount END), 0) AS total_meron,
	   COALESCE(SUM(CASE WHEN side = 'DRAW' THEN amount END), 0) AS total_draw,
	   COALESCE(SUM(amount), 0) AS total_all
	 FROM bet_slips
	 GROUP BY match_id`,
}
