package services

import (
	"context"
	"time"

	"github.com/mroshb/cockpit/internal/database"
	"github.com/mroshb/cockpit/internal/middleware"
	"github.com/mroshb/cockpit/internal/notify"
	"github.com/mroshb/cockpit/pkg/clock"
	"github.com/mroshb/cockpit/pkg/logger"
	"gorm.io/gorm"
)

// Options configure the ledger services. Zero fields take the defaults
// below.
type Options struct {
	Clock          clock.Clock
	MinBet         int64
	DrawMultiplier int64
	StaleAfter     time.Duration
	SessionSecret  string
	PasswordCost   int
	LoginLimiter   *middleware.LoginLimiter
	Notifier       notify.Notifier
}

const (
	DefaultMinBet         = 10
	DefaultDrawMultiplier = 5
	DefaultStaleAfter     = 30 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clock.System
	}
	if o.MinBet <= 0 {
		o.MinBet = DefaultMinBet
	}
	if o.DrawMultiplier <= 0 {
		o.DrawMultiplier = DefaultDrawMultiplier
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	return o
}

// Services is the set of ledger services bound to one database handle,
// either the root pool or the connection of an open unit of work.
type Services struct {
	Audit   *AuditService
	Auth    *AuthService
	Access  *AccessService
	Fights  *FightService
	Betting *BettingService
	Cash    *CashService
	Canteen *CanteenService
}

// New binds every service to db.
func New(db *gorm.DB, opts Options) *Services {
	opts = opts.withDefaults()
	audit := NewAuditService(db, opts.Clock)
	access := NewAccessService(db, audit)
	return &Services{
		Audit:   audit,
		Auth:    NewAuthService(db, audit, access, opts),
		Access:  access,
		Fights:  NewFightService(db, audit, opts.Clock),
		Betting: NewBettingService(db, audit, opts),
		Cash:    NewCashService(db, audit, opts.Clock),
		Canteen: NewCanteenService(db, audit, opts.Clock),
	}
}

// Ledger runs units of work against the shared store.
type Ledger struct {
	db   *gorm.DB
	opts Options
}

func NewLedger(db *gorm.DB, opts Options) *Ledger {
	return &Ledger{db: db, opts: opts.withDefaults()}
}

// Run executes fn as one unit of work holding the writer lock. Everything
// fn writes, audit entries included, commits together or not at all.
// Supervisor alerts are sent only after a successful commit.
func (l *Ledger) Run(ctx context.Context, fn func(s *Services) error) error {
	var svc *Services
	err := database.Immediate(ctx, l.db, func(tx *gorm.DB) error {
		svc = New(tx, l.opts)
		return fn(svc)
	})
	if err != nil {
		return err
	}

	for _, alert := range svc.Audit.Alerts() {
		if err := l.opts.Notifier.Notify(ctx, alert); err != nil {
			logger.Warn("Failed to deliver supervisor alert", "action", alert.Action, "entity_id", alert.EntityID, "error", err)
		}
	}
	return nil
}

// View binds the services to the root pool for read-only queries.
func (l *Ledger) View(ctx context.Context) *Services {
	return New(l.db.WithContext(ctx), l.opts)
}
