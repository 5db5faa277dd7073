package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"campusswap/internal/config"
	"campusswap/internal/domain"
	"campusswap/internal/events"
	"campusswap/internal/repos"
	"campusswap/internal/services"
)

var (
	alice = domain.Principal{ID: "u-alice"}
	bob   = domain.Principal{ID: "u-bob"}
	carol = domain.Principal{ID: "u-carol"}
	admin = domain.Principal{ID: "u-admin", Admin: true}
)

type env struct {
	DB        *sqlx.DB
	Events    *events.Recorder
	Catalog   *services.CatalogService
	Txns      *services.TransactionService
	Penalties *services.PenaltyService
	Ratings   *services.RatingService
}

func newEnv(t *testing.T) *env {
	return newEnvWithRules(t, config.DefaultRules())
}

func newEnvWithRules(t *testing.T, rules config.Rules) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	rec := &events.Recorder{}
	txns := services.NewTransactionService(db, rules, rec)
	txns.Now = func() time.Time { return time.Date(2025, 3, 3, 15, 30, 0, 0, time.UTC) }
	return &env{
		DB:        db,
		Events:    rec,
		Catalog:   services.NewCatalogService(db, rules),
		Txns:      txns,
		Penalties: services.NewPenaltyService(db, rec),
		Ratings:   services.NewRatingService(db, rec),
	}
}

func day(n int) *domain.Date {
	d := domain.NewDate(2025, time.March, 3).AddDays(n)
	return &d
}

func (e *env) itemStatus(t *testing.T, id string) domain.ItemStatus {
	t.Helper()
	it, err := e.Catalog.GetItem(context.Background(), id)
	require.NoError(t, err)
	return it.Status
}

// lend opens and confirms a lend of ti-84 (bob's, 7 days) to carol starting day 0.
func (e *env) activeLend(t *testing.T) domain.Transaction {
	t.Helper()
	ctx := context.Background()
	txn, err := e.Txns.Create(ctx, carol, services.CreateRequest{ItemID: "ti-84", Type: domain.TxnLend, StartDate: day(0)})
	require.NoError(t, err)
	txn, err = e.Txns.Confirm(ctx, bob, txn.ID)
	require.NoError(t, err)
	return txn
}
