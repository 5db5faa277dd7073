package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusswap/internal/domain"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func pendingLend(id, itemID, borrower string) *domain.Transaction {
	start := domain.NewDate(2025, time.March, 3)
	due := start.AddDays(7)
	return &domain.Transaction{
		ID: id, ItemID: itemID, BorrowerID: borrower, Type: domain.TxnLend,
		StartDate: start, DueDate: &due, Status: domain.TxnPending,
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, seedUsers(db))
	require.NoError(t, seedIfEmpty(db))

	var users, items int
	require.NoError(t, db.Get(&users, `SELECT COUNT(*) FROM users`))
	require.NoError(t, db.Get(&items, `SELECT COUNT(*) FROM items`))
	assert.Equal(t, 4, users)
	assert.Equal(t, 4, items)
}

func TestOneOpenTransactionPerItem(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := InTx(ctx, db, "double open", func(tx *sqlx.Tx) error {
		txns := NewTransactionRepo(tx)
		if err := txns.Create(ctx, pendingLend("t-1", "ti-84", "u-carol")); err != nil {
			return err
		}
		return txns.Create(ctx, pendingLend("t-2", "ti-84", "u-alice"))
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err), "got %v", err)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM transactions`))
	assert.Zero(t, n, "the whole unit rolls back")

	// closed transactions do not count against the index
	txns := NewTransactionRepo(db)
	require.NoError(t, txns.Create(ctx, pendingLend("t-3", "ti-84", "u-carol")))
	ok, err := txns.Transition(ctx, "t-3", domain.TxnPending, domain.TxnCancelled)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, txns.Create(ctx, pendingLend("t-4", "ti-84", "u-alice")))

	open, err := txns.CountOpenForItem(ctx, "ti-84")
	require.NoError(t, err)
	assert.Equal(t, 1, open)
}

func TestDomainErrorsPassThroughInTx(t *testing.T) {
	db := openTestDB(t)
	err := InTx(context.Background(), db, "noop", func(*sqlx.Tx) error { return domain.ErrItemUnavailable })
	assert.True(t, errors.Is(err, domain.ErrItemUnavailable))
	assert.False(t, domain.IsConflict(err))
}

func TestConditionalTransitions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	items := NewItemRepo(db)

	ok, err := items.TransitionStatus(ctx, "ti-84", domain.ItemAvailable, domain.ItemReserved)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = items.TransitionStatus(ctx, "ti-84", domain.ItemAvailable, domain.ItemReserved)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation loses")

	it, err := items.Get(ctx, "ti-84")
	require.NoError(t, err)
	assert.Equal(t, domain.ItemReserved, it.Status)
	assert.Equal(t, "Bob", it.OwnerName)

	_, err = items.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPenaltyRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewTransactionRepo(db).Create(ctx, pendingLend("t-1", "ti-84", "u-carol")))

	pens := NewPenaltyRepo(db)
	require.NoError(t, pens.Create(ctx, &domain.Penalty{
		ID: "p-1", TransactionID: "t-1", DaysLate: 2, Amount: decimal.NewFromInt(20), Status: domain.PenaltyPending,
	}))
	got, err := pens.ByTransaction(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "20.00", got.Amount.StringFixed(2))

	ok, err := pens.Resolve(ctx, "p-1", domain.PenaltyPaid)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = pens.Resolve(ctx, "p-1", domain.PenaltyWaived)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = pens.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyPaid, got.Status)
	assert.NotEmpty(t, got.ResolvedAt)
}

func TestRatingUniquePerRater(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewTransactionRepo(db).Create(ctx, pendingLend("t-1", "ti-84", "u-carol")))

	ratings := NewRatingRepo(db)
	rt := &domain.Rating{ID: "r-1", TransactionID: "t-1", RaterID: "u-carol", RateeID: "u-bob", Score: 4}
	require.NoError(t, ratings.Create(ctx, rt))

	dup := *rt
	dup.ID = "r-2"
	err := ratings.Create(ctx, &dup)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	exists, err := ratings.Exists(ctx, "t-1", "u-carol")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeletingItemCascades(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewTransactionRepo(db).Create(ctx, pendingLend("t-1", "ti-84", "u-carol")))
	require.NoError(t, NewSavedRepo(db).Add(ctx, "u-carol", "ti-84"))
	require.NoError(t, NewSavedRepo(db).Add(ctx, "u-carol", "ti-84"))

	saved, err := NewSavedRepo(db).List(ctx, "u-carol")
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	require.NoError(t, NewItemRepo(db).Delete(ctx, "ti-84"))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM transactions`))
	assert.Zero(t, n)
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM saved_items`))
	assert.Zero(t, n)
}

func TestUserSessions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := NewUserRepo(db)

	require.NoError(t, users.BindSession(ctx, "sid-x", "u-alice"))
	u, err := users.SessionUser(ctx, "sid-x")
	require.NoError(t, err)
	assert.Equal(t, "u-alice", u.ID)

	require.NoError(t, users.BindSession(ctx, "sid-x", "u-bob"))
	u, err = users.SessionUser(ctx, "sid-x")
	require.NoError(t, err)
	assert.Equal(t, "u-bob", u.ID)

	require.NoError(t, users.UnbindSession(ctx, "sid-x"))
	_, err = users.SessionUser(ctx, "sid-x")
	assert.Error(t, err)

	_, err = users.ByID(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = users.Create(ctx, &domain.User{ID: "u-x", Email: "alice@campus.test", Name: "X", Hash: "h", Role: domain.RoleUser})
	assert.True(t, IsUniqueViolation(err))
}
