package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusswap/internal/domain"
	"campusswap/internal/repos"
	"campusswap/internal/services"
)

func price(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }

func TestCreateItemNormalizes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	it, err := e.Catalog.CreateItem(ctx, carol, services.ItemInput{
		Title: "  Yoga mat ", CategoryID: "sports", Mode: domain.ModeLend, Price: price("9.99"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Yoga mat", it.Title)
	assert.False(t, it.Price.Valid, "lend-only listings carry no price")
	assert.Equal(t, 7, it.LendingDays)
	assert.Equal(t, domain.ItemAvailable, it.Status)
	assert.Equal(t, "u-carol", it.OwnerID)

	it, err = e.Catalog.CreateItem(ctx, carol, services.ItemInput{Title: "Chair", Mode: domain.ModeBoth, Price: price("20.456"), LendingDays: 10})
	require.NoError(t, err)
	assert.Equal(t, "20.46", it.Price.Decimal.StringFixed(2))
	assert.Equal(t, 10, it.LendingDays)
}

func TestCreateItemValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    services.ItemInput
		field string
		want  error
	}{
		{"no title", services.ItemInput{Mode: domain.ModeLend}, "title", domain.ErrMissingField},
		{"long title", services.ItemInput{Title: strings.Repeat("a", 101), Mode: domain.ModeLend}, "title", domain.ErrInvalidField},
		{"bad mode", services.ItemInput{Title: "x", Mode: "rent"}, "availability_mode", domain.ErrInvalidField},
		{"sell without price", services.ItemInput{Title: "x", Mode: domain.ModeSell}, "price", domain.ErrMissingField},
		{"negative price", services.ItemInput{Title: "x", Mode: domain.ModeBoth, Price: price("-1")}, "price", domain.ErrInvalidField},
		{"too long a loan", services.ItemInput{Title: "x", Mode: domain.ModeLend, LendingDays: 31}, "lending_duration_days", domain.ErrInvalidField},
		{"unknown category", services.ItemInput{Title: "x", Mode: domain.ModeLend, CategoryID: "boats"}, "category_id", domain.ErrInvalidField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Catalog.CreateItem(ctx, alice, tc.in)
			require.ErrorIs(t, err, tc.want)
			var fe *domain.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}

	_, err := e.Catalog.CreateItem(ctx, domain.Principal{}, services.ItemInput{Title: "x", Mode: domain.ModeLend})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateItemRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	in := services.ItemInput{Title: "TI-84 Plus CE", Mode: domain.ModeBoth, Price: price("60"), LendingDays: 5}
	_, err := e.Catalog.UpdateItem(ctx, carol, "ti-84", in)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	it, err := e.Catalog.UpdateItem(ctx, bob, "ti-84", in)
	require.NoError(t, err)
	assert.Equal(t, "TI-84 Plus CE", it.Title)
	assert.Equal(t, domain.ModeBoth, it.Mode)

	_, err = e.Txns.Create(ctx, carol, services.CreateRequest{ItemID: "ti-84", Type: domain.TxnLend})
	require.NoError(t, err)
	_, err = e.Catalog.UpdateItem(ctx, bob, "ti-84", in)
	assert.ErrorIs(t, err, domain.ErrItemUnavailable)
}

func TestDeleteItemRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, e.Catalog.DeleteItem(ctx, carol, "ti-84"), domain.ErrForbidden)

	txn, err := e.Txns.Create(ctx, carol, services.CreateRequest{ItemID: "ti-84", Type: domain.TxnLend})
	require.NoError(t, err)
	assert.ErrorIs(t, e.Catalog.DeleteItem(ctx, bob, "ti-84"), domain.ErrInvalidState)

	require.NoError(t, e.Catalog.DeleteItem(ctx, admin, "ti-84"))
	_, err = e.Catalog.GetItem(ctx, "ti-84")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.Txns.Get(ctx, admin, txn.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "history goes with the item")

	require.NoError(t, e.Catalog.DeleteItem(ctx, alice, "lab-coat-m"))
}

func TestAvailabilityAndListings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.Catalog.Availability(ctx, "calc-early")
	require.NoError(t, err)
	assert.Equal(t, domain.ItemAvailable, a.Status)
	assert.Equal(t, []domain.TxnType{domain.TxnLend, domain.TxnSell}, a.Modes)

	_, err = e.Txns.Create(ctx, bob, services.CreateRequest{ItemID: "calc-early", Type: domain.TxnSell, FinalPrice: price("40")})
	require.NoError(t, err)

	a, err = e.Catalog.Availability(ctx, "calc-early")
	require.NoError(t, err)
	assert.Equal(t, domain.ItemReserved, a.Status)
	assert.Empty(t, a.Modes)

	list, err := e.Catalog.ListItems(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3, "reserved items drop out of the browse list")

	found, err := e.Catalog.Search(ctx, "calc", "", "", 1, 12)
	require.NoError(t, err)
	for _, it := range found {
		assert.NotEqual(t, "calc-early", it.ID)
	}

	mine, err := e.Catalog.ListByOwner(ctx, "u-alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	cats, err := e.Catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 5)
}

func TestSavedItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	saved := services.NewSavedService(e.DB)

	require.NoError(t, saved.Save(ctx, "u-bob", "calc-early"))
	require.NoError(t, saved.Save(ctx, "u-bob", "calc-early"))
	assert.ErrorIs(t, saved.Save(ctx, "u-bob", "missing"), domain.ErrNotFound)

	rows, err := saved.List(ctx, "u-bob")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, saved.Unsave(ctx, "u-bob", "calc-early"))
	rows, err = saved.List(ctx, "u-bob")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAdminStatsAndDeleteUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	adm := services.NewAdminService(e.DB, repos.NewUserRepo(e.DB))

	txn := e.activeLend(t)

	st, err := adm.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Items["available"])
	assert.Equal(t, 1, st.Items["borrowed"])
	assert.Equal(t, 1, st.Transactions["active"])

	users, err := adm.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	require.NoError(t, adm.DeleteUser(ctx, "u-carol"))
	assert.Equal(t, domain.ItemAvailable, e.itemStatus(t, "ti-84"))
	_, err = e.Txns.Get(ctx, admin, txn.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.Catalog.GetItem(ctx, "desk-lamp")
	assert.ErrorIs(t, err, domain.ErrNotFound, "carol's listings are removed with her")
}
