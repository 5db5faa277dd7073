package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type SavedRepo struct{ db sqlx.ExtContext }

func NewSavedRepo(db sqlx.ExtContext) *SavedRepo { return &SavedRepo{db: db} }

func (r *SavedRepo) Add(ctx context.Context, userID, itemID string) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO saved_items(user_id, item_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(user_id, item_id) DO NOTHING
	`, userID, itemID)
	return err
}

func (r *SavedRepo) Remove(ctx context.Context, userID, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_items WHERE user_id=? AND item_id=?`, userID, itemID)
	return err
}

type SavedRow struct {
	ItemID string              `db:"item_id"`
	Title  string              `db:"title"`
	Mode   string              `db:"availability_mode"`
	Price  decimal.NullDecimal `db:"price"`
	Status string              `db:"status"`
}

func (r *SavedRepo) List(ctx context.Context, userID string) ([]SavedRow, error) {
	out := []SavedRow{}
	err := sqlx.SelectContext(ctx, r.db, &out, `
	  SELECT i.id AS item_id, i.title, i.availability_mode, i.price, i.status
	  FROM saved_items s
	  JOIN items i ON i.id = s.item_id
	  WHERE s.user_id = ?
	  ORDER BY i.title
	`, userID)
	return out, err
}
