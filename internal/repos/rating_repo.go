package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"campusswap/internal/domain"
)

type RatingRepo struct{ db sqlx.ExtContext }

func NewRatingRepo(db sqlx.ExtContext) *RatingRepo { return &RatingRepo{db: db} }

const ratingSelect = `
  SELECT r.id, r.transaction_id, r.rater_id, COALESCE(u.name,'') AS rater_name, r.ratee_id,
         r.rating, r.comment, COALESCE(r.created_at,'') AS created_at
  FROM ratings r
  LEFT JOIN users u ON u.id = r.rater_id`

func (r *RatingRepo) Create(ctx context.Context, rt *domain.Rating) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO ratings(id, transaction_id, rater_id, ratee_id, rating, comment, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, rt.ID, rt.TransactionID, rt.RaterID, rt.RateeID, rt.Score, rt.Comment)
	return err
}

func (r *RatingRepo) Exists(ctx context.Context, txnID, raterID string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `
	  SELECT COUNT(*) FROM ratings WHERE transaction_id = ? AND rater_id = ?
	`, txnID, raterID)
	return n > 0, err
}

func (r *RatingRepo) ForTransaction(ctx context.Context, txnID string) ([]domain.Rating, error) {
	out := []domain.Rating{}
	err := sqlx.SelectContext(ctx, r.db, &out, ratingSelect+`
	  WHERE r.transaction_id = ?
	  ORDER BY r.created_at, r.id`, txnID)
	return out, err
}

// ForUser lists ratings the user has received.
func (r *RatingRepo) ForUser(ctx context.Context, rateeID string) ([]domain.Rating, error) {
	out := []domain.Rating{}
	err := sqlx.SelectContext(ctx, r.db, &out, ratingSelect+`
	  WHERE r.ratee_id = ?
	  ORDER BY r.created_at DESC, r.id`, rateeID)
	return out, err
}

func (r *RatingRepo) Summary(ctx context.Context, rateeID string) (domain.RatingSummary, error) {
	var s domain.RatingSummary
	err := sqlx.GetContext(ctx, r.db, &s, `
	  SELECT COUNT(*) AS n, COALESCE(AVG(rating), 0.0) AS avg
	  FROM ratings WHERE ratee_id = ?
	`, rateeID)
	return s, err
}
