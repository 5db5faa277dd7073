package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"campusswap/internal/domain"
)

type PenaltyRepo struct{ db sqlx.ExtContext }

func NewPenaltyRepo(db sqlx.ExtContext) *PenaltyRepo { return &PenaltyRepo{db: db} }

const penaltySelect = `
  SELECT id, transaction_id, days_late, amount, status,
         COALESCE(created_at,'') AS created_at, COALESCE(resolved_at,'') AS resolved_at
  FROM penalties`

func (r *PenaltyRepo) Create(ctx context.Context, p *domain.Penalty) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO penalties(id, transaction_id, days_late, amount, status, created_at)
	  VALUES(?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, p.ID, p.TransactionID, p.DaysLate, p.Amount.StringFixed(2), p.Status)
	return err
}

func (r *PenaltyRepo) Get(ctx context.Context, id string) (domain.Penalty, error) {
	var p domain.Penalty
	err := sqlx.GetContext(ctx, r.db, &p, penaltySelect+` WHERE id = ?`, id)
	return p, notFound("penalty "+id, err)
}

func (r *PenaltyRepo) ByTransaction(ctx context.Context, txnID string) (domain.Penalty, error) {
	var p domain.Penalty
	err := sqlx.GetContext(ctx, r.db, &p, penaltySelect+` WHERE transaction_id = ?`, txnID)
	return p, notFound("penalty for transaction "+txnID, err)
}

// Resolve moves a pending penalty to paid or waived; false means it was already terminal.
func (r *PenaltyRepo) Resolve(ctx context.Context, id string, to domain.PenaltyStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE penalties SET status = ?, resolved_at = ?
	  WHERE id = ? AND status = 'pending'
	`, to, now(), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *PenaltyRepo) ListByStatus(ctx context.Context, status domain.PenaltyStatus, limit int) ([]domain.Penalty, error) {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Penalty{}
	err := sqlx.SelectContext(ctx, r.db, &out, penaltySelect+`
	  WHERE status = ?
	  ORDER BY created_at DESC, id
	  LIMIT ?`, status, limit)
	return out, err
}

func (r *PenaltyRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	out := []StatusCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT status, COUNT(*) AS n FROM penalties GROUP BY status ORDER BY status`)
	return out, err
}
