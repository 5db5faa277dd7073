package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"campusswap/internal/domain"
)

type TransactionRepo struct{ db sqlx.ExtContext }

func NewTransactionRepo(db sqlx.ExtContext) *TransactionRepo { return &TransactionRepo{db: db} }

const txnSelect = `
  SELECT
    t.id, t.item_id, i.title AS item_title, i.owner_id, t.borrower_id, t.type,
    t.start_date, t.due_date, t.return_date, t.deposit_amount, t.final_price, t.status,
    COALESCE(t.created_at,'') AS created_at, COALESCE(t.updated_at,'') AS updated_at
  FROM transactions t
  JOIN items i ON i.id = t.item_id`

// Create inserts a new transaction row. The partial unique index on open
// transactions rejects a second open row for the same item.
func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO transactions
	    (id, item_id, borrower_id, type, start_date, due_date, deposit_amount, final_price, status, created_at)
	  VALUES
	    (?,  ?,       ?,           ?,    ?,          ?,        ?,              ?,           ?,      CURRENT_TIMESTAMP)
	`, t.ID, t.ItemID, t.BorrowerID, t.Type, t.StartDate, t.DueDate, t.Deposit, t.FinalPrice, t.Status)
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (domain.Transaction, error) {
	var t domain.Transaction
	err := sqlx.GetContext(ctx, r.db, &t, txnSelect+` WHERE t.id = ?`, id)
	return t, notFound("transaction "+id, err)
}

// Transition moves a transaction between statuses; false means it was no longer in "from".
func (r *TransactionRepo) Transition(ctx context.Context, id string, from, to domain.TxnStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE transactions SET status = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`, to, now(), id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Close records the return date and final status of an active transaction.
func (r *TransactionRepo) Close(ctx context.Context, id string, returned *domain.Date, to domain.TxnStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE transactions SET status = ?, return_date = ?, updated_at = ?
	  WHERE id = ? AND status = 'active'
	`, to, returned, now(), id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *TransactionRepo) CountPendingByBorrower(ctx context.Context, borrowerID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `
	  SELECT COUNT(*) FROM transactions WHERE borrower_id = ? AND status = 'pending'
	`, borrowerID)
	return n, err
}

func (r *TransactionRepo) CountOpenForItem(ctx context.Context, itemID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `
	  SELECT COUNT(*) FROM transactions
	  WHERE item_id = ? AND status IN ('pending','active','late')
	`, itemID)
	return n, err
}

// ListForUser returns transactions where the user is borrower or item owner.
func (r *TransactionRepo) ListForUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &out, txnSelect+`
	  WHERE t.borrower_id = ? OR i.owner_id = ?
	  ORDER BY t.created_at DESC, t.id`, userID, userID)
	return out, err
}

func (r *TransactionRepo) ListByItem(ctx context.Context, itemID string) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &out, txnSelect+`
	  WHERE t.item_id = ?
	  ORDER BY t.created_at DESC, t.id`, itemID)
	return out, err
}

func (r *TransactionRepo) ListLatest(ctx context.Context, status string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	where := `1 = 1`
	args := []any{}
	if status != "" {
		where = `t.status = ?`
		args = append(args, status)
	}
	args = append(args, limit)
	out := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &out, txnSelect+`
	  WHERE `+where+`
	  ORDER BY t.created_at DESC, t.id
	  LIMIT ?`, args...)
	return out, err
}

func (r *TransactionRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	out := []StatusCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT status, COUNT(*) AS n FROM transactions GROUP BY status ORDER BY status`)
	return out, err
}
