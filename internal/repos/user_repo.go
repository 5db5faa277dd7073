package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"campusswap/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userSelect = `SELECT id,email,name,password_hash,role FROM users`

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, userSelect+` WHERE LOWER(email)=LOWER(?)`, email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, userSelect+` WHERE id=?`, id)
	if err != nil {
		return nil, notFound("user "+id, err)
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,email,name,password_hash,role) VALUES(?,?,?,?,?)`,
		u.ID, u.Email, u.Name, u.Hash, u.Role)
	return err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, `
      SELECT u.id,u.email,u.name,u.password_hash,u.role
      FROM sessions s
      JOIN users u ON u.id=s.user_id
      WHERE s.id=?`, sid)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}

type UserRow struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Role  string `db:"role"`
}

// List returns non-admin users for moderation pages.
func (r *UserRepo) List(ctx context.Context) ([]UserRow, error) {
	var users []UserRow
	err := r.DB.SelectContext(ctx, &users, `SELECT id,email,name,role FROM users WHERE role != 'ADMIN' ORDER BY email`)
	return users, err
}

// DeleteUserCascade removes a user. Items they still hold as borrower go back
// to available; their own listings, transactions, penalties, ratings, saved
// items and sessions go with them through foreign-key cascades.
func (r *UserRepo) DeleteUserCascade(ctx context.Context, userID string) error {
	return InTx(ctx, r.DB, "delete user", func(tx *sqlx.Tx) error {
		// Release items held by the user's open requests and loans
		var itemIDs []string
		if err := tx.SelectContext(ctx, &itemIDs, `
			SELECT t.item_id FROM transactions t
			JOIN items i ON i.id = t.item_id
			WHERE t.borrower_id=? AND t.status IN ('pending','active','late') AND i.owner_id != ?`, userID, userID); err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			query, args, err := sqlx.In(`UPDATE items SET status='available', updated_at=CURRENT_TIMESTAMP WHERE id IN (?)`, itemIDs)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, userID)
		return err
	})
}
