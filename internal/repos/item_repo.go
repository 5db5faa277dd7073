package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"campusswap/internal/domain"
)

// ItemRepo works against either the pool or an open transaction.
type ItemRepo struct{ db sqlx.ExtContext }

func NewItemRepo(db sqlx.ExtContext) *ItemRepo { return &ItemRepo{db: db} }

const itemSelect = `
  SELECT
    i.id, i.owner_id, COALESCE(u.name,'') AS owner_name, COALESCE(i.category_id,'') AS category_id,
    i.title, i.description, i.availability_mode, i.price, i.lending_duration_days, i.status,
    i.pickup_location, COALESCE(i.created_at,'') AS created_at, COALESCE(i.updated_at,'') AS updated_at
  FROM items i
  LEFT JOIN users u ON u.id = i.owner_id`

func (r *ItemRepo) Create(ctx context.Context, it *domain.Item) error {
	_, err := r.db.ExecContext(ctx, `
	  INSERT INTO items
	    (id, owner_id, category_id, title, description, availability_mode, price, lending_duration_days, status, pickup_location, created_at)
	  VALUES
	    (?,  ?,        ?,           ?,     ?,           ?,                 ?,     ?,                     ?,      ?,               CURRENT_TIMESTAMP)
	`, it.ID, it.OwnerID, nullable(it.CategoryID), it.Title, it.Description, it.Mode, it.Price, it.LendingDays, it.Status, it.PickupLocation)
	return err
}

func (r *ItemRepo) Get(ctx context.Context, id string) (domain.Item, error) {
	var it domain.Item
	err := sqlx.GetContext(ctx, r.db, &it, itemSelect+` WHERE i.id = ?`, id)
	return it, notFound("item "+id, err)
}

// ListAvailable returns the newest listings that can still be requested.
func (r *ItemRepo) ListAvailable(ctx context.Context, limit, offset int) ([]domain.Item, error) {
	out := []domain.Item{}
	err := sqlx.SelectContext(ctx, r.db, &out, itemSelect+`
	  WHERE i.status = 'available'
	  ORDER BY i.created_at DESC, i.id
	  LIMIT ? OFFSET ?`, limit, offset)
	return out, err
}

func (r *ItemRepo) Search(ctx context.Context, q, catID, mode string, limit, offset int) ([]domain.Item, error) {
	where := `i.status = 'available'`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(i.title) LIKE ? OR LOWER(i.description) LIKE ?)`
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if catID != "" {
		where += ` AND i.category_id = ?`
		args = append(args, catID)
	}
	switch domain.Mode(mode) {
	case domain.ModeLend:
		where += ` AND i.availability_mode IN ('lend','both')`
	case domain.ModeSell:
		where += ` AND i.availability_mode IN ('sell','both')`
	case domain.ModeBoth:
		where += ` AND i.availability_mode = 'both'`
	}
	args = append(args, limit, offset)

	out := []domain.Item{}
	err := sqlx.SelectContext(ctx, r.db, &out, itemSelect+`
	  WHERE `+where+`
	  ORDER BY i.created_at DESC, i.id
	  LIMIT ? OFFSET ?`, args...)
	return out, err
}

func (r *ItemRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Item, error) {
	out := []domain.Item{}
	err := sqlx.SelectContext(ctx, r.db, &out, itemSelect+`
	  WHERE i.owner_id = ?
	  ORDER BY i.created_at DESC, i.id`, ownerID)
	return out, err
}

// Update rewrites the listing fields. Status is not touched.
func (r *ItemRepo) Update(ctx context.Context, it *domain.Item) error {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE items
	  SET category_id = ?, title = ?, description = ?, availability_mode = ?, price = ?,
	      lending_duration_days = ?, pickup_location = ?, updated_at = ?
	  WHERE id = ?
	`, nullable(it.CategoryID), it.Title, it.Description, it.Mode, it.Price, it.LendingDays, it.PickupLocation, now(), it.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("item "+it.ID, sql.ErrNoRows)
	}
	return nil
}

// TransitionStatus moves the item from one status to another. It reports
// false when the item was not in the expected status.
func (r *ItemRepo) TransitionStatus(ctx context.Context, id string, from, to domain.ItemStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
	  UPDATE items SET status = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`, to, now(), id, from)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	return err
}

type StatusCount struct {
	Status string `db:"status"`
	N      int    `db:"n"`
}

func (r *ItemRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	out := []StatusCount{}
	err := sqlx.SelectContext(ctx, r.db, &out, `SELECT status, COUNT(*) AS n FROM items GROUP BY status ORDER BY status`)
	return out, err
}
