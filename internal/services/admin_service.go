package services

import (
	"context"

	"campusswap/internal/repos"

	"github.com/jmoiron/sqlx"
)

type AdminService struct {
	DB    *sqlx.DB
	Users *repos.UserRepo
}

func NewAdminService(db *sqlx.DB, users *repos.UserRepo) *AdminService {
	return &AdminService{DB: db, Users: users}
}

type Stats struct {
	Items        map[string]int
	Transactions map[string]int
	Penalties    map[string]int
}

// Stats counts items, transactions and penalties per status for the dashboard.
func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	st := Stats{}
	var err error
	if st.Items, err = counts(repos.NewItemRepo(s.DB).CountByStatus(ctx)); err != nil {
		return Stats{}, err
	}
	if st.Transactions, err = counts(repos.NewTransactionRepo(s.DB).CountByStatus(ctx)); err != nil {
		return Stats{}, err
	}
	if st.Penalties, err = counts(repos.NewPenaltyRepo(s.DB).CountByStatus(ctx)); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]repos.UserRow, error) {
	return s.Users.List(ctx)
}

func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	return s.Users.DeleteUserCascade(ctx, id)
}

func counts(rows []repos.StatusCount, err error) (map[string]int, error) {
	if err != nil {
		return nil, err
	}
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.Status] = r.N
	}
	return m, nil
}
