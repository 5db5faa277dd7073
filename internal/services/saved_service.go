package services

import (
	"context"

	"campusswap/internal/repos"

	"github.com/jmoiron/sqlx"
)

// SavedService keeps a per-user bookmark list of listings.
type SavedService struct {
	DB *sqlx.DB
}

func NewSavedService(db *sqlx.DB) *SavedService { return &SavedService{DB: db} }

func (s *SavedService) Save(ctx context.Context, userID, itemID string) error {
	if _, err := repos.NewItemRepo(s.DB).Get(ctx, itemID); err != nil {
		return err
	}
	return repos.NewSavedRepo(s.DB).Add(ctx, userID, itemID)
}

func (s *SavedService) Unsave(ctx context.Context, userID, itemID string) error {
	return repos.NewSavedRepo(s.DB).Remove(ctx, userID, itemID)
}

func (s *SavedService) List(ctx context.Context, userID string) ([]repos.SavedRow, error) {
	return repos.NewSavedRepo(s.DB).List(ctx, userID)
}
