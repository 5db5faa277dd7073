package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"campusswap/internal/domain"
	"campusswap/internal/events"
	"campusswap/internal/repos"
)

const maxCommentLen = 500

type RatingService struct {
	DB     *sqlx.DB
	Events events.Publisher
}

func NewRatingService(db *sqlx.DB, pub events.Publisher) *RatingService {
	return &RatingService{DB: db, Events: pub}
}

// Submit records the caller's rating of their counterpart on a completed
// transaction. Each participant rates a transaction at most once; ratings are
// never edited.
func (s *RatingService) Submit(ctx context.Context, p domain.Principal, txnID string, score int, comment string) (domain.Rating, error) {
	comment = strings.TrimSpace(comment)

	var (
		out domain.Rating
		txn domain.Transaction
	)
	err := repos.InTx(ctx, s.DB, "submit rating", func(tx *sqlx.Tx) error {
		var err error
		txn, err = repos.NewTransactionRepo(tx).Get(ctx, txnID)
		if err != nil {
			return err
		}
		if txn.Status != domain.TxnCompleted {
			return domain.ErrTransactionNotCompleted
		}
		if !txn.IsParticipant(p.ID) {
			return domain.ErrNotParticipant
		}
		ratings := repos.NewRatingRepo(tx)
		dup, err := ratings.Exists(ctx, txnID, p.ID)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateRating
		}
		if score < 1 || score > 5 {
			return domain.ErrInvalidScore
		}
		if utf8.RuneCountInString(comment) > maxCommentLen {
			return domain.Invalid("comment")
		}

		out = domain.Rating{
			ID:            uuid.NewString(),
			TransactionID: txnID,
			RaterID:       p.ID,
			RateeID:       txn.Counterpart(p.ID),
			Score:         score,
			Comment:       comment,
		}
		if err := ratings.Create(ctx, &out); err != nil {
			if repos.IsUniqueViolation(err) {
				return domain.ErrDuplicateRating
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Rating{}, err
	}
	events.Emit(ctx, s.Events, events.Event{
		Kind:          events.RatingSubmitted,
		TransactionID: txnID,
		ItemID:        txn.ItemID,
		ActorID:       p.ID,
		Recipients:    []string{out.RateeID},
		Data:          map[string]any{"rating": score},
	})
	return out, nil
}

func (s *RatingService) ForTransaction(ctx context.Context, txnID string) ([]domain.Rating, error) {
	return repos.NewRatingRepo(s.DB).ForTransaction(ctx, txnID)
}

// ForUser lists ratings received by the user.
func (s *RatingService) ForUser(ctx context.Context, userID string) ([]domain.Rating, error) {
	return repos.NewRatingRepo(s.DB).ForUser(ctx, userID)
}

func (s *RatingService) Summary(ctx context.Context, userID string) (domain.RatingSummary, error) {
	return repos.NewRatingRepo(s.DB).Summary(ctx, userID)
}
