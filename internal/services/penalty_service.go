package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"campusswap/internal/domain"
	"campusswap/internal/events"
	"campusswap/internal/repos"
)

// ComputePenalty assesses a late lend: one rate unit per whole day past the
// due date, rounded to cents. The transaction must already be late and the
// rate must be positive.
func ComputePenalty(t domain.Transaction, ratePerDay decimal.Decimal) (domain.Penalty, error) {
	if t.Type != domain.TxnLend || t.Status != domain.TxnLate {
		return domain.Penalty{}, domain.ErrInvalidState
	}
	if t.DueDate == nil {
		return domain.Penalty{}, domain.Missing("due_date")
	}
	if t.ReturnDate == nil {
		return domain.Penalty{}, domain.Missing("return_date")
	}
	if !ratePerDay.IsPositive() {
		return domain.Penalty{}, domain.Invalid("penalty_rate")
	}
	days := t.ReturnDate.DaysAfter(*t.DueDate)
	if days < 1 {
		return domain.Penalty{}, domain.ErrInvalidState
	}
	return domain.Penalty{
		ID:            uuid.NewString(),
		TransactionID: t.ID,
		DaysLate:      days,
		Amount:        ratePerDay.Mul(decimal.NewFromInt(int64(days))).Round(2),
		Status:        domain.PenaltyPending,
	}, nil
}

type PenaltyService struct {
	DB     *sqlx.DB
	Events events.Publisher
}

func NewPenaltyService(db *sqlx.DB, pub events.Publisher) *PenaltyService {
	return &PenaltyService{DB: db, Events: pub}
}

// MarkPaid records payment of a pending penalty. Item owner or admin.
func (s *PenaltyService) MarkPaid(ctx context.Context, p domain.Principal, id string) (domain.Penalty, error) {
	return s.resolve(ctx, p, id, domain.PenaltyPaid, events.PenaltyPaid)
}

// Waive forgives a pending penalty. Item owner or admin.
func (s *PenaltyService) Waive(ctx context.Context, p domain.Principal, id string) (domain.Penalty, error) {
	return s.resolve(ctx, p, id, domain.PenaltyWaived, events.PenaltyWaived)
}

func (s *PenaltyService) resolve(ctx context.Context, p domain.Principal, id string, to domain.PenaltyStatus, kind events.Kind) (domain.Penalty, error) {
	var (
		out domain.Penalty
		txn domain.Transaction
	)
	err := repos.InTx(ctx, s.DB, "resolve penalty", func(tx *sqlx.Tx) error {
		pens := repos.NewPenaltyRepo(tx)
		pen, err := pens.Get(ctx, id)
		if err != nil {
			return err
		}
		txn, err = repos.NewTransactionRepo(tx).Get(ctx, pen.TransactionID)
		if err != nil {
			return err
		}
		if !ownerOrAdmin(p, txn) {
			if !txn.IsParticipant(p.ID) {
				return domain.ErrNotFound
			}
			return domain.ErrForbidden
		}
		if pen.Status.Resolved() {
			return domain.ErrInvalidState
		}
		ok, err := pens.Resolve(ctx, id, to)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidState
		}
		out, err = pens.Get(ctx, id)
		return err
	})
	if err != nil {
		return domain.Penalty{}, err
	}
	events.Emit(ctx, s.Events, events.Event{
		Kind:          kind,
		TransactionID: txn.ID,
		ItemID:        txn.ItemID,
		ActorID:       p.ID,
		Recipients:    recipients(txn, p.ID),
		Data:          map[string]any{"penalty_id": out.ID, "amount": out.Amount.StringFixed(2)},
	})
	return out, nil
}

func (s *PenaltyService) ForTransaction(ctx context.Context, txnID string) (domain.Penalty, error) {
	return repos.NewPenaltyRepo(s.DB).ByTransaction(ctx, txnID)
}

func (s *PenaltyService) ListPending(ctx context.Context, limit int) ([]domain.Penalty, error) {
	return repos.NewPenaltyRepo(s.DB).ListByStatus(ctx, domain.PenaltyPending, limit)
}
