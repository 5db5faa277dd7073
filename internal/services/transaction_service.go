package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"campusswap/internal/config"
	"campusswap/internal/domain"
	"campusswap/internal/events"
	"campusswap/internal/repos"
)

// TransactionService drives the lend/sell lifecycle:
//
//	pending -confirm-> active -complete(on time)-> completed
//	active -complete(overdue)-> late -resolve-> completed
//	pending -cancel-> cancelled
//
// Every operation commits the transaction row and the item status together.
type TransactionService struct {
	DB     *sqlx.DB
	Rules  config.Rules
	Events events.Publisher
	Now    func() time.Time
}

func NewTransactionService(db *sqlx.DB, rules config.Rules, pub events.Publisher) *TransactionService {
	return &TransactionService{DB: db, Rules: rules, Events: pub, Now: time.Now}
}

type CreateRequest struct {
	ItemID     string
	Type       domain.TxnType
	Deposit    decimal.NullDecimal
	FinalPrice decimal.NullDecimal
	// StartDate defaults to today. It may not be in the past or more than
	// MaxLendingDays ahead.
	StartDate *domain.Date
	// DueDate overrides start + item lending duration for lends.
	DueDate *domain.Date
}

func (s *TransactionService) today() domain.Date { return domain.DateOf(s.Now().UTC()) }

// Create opens a pending transaction for the caller against an item and reserves the item.
func (s *TransactionService) Create(ctx context.Context, p domain.Principal, req CreateRequest) (domain.Transaction, error) {
	if p.ID == "" {
		return domain.Transaction{}, domain.ErrForbidden
	}
	if !req.Type.Valid() {
		return domain.Transaction{}, domain.Invalid("type")
	}
	rules := s.Rules

	var out domain.Transaction
	err := repos.InTx(ctx, s.DB, "create transaction", func(tx *sqlx.Tx) error {
		items := repos.NewItemRepo(tx)
		txns := repos.NewTransactionRepo(tx)

		it, err := items.Get(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if it.OwnerID == p.ID {
			return domain.ErrOwnItem
		}
		if !it.Mode.Permits(req.Type) {
			return domain.ErrIncompatibleType
		}

		today := s.today()
		t := domain.Transaction{
			ID:         uuid.NewString(),
			ItemID:     it.ID,
			BorrowerID: p.ID,
			Type:       req.Type,
			StartDate:  today,
			Deposit:    req.Deposit,
			Status:     domain.TxnPending,
		}
		if req.StartDate != nil {
			if req.StartDate.Before(today) || req.StartDate.After(today.AddDays(rules.MaxLendingDays)) {
				return domain.Invalid("start_date")
			}
			t.StartDate = *req.StartDate
		}
		if t.Deposit.Valid {
			if t.Deposit.Decimal.IsNegative() {
				return domain.Invalid("deposit_amount")
			}
			t.Deposit.Decimal = t.Deposit.Decimal.Round(2)
		}

		switch req.Type {
		case domain.TxnSell:
			if !req.FinalPrice.Valid {
				return domain.Missing("final_price")
			}
			if req.FinalPrice.Decimal.IsNegative() {
				return domain.Invalid("final_price")
			}
			t.FinalPrice = decimal.NewNullDecimal(req.FinalPrice.Decimal.Round(2))
		case domain.TxnLend:
			due := t.StartDate.AddDays(it.LendingDays)
			if req.DueDate != nil {
				due = *req.DueDate
			}
			if due.Before(t.StartDate) || due.After(t.StartDate.AddDays(rules.MaxLendingDays)) {
				return domain.Invalid("due_date")
			}
			t.DueDate = &due
		}

		pending, err := txns.CountPendingByBorrower(ctx, p.ID)
		if err != nil {
			return err
		}
		if pending >= rules.MaxPendingRequests {
			return domain.ErrTooManyPending
		}

		if err := requestTransaction(ctx, items, it, req.Type); err != nil {
			return err
		}
		if err := txns.Create(ctx, &t); err != nil {
			return err
		}
		out, err = txns.Get(ctx, t.ID)
		return err
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.emit(ctx, events.TransactionCreated, out, p.ID, map[string]any{"type": out.Type})
	return out, nil
}

// Confirm accepts a pending request. Owner or admin only.
func (s *TransactionService) Confirm(ctx context.Context, p domain.Principal, id string) (domain.Transaction, error) {
	out, err := s.advance(ctx, p, id, "confirm transaction", ownerOrAdmin, func(ctx context.Context, tx *sqlx.Tx, t domain.Transaction) error {
		if t.Status != domain.TxnPending {
			return domain.ErrInvalidState
		}
		if err := transition(ctx, tx, t.ID, domain.TxnPending, domain.TxnActive); err != nil {
			return err
		}
		if t.Type == domain.TxnLend {
			return moveItem(ctx, repos.NewItemRepo(tx), t.ItemID, domain.ItemReserved, domain.ItemBorrowed)
		}
		// sales keep the item reserved until completion
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	s.emit(ctx, events.TransactionConfirmed, out, p.ID, nil)
	return out, nil
}

// Cancel withdraws a pending request and frees the item.
func (s *TransactionService) Cancel(ctx context.Context, p domain.Principal, id string) (domain.Transaction, error) {
	out, err := s.advance(ctx, p, id, "cancel transaction", participantOrAdmin, func(ctx context.Context, tx *sqlx.Tx, t domain.Transaction) error {
		if t.Status != domain.TxnPending {
			return domain.ErrInvalidState
		}
		if err := transition(ctx, tx, t.ID, domain.TxnPending, domain.TxnCancelled); err != nil {
			return err
		}
		return releaseItem(ctx, repos.NewItemRepo(tx), t.ItemID, domain.ItemReserved)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	s.emit(ctx, events.TransactionCancelled, out, p.ID, nil)
	return out, nil
}

// Complete closes an active transaction. A sale marks the item sold. A lend
// needs the return date: on or before the due date it completes and frees the
// item, after it the transaction goes late and a penalty is assessed.
func (s *TransactionService) Complete(ctx context.Context, p domain.Principal, id string, returnDate *domain.Date) (domain.Transaction, *domain.Penalty, error) {
	var penalty *domain.Penalty
	rate := s.Rules.PenaltyRatePerDay

	out, err := s.advance(ctx, p, id, "complete transaction", ownerOrAdmin, func(ctx context.Context, tx *sqlx.Tx, t domain.Transaction) error {
		if t.Status != domain.TxnActive {
			return domain.ErrInvalidState
		}
		txns := repos.NewTransactionRepo(tx)
		items := repos.NewItemRepo(tx)

		if t.Type == domain.TxnSell {
			if err := closeTxn(ctx, txns, t.ID, nil, domain.TxnCompleted); err != nil {
				return err
			}
			return moveItem(ctx, items, t.ItemID, domain.ItemReserved, domain.ItemSold)
		}

		if returnDate == nil {
			return domain.Missing("return_date")
		}
		if returnDate.Before(t.StartDate) {
			return domain.Invalid("return_date")
		}
		rd := *returnDate
		if t.DueDate != nil && rd.After(*t.DueDate) {
			if err := closeTxn(ctx, txns, t.ID, &rd, domain.TxnLate); err != nil {
				return err
			}
			t.Status, t.ReturnDate = domain.TxnLate, &rd
			pen, err := ComputePenalty(t, rate)
			if err != nil {
				return err
			}
			if err := repos.NewPenaltyRepo(tx).Create(ctx, &pen); err != nil {
				return err
			}
			penalty = &pen
			// the item stays borrowed until the late transaction is resolved
			return nil
		}
		if err := closeTxn(ctx, txns, t.ID, &rd, domain.TxnCompleted); err != nil {
			return err
		}
		return releaseItem(ctx, items, t.ItemID, domain.ItemBorrowed)
	})
	if err != nil {
		return domain.Transaction{}, nil, err
	}

	if out.Status == domain.TxnLate && penalty != nil {
		s.emit(ctx, events.TransactionLate, out, p.ID, map[string]any{
			"penalty_id": penalty.ID, "days_late": penalty.DaysLate, "amount": penalty.Amount.StringFixed(2),
		})
	} else {
		s.emit(ctx, events.TransactionCompleted, out, p.ID, nil)
	}
	return out, penalty, nil
}

// ResolveLate completes a late transaction once its penalty is paid or waived.
func (s *TransactionService) ResolveLate(ctx context.Context, p domain.Principal, id string) (domain.Transaction, error) {
	out, err := s.advance(ctx, p, id, "resolve late transaction", ownerOrAdmin, func(ctx context.Context, tx *sqlx.Tx, t domain.Transaction) error {
		if t.Status != domain.TxnLate {
			return domain.ErrInvalidState
		}
		pen, err := repos.NewPenaltyRepo(tx).ByTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		if !pen.Status.Resolved() {
			return domain.ErrInvalidState
		}
		if err := transition(ctx, tx, t.ID, domain.TxnLate, domain.TxnCompleted); err != nil {
			return err
		}
		return releaseItem(ctx, repos.NewItemRepo(tx), t.ItemID, domain.ItemBorrowed)
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	s.emit(ctx, events.TransactionResolved, out, p.ID, nil)
	return out, nil
}

// Get returns a transaction visible to the caller. Outsiders get ErrNotFound.
func (s *TransactionService) Get(ctx context.Context, p domain.Principal, id string) (domain.Transaction, error) {
	t, err := repos.NewTransactionRepo(s.DB).Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if !t.IsParticipant(p.ID) && !p.Admin {
		return domain.Transaction{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *TransactionService) ListForUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return repos.NewTransactionRepo(s.DB).ListForUser(ctx, userID)
}

func (s *TransactionService) ListByItem(ctx context.Context, itemID string) ([]domain.Transaction, error) {
	return repos.NewTransactionRepo(s.DB).ListByItem(ctx, itemID)
}

func (s *TransactionService) ListLatest(ctx context.Context, status string, limit int) ([]domain.Transaction, error) {
	return repos.NewTransactionRepo(s.DB).ListLatest(ctx, status, limit)
}

type authorizer func(p domain.Principal, t domain.Transaction) bool

func ownerOrAdmin(p domain.Principal, t domain.Transaction) bool {
	return p.Admin || (p.ID != "" && p.ID == t.OwnerID)
}

func participantOrAdmin(p domain.Principal, t domain.Transaction) bool {
	return p.Admin || t.IsParticipant(p.ID)
}

// advance loads the transaction inside a storage transaction, checks the
// caller, applies step and returns the reloaded row.
func (s *TransactionService) advance(ctx context.Context, p domain.Principal, id, op string, allowed authorizer,
	step func(ctx context.Context, tx *sqlx.Tx, t domain.Transaction) error) (domain.Transaction, error) {
	var out domain.Transaction
	err := repos.InTx(ctx, s.DB, op, func(tx *sqlx.Tx) error {
		txns := repos.NewTransactionRepo(tx)
		t, err := txns.Get(ctx, id)
		if err != nil {
			return err
		}
		if !allowed(p, t) {
			if !t.IsParticipant(p.ID) {
				return domain.ErrNotFound
			}
			return domain.ErrForbidden
		}
		if err := step(ctx, tx, t); err != nil {
			return err
		}
		out, err = txns.Get(ctx, id)
		return err
	})
	return out, err
}

func transition(ctx context.Context, tx *sqlx.Tx, id string, from, to domain.TxnStatus) error {
	ok, err := repos.NewTransactionRepo(tx).Transition(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidState
	}
	return nil
}

func closeTxn(ctx context.Context, txns *repos.TransactionRepo, id string, returned *domain.Date, to domain.TxnStatus) error {
	ok, err := txns.Close(ctx, id, returned, to)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidState
	}
	return nil
}

func (s *TransactionService) emit(ctx context.Context, kind events.Kind, t domain.Transaction, actor string, data map[string]any) {
	events.Emit(ctx, s.Events, events.Event{
		Kind:          kind,
		TransactionID: t.ID,
		ItemID:        t.ItemID,
		ActorID:       actor,
		Recipients:    recipients(t, actor),
		Data:          data,
	})
}

// recipients are the participants other than the actor.
func recipients(t domain.Transaction, actor string) []string {
	var out []string
	for _, id := range []string{t.BorrowerID, t.OwnerID} {
		if id != "" && id != actor {
			out = append(out, id)
		}
	}
	return out
}
