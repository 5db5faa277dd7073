package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"campusswap/internal/config"
	"campusswap/internal/domain"
	"campusswap/internal/repos"
)

type CatalogService struct {
	DB    *sqlx.DB
	Rules config.Rules
}

func NewCatalogService(db *sqlx.DB, rules config.Rules) *CatalogService {
	return &CatalogService{DB: db, Rules: rules}
}

// ItemInput carries the owner-editable listing fields.
type ItemInput struct {
	CategoryID     string
	Title          string
	Description    string
	Mode           domain.Mode
	Price          decimal.NullDecimal
	LendingDays    int
	PickupLocation string
}

func (s *CatalogService) normalize(ctx context.Context, q sqlx.ExtContext, in ItemInput) (ItemInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.PickupLocation = strings.TrimSpace(in.PickupLocation)
	in.CategoryID = strings.TrimSpace(in.CategoryID)

	if in.Title == "" {
		return in, domain.Missing("title")
	}
	if utf8.RuneCountInString(in.Title) > 100 {
		return in, domain.Invalid("title")
	}
	if utf8.RuneCountInString(in.Description) > 2000 {
		return in, domain.Invalid("description")
	}
	if utf8.RuneCountInString(in.PickupLocation) > 120 {
		return in, domain.Invalid("pickup_location")
	}
	if !in.Mode.Valid() {
		return in, domain.Invalid("availability_mode")
	}

	if in.Mode == domain.ModeLend {
		in.Price = decimal.NullDecimal{}
	} else {
		if !in.Price.Valid {
			return in, domain.Missing("price")
		}
		if in.Price.Decimal.IsNegative() {
			return in, domain.Invalid("price")
		}
		in.Price.Decimal = in.Price.Decimal.Round(2)
	}

	if in.LendingDays == 0 {
		in.LendingDays = s.Rules.DefaultLendingDays
	}
	if in.LendingDays < 1 || in.LendingDays > s.Rules.MaxLendingDays {
		return in, domain.Invalid("lending_duration_days")
	}

	if in.CategoryID != "" {
		ok, err := repos.NewCategoryRepo(q).Exists(ctx, in.CategoryID)
		if err != nil {
			return in, err
		}
		if !ok {
			return in, domain.Invalid("category_id")
		}
	}
	return in, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return repos.NewCategoryRepo(s.DB).List(ctx)
}

// CreateItem lists a new item as available.
func (s *CatalogService) CreateItem(ctx context.Context, p domain.Principal, in ItemInput) (domain.Item, error) {
	if p.ID == "" {
		return domain.Item{}, domain.ErrForbidden
	}
	in, err := s.normalize(ctx, s.DB, in)
	if err != nil {
		return domain.Item{}, err
	}
	it := domain.Item{
		ID:             uuid.NewString(),
		OwnerID:        p.ID,
		CategoryID:     in.CategoryID,
		Title:          in.Title,
		Description:    in.Description,
		Mode:           in.Mode,
		Price:          in.Price,
		LendingDays:    in.LendingDays,
		Status:         domain.ItemAvailable,
		PickupLocation: in.PickupLocation,
	}
	items := repos.NewItemRepo(s.DB)
	if err := items.Create(ctx, &it); err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	return items.Get(ctx, it.ID)
}

// UpdateItem edits a listing. Only the owner may edit, and only while nothing is pending against it.
func (s *CatalogService) UpdateItem(ctx context.Context, p domain.Principal, id string, in ItemInput) (domain.Item, error) {
	var out domain.Item
	err := repos.InTx(ctx, s.DB, "update item", func(tx *sqlx.Tx) error {
		items := repos.NewItemRepo(tx)
		it, err := items.Get(ctx, id)
		if err != nil {
			return err
		}
		if it.OwnerID != p.ID {
			return domain.ErrForbidden
		}
		if it.Status != domain.ItemAvailable {
			return domain.ErrItemUnavailable
		}
		in, err := s.normalize(ctx, tx, in)
		if err != nil {
			return err
		}
		it.CategoryID, it.Title, it.Description = in.CategoryID, in.Title, in.Description
		it.Mode, it.Price, it.LendingDays, it.PickupLocation = in.Mode, in.Price, in.LendingDays, in.PickupLocation
		if err := items.Update(ctx, &it); err != nil {
			return err
		}
		out, err = items.Get(ctx, id)
		return err
	})
	return out, err
}

// DeleteItem removes a listing and, through cascades, its transaction history.
// Owners may not delete while a transaction is open; admins may.
func (s *CatalogService) DeleteItem(ctx context.Context, p domain.Principal, id string) error {
	return repos.InTx(ctx, s.DB, "delete item", func(tx *sqlx.Tx) error {
		items := repos.NewItemRepo(tx)
		it, err := items.Get(ctx, id)
		if err != nil {
			return err
		}
		if it.OwnerID != p.ID && !p.Admin {
			return domain.ErrForbidden
		}
		if !p.Admin {
			n, err := repos.NewTransactionRepo(tx).CountOpenForItem(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrInvalidState
			}
		}
		return items.Delete(ctx, id)
	})
}

func (s *CatalogService) GetItem(ctx context.Context, id string) (domain.Item, error) {
	return repos.NewItemRepo(s.DB).Get(ctx, id)
}

func (s *CatalogService) ListItems(ctx context.Context, page, pageSize int) ([]domain.Item, error) {
	limit, offset := paginate(page, pageSize)
	return repos.NewItemRepo(s.DB).ListAvailable(ctx, limit, offset)
}

func (s *CatalogService) Search(ctx context.Context, q, category, mode string, page, pageSize int) ([]domain.Item, error) {
	limit, offset := paginate(page, pageSize)
	return repos.NewItemRepo(s.DB).Search(ctx, q, category, mode, limit, offset)
}

func (s *CatalogService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Item, error) {
	return repos.NewItemRepo(s.DB).ListByOwner(ctx, ownerID)
}

// Availability reports the item status and which transaction types it would accept now.
func (s *CatalogService) Availability(ctx context.Context, id string) (domain.Availability, error) {
	it, err := s.GetItem(ctx, id)
	if err != nil {
		return domain.Availability{}, err
	}
	a := domain.Availability{Status: it.Status}
	if it.Status == domain.ItemAvailable {
		for _, t := range []domain.TxnType{domain.TxnLend, domain.TxnSell} {
			if it.Mode.Permits(t) {
				a.Modes = append(a.Modes, t)
			}
		}
	}
	return a, nil
}

// requestTransaction is the catalog guard for a new transaction: the type must
// fit the listing and the item must be available. On success the item is reserved.
func requestTransaction(ctx context.Context, items *repos.ItemRepo, it domain.Item, t domain.TxnType) error {
	if !it.Mode.Permits(t) {
		return domain.ErrIncompatibleType
	}
	if it.Status != domain.ItemAvailable {
		return domain.ErrItemUnavailable
	}
	ok, err := items.TransitionStatus(ctx, it.ID, domain.ItemAvailable, domain.ItemReserved)
	if err != nil {
		return err
	}
	if !ok {
		// lost a race with another request
		return domain.ErrItemUnavailable
	}
	return nil
}

// releaseItem returns an item to available. Sold items are terminal and never released.
func releaseItem(ctx context.Context, items *repos.ItemRepo, id string, from domain.ItemStatus) error {
	if from == domain.ItemSold {
		return domain.ErrInvalidState
	}
	return moveItem(ctx, items, id, from, domain.ItemAvailable)
}

func moveItem(ctx context.Context, items *repos.ItemRepo, id string, from, to domain.ItemStatus) error {
	ok, err := items.TransitionStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ConflictError{Op: "item " + id, Err: fmt.Errorf("expected status %s", from)}
	}
	return nil
}

func paginate(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	return pageSize, (page - 1) * pageSize
}
