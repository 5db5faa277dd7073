package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CreatedAt string `db:"created_at" json:"-"`
	UpdatedAt string `db:"updated_at" json:"-"`
}

type Mode string

const (
	ModeLend Mode = "lend"
	ModeSell Mode = "sell"
	ModeBoth Mode = "both"
)

func (m Mode) Valid() bool { return m == ModeLend || m == ModeSell || m == ModeBoth }

// Permits reports whether a transaction of type t may be opened against an item in mode m.
func (m Mode) Permits(t TxnType) bool {
	switch t {
	case TxnLend:
		return m == ModeLend || m == ModeBoth
	case TxnSell:
		return m == ModeSell || m == ModeBoth
	}
	return false
}

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemReserved  ItemStatus = "reserved"
	ItemBorrowed  ItemStatus = "borrowed"
	ItemSold      ItemStatus = "sold"
)

type Item struct {
	ID             string              `db:"id" json:"id"`
	OwnerID        string              `db:"owner_id" json:"owner_id"`
	OwnerName      string              `db:"owner_name" json:"owner_name,omitempty"`
	CategoryID     string              `db:"category_id" json:"category_id,omitempty"`
	Title          string              `db:"title" json:"title"`
	Description    string              `db:"description" json:"description"`
	Mode           Mode                `db:"availability_mode" json:"availability_mode"`
	Price          decimal.NullDecimal `db:"price" json:"price"`
	LendingDays    int                 `db:"lending_duration_days" json:"lending_duration_days"`
	Status         ItemStatus          `db:"status" json:"status"`
	PickupLocation string              `db:"pickup_location" json:"pickup_location"`
	CreatedAt      string              `db:"created_at" json:"created_at"`
	UpdatedAt      string              `db:"updated_at" json:"updated_at,omitempty"`
}

type TxnType string

const (
	TxnLend TxnType = "lend"
	TxnSell TxnType = "sell"
)

func (t TxnType) Valid() bool { return t == TxnLend || t == TxnSell }

type TxnStatus string

const (
	TxnPending   TxnStatus = "pending"
	TxnActive    TxnStatus = "active"
	TxnCompleted TxnStatus = "completed"
	TxnLate      TxnStatus = "late"
	TxnCancelled TxnStatus = "cancelled"
)

// Open reports whether the status still holds the item.
func (s TxnStatus) Open() bool { return s == TxnPending || s == TxnActive || s == TxnLate }

type Transaction struct {
	ID         string              `db:"id" json:"id"`
	ItemID     string              `db:"item_id" json:"item_id"`
	ItemTitle  string              `db:"item_title" json:"item_title,omitempty"`
	OwnerID    string              `db:"owner_id" json:"owner_id"`
	BorrowerID string              `db:"borrower_id" json:"borrower_id"`
	Type       TxnType             `db:"type" json:"type"`
	StartDate  Date                `db:"start_date" json:"start_date"`
	DueDate    *Date               `db:"due_date" json:"due_date,omitempty"`
	ReturnDate *Date               `db:"return_date" json:"return_date,omitempty"`
	Deposit    decimal.NullDecimal `db:"deposit_amount" json:"deposit_amount"`
	FinalPrice decimal.NullDecimal `db:"final_price" json:"final_price"`
	Status     TxnStatus           `db:"status" json:"status"`
	CreatedAt  string              `db:"created_at" json:"created_at"`
	UpdatedAt  string              `db:"updated_at" json:"updated_at,omitempty"`
}

// IsParticipant reports whether userID is the borrower or the item owner.
func (t Transaction) IsParticipant(userID string) bool {
	return userID != "" && (userID == t.BorrowerID || userID == t.OwnerID)
}

// Counterpart returns the other participant.
func (t Transaction) Counterpart(userID string) string {
	if userID == t.BorrowerID {
		return t.OwnerID
	}
	return t.BorrowerID
}

type PenaltyStatus string

const (
	PenaltyPending PenaltyStatus = "pending"
	PenaltyPaid    PenaltyStatus = "paid"
	PenaltyWaived  PenaltyStatus = "waived"
)

func (s PenaltyStatus) Resolved() bool { return s == PenaltyPaid || s == PenaltyWaived }

type Penalty struct {
	ID            string          `db:"id" json:"id"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	DaysLate      int             `db:"days_late" json:"days_late"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        PenaltyStatus   `db:"status" json:"status"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
	ResolvedAt    string          `db:"resolved_at" json:"resolved_at,omitempty"`
}

type Rating struct {
	ID            string `db:"id" json:"id"`
	TransactionID string `db:"transaction_id" json:"transaction_id"`
	RaterID       string `db:"rater_id" json:"rater_id"`
	RaterName     string `db:"rater_name" json:"rater_name,omitempty"`
	RateeID       string `db:"ratee_id" json:"ratee_id"`
	Score         int    `db:"rating" json:"rating"`
	Comment       string `db:"comment" json:"comment,omitempty"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}

type RatingSummary struct {
	Count   int     `db:"n" json:"count"`
	Average float64 `db:"avg" json:"average"`
}

type Availability struct {
	Status ItemStatus `json:"status"`
	Modes  []TxnType  `json:"modes,omitempty"`
}
