package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a reader or an author. Earnings only apply to authors and
// are mutated exclusively by the settlement path.
type User struct {
	Id              string          `db:"id"`
	Fullname        string          `db:"fullname"`
	Email           string          `db:"email"`
	Role            string          `db:"role"` // "reader" or "author"
	Earnings        decimal.Decimal `db:"earnings"`
	EarningsVersion int64           `db:"earnings_version"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// User role values.
const (
	RoleReader = "reader"
	RoleAuthor = "author"
)

// Book represents a title in the catalog. Price is in major currency units
// and is snapshotted into the payment ledger at settlement time.
type Book struct {
	Id              string          `db:"id"`
	Name            string          `db:"name"`
	Description     string          `db:"description"`
	Genre           string          `db:"genre"`
	Price           decimal.Decimal `db:"price"`
	AvailableCopies int64           `db:"available_copies"`
	AuthorId        string          `db:"author_id"`
	ThumbnailURL    string          `db:"thumbnail_url"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Payment represents a row in the payment ledger. A row is created as
// "pending" when a gateway order is opened and transitions to "paid" exactly
// once, at settlement. Paid rows are never mutated afterwards.
type Payment struct {
	Id        string          `db:"id"`
	UserId    string          `db:"user_id"`
	AuthorId  string          `db:"author_id"`
	BookId    string          `db:"book_id"`
	Amount    decimal.Decimal `db:"amount"`
	Currency  string          `db:"currency"`
	PaymentId string          `db:"payment_id"` // gateway payment identifier
	OrderId   string          `db:"order_id"`   // gateway order identifier
	Status    string          `db:"status"`     // "pending", "paid", "failed"
	CreatedAt time.Time       `db:"created_at"`
	SettledAt time.Time       `db:"settled_at"`
}

// Payment status values.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// BorrowRecord ties a user to a book in the borrow ledger. Returned
// partitions a user's records into active loans and history.
type BorrowRecord struct {
	Id         string     `db:"id"`
	UserId     string     `db:"user_id"`
	BookId     string     `db:"book_id"`
	Returned   bool       `db:"returned"`
	BorrowedAt time.Time  `db:"borrowed_at"`
	ReturnedAt *time.Time `db:"returned_at"`
}

// BookSummary is the display projection of a book used in joins.
type BookSummary struct {
	Id           string          `json:"id"`
	Name         string          `json:"name"`
	Genre        string          `json:"genre,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
}

// UserSummary is the display projection of a user used in joins.
type UserSummary struct {
	Id       string `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// BorrowedBook is a borrow record enriched with book and author display data.
// Book and Author are nil when the referenced book was deleted after the
// borrow was recorded; such entries are reported, not dropped.
type BorrowedBook struct {
	Record BorrowRecord `json:"record"`
	Book   *BookSummary `json:"book,omitempty"`
	Author *UserSummary `json:"author,omitempty"`
}

// Orphaned reports whether the borrowed book no longer exists in the catalog.
func (b BorrowedBook) Orphaned() bool { return b.Book == nil }

// Sale is a paid ledger row enriched with book and buyer display data for
// the author sales dashboard.
type Sale struct {
	Payment Payment      `json:"payment"`
	Book    *BookSummary `json:"book,omitempty"`
	Buyer   *UserSummary `json:"buyer,omitempty"`
}
