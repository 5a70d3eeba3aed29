package store

import (
	"context"
	"errors"
	"time"

	"library-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicateSettlement    = errors.New("settlement already recorded")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDataIntegrity          = errors.New("ledger reference missing")
	ErrAlreadyBorrowed        = errors.New("user already has an active borrow for this book")
	ErrNotBorrowed            = errors.New("no active borrow for this book")
)

// PendingOrderParams records a gateway order before the client has paid.
// Verification later transitions the row to paid; the reconciler expires
// rows that never verify.
type PendingOrderParams struct {
	UserId   string
	AuthorId string
	BookId   string
	Amount   decimal.Decimal
	Currency string
	OrderId  string
}

// SettleParams carries a verified payment into settlement. The caller has
// already established trust via signature verification; settlement performs
// the idempotency check and the three ledger mutations atomically.
type SettleParams struct {
	UserId    string
	BookId    string
	OrderId   string
	PaymentId string
	Currency  string
}

// LedgerStore defines the contract the settlement and borrow flows require
// from a backend.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, userId, fullname, email, role string) (*models.User, error)
	GetAuthorEarnings(ctx context.Context, authorId string) (decimal.Decimal, error)

	// --- Books ---
	CreateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	GetBookById(ctx context.Context, bookId string) (*models.Book, error)
	GetBooksByAuthor(ctx context.Context, authorId string) ([]models.Book, error)

	// --- Payment ledger ---
	RecordPendingOrder(ctx context.Context, params PendingOrderParams) (*models.Payment, error)
	SettlePayment(ctx context.Context, params SettleParams) (*models.Payment, error)
	GetAuthorSales(ctx context.Context, authorId string) ([]models.Sale, error)
	GetUserPurchases(ctx context.Context, userId string) ([]models.Sale, error)
	ExpirePendingOrders(ctx context.Context, cutoff time.Time) (int64, error)
	ReconcileAuthorEarnings(ctx context.Context, authorId string) error

	// --- Borrow ledger ---
	BorrowBook(ctx context.Context, userId, bookId string) (*models.BorrowRecord, error)
	ReturnBook(ctx context.Context, userId, bookId string) (*models.BorrowRecord, error)
	GetBorrowedByUser(ctx context.Context, userId string) ([]models.BorrowedBook, error)
	GetReturnedByUser(ctx context.Context, userId string) ([]models.BorrowedBook, error)
	CountActiveBorrowsForAuthor(ctx context.Context, authorId string) (int64, error)

	// --- Lifecycle ---
	Close()
}
