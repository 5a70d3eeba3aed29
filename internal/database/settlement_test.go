package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"library-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupLedgerTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)

	service := &Service{db: db}
	if err := service.InitSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	fixtures := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO users (id, fullname, email, role) VALUES (?, ?, ?, ?)",
			[]any{"author1", "Ava Author", "ava@example.com", "author"}},
		{"INSERT INTO users (id, fullname, email, role) VALUES (?, ?, ?, ?)",
			[]any{"reader1", "Rita Reader", "rita@example.com", "reader"}},
		{"INSERT INTO books (id, name, price, available_copies, author_id) VALUES (?, ?, ?, ?, ?)",
			[]any{"book1", "Monsoon Letters", "500", 3, "author1"}},
	}
	for _, f := range fixtures {
		if _, err := db.Exec(f.query, f.args...); err != nil {
			t.Fatalf("Failed to insert fixture: %v", err)
		}
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func settle(t *testing.T, service *Service, orderId, paymentId string) {
	t.Helper()
	_, err := service.SettlePayment(context.Background(), store.SettleParams{
		UserId:    "reader1",
		BookId:    "book1",
		OrderId:   orderId,
		PaymentId: paymentId,
		Currency:  "INR",
	})
	if err != nil {
		t.Fatalf("SettlePayment failed: %v", err)
	}
}

func authorEarnings(t *testing.T, service *Service, authorId string) decimal.Decimal {
	t.Helper()
	earnings, err := service.GetAuthorEarnings(context.Background(), authorId)
	if err != nil {
		t.Fatalf("GetAuthorEarnings failed: %v", err)
	}
	return earnings
}

func availableCopies(t *testing.T, service *Service, bookId string) int64 {
	t.Helper()
	book, err := service.GetBookById(context.Background(), bookId)
	if err != nil {
		t.Fatalf("GetBookById failed: %v", err)
	}
	return book.AvailableCopies
}

func paymentRowCount(t *testing.T, service *Service) int {
	t.Helper()
	var count int
	if err := service.db.QueryRow("SELECT COUNT(*) FROM payments").Scan(&count); err != nil {
		t.Fatalf("Failed to count payments: %v", err)
	}
	return count
}

func TestSettlePayment_CreditsDecrementsAndRecords(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	payment, err := service.SettlePayment(ctx, store.SettleParams{
		UserId:    "reader1",
		BookId:    "book1",
		OrderId:   "order_1",
		PaymentId: "pay_1",
		Currency:  "INR",
	})
	if err != nil {
		t.Fatalf("SettlePayment failed: %v", err)
	}

	if payment.Status != "paid" {
		t.Errorf("Expected status paid, got %s", payment.Status)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected amount 500, got %s", payment.Amount.String())
	}
	if payment.AuthorId != "author1" {
		t.Errorf("Expected author_id author1, got %s", payment.AuthorId)
	}
	if payment.SettledAt.IsZero() {
		t.Error("Expected a settlement timestamp on the returned row")
	}

	earnings := authorEarnings(t, service, "author1")
	if !earnings.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected earnings 500, got %s", earnings.String())
	}
	if copies := availableCopies(t, service, "book1"); copies != 2 {
		t.Errorf("Expected 2 copies, got %d", copies)
	}
	if count := paymentRowCount(t, service); count != 1 {
		t.Errorf("Expected 1 payment row, got %d", count)
	}
}

func TestSettlePayment_DuplicateIsNoOp(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	settle(t, service, "order_1", "pay_1")

	_, err := service.SettlePayment(ctx, store.SettleParams{
		UserId:    "reader1",
		BookId:    "book1",
		OrderId:   "order_1",
		PaymentId: "pay_1",
		Currency:  "INR",
	})
	if !errors.Is(err, store.ErrDuplicateSettlement) {
		t.Fatalf("Expected ErrDuplicateSettlement, got %v", err)
	}

	// One row, one credit, one decrement.
	if count := paymentRowCount(t, service); count != 1 {
		t.Errorf("Expected 1 payment row after replay, got %d", count)
	}
	earnings := authorEarnings(t, service, "author1")
	if !earnings.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected earnings 500 after replay, got %s", earnings.String())
	}
	if copies := availableCopies(t, service, "book1"); copies != 2 {
		t.Errorf("Expected 2 copies after replay, got %d", copies)
	}
}

func TestSettlePayment_CopiesFloorAtZero(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	if _, err := service.db.Exec("UPDATE books SET available_copies = 1 WHERE id = 'book1'"); err != nil {
		t.Fatalf("Failed to set copies: %v", err)
	}

	settle(t, service, "order_1", "pay_1")
	if copies := availableCopies(t, service, "book1"); copies != 0 {
		t.Fatalf("Expected 0 copies, got %d", copies)
	}

	// An exhausted title still sells; copies stay at zero.
	settle(t, service, "order_2", "pay_2")
	if copies := availableCopies(t, service, "book1"); copies != 0 {
		t.Errorf("Expected copies to stay at 0, got %d", copies)
	}
	earnings := authorEarnings(t, service, "author1")
	if !earnings.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected earnings 1000, got %s", earnings.String())
	}
}

func TestSettlePayment_EarningsExactAfterRepeatedSales(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	if _, err := service.db.Exec("UPDATE books SET price = '499.99' WHERE id = 'book1'"); err != nil {
		t.Fatalf("Failed to set price: %v", err)
	}

	settle(t, service, "order_1", "pay_1")
	settle(t, service, "order_2", "pay_2")
	settle(t, service, "order_3", "pay_3")

	expected := decimal.RequireFromString("1499.97")
	earnings := authorEarnings(t, service, "author1")
	if !earnings.Equal(expected) {
		t.Errorf("Expected earnings %s, got %s", expected.String(), earnings.String())
	}
}

func TestSettlePayment_MissingBookIsIntegrityError(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, err := service.SettlePayment(ctx, store.SettleParams{
		UserId:    "reader1",
		BookId:    "ghost",
		OrderId:   "order_1",
		PaymentId: "pay_1",
		Currency:  "INR",
	})
	if !errors.Is(err, store.ErrDataIntegrity) {
		t.Fatalf("Expected ErrDataIntegrity, got %v", err)
	}

	// Nothing mutated.
	if count := paymentRowCount(t, service); count != 0 {
		t.Errorf("Expected 0 payment rows, got %d", count)
	}
	earnings := authorEarnings(t, service, "author1")
	if !earnings.Equal(decimal.Zero) {
		t.Errorf("Expected earnings 0, got %s", earnings.String())
	}
}

func TestSettlePayment_FlipsPendingRow(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	pending, err := service.RecordPendingOrder(ctx, store.PendingOrderParams{
		UserId:   "reader1",
		AuthorId: "author1",
		BookId:   "book1",
		Amount:   decimal.NewFromInt(500),
		Currency: "INR",
		OrderId:  "order_1",
	})
	if err != nil {
		t.Fatalf("RecordPendingOrder failed: %v", err)
	}

	payment, err := service.SettlePayment(ctx, store.SettleParams{
		UserId:    "reader1",
		BookId:    "book1",
		OrderId:   "order_1",
		PaymentId: "pay_1",
		Currency:  "INR",
	})
	if err != nil {
		t.Fatalf("SettlePayment failed: %v", err)
	}

	// The pending row itself transitioned; no second row appeared.
	if payment.Id != pending.Id {
		t.Errorf("Expected settlement to reuse pending row %s, got %s", pending.Id, payment.Id)
	}
	if payment.Status != "paid" {
		t.Errorf("Expected status paid, got %s", payment.Status)
	}
	if count := paymentRowCount(t, service); count != 1 {
		t.Errorf("Expected 1 payment row, got %d", count)
	}
}

func TestSettlePayment_PendingReferenceMismatch(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	fixtures := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO users (id, fullname, email, role) VALUES (?, ?, ?, ?)",
			[]any{"author2", "Ben Author", "ben@example.com", "author"}},
		{"INSERT INTO books (id, name, price, available_copies, author_id) VALUES (?, ?, ?, ?, ?)",
			[]any{"book2", "Notes on Distributed Ledgers", "900", 2, "author2"}},
	}
	for _, f := range fixtures {
		if _, err := service.db.Exec(f.query, f.args...); err != nil {
			t.Fatalf("Failed to insert fixture: %v", err)
		}
	}

	if _, err := service.RecordPendingOrder(ctx, store.PendingOrderParams{
		UserId:   "reader1",
		AuthorId: "author1",
		BookId:   "book1",
		Amount:   decimal.NewFromInt(500),
		Currency: "INR",
		OrderId:  "order_1",
	}); err != nil {
		t.Fatalf("RecordPendingOrder failed: %v", err)
	}

	// The proof cites book2, but order_1 was opened for book1.
	_, err := service.SettlePayment(ctx, store.SettleParams{
		UserId:    "reader1",
		BookId:    "book2",
		OrderId:   "order_1",
		PaymentId: "pay_1",
		Currency:  "INR",
	})
	if !errors.Is(err, store.ErrDataIntegrity) {
		t.Fatalf("Expected ErrDataIntegrity, got %v", err)
	}

	// Neither author was credited and the pending row is untouched.
	for _, authorId := range []string{"author1", "author2"} {
		earnings := authorEarnings(t, service, authorId)
		if !earnings.Equal(decimal.Zero) {
			t.Errorf("Expected %s earnings untouched, got %s", authorId, earnings.String())
		}
	}
	if copies := availableCopies(t, service, "book2"); copies != 2 {
		t.Errorf("Expected book2 copies untouched, got %d", copies)
	}
	var status string
	if err := service.db.QueryRow("SELECT status FROM payments WHERE order_id = 'order_1'").Scan(&status); err != nil {
		t.Fatalf("Failed to read pending row: %v", err)
	}
	if status != "pending" {
		t.Errorf("Expected pending row untouched, got %s", status)
	}

	// The matching references still settle normally afterwards.
	settle(t, service, "order_1", "pay_1")
	earnings := authorEarnings(t, service, "author1")
	if !earnings.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected author1 credited 500, got %s", earnings.String())
	}
}

func TestExpirePendingOrders(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	_, err := service.db.Exec(
		"INSERT INTO payments (id, user_id, author_id, book_id, amount, currency, order_id, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)",
		"row_old", "reader1", "author1", "book1", "500", "INR", "order_old", old)
	if err != nil {
		t.Fatalf("Failed to insert stale pending row: %v", err)
	}
	if _, err := service.RecordPendingOrder(ctx, store.PendingOrderParams{
		UserId:   "reader1",
		AuthorId: "author1",
		BookId:   "book1",
		Amount:   decimal.NewFromInt(500),
		Currency: "INR",
		OrderId:  "order_fresh",
	}); err != nil {
		t.Fatalf("RecordPendingOrder failed: %v", err)
	}

	expired, err := service.ExpirePendingOrders(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ExpirePendingOrders failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("Expected 1 expired row, got %d", expired)
	}

	var status string
	if err := service.db.QueryRow("SELECT status FROM payments WHERE id = 'row_old'").Scan(&status); err != nil {
		t.Fatalf("Failed to read stale row: %v", err)
	}
	if status != "failed" {
		t.Errorf("Expected stale row failed, got %s", status)
	}
	if err := service.db.QueryRow("SELECT status FROM payments WHERE order_id = 'order_fresh'").Scan(&status); err != nil {
		t.Fatalf("Failed to read fresh row: %v", err)
	}
	if status != "pending" {
		t.Errorf("Expected fresh row pending, got %s", status)
	}
}

func TestReconcileAuthorEarnings(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	settle(t, service, "order_1", "pay_1")
	settle(t, service, "order_2", "pay_2")

	if err := service.ReconcileAuthorEarnings(ctx, "author1"); err != nil {
		t.Fatalf("Expected clean reconciliation, got %v", err)
	}

	// Tamper with the accumulator; reconciliation must notice.
	if _, err := service.db.Exec("UPDATE users SET earnings = '999' WHERE id = 'author1'"); err != nil {
		t.Fatalf("Failed to tamper with earnings: %v", err)
	}
	if err := service.ReconcileAuthorEarnings(ctx, "author1"); err == nil {
		t.Error("Expected reconciliation mismatch error, got nil")
	}
}

func TestGetAuthorSales(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	settle(t, service, "order_1", "pay_1")

	sales, err := service.GetAuthorSales(ctx, "author1")
	if err != nil {
		t.Fatalf("GetAuthorSales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("Expected 1 sale, got %d", len(sales))
	}
	sale := sales[0]
	if sale.Book == nil || sale.Book.Name != "Monsoon Letters" {
		t.Errorf("Expected book join, got %+v", sale.Book)
	}
	if sale.Buyer == nil || sale.Buyer.Email != "rita@example.com" {
		t.Errorf("Expected buyer join, got %+v", sale.Buyer)
	}
	if !sale.Payment.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected amount 500, got %s", sale.Payment.Amount.String())
	}
	if sale.Payment.SettledAt.IsZero() {
		t.Error("Expected a settlement timestamp on the sale row")
	}
}

func TestGetUserPurchases(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	settle(t, service, "order_1", "pay_1")

	purchases, err := service.GetUserPurchases(ctx, "reader1")
	if err != nil {
		t.Fatalf("GetUserPurchases failed: %v", err)
	}
	if len(purchases) != 1 {
		t.Fatalf("Expected 1 purchase, got %d", len(purchases))
	}
	if purchases[0].Payment.OrderId != "order_1" {
		t.Errorf("Expected order_1, got %s", purchases[0].Payment.OrderId)
	}
}
