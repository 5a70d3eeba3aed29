package database

import (
	"context"
	"errors"
	"testing"

	"library-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func TestBorrowAndReturn_PartitionActiveFromHistory(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	record, err := service.BorrowBook(ctx, "reader1", "book1")
	if err != nil {
		t.Fatalf("BorrowBook failed: %v", err)
	}
	if record.Returned {
		t.Error("Expected a fresh borrow to be active")
	}

	borrowed, err := service.GetBorrowedByUser(ctx, "reader1")
	if err != nil {
		t.Fatalf("GetBorrowedByUser failed: %v", err)
	}
	if len(borrowed) != 1 {
		t.Fatalf("Expected 1 active borrow, got %d", len(borrowed))
	}
	history, err := service.GetReturnedByUser(ctx, "reader1")
	if err != nil {
		t.Fatalf("GetReturnedByUser failed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("Expected empty history, got %d", len(history))
	}

	returned, err := service.ReturnBook(ctx, "reader1", "book1")
	if err != nil {
		t.Fatalf("ReturnBook failed: %v", err)
	}
	if !returned.Returned || returned.ReturnedAt == nil {
		t.Error("Expected return to close the record with a timestamp")
	}
	if returned.Id != record.Id {
		t.Errorf("Expected closed record to keep id %s, got %q", record.Id, returned.Id)
	}
	if returned.BorrowedAt.IsZero() {
		t.Error("Expected closed record to keep its borrow timestamp")
	}

	borrowed, err = service.GetBorrowedByUser(ctx, "reader1")
	if err != nil {
		t.Fatalf("GetBorrowedByUser failed: %v", err)
	}
	history, err = service.GetReturnedByUser(ctx, "reader1")
	if err != nil {
		t.Fatalf("GetReturnedByUser failed: %v", err)
	}
	if len(borrowed) != 0 || len(history) != 1 {
		t.Errorf("Expected 0 active / 1 history, got %d / %d", len(borrowed), len(history))
	}
}

func TestBorrowBook_SecondActiveBorrowRejected(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.BorrowBook(ctx, "reader1", "book1"); err != nil {
		t.Fatalf("BorrowBook failed: %v", err)
	}

	_, err := service.BorrowBook(ctx, "reader1", "book1")
	if !errors.Is(err, store.ErrAlreadyBorrowed) {
		t.Fatalf("Expected ErrAlreadyBorrowed, got %v", err)
	}

	// Returning frees the pair for a new borrow.
	if _, err := service.ReturnBook(ctx, "reader1", "book1"); err != nil {
		t.Fatalf("ReturnBook failed: %v", err)
	}
	if _, err := service.BorrowBook(ctx, "reader1", "book1"); err != nil {
		t.Fatalf("Expected re-borrow after return, got %v", err)
	}
}

func TestBorrowBook_UnknownBook(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	_, err := service.BorrowBook(context.Background(), "reader1", "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestReturnBook_WithoutActiveBorrow(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	_, err := service.ReturnBook(context.Background(), "reader1", "book1")
	if !errors.Is(err, store.ErrNotBorrowed) {
		t.Fatalf("Expected ErrNotBorrowed, got %v", err)
	}
}

func TestGetBorrowedByUser_OrphanedBook(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.BorrowBook(ctx, "reader1", "book1"); err != nil {
		t.Fatalf("BorrowBook failed: %v", err)
	}

	// Delete the book out from under the active borrow.
	if _, err := service.db.Exec("DELETE FROM books WHERE id = 'book1'"); err != nil {
		t.Fatalf("Failed to delete book: %v", err)
	}

	borrowed, err := service.GetBorrowedByUser(ctx, "reader1")
	if err != nil {
		t.Fatalf("GetBorrowedByUser failed: %v", err)
	}
	if len(borrowed) != 1 {
		t.Fatalf("Expected the orphaned record to be reported, got %d records", len(borrowed))
	}
	if !borrowed[0].Orphaned() {
		t.Error("Expected entry to be orphaned")
	}
	if borrowed[0].Record.BookId != "book1" {
		t.Errorf("Expected record to keep book_id book1, got %s", borrowed[0].Record.BookId)
	}
}

func TestCountActiveBorrowsForAuthor(t *testing.T) {
	service, cleanup := setupLedgerTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.db.Exec(
		"INSERT INTO books (id, name, price, available_copies, author_id) VALUES (?, ?, ?, ?, ?)",
		"book2", "The Cartographer's Daughter", "650", 2, "author1"); err != nil {
		t.Fatalf("Failed to insert second book: %v", err)
	}
	if _, err := service.db.Exec(
		"INSERT INTO users (id, fullname, email, role) VALUES (?, ?, ?, ?)",
		"reader2", "Tom Becker", "tom@example.com", "reader"); err != nil {
		t.Fatalf("Failed to insert second reader: %v", err)
	}

	if _, err := service.BorrowBook(ctx, "reader1", "book1"); err != nil {
		t.Fatalf("BorrowBook failed: %v", err)
	}
	if _, err := service.BorrowBook(ctx, "reader2", "book2"); err != nil {
		t.Fatalf("BorrowBook failed: %v", err)
	}

	count, err := service.CountActiveBorrowsForAuthor(ctx, "author1")
	if err != nil {
		t.Fatalf("CountActiveBorrowsForAuthor failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 active borrows, got %d", count)
	}

	if _, err := service.ReturnBook(ctx, "reader1", "book1"); err != nil {
		t.Fatalf("ReturnBook failed: %v", err)
	}
	count, err = service.CountActiveBorrowsForAuthor(ctx, "author1")
	if err != nil {
		t.Fatalf("CountActiveBorrowsForAuthor failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 active borrow after return, got %d", count)
	}
}
