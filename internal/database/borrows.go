/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BorrowBook records an active borrow. At most one active record may exist
// per (user, book) pair; a second attempt returns ErrAlreadyBorrowed.
func (s *Service) BorrowBook(ctx context.Context, userId, bookId string) (*models.BorrowRecord, error) {
	if userId == "" || bookId == "" {
		return nil, fmt.Errorf("user_id and book_id are required")
	}

	// The book must exist to be borrowed.
	if _, err := s.GetBookById(ctx, bookId); err != nil {
		return nil, err
	}

	var existingId string
	err := s.db.QueryRowContext(ctx, queryCheckActiveBorrow, userId, bookId).Scan(&existingId)
	if err == nil {
		return nil, fmt.Errorf("%w: user %s, book %s", store.ErrAlreadyBorrowed, userId, bookId)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check active borrow: %w", err)
	}

	record := &models.BorrowRecord{
		Id:         uuid.New().String(),
		UserId:     userId,
		BookId:     bookId,
		Returned:   false,
		BorrowedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx, queryInsertBorrow, record.Id, userId, bookId)
	if err != nil {
		zap.L().Error("Failed to insert borrow record",
			zap.String("user_id", userId),
			zap.String("book_id", bookId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to insert borrow record: %w", err)
	}

	zap.L().Info("Book borrowed",
		zap.String("borrow_id", record.Id),
		zap.String("user_id", userId),
		zap.String("book_id", bookId))
	return record, nil
}

// ReturnBook flips the active borrow record for (user, book) to returned
// and returns the closed record.
func (s *Service) ReturnBook(ctx context.Context, userId, bookId string) (*models.BorrowRecord, error) {
	if userId == "" || bookId == "" {
		return nil, fmt.Errorf("user_id and book_id are required")
	}

	var recordId string
	var borrowedAt time.Time
	err := s.db.QueryRowContext(ctx, queryGetActiveBorrow, userId, bookId).Scan(&recordId, &borrowedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s, book %s", store.ErrNotBorrowed, userId, bookId)
		}
		return nil, fmt.Errorf("failed to load active borrow: %w", err)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, queryReturnBorrow, now, userId, bookId)
	if err != nil {
		return nil, fmt.Errorf("unable to return borrow record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("%w: user %s, book %s", store.ErrNotBorrowed, userId, bookId)
	}

	zap.L().Info("Book returned",
		zap.String("borrow_id", recordId),
		zap.String("user_id", userId),
		zap.String("book_id", bookId))

	return &models.BorrowRecord{
		Id:         recordId,
		UserId:     userId,
		BookId:     bookId,
		Returned:   true,
		BorrowedAt: borrowedAt,
		ReturnedAt: &now,
	}, nil
}

func (s *Service) getBorrowsByUser(ctx context.Context, userId string, returned bool) ([]models.BorrowedBook, error) {
	rows, err := s.db.QueryContext(ctx, queryGetBorrowsByUser, userId, returned)
	if err != nil {
		return nil, fmt.Errorf("unable to query borrow records: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var borrows []models.BorrowedBook
	for rows.Next() {
		var b models.BorrowedBook
		var returnedAt sql.NullTime
		var bookId, bookName, bookGenre, bookPrice, bookThumb sql.NullString
		var authorId, authorName, authorEmail sql.NullString

		err := rows.Scan(&b.Record.Id, &b.Record.UserId, &b.Record.BookId,
			&b.Record.Returned, &b.Record.BorrowedAt, &returnedAt,
			&bookId, &bookName, &bookGenre, &bookPrice, &bookThumb,
			&authorId, &authorName, &authorEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan borrow row: %w", err)
		}

		if returnedAt.Valid {
			t := returnedAt.Time
			b.Record.ReturnedAt = &t
		}

		// Deleted books surface as orphaned entries with nil Book/Author
		// rather than failing the query.
		if bookId.Valid {
			price, err := decimal.NewFromString(bookPrice.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse book price '%s': %w", bookPrice.String, err)
			}
			b.Book = &models.BookSummary{
				Id:           bookId.String,
				Name:         bookName.String,
				Genre:        bookGenre.String,
				Price:        price,
				ThumbnailURL: bookThumb.String,
			}
		}
		if authorId.Valid {
			b.Author = &models.UserSummary{
				Id:       authorId.String,
				Fullname: authorName.String,
				Email:    authorEmail.String,
			}
		}

		borrows = append(borrows, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrow rows: %w", err)
	}
	return borrows, nil
}

// GetBorrowedByUser returns a user's active loans (returned = false).
func (s *Service) GetBorrowedByUser(ctx context.Context, userId string) ([]models.BorrowedBook, error) {
	return s.getBorrowsByUser(ctx, userId, false)
}

// GetReturnedByUser returns a user's borrow history (returned = true).
func (s *Service) GetReturnedByUser(ctx context.Context, userId string) ([]models.BorrowedBook, error) {
	return s.getBorrowsByUser(ctx, userId, true)
}

// CountActiveBorrowsForAuthor counts active loans across all of an author's
// books, for the author dashboard.
func (s *Service) CountActiveBorrowsForAuthor(ctx context.Context, authorId string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, queryCountActiveBorrowsForAuthor, authorId).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("unable to count active borrows: %w", err)
	}
	return count, nil
}
