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

package api

import (
	"context"
	"fmt"

	"library-ledger-go/internal/models"
)

// BorrowBook records an active loan of bookId by userId. A user may hold at
// most one active loan per book.
func (s *LedgerService) BorrowBook(ctx context.Context, userId, bookId string) (*models.BorrowRecord, error) {
	if userId == "" || bookId == "" {
		return nil, fmt.Errorf("%w: user_id and book_id", ErrValidation)
	}
	return s.db.BorrowBook(ctx, userId, bookId)
}

// ReturnBook closes the active loan of bookId held by userId and returns
// the closed record.
func (s *LedgerService) ReturnBook(ctx context.Context, userId, bookId string) (*models.BorrowRecord, error) {
	if userId == "" || bookId == "" {
		return nil, fmt.Errorf("%w: user_id and book_id", ErrValidation)
	}
	return s.db.ReturnBook(ctx, userId, bookId)
}

// ListBorrowed returns the user's active loans, including orphaned entries
// whose books were removed from the catalog after the loan was recorded.
func (s *LedgerService) ListBorrowed(ctx context.Context, userId string) (*models.BorrowReport, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id", ErrValidation)
	}
	books, err := s.db.GetBorrowedByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &models.BorrowReport{UserId: userId, Count: len(books), Books: books}, nil
}

// ListReturned returns the user's closed loans.
func (s *LedgerService) ListReturned(ctx context.Context, userId string) (*models.BorrowReport, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id", ErrValidation)
	}
	books, err := s.db.GetReturnedByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &models.BorrowReport{UserId: userId, Count: len(books), Books: books}, nil
}

// AuthorDashboard aggregates an author's catalog size, titles still in
// stock, copies currently borrowed out, and accumulated earnings.
func (s *LedgerService) AuthorDashboard(ctx context.Context, authorId string) (*models.AuthorDashboard, error) {
	if authorId == "" {
		return nil, fmt.Errorf("%w: author_id", ErrValidation)
	}

	books, err := s.db.GetBooksByAuthor(ctx, authorId)
	if err != nil {
		return nil, err
	}

	available := 0
	for _, book := range books {
		if book.AvailableCopies > 0 {
			available++
		}
	}

	borrowed, err := s.db.CountActiveBorrowsForAuthor(ctx, authorId)
	if err != nil {
		return nil, err
	}

	earnings, err := s.db.GetAuthorEarnings(ctx, authorId)
	if err != nil {
		return nil, err
	}

	return &models.AuthorDashboard{
		AuthorId:        authorId,
		TotalBooks:      len(books),
		AvailableTitles: available,
		BorrowedOut:     borrowed,
		Earnings:        earnings,
	}, nil
}
