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

	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var book models.Book
	var priceStr string
	err := row.Scan(&book.Id, &book.Name, &book.Description, &book.Genre,
		&priceStr, &book.AvailableCopies, &book.AuthorId, &book.ThumbnailURL,
		&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return nil, err
	}
	book.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price '%s': %w", priceStr, err)
	}
	return &book, nil
}

func (s *Service) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if book.Name == "" || book.AuthorId == "" {
		return nil, fmt.Errorf("book name and author are required")
	}
	if !book.Price.IsPositive() {
		return nil, fmt.Errorf("book price must be positive, got %s", book.Price.String())
	}
	if book.AvailableCopies < 0 {
		return nil, fmt.Errorf("available copies cannot be negative, got %d", book.AvailableCopies)
	}

	if book.Id == "" {
		book.Id = uuid.New().String()
	}

	zap.L().Info("Creating book",
		zap.String("book_id", book.Id),
		zap.String("name", book.Name),
		zap.String("author_id", book.AuthorId),
		zap.String("price", book.Price.String()))

	_, err := s.db.ExecContext(ctx, queryInsertBook,
		book.Id, book.Name, book.Description, book.Genre,
		book.Price.String(), book.AvailableCopies, book.AuthorId, book.ThumbnailURL)
	if err != nil {
		zap.L().Error("Failed to insert book", zap.String("name", book.Name), zap.Error(err))
		return nil, fmt.Errorf("unable to insert book: %w", err)
	}

	return s.GetBookById(ctx, book.Id)
}

func (s *Service) GetBookById(ctx context.Context, bookId string) (*models.Book, error) {
	zap.L().Debug("Querying book by ID", zap.String("book_id", bookId))

	book, err := scanBook(s.db.QueryRowContext(ctx, queryGetBookById, bookId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: book %s", store.ErrNotFound, bookId)
		}
		zap.L().Error("Failed to query book by ID", zap.String("book_id", bookId), zap.Error(err))
		return nil, fmt.Errorf("unable to query book by ID: %w", err)
	}

	return book, nil
}

func (s *Service) GetBooksByAuthor(ctx context.Context, authorId string) ([]models.Book, error) {
	zap.L().Debug("Querying books by author", zap.String("author_id", authorId))

	rows, err := s.db.QueryContext(ctx, queryGetBooksByAuthor, authorId)
	if err != nil {
		return nil, fmt.Errorf("unable to query books by author: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan book row: %w", err)
		}
		books = append(books, *book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}

	return books, nil
}
