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

	"library-ledger-go/internal/gateway"
	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"go.uber.org/zap"
)

// CreateOrder opens a gateway order for a book at its current price and
// records the pending ledger row. The gateway is the source of truth for
// the order; the pending row exists so reconciliation can see orders that
// never verify.
func (s *LedgerService) CreateOrder(ctx context.Context, userId, bookId string) (*models.OrderResult, error) {
	if userId == "" || bookId == "" {
		return nil, fmt.Errorf("%w: user_id and book_id", ErrValidation)
	}

	book, err := s.db.GetBookById(ctx, bookId)
	if err != nil {
		return nil, err
	}

	author, err := s.db.GetUserById(ctx, book.AuthorId)
	if err != nil {
		return nil, err
	}

	amountMinor := book.Price.Shift(int32(s.currency.Exponent)).IntPart()
	receipt := gateway.NewReceipt(book.Id)

	zap.L().Info("Initiating order",
		zap.String("user_id", userId),
		zap.String("book_id", book.Id),
		zap.String("price", book.Price.String()),
		zap.Int64("amount_minor", amountMinor),
		zap.String("receipt", receipt))

	order, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderParams{
		AmountMinor: amountMinor,
		Currency:    s.currency.Code,
		Receipt:     receipt,
		Notes: map[string]string{
			"book":   book.Name,
			"author": author.Fullname,
		},
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.db.RecordPendingOrder(ctx, store.PendingOrderParams{
		UserId:   userId,
		AuthorId: book.AuthorId,
		BookId:   book.Id,
		Amount:   book.Price,
		Currency: s.currency.Code,
		OrderId:  order.Id,
	}); err != nil {
		// The gateway order exists either way; surface the recording failure.
		return nil, fmt.Errorf("order %s created but not recorded: %w", order.Id, err)
	}

	return &models.OrderResult{
		Order: order,
		Book: &models.BookSummary{
			Id:           book.Id,
			Name:         book.Name,
			Genre:        book.Genre,
			Price:        book.Price,
			ThumbnailURL: book.ThumbnailURL,
		},
	}, nil
}
