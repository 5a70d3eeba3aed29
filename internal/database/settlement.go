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
	"strings"
	"time"

	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordPendingOrder writes the pending ledger row for a freshly created
// gateway order, so that never-verified orders remain visible to
// reconciliation.
func (s *Service) RecordPendingOrder(ctx context.Context, params store.PendingOrderParams) (*models.Payment, error) {
	if params.UserId == "" || params.BookId == "" || params.OrderId == "" {
		return nil, fmt.Errorf("user_id, book_id and order_id are required")
	}

	rowId := uuid.New().String()
	_, err := s.db.ExecContext(ctx, queryInsertPendingPayment,
		rowId, params.UserId, params.AuthorId, params.BookId,
		params.Amount.String(), params.Currency, params.OrderId)
	if err != nil {
		zap.L().Error("Failed to record pending order",
			zap.String("order_id", params.OrderId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to record pending order: %w", err)
	}

	zap.L().Info("Pending order recorded",
		zap.String("order_id", params.OrderId),
		zap.String("book_id", params.BookId),
		zap.String("amount", params.Amount.String()))

	return &models.Payment{
		Id:       rowId,
		UserId:   params.UserId,
		AuthorId: params.AuthorId,
		BookId:   params.BookId,
		Amount:   params.Amount,
		Currency: params.Currency,
		OrderId:  params.OrderId,
		Status:   models.PaymentPending,
	}, nil
}

// SettlePayment applies the three ledger mutations of a verified payment as
// one database transaction: credit the author's earnings by the book's
// current price, decrement available copies without going below zero, and
// record the paid ledger row with the price snapshot.
//
// The (order_id, payment_id) pair is the idempotency key: a second call for
// an already-settled pair returns ErrDuplicateSettlement and mutates nothing.
func (s *Service) SettlePayment(ctx context.Context, params store.SettleParams) (*models.Payment, error) {
	zap.L().Info("Settling payment",
		zap.String("order_id", params.OrderId),
		zap.String("gateway_payment_id", params.PaymentId),
		zap.String("book_id", params.BookId),
		zap.String("user_id", params.UserId))

	// Check for an already-settled (order, payment) pair
	var existingRowId string
	err := s.db.QueryRowContext(ctx, queryCheckSettledPayment, params.OrderId, params.PaymentId).Scan(&existingRowId)
	if err == nil {
		zap.L().Warn("Duplicate settlement attempt, skipping",
			zap.String("order_id", params.OrderId),
			zap.String("gateway_payment_id", params.PaymentId),
			zap.String("existing_row_id", existingRowId))
		return nil, fmt.Errorf("%w: order %s payment %s", store.ErrDuplicateSettlement, params.OrderId, params.PaymentId)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check for duplicate settlement: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// When a pending row exists for this order, the verify call must cite
	// the same book and buyer the order was created for. Otherwise the
	// credit would go to one author while the ledger row references another.
	var pendingBookId, pendingUserId string
	err = tx.QueryRowContext(ctx, queryGetPendingByOrder, params.OrderId).Scan(&pendingBookId, &pendingUserId)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to load pending order row: %w", err)
	}
	if err == nil && (pendingBookId != params.BookId || pendingUserId != params.UserId) {
		zap.L().Warn("Settlement references do not match pending order",
			zap.String("order_id", params.OrderId),
			zap.String("pending_book_id", pendingBookId),
			zap.String("claimed_book_id", params.BookId),
			zap.String("pending_user_id", pendingUserId),
			zap.String("claimed_user_id", params.UserId))
		return nil, fmt.Errorf("%w: settlement references do not match pending order %s",
			store.ErrDataIntegrity, params.OrderId)
	}

	// Load the book. The signature already verified, so a missing book here
	// is a consistency gap rather than bad client input.
	book, err := scanBook(tx.QueryRowContext(ctx, queryGetBookById, params.BookId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: book %s missing at settlement", store.ErrDataIntegrity, params.BookId)
		}
		return nil, fmt.Errorf("failed to load book for settlement: %w", err)
	}

	// Load the author's earnings accumulator with its version.
	var earningsStr string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetEarningsForUpdate, book.AuthorId).Scan(&earningsStr, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: author %s missing at settlement", store.ErrDataIntegrity, book.AuthorId)
		}
		return nil, fmt.Errorf("failed to load author earnings: %w", err)
	}

	earnings, err := decimal.NewFromString(earningsStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse earnings '%s': %w", earningsStr, err)
	}

	// Credit the author by the book's current price (optimistic locking).
	newEarnings := earnings.Add(book.Price)
	result, err := tx.ExecContext(ctx, queryUpdateEarnings, newEarnings.String(), book.AuthorId, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update author earnings: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("earnings update failed - %w", store.ErrConcurrentModification)
	}

	// Decrement copies; the WHERE guard floors it at zero. An exhausted
	// title still sells (digital-goods permissiveness), it just no longer
	// decrements.
	if _, err := tx.ExecContext(ctx, queryDecrementCopies, book.Id); err != nil {
		return nil, fmt.Errorf("failed to decrement available copies: %w", err)
	}

	// Record the paid ledger row, snapshotting the price at this moment.
	// Prefer flipping the pending row created at order time.
	now := time.Now()
	result, err = tx.ExecContext(ctx, querySettlePendingPayment,
		params.PaymentId, book.Price.String(), params.Currency, now, params.OrderId)
	if err != nil {
		return nil, fmt.Errorf("failed to settle pending payment row: %w", err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	rowId := ""
	if rowsAffected == 0 {
		// No pending row (order predates pending recording, or it expired).
		// Insert the paid row directly; the unique (order_id, payment_id)
		// index rejects a concurrent duplicate.
		rowId = uuid.New().String()
		_, err = tx.ExecContext(ctx, queryInsertPaidPayment,
			rowId, params.UserId, book.AuthorId, book.Id,
			book.Price.String(), params.Currency, params.PaymentId, params.OrderId, now)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return nil, fmt.Errorf("%w: order %s payment %s", store.ErrDuplicateSettlement, params.OrderId, params.PaymentId)
			}
			return nil, fmt.Errorf("failed to insert paid payment row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}

	payment, err := s.getPaymentByPair(ctx, params.OrderId, params.PaymentId)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Payment settled",
		zap.String("payment_row_id", payment.Id),
		zap.String("order_id", params.OrderId),
		zap.String("book_id", book.Id),
		zap.String("author_id", book.AuthorId),
		zap.String("amount", book.Price.String()),
		zap.String("author_earnings", newEarnings.String()))

	return payment, nil
}

func (s *Service) getPaymentByPair(ctx context.Context, orderId, paymentId string) (*models.Payment, error) {
	var p models.Payment
	var amountStr string
	var settledAt sql.NullTime
	err := s.db.QueryRowContext(ctx, queryGetPaymentByOrderAndId, orderId, paymentId).Scan(
		&p.Id, &p.UserId, &p.AuthorId, &p.BookId, &amountStr, &p.Currency,
		&p.PaymentId, &p.OrderId, &p.Status, &p.CreatedAt, &settledAt)
	if err != nil {
		return nil, fmt.Errorf("unable to load settled payment: %w", err)
	}
	// Pending rows have no settled_at yet.
	p.SettledAt = p.CreatedAt
	if settledAt.Valid {
		p.SettledAt = settledAt.Time
	}
	p.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	return &p, nil
}

func (s *Service) scanSales(rows *sql.Rows) ([]models.Sale, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var sales []models.Sale
	for rows.Next() {
		var sale models.Sale
		var amountStr string
		var settledAt sql.NullTime
		var bookId, bookName, bookGenre, bookPrice, bookThumb sql.NullString
		var buyerId, buyerName, buyerEmail sql.NullString

		err := rows.Scan(&sale.Payment.Id, &sale.Payment.UserId, &sale.Payment.AuthorId,
			&sale.Payment.BookId, &amountStr, &sale.Payment.Currency,
			&sale.Payment.PaymentId, &sale.Payment.OrderId, &sale.Payment.Status,
			&sale.Payment.CreatedAt, &settledAt,
			&bookId, &bookName, &bookGenre, &bookPrice, &bookThumb,
			&buyerId, &buyerName, &buyerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale row: %w", err)
		}

		sale.Payment.SettledAt = sale.Payment.CreatedAt
		if settledAt.Valid {
			sale.Payment.SettledAt = settledAt.Time
		}

		sale.Payment.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		// A deleted book or buyer leaves the join columns NULL; the ledger
		// row is still reported.
		if bookId.Valid {
			price, err := decimal.NewFromString(bookPrice.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse book price '%s': %w", bookPrice.String, err)
			}
			sale.Book = &models.BookSummary{
				Id:           bookId.String,
				Name:         bookName.String,
				Genre:        bookGenre.String,
				Price:        price,
				ThumbnailURL: bookThumb.String,
			}
		}
		if buyerId.Valid {
			sale.Buyer = &models.UserSummary{
				Id:       buyerId.String,
				Fullname: buyerName.String,
				Email:    buyerEmail.String,
			}
		}

		sales = append(sales, sale)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale rows: %w", err)
	}
	return sales, nil
}

// GetAuthorSales returns the paid ledger rows for an author, most recent
// first, enriched with book and buyer display data.
func (s *Service) GetAuthorSales(ctx context.Context, authorId string) ([]models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAuthorSales, authorId)
	if err != nil {
		return nil, fmt.Errorf("unable to query author sales: %w", err)
	}
	return s.scanSales(rows)
}

// GetUserPurchases returns the paid ledger rows for a buyer, most recent first.
func (s *Service) GetUserPurchases(ctx context.Context, userId string) ([]models.Sale, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserPurchases, userId)
	if err != nil {
		return nil, fmt.Errorf("unable to query user purchases: %w", err)
	}
	return s.scanSales(rows)
}

// ExpirePendingOrders marks pending rows older than cutoff as failed and
// returns how many were expired. Used by the reconciler; a later verify call
// for an expired order still settles by inserting a fresh paid row.
func (s *Service) ExpirePendingOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryExpirePendingOrders, cutoff)
	if err != nil {
		return 0, fmt.Errorf("unable to expire pending orders: %w", err)
	}
	expired, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if expired > 0 {
		zap.L().Info("Expired stale pending orders", zap.Int64("count", expired))
	}
	return expired, nil
}

// ReconcileAuthorEarnings verifies that the author's earnings accumulator
// equals the sum of their paid ledger rows (exact decimal comparison).
func (s *Service) ReconcileAuthorEarnings(ctx context.Context, authorId string) error {
	earnings, err := s.GetAuthorEarnings(ctx, authorId)
	if err != nil {
		return fmt.Errorf("failed to get current earnings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryGetPaidAmountsForAuthor, authorId)
	if err != nil {
		return fmt.Errorf("unable to query paid amounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	ledgerTotal := decimal.Zero
	for rows.Next() {
		var amountStr string
		if err := rows.Scan(&amountStr); err != nil {
			return fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}
		ledgerTotal = ledgerTotal.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating amount rows: %w", err)
	}

	if !earnings.Equal(ledgerTotal) {
		zap.L().Error("Earnings reconciliation failed",
			zap.String("author_id", authorId),
			zap.String("earnings", earnings.String()),
			zap.String("ledger_total", ledgerTotal.String()),
			zap.String("difference", earnings.Sub(ledgerTotal).String()))
		return fmt.Errorf("earnings mismatch for author %s: accumulator=%s, ledger=%s",
			authorId, earnings.String(), ledgerTotal.String())
	}

	zap.L().Debug("Earnings reconciliation successful",
		zap.String("author_id", authorId),
		zap.String("earnings", earnings.String()))
	return nil
}
