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
	"errors"
	"fmt"

	"library-ledger-go/internal/formance"
	"library-ledger-go/internal/gateway"
	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VerifyPaymentParams is the client's payment proof.
type VerifyPaymentParams struct {
	OrderId   string
	PaymentId string
	Signature string
	BookId    string
	UserId    string
}

// VerifyPayment verifies the payment proof and settles it. Trust is
// established only by recomputing the signature with the server-held secret;
// a mismatch mutates nothing. A replay of an already-settled pair is a safe
// no-op reported via AlreadySettled.
func (s *LedgerService) VerifyPayment(ctx context.Context, params VerifyPaymentParams) (*models.SettlementResult, error) {
	if params.OrderId == "" || params.PaymentId == "" || params.Signature == "" ||
		params.BookId == "" || params.UserId == "" {
		return nil, fmt.Errorf("%w: order_id, payment_id, signature, book_id and user_id", ErrValidation)
	}

	if err := gateway.VerifySignature(params.OrderId, params.PaymentId, params.Signature, s.secret); err != nil {
		zap.L().Warn("Payment signature rejected",
			zap.String("order_id", params.OrderId),
			zap.String("gateway_payment_id", params.PaymentId),
			zap.String("user_id", params.UserId))
		return nil, err
	}

	payment, err := s.db.SettlePayment(ctx, store.SettleParams{
		UserId:    params.UserId,
		BookId:    params.BookId,
		OrderId:   params.OrderId,
		PaymentId: params.PaymentId,
		Currency:  s.currency.Code,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateSettlement) {
			zap.L().Info("Settlement replay detected, returning no-op",
				zap.String("order_id", params.OrderId),
				zap.String("gateway_payment_id", params.PaymentId))
			return &models.SettlementResult{
				AlreadySettled: true,
				BookId:         params.BookId,
				Amount:         decimal.Zero,
			}, nil
		}
		return nil, err
	}

	// The mirror is best-effort: the SQLite ledger already holds the row,
	// and the mirror posting is idempotent on the same reference, so a
	// failure here is logged and retried by a later reconciliation pass.
	if s.mirror != nil {
		if err := s.mirror.RecordSettlement(ctx, formance.SettlementPosting{
			AuthorId:  payment.AuthorId,
			BuyerId:   payment.UserId,
			BookId:    payment.BookId,
			OrderId:   payment.OrderId,
			PaymentId: payment.PaymentId,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Exponent:  s.currency.Exponent,
		}); err != nil {
			zap.L().Warn("Failed to mirror settlement",
				zap.String("order_id", payment.OrderId),
				zap.Error(err))
		}
	}

	return &models.SettlementResult{
		PaymentRowId: payment.Id,
		BookId:       payment.BookId,
		AuthorId:     payment.AuthorId,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		SettledAt:    payment.SettledAt,
	}, nil
}

// GetAuthorSales builds the author sales dashboard: paid count, exact sum of
// amounts, and the enriched sale rows.
func (s *LedgerService) GetAuthorSales(ctx context.Context, authorId string) (*models.SalesReport, error) {
	if authorId == "" {
		return nil, fmt.Errorf("%w: author_id", ErrValidation)
	}

	sales, err := s.db.GetAuthorSales(ctx, authorId)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Payment.Amount)
	}

	return &models.SalesReport{
		AuthorId:      authorId,
		TotalSales:    len(sales),
		TotalEarnings: total,
		Sales:         sales,
	}, nil
}

// GetUserPurchases returns a buyer's paid payments, most recent first.
func (s *LedgerService) GetUserPurchases(ctx context.Context, userId string) ([]models.Sale, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user_id", ErrValidation)
	}
	return s.db.GetUserPurchases(ctx, userId)
}
