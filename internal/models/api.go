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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the gateway order handle returned to the caller after order
// creation. Amount is in minor currency units as charged by the gateway.
type Order struct {
	Id       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// OrderResult is returned by order initiation.
type OrderResult struct {
	Order *Order       `json:"order"`
	Book  *BookSummary `json:"book"`
}

// SettlementResult is returned by payment verification. AlreadySettled is
// set when the (orderId, paymentId) pair was settled by an earlier call and
// this call was a safe no-op.
type SettlementResult struct {
	AlreadySettled bool            `json:"already_settled"`
	PaymentRowId   string          `json:"payment_row_id,omitempty"`
	BookId         string          `json:"book_id"`
	AuthorId       string          `json:"author_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	SettledAt      time.Time       `json:"settled_at,omitempty"`
}

// SalesReport is the author sales dashboard projection.
type SalesReport struct {
	AuthorId      string          `json:"author_id"`
	TotalSales    int             `json:"total_sales"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	Sales         []Sale          `json:"sales"`
}

// BorrowReport is the user borrow ledger projection: active loans or history.
type BorrowReport struct {
	UserId string         `json:"user_id"`
	Count  int            `json:"count"`
	Books  []BorrowedBook `json:"books"`
}

// AuthorDashboard aggregates an author's catalog and ledger state.
type AuthorDashboard struct {
	AuthorId        string          `json:"author_id"`
	TotalBooks      int             `json:"total_books"`
	AvailableTitles int             `json:"available_titles"`
	BorrowedOut     int64           `json:"borrowed_out"`
	Earnings        decimal.Decimal `json:"earnings"`
}
