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

package formance

import (
	"context"
	"errors"
	"fmt"

	"library-ledger-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Numscript for one settlement posting: the sale amount flows from the world
// account into the author's earnings account. Metadata makes the posting
// self-describing for reconciliation.
const numscriptSettlement = `vars {
  asset $asset
  number $amount
  account $author_id
  string $order_id
  string $payment_id
  string $book_id
  string $buyer_id
}

send [$asset $amount] (
  source = @world
  destination = @authors:$author_id:earnings
)

set_tx_meta("event_type", "settlement")
set_tx_meta("order_id", $order_id)
set_tx_meta("payment_id", $payment_id)
set_tx_meta("book_id", $book_id)
set_tx_meta("buyer_id", $buyer_id)
`

// Mirror writes each settlement to a Formance Stack ledger as a second,
// independent record of author earnings. The SQLite ledger remains the
// source of truth; the mirror exists for external reconciliation.
type Mirror struct {
	client *v3.Formance
	ledger string
}

// NewMirror connects to the stack and creates the ledger if it does not
// already exist.
func NewMirror(ctx context.Context, cfg models.FormanceConfig) (*Mirror, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "library-earnings"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	m := &Mirror{client: client, ledger: cfg.LedgerName}
	if err := m.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance mirror initialized", zap.String("ledger", cfg.LedgerName))
	return m, nil
}

func (m *Mirror) ensureLedger(ctx context.Context) error {
	_, err := m.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: m.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "library-ledger",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", m.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", m.ledger))
	return nil
}

// isConflictError checks whether a Formance SDK error is a CONFLICT
// (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

// SettlementPosting carries one settled payment into the mirror.
type SettlementPosting struct {
	AuthorId  string
	BuyerId   string
	BookId    string
	OrderId   string
	PaymentId string
	Amount    decimal.Decimal
	Currency  string
	Exponent  int
}

// RecordSettlement posts the settlement to the mirror ledger. The posting
// reference is the settlement idempotency key, so a duplicate post is a
// CONFLICT and treated as success.
func (m *Mirror) RecordSettlement(ctx context.Context, p SettlementPosting) error {
	minorAmt := p.Amount.Shift(int32(p.Exponent)).BigInt().String()

	_, err := m.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: m.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: v3.Pointer(p.OrderId + "|" + p.PaymentId),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptSettlement,
				Vars: map[string]string{
					"asset":      ledgerAsset(p.Currency, p.Exponent),
					"amount":     minorAmt,
					"author_id":  p.AuthorId,
					"order_id":   p.OrderId,
					"payment_id": p.PaymentId,
					"book_id":    p.BookId,
					"buyer_id":   p.BuyerId,
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Info("Settlement already mirrored, skipping",
				zap.String("order_id", p.OrderId),
				zap.String("payment_id", p.PaymentId))
			return nil
		}
		return fmt.Errorf("error mirroring settlement: %w", err)
	}

	zap.L().Info("Settlement mirrored",
		zap.String("author_id", p.AuthorId),
		zap.String("order_id", p.OrderId),
		zap.String("amount", p.Amount.String()))
	return nil
}

// GetAuthorEarnings reads back the mirrored earnings balance for an author.
func (m *Mirror) GetAuthorEarnings(ctx context.Context, authorId, currency string, exponent int) (decimal.Decimal, error) {
	resp, err := m.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  m.ledger,
		Address: "authors:" + authorId + ":earnings",
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to get mirrored account: %w", err)
	}

	vols := resp.V2AccountResponse.Data.Volumes
	vol, ok := vols[ledgerAsset(currency, exponent)]
	if !ok || vol.Balance == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(vol.Balance, -int32(exponent)), nil
}

// ledgerAsset returns the Formance asset notation for a currency, e.g.
// "INR/2" for minor units with exponent 2.
func ledgerAsset(currency string, exponent int) string {
	if exponent <= 0 {
		return currency
	}
	return fmt.Sprintf("%s/%d", currency, exponent)
}
