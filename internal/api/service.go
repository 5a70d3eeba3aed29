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

	"library-ledger-go/internal/common"
	"library-ledger-go/internal/formance"
	"library-ledger-go/internal/gateway"
	"library-ledger-go/internal/store"
)

// ErrValidation marks a request missing required identifiers.
var ErrValidation = errors.New("missing required field")

// LedgerService orchestrates the order/payment and borrow flows over a
// backend store and the payment gateway. Mirror is optional.
type LedgerService struct {
	db       store.LedgerStore
	gateway  *gateway.Service
	mirror   *formance.Mirror
	secret   string
	currency common.CurrencyConfig
}

type Config struct {
	Db       store.LedgerStore
	Gateway  *gateway.Service
	Mirror   *formance.Mirror
	Secret   string
	Currency common.CurrencyConfig
}

func NewLedgerService(cfg Config) (*LedgerService, error) {
	if cfg.Db == nil {
		return nil, fmt.Errorf("ledger service requires a store")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("ledger service requires the gateway signing secret")
	}
	if cfg.Currency.Code == "" {
		return nil, fmt.Errorf("ledger service requires a configured currency")
	}
	return &LedgerService{
		db:       cfg.Db,
		gateway:  cfg.Gateway,
		mirror:   cfg.Mirror,
		secret:   cfg.Secret,
		currency: cfg.Currency,
	}, nil
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	_, err := s.db.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
