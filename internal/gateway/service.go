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

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"library-ledger-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ErrUnavailable wraps any transport or gateway-side failure of the order
// API. Callers treat it as a ServiceError: not retried here, re-initiate.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Service is a client for the payment gateway's order API. The gateway is an
// opaque collaborator: the only surface used is order creation; charge
// collection happens entirely on the gateway side.
type Service struct {
	httpClient http.Client
	baseURL    string
	keyId      string
	keySecret  string
	timeout    time.Duration
}

func NewService(cfg models.GatewayConfig) (*Service, error) {
	if cfg.KeyId == "" || cfg.KeySecret == "" {
		return nil, fmt.Errorf("gateway credentials are required: GATEWAY_KEY_ID, GATEWAY_KEY_SECRET")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("gateway request timeout must be positive, got %v", cfg.RequestTimeout)
	}

	httpClient, err := createCustomHttpClient(cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Service{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		keyId:      cfg.KeyId,
		keySecret:  cfg.KeySecret,
		timeout:    cfg.RequestTimeout,
	}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: timeout,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// CreateOrderParams is the gateway order request: amount in minor currency
// units, a receipt of at most 40 characters, and free-form notes.
type CreateOrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	Id       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder opens an order with the gateway and returns its handle. No
// local state is touched here; the caller records the pending ledger row.
func (s *Service) CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
	if params.AmountMinor <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %d", params.AmountMinor)
	}
	if len(params.Receipt) > MaxReceiptLen {
		return nil, fmt.Errorf("receipt exceeds %d characters: %q", MaxReceiptLen, params.Receipt)
	}

	body, err := json.Marshal(orderRequest{
		Amount:   params.AmountMinor,
		Currency: params.Currency,
		Receipt:  params.Receipt,
		Notes:    params.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to encode order request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to build order request: %w", err)
	}
	req.SetBasicAuth(s.keyId, s.keySecret)
	req.Header.Set("Content-Type", "application/json")

	zap.L().Info("Creating gateway order",
		zap.Int64("amount_minor", params.AmountMinor),
		zap.String("currency", params.Currency),
		zap.String("receipt", params.Receipt))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		zap.L().Error("Gateway order request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		zap.L().Error("Gateway order creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", payload))
		return nil, fmt.Errorf("%w: order creation returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: unable to decode order response: %v", ErrUnavailable, err)
	}
	if order.Id == "" {
		return nil, fmt.Errorf("%w: order response missing id", ErrUnavailable)
	}

	zap.L().Info("Gateway order created",
		zap.String("order_id", order.Id),
		zap.Int64("amount_minor", order.Amount),
		zap.String("currency", order.Currency),
		zap.String("receipt", order.Receipt))

	return &models.Order{
		Id:       order.Id,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
	}, nil
}
