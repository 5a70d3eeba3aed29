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

package main

import (
	"context"
	"flag"
	"fmt"

	"library-ledger-go/internal/api"
	"library-ledger-go/internal/common"
	"library-ledger-go/internal/config"

	"go.uber.org/zap"
)

type purchaseRequest struct {
	email     string
	bookId    string
	orderId   string
	paymentId string
	signature string
}

func parseAndValidateFlags() (*purchaseRequest, error) {
	emailFlag := flag.String("email", "", "Buyer email (required)")
	bookFlag := flag.String("book", "", "Book id (required)")
	orderFlag := flag.String("order", "", "Gateway order id (verify step)")
	paymentFlag := flag.String("payment", "", "Gateway payment id (verify step)")
	signatureFlag := flag.String("signature", "", "Payment signature (verify step)")
	flag.Parse()

	if *emailFlag == "" || *bookFlag == "" {
		return nil, fmt.Errorf("required flags: --email, --book")
	}

	verifyArgs := 0
	for _, v := range []string{*orderFlag, *paymentFlag, *signatureFlag} {
		if v != "" {
			verifyArgs++
		}
	}
	if verifyArgs != 0 && verifyArgs != 3 {
		return nil, fmt.Errorf("verification needs all of --order, --payment, --signature")
	}

	return &purchaseRequest{
		email:     *emailFlag,
		bookId:    *bookFlag,
		orderId:   *orderFlag,
		paymentId: *paymentFlag,
		signature: *signatureFlag,
	}, nil
}

func runCreateOrder(ctx context.Context, service *api.LedgerService, userId, bookId string) {
	result, err := service.CreateOrder(ctx, userId, bookId)
	if err != nil {
		zap.L().Fatal("Order creation failed", zap.Error(err))
	}

	common.PrintHeader("ORDER CREATED", common.DefaultWidth)
	fmt.Printf("Order ID:  %s\n", result.Order.Id)
	fmt.Printf("Amount:    %d %s (minor units)\n", result.Order.Amount, result.Order.Currency)
	fmt.Printf("Receipt:   %s\n", result.Order.Receipt)
	fmt.Printf("Book:      %s (%s)\n", result.Book.Name, result.Book.Price.String())
	common.PrintFooter("Complete the charge with the gateway, then re-run with --order/--payment/--signature.", common.DefaultWidth)
}

func runVerify(ctx context.Context, service *api.LedgerService, req *purchaseRequest, userId string) {
	result, err := service.VerifyPayment(ctx, api.VerifyPaymentParams{
		OrderId:   req.orderId,
		PaymentId: req.paymentId,
		Signature: req.signature,
		BookId:    req.bookId,
		UserId:    userId,
	})
	if err != nil {
		zap.L().Fatal("Payment verification failed", zap.Error(err))
	}

	common.PrintHeader("PAYMENT SETTLED", common.DefaultWidth)
	if result.AlreadySettled {
		fmt.Println("This payment was already settled; no changes were made.")
	} else {
		fmt.Printf("Ledger row: %s\n", result.PaymentRowId)
		fmt.Printf("Author:     %s\n", result.AuthorId)
		fmt.Printf("Amount:     %s %s\n", result.Amount.String(), result.Currency)
		fmt.Printf("Settled at: %s\n", result.SettledAt.Format("2006-01-02 15:04:05"))
	}
	common.PrintFooter("Done.", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	currencies, err := common.LoadCurrencyConfig(cfg.Gateway.CurrenciesFile)
	if err != nil {
		logger.Fatal("Failed to load currencies", zap.Error(err))
	}
	currency, err := common.FindCurrency(currencies, cfg.Gateway.Currency)
	if err != nil {
		logger.Fatal("Configured currency not found", zap.Error(err))
	}

	ledgerService, err := api.NewLedgerService(api.Config{
		Db:       services.DbService,
		Gateway:  services.GatewayService,
		Mirror:   services.Mirror,
		Secret:   cfg.Gateway.KeySecret,
		Currency: currency,
	})
	if err != nil {
		logger.Fatal("Failed to create ledger service", zap.Error(err))
	}

	users, err := common.InitializeUsers(ctx, services.DbService, req.email, "", logger)
	if err != nil {
		logger.Fatal("Failed to look up buyer", zap.Error(err))
	}
	buyer := users[0]

	if req.orderId != "" {
		runVerify(ctx, ledgerService, req, buyer.Id)
		return
	}
	runCreateOrder(ctx, ledgerService, buyer.Id, req.bookId)
}
