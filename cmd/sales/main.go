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

	"library-ledger-go/internal/common"
	"library-ledger-go/internal/config"
	"library-ledger-go/internal/database"
	"library-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type salesStats struct {
	totalAuthors     int
	totalSales       int
	authorsWithSales int
	totalEarnings    decimal.Decimal
}

func formatBuyer(sale models.Sale) string {
	if sale.Buyer == nil {
		return "unknown buyer"
	}
	return fmt.Sprintf("%s (%s)", sale.Buyer.Fullname, sale.Buyer.Email)
}

func formatBookName(sale models.Sale) string {
	if sale.Book == nil {
		return "[removed from catalog]"
	}
	return sale.Book.Name
}

func printSale(sale models.Sale, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-32s %10s %s  %s  %s\n",
		symbol,
		formatBookName(sale),
		sale.Payment.Amount.String(),
		sale.Payment.Currency,
		sale.Payment.SettledAt.Format("2006-01-02 15:04:05"),
		formatBuyer(sale))
}

func printAuthorHeader(author common.UserInfo, saleCount int, earnings decimal.Decimal) {
	fmt.Printf("\n┌─ Author: %s (%s)\n", author.Fullname, author.Email)
	fmt.Printf("│  ID: %s\n", author.Id)
	fmt.Printf("│  Paid sales: %d, total earnings: %s\n", saleCount, earnings.String())
	common.PrintBoxSeparator(78)
}

func processAuthor(ctx context.Context, author common.UserInfo, dbService *database.Service) (int, decimal.Decimal, error) {
	sales, err := dbService.GetAuthorSales(ctx, author.Id)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to get sales: %w", err)
	}

	if len(sales) == 0 {
		return 0, decimal.Zero, nil
	}

	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Payment.Amount)
	}

	printAuthorHeader(author, len(sales), total)
	for i, sale := range sales {
		printSale(sale, i == len(sales)-1)
	}

	return len(sales), total, nil
}

func processAuthorsAndGenerateReport(ctx context.Context, authors []common.UserInfo, dbService *database.Service, logger *zap.Logger) salesStats {
	stats := salesStats{totalEarnings: decimal.Zero}

	for _, author := range authors {
		stats.totalAuthors++

		saleCount, earnings, err := processAuthor(ctx, author, dbService)
		if err != nil {
			logger.Error("Failed to process author",
				zap.String("author_id", author.Id),
				zap.String("author_name", author.Fullname),
				zap.Error(err))
			continue
		}

		if saleCount > 0 {
			stats.authorsWithSales++
			stats.totalSales += saleCount
			stats.totalEarnings = stats.totalEarnings.Add(earnings)
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Show sales for a single author by email")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	authors, err := common.InitializeUsers(ctx, dbService, *emailFlag, models.RoleAuthor, logger)
	if err != nil {
		logger.Fatal("Failed to initialize authors", zap.Error(err))
	}

	common.PrintHeader("AUTHOR SALES REPORT", common.DefaultWidth)

	stats := processAuthorsAndGenerateReport(ctx, authors, dbService, logger)

	common.PrintFooter(fmt.Sprintf(
		"Authors: %d, with sales: %d, paid sales: %d, total earnings: %s",
		stats.totalAuthors, stats.authorsWithSales, stats.totalSales, stats.totalEarnings.String()),
		common.DefaultWidth)
}
