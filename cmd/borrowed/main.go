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

	"go.uber.org/zap"
)

type borrowStats struct {
	totalUsers       int
	totalBorrows     int
	usersWithBorrows int
	orphanedEntries  int
}

func formatBorrowedBook(entry models.BorrowedBook) string {
	if entry.Orphaned() {
		return fmt.Sprintf("[removed from catalog] (book_id: %s)", entry.Record.BookId)
	}
	if entry.Author != nil {
		return fmt.Sprintf("%s by %s", entry.Book.Name, entry.Author.Fullname)
	}
	return entry.Book.Name
}

func printBorrowedBook(entry models.BorrowedBook, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	status := "borrowed"
	when := entry.Record.BorrowedAt
	if entry.Record.Returned && entry.Record.ReturnedAt != nil {
		status = "returned"
		when = *entry.Record.ReturnedAt
	}
	fmt.Printf("%s %-48s %s %s\n",
		symbol,
		formatBorrowedBook(entry),
		status,
		when.Format("2006-01-02 15:04:05"))
}

func printUserHeader(user common.UserInfo, count int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Fullname, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Records: %d\n", count)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, dbService *database.Service, includeReturned bool) (int, int, error) {
	entries, err := dbService.GetBorrowedByUser(ctx, user.Id)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get active borrows: %w", err)
	}

	if includeReturned {
		returned, err := dbService.GetReturnedByUser(ctx, user.Id)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to get returned borrows: %w", err)
		}
		entries = append(entries, returned...)
	}

	if len(entries) == 0 {
		return 0, 0, nil
	}

	printUserHeader(user, len(entries))

	orphaned := 0
	for i, entry := range entries {
		if entry.Orphaned() {
			orphaned++
		}
		printBorrowedBook(entry, i == len(entries)-1)
	}

	return len(entries), orphaned, nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, dbService *database.Service, includeReturned bool, logger *zap.Logger) borrowStats {
	stats := borrowStats{}

	for _, user := range users {
		stats.totalUsers++

		count, orphaned, err := processUser(ctx, user, dbService, includeReturned)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Fullname),
				zap.Error(err))
			continue
		}

		if count > 0 {
			stats.usersWithBorrows++
			stats.totalBorrows += count
			stats.orphanedEntries += orphaned
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Show borrows for a single user by email")
	allFlag := flag.Bool("all", false, "Include returned borrows, not just active loans")
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

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag, "", logger)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("BORROW LEDGER REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, dbService, *allFlag, logger)

	common.PrintFooter(fmt.Sprintf(
		"Users: %d, with records: %d, records: %d, orphaned: %d",
		stats.totalUsers, stats.usersWithBorrows, stats.totalBorrows, stats.orphanedEntries),
		common.DefaultWidth)
}
