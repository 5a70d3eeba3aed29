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
	"fmt"

	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"database/sql"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.InitSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	if cfg.CreateDemoData {
		if err := service.seedDemoData(ctx); err != nil {
			zap.L().Warn("Failed to seed demo data", zap.Error(err))
		}
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) InitSchema() error {
	schema := `
	-- Users: readers and authors. Earnings live on the author row and are
	-- guarded by an optimistic version column.
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		fullname TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'reader',
		earnings TEXT NOT NULL DEFAULT '0',
		earnings_version INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	-- Books: available_copies floors at zero, enforced here and by the
	-- guarded decrement in settlement.
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL,
		available_copies INTEGER NOT NULL DEFAULT 0 CHECK (available_copies >= 0),
		author_id TEXT NOT NULL REFERENCES users(id),
		thumbnail_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_books_author ON books(author_id);

	-- Payment ledger: one row per gateway order, pending at order creation,
	-- paid exactly once at settlement. The unique (order_id, payment_id)
	-- pair is the settlement idempotency key.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		author_id TEXT NOT NULL DEFAULT '',
		book_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'INR',
		payment_id TEXT NOT NULL DEFAULT '',
		order_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		settled_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_order_payment ON payments(order_id, payment_id);
	CREATE INDEX IF NOT EXISTS idx_payments_author ON payments(author_id, status);
	CREATE INDEX IF NOT EXISTS idx_payments_user ON payments(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_payments_status_created ON payments(status, created_at);

	-- Borrow ledger: at most one active record per (user, book).
	CREATE TABLE IF NOT EXISTS borrows (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		book_id TEXT NOT NULL,
		returned BOOLEAN NOT NULL DEFAULT 0,
		borrowed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		returned_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_borrows_active ON borrows(user_id, book_id) WHERE returned = 0;
	CREATE INDEX IF NOT EXISTS idx_borrows_user_returned ON borrows(user_id, returned);
	CREATE INDEX IF NOT EXISTS idx_borrows_book ON borrows(book_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// seedDemoData inserts a small catalog for local development.
func (s *Service) seedDemoData(ctx context.Context) error {
	authors := []struct {
		fullname string
		email    string
	}{
		{"Maya Iyer", "maya.iyer@example.com"},
		{"Daniel Okafor", "daniel.okafor@example.com"},
	}
	readers := []struct {
		fullname string
		email    string
	}{
		{"Priya Nair", "priya.nair@example.com"},
		{"Tom Becker", "tom.becker@example.com"},
	}

	for _, a := range authors {
		if _, err := s.db.ExecContext(ctx, queryInsertUser, uuid.New().String(), a.fullname, a.email, "author"); err != nil {
			zap.L().Error("Failed to insert demo author", zap.String("fullname", a.fullname), zap.Error(err))
		}
	}
	for _, r := range readers {
		if _, err := s.db.ExecContext(ctx, queryInsertUser, uuid.New().String(), r.fullname, r.email, "reader"); err != nil {
			zap.L().Error("Failed to insert demo reader", zap.String("fullname", r.fullname), zap.Error(err))
		}
	}

	zap.L().Info("Demo data seeded")
	return nil
}
