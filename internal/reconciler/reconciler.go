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

package reconciler

import (
	"context"
	"time"

	"library-ledger-go/internal/formance"
	"library-ledger-go/internal/models"
	"library-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Config contains configuration for the ledger reconciler. Currency and
// Exponent identify the asset to read back from the mirror.
type Config struct {
	DbService     store.LedgerStore
	Mirror        *formance.Mirror
	Interval      time.Duration
	PendingMaxAge time.Duration
	Currency      string
	Exponent      int
}

// Reconciler periodically expires stale pending orders and cross-checks each
// author's cached earnings balance against the sum of their paid ledger rows.
// When a mirror is configured it also compares the mirror's view of author
// earnings and logs any drift.
type Reconciler struct {
	dbService     store.LedgerStore
	mirror        *formance.Mirror
	interval      time.Duration
	pendingMaxAge time.Duration
	currency      string
	exponent      int

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewReconciler creates a new ledger reconciler
func NewReconciler(cfg Config) *Reconciler {
	return &Reconciler{
		dbService:     cfg.DbService,
		mirror:        cfg.Mirror,
		interval:      cfg.Interval,
		pendingMaxAge: cfg.PendingMaxAge,
		currency:      cfg.Currency,
		exponent:      cfg.Exponent,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start runs an immediate reconciliation pass, then launches the background
// loop.
func (r *Reconciler) Start(ctx context.Context) {
	zap.L().Info("Starting ledger reconciler",
		zap.Duration("interval", r.interval),
		zap.Duration("pending_max_age", r.pendingMaxAge))

	r.runOnce(ctx)

	go r.loop(ctx)
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	zap.L().Info("Stopping ledger reconciler")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Ledger reconciler stopped")
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runOnce performs a single reconciliation pass. A failing step is logged
// and does not abort the remaining steps.
func (r *Reconciler) runOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.pendingMaxAge)

	expired, err := r.dbService.ExpirePendingOrders(ctx, cutoff)
	if err != nil {
		zap.L().Error("Failed to expire stale pending orders", zap.Error(err))
	} else if expired > 0 {
		zap.L().Info("Expired stale pending orders",
			zap.Int64("count", expired),
			zap.Time("cutoff", cutoff))
	}

	users, err := r.dbService.GetUsers(ctx)
	if err != nil {
		zap.L().Error("Failed to list users for reconciliation", zap.Error(err))
		return
	}

	for _, user := range users {
		if user.Role != models.RoleAuthor {
			continue
		}
		r.reconcileAuthor(ctx, user.Id)
	}
}

func (r *Reconciler) reconcileAuthor(ctx context.Context, authorId string) {
	if err := r.dbService.ReconcileAuthorEarnings(ctx, authorId); err != nil {
		zap.L().Error("Author earnings reconciliation failed",
			zap.String("author_id", authorId),
			zap.Error(err))
		return
	}

	if r.mirror == nil {
		return
	}

	mirrored, err := r.mirror.GetAuthorEarnings(ctx, authorId, r.currency, r.exponent)
	if err != nil {
		zap.L().Warn("Failed to read mirrored earnings",
			zap.String("author_id", authorId),
			zap.Error(err))
		return
	}

	cached, err := r.dbService.GetAuthorEarnings(ctx, authorId)
	if err != nil {
		zap.L().Error("Failed to read cached earnings",
			zap.String("author_id", authorId),
			zap.Error(err))
		return
	}

	if !cached.Equal(mirrored) {
		zap.L().Warn("Mirror drift detected for author earnings",
			zap.String("author_id", authorId),
			zap.String("cached", cached.String()),
			zap.String("mirrored", mirrored.String()))
	}
}
