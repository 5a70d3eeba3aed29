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
	"os"
	"os/signal"
	"syscall"
	"time"

	"library-ledger-go/internal/common"
	"library-ledger-go/internal/config"
	"library-ledger-go/internal/reconciler"

	"go.uber.org/zap"
)

func main() {
	intervalFlag := flag.Duration("interval", 0, "Override the reconciliation interval (e.g. 30s, 5m)")
	onceFlag := flag.Bool("once", false, "Run a single reconciliation pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting ledger reconciler")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	interval := cfg.Reconciler.Interval
	if *intervalFlag > 0 {
		interval = *intervalFlag
	}

	currencies, err := common.LoadCurrencyConfig(cfg.Gateway.CurrenciesFile)
	if err != nil {
		zap.L().Fatal("Failed to load currencies", zap.Error(err))
	}
	currency, err := common.FindCurrency(currencies, cfg.Gateway.Currency)
	if err != nil {
		zap.L().Fatal("Configured currency not found", zap.Error(err))
	}

	r := reconciler.NewReconciler(reconciler.Config{
		DbService:     services.DbService,
		Mirror:        services.Mirror,
		Interval:      interval,
		PendingMaxAge: cfg.Reconciler.PendingMaxAge,
		Currency:      currency.Code,
		Exponent:      currency.Exponent,
	})

	if *onceFlag {
		// Start performs an immediate pass before launching the loop.
		r.Start(ctx)
		r.Stop()
		return
	}

	r.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	zap.L().Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownStart := time.Now()
	r.Stop()
	zap.L().Info("Shutdown complete", zap.Duration("took", time.Since(shutdownStart)))
}
