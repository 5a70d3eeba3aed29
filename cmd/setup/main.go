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

// demoBook pairs a catalog entry with the author email it belongs to.
type demoBook struct {
	authorEmail string
	name        string
	genre       string
	price       string
	copies      int64
}

var demoCatalog = []demoBook{
	{"maya.iyer@example.com", "Monsoon Letters", "fiction", "499", 5},
	{"maya.iyer@example.com", "The Cartographer's Daughter", "fiction", "650", 3},
	{"daniel.okafor@example.com", "Systems That Last", "technology", "899", 4},
	{"daniel.okafor@example.com", "Notes on Distributed Ledgers", "technology", "1200", 2},
}

func runInit(ctx context.Context, dbService *database.Service) {
	if err := dbService.InitSchema(); err != nil {
		zap.L().Fatal("Failed to initialize schema", zap.Error(err))
	}
	zap.L().Info("Database schema initialized")
}

// seedCatalog inserts the demo catalog, attaching each book to the demo
// author owning its email. Missing authors are logged and skipped so the
// seed can run against a partially initialized database.
func seedCatalog(ctx context.Context, dbService *database.Service) {
	created := 0

	for _, entry := range demoCatalog {
		author, err := dbService.GetUserByEmail(ctx, entry.authorEmail)
		if err != nil {
			zap.L().Warn("Skipping demo book, author not found",
				zap.String("author_email", entry.authorEmail),
				zap.String("book", entry.name))
			continue
		}

		price, err := decimal.NewFromString(entry.price)
		if err != nil {
			zap.L().Error("Invalid demo book price",
				zap.String("book", entry.name),
				zap.String("price", entry.price))
			continue
		}

		book, err := dbService.CreateBook(ctx, &models.Book{
			Name:            entry.name,
			Genre:           entry.genre,
			Price:           price,
			AvailableCopies: entry.copies,
			AuthorId:        author.Id,
		})
		if err != nil {
			zap.L().Error("Failed to create demo book",
				zap.String("book", entry.name),
				zap.Error(err))
			continue
		}

		created++
		fmt.Printf("  Created %q (%s copies: %d) for %s\n",
			book.Name, book.Price.String(), book.AvailableCopies, author.Fullname)
	}

	zap.L().Info("Demo catalog seeded", zap.Int("books", created))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the database")
	seedFlag := flag.Bool("seed", false, "Seed the demo catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *initFlag {
		runInit(ctx, dbService)
	}

	if *seedFlag {
		seedCatalog(ctx, dbService)
	}

	if !*initFlag && !*seedFlag {
		fmt.Println("Nothing to do. Use -init to create the schema, -seed to load the demo catalog.")
	}
}
