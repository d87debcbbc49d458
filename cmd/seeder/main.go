// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ammerola/stockledger/internal/adapters/db"
	"github.com/ammerola/stockledger/internal/core/domain"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/pkg/logger"
)

// itemSaver is the part of the item store the seeder writes through
type itemSaver interface {
	SaveItem(ctx context.Context, item domain.Item) error
}

func main() {
	var (
		catalogue = flag.String("file", "", "Catalogue file (.xlsx or .json); the demo catalogue is used when empty")
		logLevel  = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun    = flag.Bool("dry-run", false, "Preview items without writing to the database")
	)
	flag.Parse()

	slogger := logger.SetupLogger(*logLevel, "json")

	items := demoCatalogue()
	if *catalogue != "" {
		var err error
		items, err = loadCatalogue(*catalogue)
		if err != nil {
			slogger.Error("failed to load catalogue", slog.String("file", *catalogue), slog.String("error", err.Error()))
			os.Exit(1)
		}
	}
	slogger.Info("catalogue loaded", slog.Int("items", len(items)))

	if *dryRun {
		for _, item := range items {
			fmt.Printf("%-24s %-32s qty=%d status=%s\n", item.ID, item.Name, item.QuantityOnHand, item.Status())
		}
		fmt.Println("\n[DRY RUN] No changes were made to the database")
		return
	}

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	dbConfig := &db.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Database:       cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: 2,
		MinConnections: 1,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}
	database, err := db.NewDatabase(ctx, dbConfig, slogger)
	if err != nil {
		slogger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{DatabaseURL: dbConfig.URL()}, slogger, 3); err != nil {
		slogger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := db.NewItemStore(database, cfg.Database.LockTimeout, slogger)
	saved, failed := seedItems(ctx, store, items, slogger)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Items saved:  %d\n", saved)
	fmt.Printf("Items failed: %d\n", len(failed))
	for _, id := range failed {
		fmt.Printf("  - %s\n", id)
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}

// seedItems saves every item. Existing items keep their quantity; only
// descriptive fields and thresholds are refreshed.
func seedItems(ctx context.Context, store itemSaver, items []domain.Item, logger *slog.Logger) (int, []string) {
	saved := 0
	var failed []string
	for _, item := range items {
		if err := store.SaveItem(ctx, item); err != nil {
			logger.Error("failed to save item",
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()))
			failed = append(failed, item.ID)
			continue
		}
		saved++
	}

	logger.Info("seed operation completed",
		slog.Int("saved", saved),
		slog.Int("failed", len(failed)))
	return saved, failed
}
