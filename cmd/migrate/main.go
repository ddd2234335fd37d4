package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/inventory/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
)

func main() {
	var (
		direction string
		steps     int
		dsn       string
	)

	flag.StringVar(&direction, "direction", "up", "migration direction: up|down|status")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: INVENTORY_POSTGRES_DSN)")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("INVENTORY_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("INVENTORY_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	summary, err := runMigration(ctx, store, direction, steps)
	if err != nil {
		fail("%v", err)
	}
	fmt.Println(summary)
}

// runMigration выполняет команду миграции и возвращает строку-итог.
func runMigration(ctx context.Context, store *postgres.Store, direction string, steps int) (string, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			return "", fmt.Errorf("migrate up failed: %w", err)
		}
		version, count, err := store.MigrationStatus(ctx)
		if err != nil {
			return "", fmt.Errorf("migration status failed: %w", err)
		}
		return fmt.Sprintf("migrate up ok: version=%d applied=%d", version, count), nil
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return "", fmt.Errorf("migrate down failed: %w", err)
		}
		version, count, err := store.MigrationStatus(ctx)
		if err != nil {
			return "", fmt.Errorf("migration status failed: %w", err)
		}
		return fmt.Sprintf("migrate down ok: version=%d applied=%d", version, count), nil
	case "status":
		version, count, err := store.MigrationStatus(ctx)
		if err != nil {
			return "", fmt.Errorf("migration status failed: %w", err)
		}
		return fmt.Sprintf("migration status: version=%d applied=%d", version, count), nil
	default:
		return "", fmt.Errorf("unsupported direction: %s (use up|down|status)", direction)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
