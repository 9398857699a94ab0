package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/content-coin/pkg/contentcoin/config"
	"github.com/tendant/content-coin/pkg/contentcoin/repo/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply catalog schema migrations",
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	dbType, err := cfg.DatabaseType()
	if err != nil || dbType != "postgres" {
		slog.Error("migrate needs a postgres DATABASE_URL", "database_type", dbType, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	pool, err := config.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")
}
