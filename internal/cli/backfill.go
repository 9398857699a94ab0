package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var backfillBatch int

var backfillCmd = &cobra.Command{
	Use:   "backfill-types",
	Short: "Infer the content kind of coins catalogued without one",
	Run:   runBackfill,
}

func init() {
	backfillCmd.Flags().IntVar(&backfillBatch, "batch", 200, "coins read per page")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	services := mustServices(ctx)
	defer services.Close()

	n, err := services.Catalog.BackfillKinds(ctx, backfillBatch)
	if err != nil {
		slog.Error("Backfill stopped", "updated", n, "error", err)
		os.Exit(1)
	}
	slog.Info("Backfill complete", "updated", n)
}
