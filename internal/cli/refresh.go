package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var refreshLimit int

var refreshCmd = &cobra.Command{
	Use:   "refresh-trading",
	Short: "Store current market figures for catalogued coins",
	Run:   runRefresh,
}

func init() {
	refreshCmd.Flags().IntVar(&refreshLimit, "limit", 0, "maximum coins to refresh, 0 for all")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	services := mustServices(ctx)
	defer services.Close()

	n, err := services.Catalog.RefreshTrading(ctx, services.Stats, refreshLimit)
	if err != nil {
		slog.Error("Refresh stopped", "updated", n, "error", err)
		os.Exit(1)
	}
	slog.Info("Refresh complete", "updated", n)
}
