package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statsTop bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog totals",
	Run:   runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsTop, "creators", false, "also print the creator ranking")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	services := mustServices(ctx)
	defer services.Close()

	stats, err := services.Catalog.Stats(ctx)
	if err != nil {
		slog.Error("Failed to read catalog stats", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "COINS\tCREATORS")
	_, _ = fmt.Fprintf(w, "%d\t%d\n", stats.TotalCoins, stats.TotalCreators)
	_ = w.Flush()

	if !statsTop {
		return
	}

	ranked, err := services.Aggregator.RankCreators(ctx)
	if err != nil {
		slog.Error("Failed to rank creators", "error", err)
		os.Exit(1)
	}

	_, _ = fmt.Fprintln(os.Stdout)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tWALLET\tCOINS\tTOP MARKET CAP")
	for _, c := range ranked {
		top := "-"
		if len(c.Coins) > 0 && c.Coins[0].StatsAvailable {
			top = c.Coins[0].Live.MarketCap.StringFixed(2)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.Rank, c.Wallet, len(c.Coins), top)
	}
	_ = w.Flush()
}
