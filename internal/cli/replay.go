package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	replayLimit int
	replayDelay time.Duration
)

var replayCmd = &cobra.Command{
	Use:   "replay-notifications",
	Short: "Re-announce catalogued coins on the notification channel",
	Run:   runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&replayLimit, "limit", 0, "maximum coins to announce, 0 for all")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", time.Second, "pause between announcements")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) {
	ctx, cancel := signalContext()
	defer cancel()

	services := mustServices(ctx)
	defer services.Close()

	if services.Broadcaster == nil {
		slog.Warn("Notifications are disabled, events will only be logged")
	}

	sent, err := services.Catalog.ReplayNewCoinEvents(ctx, replayLimit, replayDelay)
	if err != nil {
		slog.Error("Replay stopped", "sent", sent, "error", err)
		os.Exit(1)
	}
	slog.Info("Replay complete", "sent", sent)
}
