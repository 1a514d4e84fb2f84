package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jfmyers9/scrobbleloop/internal/config"
	"github.com/jfmyers9/scrobbleloop/internal/ledger"
	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent submissions recorded by the service",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0=all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	book, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() { _ = book.Close() }()

	entries, err := book.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No submissions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tUSER\tARTIST\tTRACK\tRESULT")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.Username,
			e.Artist,
			e.Track,
			describeEntry(e),
		)
	}
	return w.Flush()
}

// describeEntry renders the outcome column of the history table.
func describeEntry(e ledger.Entry) string {
	if e.Accepted {
		return "accepted"
	}
	if e.ErrorCode != 0 {
		return fmt.Sprintf("not accepted (%d: %s)", e.ErrorCode, e.Message)
	}
	return "not accepted"
}
