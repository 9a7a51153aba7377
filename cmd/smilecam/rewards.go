package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/swdee/go-smilecam/ledger"
)

var rewardsCmd = &cobra.Command{
	Use:   "rewards",
	Short: "Print the reward history from the ledger",
	RunE:  runRewards,
}

func init() {
	rootCmd.AddCommand(rewardsCmd)

	rewardsCmd.Flags().IntP("limit", "n", 20, "Number of rows to print")
	rewardsCmd.Flags().Bool("leaderboard", false, "Print reward counts per identity instead of recent rewards")
}

func runRewards(cmd *cobra.Command, args []string) error {

	cfg, log, err := loadRuntime()

	if err != nil {
		return err
	}

	defer log.Sync()

	if cfg.Ledger.Path == "" {
		return errors.New("no ledger configured, set ledger.path or SMILECAM_LEDGER")
	}

	book, err := ledger.Open(cfg.Ledger.Path, log.Named("ledger"))

	if err != nil {
		return err
	}

	defer book.Close()

	ctx := context.Background()
	limit := mustGetInt(cmd, "limit")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if mustGetBool(cmd, "leaderboard") {
		board, err := book.Leaderboard(ctx, limit)

		if err != nil {
			return err
		}

		fmt.Fprintln(w, "FACE\tREWARDS\tLAST REWARD\tSESSION")

		for _, s := range board {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.FaceID, s.Rewards,
				s.LastReward.Format(time.DateTime), s.SessionID)
		}

		return w.Flush()
	}

	rewards, err := book.RecentRewards(ctx, limit)

	if err != nil {
		return err
	}

	fmt.Fprintln(w, "TIME\tFACE\tPOINTS\tMESSAGE")

	for _, r := range rewards {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Time.Format(time.DateTime),
			r.FaceID, r.Points, r.Message)
	}

	return w.Flush()
}
