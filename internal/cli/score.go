package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/votes/internal/ranking"
)

type scoreOutput struct {
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	AgeSecs   float64 `json:"age_seconds"`
	Score     float64 `json:"score"`
}

// NewScoreCommand evaluates the rank score for given counters and age.
func NewScoreCommand(opts *RootOptions) *cobra.Command {
	var up, down int
	var age time.Duration

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the hot rank score for a vote tally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if up < 0 || down < 0 {
				return fmt.Errorf("vote counts must be non-negative")
			}
			now := time.Now()
			score := ranking.Score(up, down, now.Add(-age), now)
			out := scoreOutput{Upvotes: up, Downvotes: down, AgeSecs: age.Seconds(), Score: score}
			return write(cmd.OutOrStdout(), opts, out, fmt.Sprintf("%.4f", score))
		},
	}

	cmd.Flags().IntVar(&up, "up", 0, "upvotes")
	cmd.Flags().IntVar(&down, "down", 0, "downvotes")
	cmd.Flags().DurationVar(&age, "age", 0, "time since creation (e.g. 90m)")
	return cmd
}
