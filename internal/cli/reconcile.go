package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

type reconcileOutput struct {
	Kind      string `json:"kind"`
	ID        int    `json:"id"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
}

// NewReconcileCommand recounts one entity's counters from the ledger.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "reconcile <post|comment> <id>",
		Short:   "Recount the votes of one post or comment",
		Args:    cobra.ExactArgs(2),
		Example: "  votectl reconcile post 42",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := votes.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(args[1])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[1])
			}

			b, err := opts.connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.close()

			ref := votes.EntityRef{Kind: kind, ID: id}
			counters, err := b.reconciler.Reconcile(cmd.Context(), ref)
			if err != nil {
				return err
			}
			out := reconcileOutput{Kind: string(kind), ID: id, Upvotes: counters.Upvotes, Downvotes: counters.Downvotes}
			return write(cmd.OutOrStdout(), opts, out,
				fmt.Sprintf("%s: upvotes=%d downvotes=%d", ref, counters.Upvotes, counters.Downvotes))
		},
	}
}
