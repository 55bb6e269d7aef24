package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSweepCommand repairs every drifted counter in one pass.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	var batch, concurrency int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Find counters that disagree with the ledger and recount them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.connect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer b.close()

			sweeper := b.sweeper
			if batch > 0 {
				sweeper.BatchSize = batch
			}
			if concurrency > 0 {
				sweeper.Concurrency = concurrency
			}

			report, err := sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			if err := write(cmd.OutOrStdout(), opts, report,
				fmt.Sprintf("drifted=%d repaired=%d failed=%d", report.Drifted, report.Repaired, report.Failed)); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d entities could not be reconciled", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "maximum entities to repair (default from SWEEP_BATCH_SIZE)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel reconciliations (default from SWEEP_CONCURRENCY)")
	return cmd
}
