// Package cli implements votectl, the operator tool for the vote subsystem.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/reddit-clone/votes/internal/app"
	"github.com/emilythestrangee/reddit-clone/votes/internal/config"
	"github.com/emilythestrangee/reddit-clone/votes/internal/database"
	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// connect opens the backend; replaced in tests.
	connect func(ctx context.Context, opts *RootOptions) (*backend, error)
}

// backend is what the database-bound commands operate on.
type backend struct {
	reconciler votes.Reconciler
	sweeper    votes.Sweeper
	close      func() error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for votectl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{connect: connectDatabase})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "votectl",
		Short:         "Inspect and repair forum vote counters",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewScoreCommand(opts))

	return cmd
}

func (o *RootOptions) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func connectDatabase(ctx context.Context, opts *RootOptions) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}
	a := app.New(cfg, db.GetDB(), opts.logger())
	return &backend{
		reconciler: a.Votes.Reconciler,
		sweeper:    a.Sweeper,
		close:      db.Close,
	}, nil
}
