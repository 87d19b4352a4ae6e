package main

import (
	"fmt"

	"secretheart/internal/bootstrap"
	"secretheart/internal/seed"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var (
		count    int
		maxLikes int
		maxDays  int
		rngSeed  int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake confessions into the configured store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			ctx := cmd.Context()

			rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipRedis: true})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			f := seed.NewFactory(rt.Repo, seed.Options{MaxDays: maxDays, MaxLikes: maxLikes, Seed: rngSeed})
			rows, err := f.Confessions(ctx, count)
			if err != nil {
				return err
			}
			cmd.Printf("seeded %d confessions into %s\n", len(rows), cfg.ConfessionsTable)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of confessions to insert")
	cmd.Flags().IntVar(&maxLikes, "max-likes", 50, "upper bound for random like counts")
	cmd.Flags().IntVar(&maxDays, "max-days", 30, "spread created_at over this many past days")
	cmd.Flags().Int64Var(&rngSeed, "seed", 0, "random seed, 0 for a random one")
	return cmd
}
