package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cardintel/cardintel/internal/model"
	"github.com/cardintel/cardintel/internal/resilience"
	"github.com/cardintel/cardintel/pkg/tcgapi"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Manage the card set dictionary",
}

var setsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the set dictionary from the Pokemon TCG API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "sync")
		if err != nil {
			return err
		}
		defer env.Close()

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.OnRetry = func(attempt int, err error) {
			zap.L().Warn("retrying set listing",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		apiSets, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]tcgapi.Set, error) {
			return env.Client.Sets(ctx)
		})
		if err != nil {
			return err
		}

		sets := make([]model.Set, len(apiSets))
		for i, s := range apiSets {
			sets[i] = model.Set{
				ID:          s.ID,
				Name:        s.Name,
				Series:      s.Series,
				Total:       s.Total,
				ReleaseDate: s.ReleaseDate,
			}
		}

		n, err := env.Store.UpsertSets(ctx, sets)
		if err != nil {
			return err
		}

		zap.L().Info("set dictionary synced", zap.Int64("sets", n))
		fmt.Printf("synced %d sets\n", n)
		return nil
	},
}

var setsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known card sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "price")
		if err != nil {
			return err
		}
		defer env.Close()

		sets, err := env.Store.ListSets(ctx)
		if err != nil {
			return err
		}

		for _, s := range sets {
			fmt.Printf("%-10s %-24s %-18s %4d cards  %s\n",
				s.ID, s.Name, s.Series, s.Total, s.ReleaseDate)
		}
		fmt.Printf("%d sets\n", len(sets))
		return nil
	},
}

func init() {
	setsCmd.AddCommand(setsSyncCmd)
	setsCmd.AddCommand(setsListCmd)
	rootCmd.AddCommand(setsCmd)
}
