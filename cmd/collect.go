package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cardintel/cardintel/internal/search"
)

var collectAll bool

var collectCmd = &cobra.Command{
	Use:   "collect [card-id...]",
	Short: "Resolve prices for many cards and persist the history",
	Long:  "Resolves prices for the given card ids (or the whole bundled catalog with --all) with bounded concurrency, recording every successful resolution as a history row.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 && !collectAll {
			return fmt.Errorf("pass card ids or --all")
		}

		env, err := initApp(ctx, "collect")
		if err != nil {
			return err
		}
		defer env.Close()

		type target struct{ id, name string }
		var targets []target
		if collectAll {
			dict, err := search.LoadDictionary()
			if err != nil {
				return err
			}
			for _, c := range dict.Cards {
				targets = append(targets, target{id: c.ID, name: c.Name})
			}
		} else {
			for _, id := range args {
				targets = append(targets, target{id: id, name: id})
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Collect.MaxConcurrent)

		var resolved, missing int
		results := make(chan bool, len(targets))
		for _, tgt := range targets {
			g.Go(func() error {
				entry := env.Resolver.ResolvePrice(gctx, tgt.id, tgt.name)
				results <- entry != nil
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		close(results)
		for ok := range results {
			if ok {
				resolved++
			} else {
				missing++
			}
		}

		zap.L().Info("collection finished",
			zap.Int("resolved", resolved),
			zap.Int("missing", missing),
		)
		fmt.Printf("resolved %d/%d cards (%d without a price)\n",
			resolved, len(targets), missing)
		return nil
	},
}

func init() {
	collectCmd.Flags().BoolVar(&collectAll, "all", false, "collect every card in the bundled catalog")
	rootCmd.AddCommand(collectCmd)
}
