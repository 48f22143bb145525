package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var priceName string

var priceCmd = &cobra.Command{
	Use:   "price <card-id>",
	Short: "Resolve the current price for one card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx, "price")
		if err != nil {
			return err
		}
		defer env.Close()

		cardID := args[0]
		name := priceName
		if name == "" {
			name = cardID
		}

		entry := env.Resolver.ResolvePrice(ctx, cardID, name)
		if entry == nil {
			fmt.Printf("%s: price unavailable\n", cardID)
			return nil
		}

		fmt.Printf("%s (%s): £%.2f [%s, %s]\n",
			name, cardID, entry.Price, entry.Source, entry.Confidence)

		stats := env.Resolver.Stats()
		zap.L().Debug("resolver stats after lookup",
			zap.Int("cache_size", stats.CacheSize),
			zap.Float64("health", stats.HealthScore),
		)
		return nil
	},
}

func init() {
	priceCmd.Flags().StringVar(&priceName, "name", "", "card display name sent upstream (default: the card id)")
	rootCmd.AddCommand(priceCmd)
}
