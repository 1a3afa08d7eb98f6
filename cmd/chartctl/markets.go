package main

import (
	"github.com/spf13/cobra"

	"crypto_backend/internal/app/di"
	"crypto_backend/internal/feature/markets/domain/entity"
	"crypto_backend/internal/feature/markets/transport/handler"
)

var page int

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Print one page of the market listing as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMarkets(cmd, func(uc marketsUsecase) ([]entity.Coin, error) {
			return uc.ListPage(cmd.Context(), page)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search coins by name or symbol and print the matches as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMarkets(cmd, func(uc marketsUsecase) ([]entity.Coin, error) {
			return uc.Search(cmd.Context(), args[0])
		})
	},
}

type marketsUsecase = handler.MarketsUsecase

func runMarkets(cmd *cobra.Command, call func(uc marketsUsecase) ([]entity.Coin, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := di.NewHTTPClient(cfg)
	if err != nil {
		return err
	}
	coins, err := call(di.NewMarketsUsecase(cfg, client))
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), handler.ToCoinItems(coins))
}

func init() {
	marketsCmd.Flags().IntVarP(&page, "page", "p", 1, "listing page, starting at 1")
	rootCmd.AddCommand(marketsCmd, searchCmd)
}
