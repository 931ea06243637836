package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "indicatord",
		Short: "chart indicator overlay service",
		Long: "indicatord computes MACD, RSI, Bollinger Bands and moving averages over\n" +
			"closing prices, either as an HTTP/WebSocket service (serve) or one-shot (calc).",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file (default ./configs/config.yaml or ./config.yaml)")

	root.AddCommand(newServeCmd(), newCalcCmd())
	return root
}
