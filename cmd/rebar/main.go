package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "rebar",
		Short:         "Rebar price forecasting service",
		Long:          "Forecasts weekly armature prices from historical data and serves them over Telegram, HTTP and the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")

	rootCmd.AddCommand(newRunCmd(), newTrainCmd(), newForecastCmd(), newRecommendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
