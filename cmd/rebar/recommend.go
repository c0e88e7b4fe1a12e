package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"RebarForecast/internal/dataset"
	"RebarForecast/internal/forecast"
	"RebarForecast/internal/notifier"
)

func newRecommendCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print the forecast nearest to a date with purchasing advice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date == "" {
				return errors.New("--date is required")
			}
			query, err := dataset.ParseDate(date)
			if err != nil {
				return fmt.Errorf("parse --date: %w", err)
			}

			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.service.Recommend(forecast.SourceCLI, query)
			if err != nil {
				return err
			}
			fmt.Printf("query:     %s\n", rec.Query.Format(notifier.DateLayout))
			fmt.Printf("nearest:   %s\n", rec.Point.Date.Format(notifier.DateLayout))
			fmt.Printf("price:     %s\n", notifier.FormatPrice(rec.Point.PredictedPrice))
			fmt.Printf("change:    %+.1f%%\n", rec.Advice.ChangePct)
			fmt.Printf("advice:    %s %s\n", rec.Advice.Tier.Emoji, rec.Advice.Tier.Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "query date (YYYY-MM-DD or DD.MM.YYYY)")
	return cmd
}
