package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"RebarForecast/internal/dataset"
	"RebarForecast/internal/forecast"
	"RebarForecast/internal/notifier"
)

func newForecastCmd() *cobra.Command {
	var (
		start   string
		periods int
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print a weekly forecast",
		Long:  "Print a weekly forecast starting after --start, or after the last known date when --start is omitted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(false)
			if err != nil {
				return err
			}
			defer a.Close()

			from := a.service.LastDate()
			if start != "" {
				if from, err = dataset.ParseDate(start); err != nil {
					return fmt.Errorf("parse --start: %w", err)
				}
			}
			if periods == 0 {
				periods = a.service.Settings().AutoPeriods
			}

			series, err := a.service.Forecast(forecast.SourceCLI, from, periods)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "date\tweek\tprice")
			for _, p := range series {
				_, week := p.Date.ISOWeek()
				fmt.Fprintf(w, "%s\t%d\t%s\n", p.Date.Format(notifier.DateLayout), week, notifier.FormatPrice(p.PredictedPrice))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD or DD.MM.YYYY)")
	cmd.Flags().IntVar(&periods, "periods", 0, "number of weeks (default forecast.auto_periods)")
	return cmd
}
