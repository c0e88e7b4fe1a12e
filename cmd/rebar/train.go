package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newTrainCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Load the cached model or fit a new one and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(force)
			if err != nil {
				return err
			}
			defer a.Close()

			r := a.report
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "run id\t%s\n", r.RunID)
			fmt.Fprintf(w, "kind\t%s\n", r.Kind)
			fmt.Fprintf(w, "from cache\t%t\n", r.FromCache)
			fmt.Fprintf(w, "train size\t%d\n", r.TrainSize)
			fmt.Fprintf(w, "validation size\t%d\n", r.ValidationSize)
			fmt.Fprintf(w, "validation MAE\t%.2f\n", r.MAE)
			fmt.Fprintf(w, "duration\t%s\n", r.Duration.Round(time.Millisecond))
			fmt.Fprintf(w, "artifact\t%s\n", r.ArtifactPath)
			if err := w.Flush(); err != nil {
				return err
			}

			runs, err := a.recorder.RecentTrainings(5)
			if err != nil || len(runs) == 0 {
				return err
			}
			fmt.Println("\nrecent runs:")
			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\tcache=%t\tmae=%.2f\n", run.RunID, run.Kind, run.FromCache, run.MAE)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the cached artifact and retrain")
	return cmd
}
