package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/titaninfer/pkg/core/handle"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func newBenchCmd() *cobra.Command {
	var runs int
	var warmup int

	cmd := &cobra.Command{
		Use:   "bench <model-path>",
		Short: "Warm up and report latency statistics over n zero-input predictions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := handle.NewBuilder().
				WithPath(args[0]).
				WithProfiling(true).
				WithWarmupRuns(warmup).
				Build()
			if err != nil {
				return err
			}

			in := tensor.MustNew(h.ExpectedInputShape())
			for i := 0; i < runs; i++ {
				if _, err := h.Predict(in); err != nil {
					return err
				}
			}

			stats := h.Stats()
			fmt.Printf("runs=%d mean=%s min=%s max=%s\n",
				stats.Count,
				time.Duration(int64(stats.MeanNanos())),
				time.Duration(stats.MinNanos),
				time.Duration(stats.MaxNanos))
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 100, "number of timed prediction runs")
	cmd.Flags().IntVar(&warmup, "warmup", 10, "number of untimed warmup runs before timing starts")
	return cmd
}
