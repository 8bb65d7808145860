package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/titaninfer/pkg/core/handle"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func newPredictCmd() *cobra.Command {
	var inputJSON string
	var profile bool

	cmd := &cobra.Command{
		Use:   "predict <model-path>",
		Short: "Run one prediction: a JSON float array in, a JSON float array out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var values []float32
			if err := json.Unmarshal([]byte(inputJSON), &values); err != nil {
				return fmt.Errorf("titaninfer predict: invalid --input JSON: %w", err)
			}

			h, err := handle.NewBuilder().WithPath(args[0]).WithProfiling(profile).Build()
			if err != nil {
				return err
			}

			in, err := tensor.FromSlice(h.ExpectedInputShape(), values)
			if err != nil {
				return fmt.Errorf("titaninfer predict: %w", err)
			}
			out, err := h.Predict(in)
			if err != nil {
				return err
			}

			encoded, err := json.Marshal(out.Data())
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
	cmd.Flags().StringVar(&inputJSON, "input", "[]", "input values as a JSON float array")
	cmd.Flags().BoolVar(&profile, "profile", false, "enable latency profiling")
	return cmd
}
