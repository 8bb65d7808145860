package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/titaninfer/pkg/core/handle"
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <model-path>",
		Short: "Validate a model file and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := handle.Open(args[0])
			if err != nil {
				return err
			}
			fmt.Println(h.Summary())
			return nil
		},
	}
	return cmd
}
