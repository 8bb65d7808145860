// Package main provides the titaninfer CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "titaninfer",
		Short: "TitanInfer - CPU-only neural network inference engine",
		Long: `titaninfer loads a compiled TITN model file and runs inference
against it: single-shot prediction, a batching HTTP server, or a latency
benchmark.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("titaninfer v%s\n", version)
		},
	})

	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newBenchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
