package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/titaninfer/internal/config"
	"github.com/itohio/titaninfer/internal/logging"
	"github.com/itohio/titaninfer/pkg/core/concurrency/batch"
	"github.com/itohio/titaninfer/pkg/core/handle"
	"github.com/itohio/titaninfer/pkg/core/tensor"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a model behind a batching HTTP endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			level, err := cfg.ParseLogLevel()
			if err != nil {
				return err
			}
			logger := logging.New(level, cmd.OutOrStdout())

			h, err := handle.NewBuilder().
				WithPath(cfg.ModelPath).
				WithProfiling(cfg.EnableProfiling).
				WithWarmupRuns(cfg.WarmupRuns).
				WithLogLevel(level).
				Build()
			if err != nil {
				return err
			}

			b := batch.New(batch.Config{
				MaxBatchSize: cfg.Batcher.MaxBatchSize,
				MaxWait:      time.Duration(cfg.Batcher.MaxWaitMs) * time.Millisecond,
			}, batchedPredict(h))
			defer b.Stop()

			mux := http.NewServeMux()
			mux.HandleFunc("/predict", predictHandler(b))
			mux.HandleFunc("/healthz", healthzHandler(h))

			logger.Infof("serving %s on %s", cfg.ModelPath, addr)
			return http.ListenAndServe(addr, mux)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a ServeConfig YAML file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// batchedPredict adapts handle.Model.Predict to batch.PredictFunc's
// rank-2 (batch,features) signature by delegating straight to PredictBatch
// row by row, since handle.Model already owns the mutex that makes
// concurrent batcher-driven calls safe.
func batchedPredict(h *handle.Model) batch.PredictFunc {
	return func(stacked tensor.Tensor) (tensor.Tensor, error) {
		rows := stacked.Shape()[0]
		cols := stacked.Shape()[1]
		inputs := make([]tensor.Tensor, rows)
		data := stacked.Data()
		for i := range inputs {
			row, err := tensor.FromSlice(tensor.NewShape(cols), data[i*cols:(i+1)*cols])
			if err != nil {
				return tensor.Tensor{}, err
			}
			inputs[i] = row
		}
		results, err := h.PredictBatch(inputs)
		if err != nil {
			return tensor.Tensor{}, err
		}
		outCols := results[0].Size()
		out, err := tensor.New(tensor.NewShape(rows, outCols))
		if err != nil {
			return tensor.Tensor{}, err
		}
		for i, r := range results {
			copy(out.Data()[i*outCols:(i+1)*outCols], r.Data())
		}
		return out, nil
	}
}

func predictHandler(b *batch.Batcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var values []float32
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in, err := tensor.FromSlice(tensor.NewShape(len(values)), values)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		out, err := b.Predict(ctx, in)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out.Data())
	}
}

func healthzHandler(h *handle.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.IsLoaded() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "ok, %d layers\n", h.LayerCount())
	}
}
