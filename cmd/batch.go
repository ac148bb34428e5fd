package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/pipeline"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run verification passes for every patient on the roster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		patients, err := env.Store.ListPatients(ctx)
		if err != nil {
			return err
		}

		return processBatch(ctx, patients, batchLimit, cfg.Batch.MaxConcurrentPatients, func(ctx context.Context, p model.Patient) (*pipeline.PassResult, error) {
			return env.Runner.Verify(ctx, p.ID)
		})
	},
}

type verifyFunc func(ctx context.Context, p model.Patient) (*pipeline.PassResult, error)

// processBatch applies limit, then verifies patients concurrently.
// Individual failures are logged and counted rather than aborting the
// batch; a carrier outage on one patient should not strand the rest.
func processBatch(ctx context.Context, patients []model.Patient, limit, concurrency int, verify verifyFunc) error {
	if len(patients) == 0 {
		zap.L().Info("no patients on roster")
		return nil
	}
	if limit > 0 && len(patients) > limit {
		patients = patients[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	start := time.Now()
	var succeeded, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, p := range patients {
		p := p
		g.Go(func() error {
			res, err := verify(ctx, p)
			if err != nil {
				failed.Add(1)
				zap.L().Error("batch verification failed",
					zap.String("patient_id", p.ID),
					zap.String("patient", p.DisplayName()),
					zap.Error(err),
				)
				// Stop only when the whole batch is being torn down.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}

			succeeded.Add(1)
			zap.L().Info("batch verification done",
				zap.String("patient_id", p.ID),
				zap.String("status", string(res.Status)),
				zap.Int("resolved", res.Resolved),
			)
			return nil
		})
	}

	err := g.Wait()
	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return err
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of patients to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
