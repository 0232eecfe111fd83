package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/quantforge/accel-node/internal/config"
	"github.com/quantforge/accel-node/internal/device"
	"github.com/quantforge/accel-node/internal/orchestrator"
	"github.com/quantforge/accel-node/internal/profile"
	"github.com/quantforge/accel-node/internal/worker"
)

const demoSeriesLength = 256

// demoKernel is a stand-in screening computation: per item it synthesizes a
// deterministic price series and returns the z-score of its last tick.
func demoKernel(ctx context.Context, _ device.Context, rng orchestrator.Range) ([]float64, error) {
	out := make([]float64, rng.Count)
	series := make([]float64, demoSeriesLength)
	for i := 0; i < rng.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := rand.New(rand.NewSource(int64(rng.Start + i)))
		price := 100.0
		for j := range series {
			price += r.NormFloat64()
			series[j] = price
		}
		mean, std := stat.MeanStdDev(series, nil)
		if std == 0 {
			out[i] = 0
			continue
		}
		out[i] = (series[len(series)-1] - mean) / std
	}
	return out, nil
}

func runCommand(cfg **config.Config, log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a synthetic workload through the orchestrator",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "items",
				Value: 10000,
				Usage: "Number of items to process",
			},
			&cli.StringFlag{
				Name:  "workload",
				Value: profile.WorkloadScreening,
				Usage: "Workload type to schedule as",
			},
		},
		Action: func(c *cli.Context) error {
			devices, err := device.Scan(device.DefaultProbes(*log), *log)
			if err != nil {
				return err
			}
			pool, err := worker.NewPool(devices, *log)
			if err != nil {
				return err
			}
			profiles, err := profile.NewRegistry((*cfg).Profiles, *log)
			if err != nil {
				return err
			}
			orch := orchestrator.New(pool, profiles, *cfg, *log)
			defer orch.Close()

			items := c.Int("items")
			workloadType := c.String("workload")
			start := time.Now()
			res, err := orchestrator.Execute(c.Context, orch, items, workloadType, demoKernel)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			(*log).Info("workload complete",
				zap.String("workloadType", workloadType),
				zap.Int("items", items),
				zap.String("strategy", res.Strategy.String()),
				zap.Int("failedRanges", len(res.FailedRanges)),
				zap.Bool("cancelled", res.Cancelled),
				zap.Duration("elapsed", elapsed))

			fmt.Printf("strategy=%s items=%d elapsed=%s\n", res.Strategy, items, elapsed)
			if n := len(res.Values); n > 0 {
				fmt.Printf("first=%.4f last=%.4f\n", res.Values[0], res.Values[n-1])
			}
			return nil
		},
	}
}
