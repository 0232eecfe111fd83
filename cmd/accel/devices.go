package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/quantforge/accel-node/internal/config"
	"github.com/quantforge/accel-node/internal/device"
	"github.com/quantforge/accel-node/internal/worker"
)

func devicesCommand(cfg **config.Config, log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "devices",
		Usage: "Scan accelerators and print the scored device inventory",
		Action: func(c *cli.Context) error {
			devices, err := device.Scan(device.DefaultProbes(*log), *log)
			if err != nil {
				return err
			}
			pool, err := worker.NewPool(devices, *log)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("%-40s %-14s %12s %8s\n", "NAME", "KIND", "MEMORY", "SCORE")
			for _, e := range pool.Inventory() {
				fmt.Printf("%-40s %-14s %9d MiB %8d\n",
					e.Name, e.Kind, e.MemoryBytes>>20, e.Score)
			}
			fmt.Printf("\n%d active device(s), %d MiB total capacity\n",
				pool.ActiveDeviceCount(), pool.TotalCapacityMemory()>>20)
			return nil
		},
	}
}
