package bot

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vblocks.ai/internal/build/grid"
	"vblocks.ai/internal/build/occupancy"
	"vblocks.ai/internal/logging"
	"vblocks.ai/internal/world"
)

type SeedConfig struct {
	// Radius is how many query cells to scan in each direction around the spawn.
	Radius      int
	CellSpan    float64
	Concurrency int
	Tag         string
}

// Seed scans the query cells around spawn and records every tagged object in the index.
// A failed cell query is logged and skipped. It returns how many objects were recorded.
func Seed(ctx context.Context, q world.Querier, g grid.Grid, index *occupancy.Index, spawn mgl64.Vec3, cfg SeedConfig, log logrus.FieldLogger) (int, error) {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.CellSpan <= 0 {
		cfg.CellSpan = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Radius < 0 {
		cfg.Radius = 0
	}

	baseX := int(math.Floor(spawn[0] / cfg.CellSpan))
	baseZ := int(math.Floor(spawn[2] / cfg.CellSpan))

	var seeded, skipped atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Concurrency)
	for dx := -cfg.Radius; dx <= cfg.Radius; dx++ {
		for dz := -cfg.Radius; dz <= cfg.Radius; dz++ {
			cx, cz := baseX+dx, baseZ+dz
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				objs, err := q.QueryCell(ctx, cx, cz)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					skipped.Add(1)
					log.WithError(err).WithFields(logrus.Fields{"cx": cx, "cz": cz}).Warn("cell query failed, skipping")
					return nil
				}
				cells := make([]grid.Cell, 0, len(objs))
				for _, o := range objs {
					if o.Tag == cfg.Tag {
						cells = append(cells, g.CellOf(o.Position))
					}
				}
				index.Seed(cells)
				seeded.Add(int64(len(cells)))
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return int(seeded.Load()), err
	}
	log.WithFields(logrus.Fields{"objects": seeded.Load(), "skipped_cells": skipped.Load()}).Info("occupancy seeded")
	return int(seeded.Load()), nil
}
