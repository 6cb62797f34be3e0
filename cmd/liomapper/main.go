package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ZanzyTHEbar/lio-mapping/internal/config"
	"github.com/ZanzyTHEbar/lio-mapping/internal/core"
	"github.com/ZanzyTHEbar/lio-mapping/internal/filter"
)

func main() {
	cfg := config.DefaultConfig()

	var filterSizeCorner, filterSizeSurf, filterSizeMap, cubeSideLength, sensorRange float64
	filterSizeCorner = float64(cfg.FilterSizeCorner)
	filterSizeSurf = float64(cfg.FilterSizeSurf)
	filterSizeMap = float64(cfg.FilterSizeMap)
	cubeSideLength = float64(cfg.CubeSideLength)
	sensorRange = float64(cfg.SensorRange)

	flag.BoolVar(&cfg.DenseMapEnable, "dense_map_enable", cfg.DenseMapEnable, "publish the raw input cloud instead of the downsampled one")
	flag.StringVar(&cfg.MapFilePath, "map_file_path", cfg.MapFilePath, "base path for the shutdown point-cloud dump")
	flag.Float64Var(&filterSizeCorner, "filter_size_corner", filterSizeCorner, "corner feature leaf size (unused in the surface-only build)")
	flag.Float64Var(&filterSizeSurf, "filter_size_surf", filterSizeSurf, "surface feature leaf size")
	flag.Float64Var(&filterSizeMap, "filter_size_map", filterSizeMap, "submap leaf size")
	flag.Float64Var(&cubeSideLength, "cube_side_length", cubeSideLength, "cube map voxel side length")
	flag.Float64Var(&sensorRange, "sensor_range", sensorRange, "on-axis sensor range used for FOV culling")
	anchorRotation := flag.Bool("anchor_rotation", false, "anchor rotation in the init-path update instead of reproducing the upstream overwrite")
	verbose := flag.Bool("v", cfg.Verbose, "enable per-frame debug logging")
	flag.Parse()

	cfg.FilterSizeCorner = float32(filterSizeCorner)
	cfg.FilterSizeSurf = float32(filterSizeSurf)
	cfg.FilterSizeMap = float32(filterSizeMap)
	cfg.CubeSideLength = float32(cubeSideLength)
	cfg.SensorRange = float32(sensorRange)
	cfg.Verbose = *verbose

	initOpts := filter.InitOptions{AnchorRotation: *anchorRotation}
	mapper := core.New(cfg, r3.Vec{}, initOpts)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("liomapper: shutdown signal received")
		cancel()
	}()

	log.Println("liomapper: mapping core is running...")
	mapper.Run(ctx, func(f core.Frame) {
		if cfg.Verbose {
			log.Printf("liomapper: frame published, converged=%v iterations=%d", f.Converged, f.Iterations)
		}
	})

	if err := mapper.Shutdown(); err != nil {
		log.Fatalf("liomapper: shutdown persistence failed: %v", err)
	}
}
