// Package persist writes the map's surface and corner point buffers to
// disk as flat binary point clouds on shutdown, grounded on
// original_source/src/laserMapping.cpp's save-to-PCD-on-exit path.
package persist

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/lio-mapping/internal/voxelgrid"
)

// WriteCloud writes points as a sequence of little-endian
// (X, Y, Z, Intensity float32) records.
func WriteCloud(path string, points []voxelgrid.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: create %s: %w", path, err)
	}
	defer f.Close()

	for _, p := range points {
		if err := binary.Write(f, binary.LittleEndian, p); err != nil {
			return fmt.Errorf("persist: write point to %s: %w", path, err)
		}
	}
	return nil
}

// SaveOnShutdown writes the surface buffer to basePath and the corner
// buffer to basePath+"_corner", but only when both buffers hold at
// least one point — otherwise persistence is skipped entirely (the
// original's shutdown guard: an incomplete pair is not written).
func SaveOnShutdown(basePath string, surface, corner []voxelgrid.Point) error {
	if len(surface) == 0 || len(corner) == 0 {
		return nil
	}
	if err := WriteCloud(basePath, surface); err != nil {
		return err
	}
	return WriteCloud(basePath+"_corner", corner)
}
