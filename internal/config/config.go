// Package config enumerates the runtime-configurable surface of the
// mapping core (spec §6 "Configuration"), in the style of the
// arx-os-arxos reference's DefaultProcessingParams() constructor.
package config

// Config holds the knobs exposed to operators; everything else (K, M,
// T_init, sigma^2) is a fixed constant owned by internal/filter and
// internal/match, not user-tunable.
type Config struct {
	// DenseMapEnable publishes the raw input cloud instead of the
	// downsampled one on the registered-cloud output.
	DenseMapEnable bool
	// MapFilePath is the base path for the shutdown point-cloud dump;
	// internal/persist appends "_corner" for the corner buffer.
	MapFilePath string

	// FilterSizeCorner is documented as unused in the surface-only
	// build; carried through for parity with the original's corner
	// passthrough (see cubemap.Grid.IngestCorner).
	FilterSizeCorner float32
	FilterSizeSurf   float32
	FilterSizeMap    float32
	CubeSideLength   float32

	GridWidth, GridHeight, GridDepth int

	// SensorRange is L_s, the on-axis point distance used by the FOV cull.
	SensorRange float32

	// Verbose enables the per-frame pre-integration/posterior debug log
	// lines.
	Verbose bool
}

// DefaultConfig returns the values used by the original implementation.
func DefaultConfig() Config {
	return Config{
		DenseMapEnable:   false,
		MapFilePath:      "./lio_map",
		FilterSizeCorner: 0.2,
		FilterSizeSurf:   0.4,
		FilterSizeMap:    0.5,
		CubeSideLength:   50.0,
		GridWidth:        21,
		GridHeight:       11,
		GridDepth:        21,
		SensorRange:      100.0,
		Verbose:          false,
	}
}
