package session

// Limits are hard caps checked before an operation mutates anything.
type Limits struct {
	MaxRegionTiles int `mapstructure:"max_region_tiles"`
	MaxGenerateDim int `mapstructure:"max_generate_dim"`
	MaxFillTiles   int `mapstructure:"max_fill_tiles"`
	MaxBrushSize   int `mapstructure:"max_brush_size"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxRegionTiles: 10000,
		MaxGenerateDim: 256,
		MaxFillTiles:   10000,
		MaxBrushSize:   16,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxRegionTiles <= 0 {
		l.MaxRegionTiles = d.MaxRegionTiles
	}
	if l.MaxGenerateDim <= 0 {
		l.MaxGenerateDim = d.MaxGenerateDim
	}
	if l.MaxFillTiles <= 0 {
		l.MaxFillTiles = d.MaxFillTiles
	}
	if l.MaxBrushSize <= 0 {
		l.MaxBrushSize = d.MaxBrushSize
	}
	return l
}
