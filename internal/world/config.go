package world

import "strings"

const (
	DefaultSeed   = "nebulous"
	DefaultWidth  = 5000.0
	DefaultHeight = 5000.0

	DefaultFoodCount         = 1000
	DefaultMaxCellsPerPlayer = 16

	// NoFood disables ambient food. Any negative FoodCount normalizes to it.
	NoFood = -1

	DefaultStartRadius = 20.0
	DefaultFoodRadius  = 5.0

	DefaultSplitMinRadius = 20.0
	DefaultSplitSpeed     = 20.0

	DefaultEjectMinRadius = 15.0
	DefaultEjectRadius    = 8.0
	DefaultEjectSpeed     = 30.0

	DefaultBaseSpeed          = 5.0
	DefaultMinSpeed           = 2.5
	DefaultSpeedRadiusDivisor = 10.0
	DefaultAcceleration       = 0.1
	DefaultMoveEpsilon        = 1.0
	DefaultCellFriction       = 0.9
	DefaultFoodFriction       = 0.95

	DefaultAbsorbRatio = 1.1
	DefaultMergeChance = 0.01
)

// Config holds the world dimensions and every gameplay tunable. Zero values
// fall back to the defaults above.
type Config struct {
	Seed      string  `json:"seed"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	FoodCount int     `json:"foodCount"`
	MaxCells  int     `json:"maxCells"`

	StartRadius float64 `json:"startRadius"`
	FoodRadius  float64 `json:"foodRadius"`

	SplitMinRadius float64 `json:"splitMinRadius"`
	SplitSpeed     float64 `json:"splitSpeed"`

	EjectMinRadius float64 `json:"ejectMinRadius"`
	EjectRadius    float64 `json:"ejectRadius"`
	EjectSpeed     float64 `json:"ejectSpeed"`

	BaseSpeed          float64 `json:"baseSpeed"`
	MinSpeed           float64 `json:"minSpeed"`
	SpeedRadiusDivisor float64 `json:"speedRadiusDivisor"`
	Acceleration       float64 `json:"acceleration"`
	MoveEpsilon        float64 `json:"moveEpsilon"`
	CellFriction       float64 `json:"cellFriction"`
	FoodFriction       float64 `json:"foodFriction"`

	AbsorbRatio float64 `json:"absorbRatio"`
	MergeChance float64 `json:"mergeChance"`
}

func (cfg Config) normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.Width <= 0 {
		normalized.Width = DefaultWidth
	}
	if normalized.Height <= 0 {
		normalized.Height = DefaultHeight
	}
	if normalized.FoodCount < 0 {
		normalized.FoodCount = NoFood
	} else if normalized.FoodCount == 0 {
		normalized.FoodCount = DefaultFoodCount
	}
	if normalized.MaxCells <= 0 {
		normalized.MaxCells = DefaultMaxCellsPerPlayer
	}

	positive := func(value *float64, fallback float64) {
		if *value <= 0 {
			*value = fallback
		}
	}
	positive(&normalized.StartRadius, DefaultStartRadius)
	positive(&normalized.FoodRadius, DefaultFoodRadius)
	positive(&normalized.SplitMinRadius, DefaultSplitMinRadius)
	positive(&normalized.SplitSpeed, DefaultSplitSpeed)
	positive(&normalized.EjectMinRadius, DefaultEjectMinRadius)
	positive(&normalized.EjectRadius, DefaultEjectRadius)
	positive(&normalized.EjectSpeed, DefaultEjectSpeed)
	positive(&normalized.BaseSpeed, DefaultBaseSpeed)
	positive(&normalized.MinSpeed, DefaultMinSpeed)
	positive(&normalized.SpeedRadiusDivisor, DefaultSpeedRadiusDivisor)
	positive(&normalized.Acceleration, DefaultAcceleration)
	positive(&normalized.MoveEpsilon, DefaultMoveEpsilon)
	positive(&normalized.AbsorbRatio, DefaultAbsorbRatio)

	if normalized.CellFriction <= 0 || normalized.CellFriction > 1 {
		normalized.CellFriction = DefaultCellFriction
	}
	if normalized.FoodFriction <= 0 || normalized.FoodFriction > 1 {
		normalized.FoodFriction = DefaultFoodFriction
	}
	if normalized.MergeChance <= 0 || normalized.MergeChance > 1 {
		normalized.MergeChance = DefaultMergeChance
	}

	// A cell must never eject itself out of existence.
	if normalized.EjectMinRadius < normalized.EjectRadius {
		normalized.EjectMinRadius = normalized.EjectRadius
	}

	// Keep a fresh cell placeable inside the bounds.
	maxStart := min(normalized.Width, normalized.Height) / 2
	if normalized.StartRadius > maxStart {
		normalized.StartRadius = maxStart
	}
	return normalized
}

// Normalized returns the configuration with defaults applied.
func (cfg Config) Normalized() Config {
	return cfg.normalized()
}

// FoodTarget is the number of ambient pellets the world keeps alive.
func (cfg Config) FoodTarget() int {
	return max(cfg.FoodCount, 0)
}

func DefaultConfig() Config {
	return Config{Seed: DefaultSeed}.normalized()
}
