package sim

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Apply([]Command) error
	Step() StepSummary
	Snapshot() Snapshot
}

// EngineCore is implemented by the world adapter the loop drives.
type EngineCore interface {
	Engine
	Deps() Deps
	// RemovePlayers drops the given players and returns the ids that were
	// present.
	RemovePlayers(ids []string, reason string) []string
}

// StepSummary reports what changed during one Step.
type StepSummary struct {
	FoodEaten   int      `json:"foodEaten"`
	FoodSpawned int      `json:"foodSpawned"`
	Absorptions int      `json:"absorptions"`
	Merges      int      `json:"merges"`
	Eliminated  []string `json:"eliminated,omitempty"`
}
