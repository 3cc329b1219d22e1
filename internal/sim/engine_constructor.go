package sim

import (
	"errors"
	"math/rand"
)

var (
	// ErrMissingWorld indicates NewEngine was invoked without a world instance.
	ErrMissingWorld = errors.New("sim: world is nil")
	// ErrUnsupportedWorld indicates the provided world cannot produce an engine core.
	ErrUnsupportedWorld = errors.New("sim: world does not provide an engine adapter")
	// ErrMissingEngineCore indicates the adapter factory returned a nil engine core.
	ErrMissingEngineCore = errors.New("sim: engine adapter returned nil")
)

// EngineOption configures NewEngine behaviour. Options are applied in
// order; later options override earlier ones.
type EngineOption interface {
	apply(*engineConfig)
}

type engineOptionFunc func(*engineConfig)

func (f engineOptionFunc) apply(cfg *engineConfig) {
	if f != nil {
		f(cfg)
	}
}

type engineConfig struct {
	deps       Deps
	loopConfig LoopConfig
	loopHooks  LoopHooks
}

// EngineWorld is anything that either is an EngineCore or can build one.
type EngineWorld interface{}

type engineAdapterProvider interface {
	EngineAdapter(Deps) EngineCore
}

type engineRNGProvider interface {
	EngineRNG() *rand.Rand
}

// WithDeps injects shared infrastructure dependencies used by the engine core
// and loop orchestration.
func WithDeps(deps Deps) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.deps = deps
	})
}

// WithLoopConfig overrides the default command queue and tick loop sizing used
// by the engine.
func WithLoopConfig(config LoopConfig) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopConfig = config
	})
}

// WithLoopHooks supplies custom loop callbacks.
func WithLoopHooks(hooks LoopHooks) EngineOption {
	return engineOptionFunc(func(cfg *engineConfig) {
		cfg.loopHooks = hooks
	})
}

// NewEngine builds the engine core for world and wraps it in a Loop.
func NewEngine(world EngineWorld, opts ...EngineOption) (*Loop, error) {
	if world == nil {
		return nil, ErrMissingWorld
	}

	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(&cfg)
		}
	}

	if cfg.deps.RNG == nil {
		if provider, ok := world.(engineRNGProvider); ok {
			cfg.deps.RNG = provider.EngineRNG()
		}
	}

	var core EngineCore
	switch candidate := world.(type) {
	case engineAdapterProvider:
		core = candidate.EngineAdapter(cfg.deps)
	case EngineCore:
		core = candidate
	default:
		return nil, ErrUnsupportedWorld
	}
	if core == nil {
		return nil, ErrMissingEngineCore
	}

	loop := NewLoop(core, cfg.loopConfig, cfg.loopHooks)
	if loop == nil {
		return nil, ErrMissingEngineCore
	}
	return loop, nil
}
