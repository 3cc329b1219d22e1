package world

import (
	"math/rand"

	"github.com/parkjaeuk0210/nebulous-game/logging"
)

// RNGFactory produces deterministic RNG instances for world subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

// Deps bundles runtime dependencies required to construct a World instance.
type Deps struct {
	Publisher logging.Publisher
	RNG       RNGFactory
	IDs       IDSource
}

// World owns every player and food entity. It is not safe for concurrent
// use; the simulation loop is its only writer.
type World struct {
	config Config
	seed   string

	publisher  logging.Publisher
	rngFactory RNGFactory
	rng        *rand.Rand
	mergeRNG   *rand.Rand
	ids        IDSource

	players map[string]*Player
	order   []string

	food      map[string]*Food
	foodOrder []*Food
	foodDirty bool

	tick uint64
}

// New constructs a world instance with normalized configuration and seeded
// RNG, then scatters the initial food population.
func New(cfg Config, deps Deps) (*World, error) {
	normalized := cfg.normalized()

	factory := deps.RNG
	if factory == nil {
		factory = NewDeterministicRNG
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher{}
	}

	w := &World{
		config:     normalized,
		seed:       normalized.Seed,
		publisher:  publisher,
		rngFactory: factory,
		ids:        deps.IDs,
		players:    make(map[string]*Player),
		food:       make(map[string]*Food, normalized.FoodTarget()),
		foodOrder:  make([]*Food, 0, normalized.FoodTarget()),
	}
	if w.ids == nil {
		w.ids = NewSeededIDs(w.subsystemRNG("ids"))
	}
	w.rng = w.subsystemRNG("world")
	w.mergeRNG = w.subsystemRNG("merge")
	w.replenishFood()
	return w, nil
}

func (w *World) Config() Config {
	if w == nil {
		return Config{}
	}
	return w.config
}

func (w *World) Seed() string {
	if w == nil {
		return ""
	}
	return w.seed
}

func (w *World) RNG() *rand.Rand {
	if w == nil {
		return nil
	}
	return w.rng
}

// subsystemRNG returns a fresh RNG derived from the world seed and label.
func (w *World) subsystemRNG(label string) *rand.Rand {
	return w.rngFactory(w.seed, label)
}

func (w *World) Publisher() logging.Publisher {
	if w == nil {
		return logging.NopPublisher{}
	}
	return w.publisher
}

// Tick is the number of completed steps.
func (w *World) Tick() uint64 {
	if w == nil {
		return 0
	}
	return w.tick
}

func (w *World) Dimensions() (float64, float64) {
	if w == nil {
		return DefaultWidth, DefaultHeight
	}
	return w.config.Width, w.config.Height
}

func (w *World) Player(id string) (*Player, bool) {
	if w == nil {
		return nil, false
	}
	player, ok := w.players[id]
	return player, ok
}

func (w *World) PlayerCount() int {
	if w == nil {
		return 0
	}
	return len(w.players)
}

// Players returns every player in join order.
func (w *World) Players() []*Player {
	if w == nil {
		return nil
	}
	out := make([]*Player, 0, len(w.order))
	for _, id := range w.order {
		if player, ok := w.players[id]; ok {
			out = append(out, player)
		}
	}
	return out
}

// AddPlayer stores player, replacing any existing entry with the same id.
func (w *World) AddPlayer(player *Player) {
	if w == nil || player == nil || player.ID == "" {
		return
	}
	if _, exists := w.players[player.ID]; !exists {
		w.order = append(w.order, player.ID)
	}
	w.players[player.ID] = player
}

func (w *World) RemovePlayer(id string) bool {
	if w == nil {
		return false
	}
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	for i, existing := range w.order {
		if existing == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

func (w *World) Food(id string) (*Food, bool) {
	if w == nil {
		return nil, false
	}
	food, ok := w.food[id]
	return food, ok
}

func (w *World) FoodCount() int {
	if w == nil {
		return 0
	}
	return len(w.food)
}

// FoodItems returns every live food item in spawn order.
func (w *World) FoodItems() []*Food {
	if w == nil {
		return nil
	}
	w.compactFood()
	return append([]*Food(nil), w.foodOrder...)
}

func (w *World) AddFood(food *Food) {
	if w == nil || food == nil || food.ID == "" {
		return
	}
	if _, exists := w.food[food.ID]; exists {
		w.foodDirty = true
	}
	w.food[food.ID] = food
	w.foodOrder = append(w.foodOrder, food)
}

func (w *World) RemoveFood(id string) bool {
	if w == nil {
		return false
	}
	if _, ok := w.food[id]; !ok {
		return false
	}
	delete(w.food, id)
	w.foodDirty = true
	return true
}

// compactFood drops removed or superseded entries from the ordered view.
func (w *World) compactFood() {
	if !w.foodDirty {
		return
	}
	live := w.foodOrder[:0]
	for _, food := range w.foodOrder {
		if current, ok := w.food[food.ID]; ok && current == food {
			live = append(live, food)
		}
	}
	for i := len(live); i < len(w.foodOrder); i++ {
		w.foodOrder[i] = nil
	}
	w.foodOrder = live
	w.foodDirty = false
}

func (w *World) foodLive(food *Food) bool {
	current, ok := w.food[food.ID]
	return ok && current == food
}

func (w *World) newPlayerID() string {
	for {
		id := w.ids.NewID()
		if _, taken := w.players[id]; !taken && id != "" {
			return id
		}
	}
}

func (w *World) newFoodID() string {
	for {
		id := w.ids.NewID()
		if _, taken := w.food[id]; !taken && id != "" {
			return id
		}
	}
}

// replenishFood tops the food population back up to the configured target
// and returns how many pellets were spawned.
func (w *World) replenishFood() int {
	spawned := 0
	for len(w.food) < w.config.FoodTarget() {
		w.AddFood(&Food{
			ID:     w.newFoodID(),
			X:      RandomRange(w.rng, 0, w.config.Width),
			Y:      RandomRange(w.rng, 0, w.config.Height),
			Radius: w.config.FoodRadius,
			Color:  w.ids.FoodColor(),
		})
		spawned++
	}
	return spawned
}
