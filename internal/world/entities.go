package world

import "math"

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell is one circular body owned by a player.
type Cell struct {
	X      float64
	Y      float64
	Radius float64
	VX     float64
	VY     float64
}

func (c *Cell) Mass() float64 {
	return Mass(c.Radius)
}

type Player struct {
	ID     string
	Name   string
	Color  string
	Cells  []*Cell
	Target Vec2
}

// Mass sums the mass of every cell.
func (p *Player) Mass() float64 {
	total := 0.0
	for _, cell := range p.Cells {
		total += cell.Mass()
	}
	return total
}

// Food is an edible pellet. Ejected pellets carry a velocity that decays
// every tick; ambient pellets never move.
type Food struct {
	ID      string
	X       float64
	Y       float64
	Radius  float64
	Color   string
	VX      float64
	VY      float64
	Ejected bool
}

func Mass(radius float64) float64 {
	return math.Pi * radius * radius
}

func RadiusForMass(mass float64) float64 {
	if mass <= 0 {
		return 0
	}
	return math.Sqrt(mass / math.Pi)
}

// CombinedRadius is the radius of a circle holding the mass of both inputs.
func CombinedRadius(a, b float64) float64 {
	return RadiusForMass(Mass(a) + Mass(b))
}

func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// overlaps is the containment test used for every pairwise contact: the
// centres must be closer than the larger radius.
func overlaps(x1, y1, r1, x2, y2, r2 float64) bool {
	return distance(x1, y1, x2, y2) < max(r1, r2)
}

func removeCell(cells []*Cell, index int) []*Cell {
	copy(cells[index:], cells[index+1:])
	cells[len(cells)-1] = nil
	return cells[:len(cells)-1]
}

// Clamp limits value to the range [lo, hi]. When the range is empty the
// midpoint is returned.
func Clamp(value, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
