package horses

import (
	"context"
	"math"
)

// Location is a position in a named world.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// DistanceSquared returns the squared distance to o. Locations in different
// worlds are infinitely far apart.
func (l Location) DistanceSquared(o Location) float64 {
	if l.World != o.World {
		return math.Inf(1)
	}
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// SameBlock reports whether both locations fall in the same world block.
func (l Location) SameBlock(o Location) bool {
	return l.World == o.World &&
		math.Floor(l.X) == math.Floor(o.X) &&
		math.Floor(l.Y) == math.Floor(o.Y) &&
		math.Floor(l.Z) == math.Floor(o.Z)
}

// Actor is the live, world-visible counterpart of a Horse. It may become
// invalid at any time without notice.
type Actor interface {
	Valid() bool
	Remove()
	Teleport(Location) error
}

// Spawner asks the world engine to create a live actor for a horse.
type Spawner interface {
	Spawn(ctx context.Context, h *Horse, at Location) (Actor, error)
}
