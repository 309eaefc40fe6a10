// Package layout places workflow nodes: collision detection and resolution,
// grid snapping, branch-slot distribution and vertical spacing. The search
// strategies are bounded and deterministic rather than optimal; the engine
// serves an interactive editor where predictable latency wins.
package layout

import (
	"math"

	"github.com/rendis/regraph/pkg/schema"
)

// Nominal node bounding box and defaults. Coordinates snap to GridStep so
// edges render orthogonally and repeated layout passes converge instead of
// drifting.
const (
	NodeWidth  = 220.0
	NodeHeight = 110.0

	GridStep = 20.0

	DefaultMargin      = 40.0
	DefaultMaxAttempts = 10

	// ringStep scales the candidate offsets per probe attempt.
	ringStep = 80.0
)

// SnapToGrid rounds a position to the grid step.
func SnapToGrid(p schema.Position) schema.Position {
	return schema.Position{
		X: math.Round(p.X/GridStep) * GridStep,
		Y: math.Round(p.Y/GridStep) * GridStep,
	}
}

// WouldCollide reports whether two node bounding boxes overlap within
// margin. Nil positions mean incomplete data and never collide, so layout
// is never blocked by nodes that have not been measured yet.
func WouldCollide(a, b *schema.Position, margin float64) bool {
	if a == nil || b == nil {
		return false
	}
	return math.Abs(a.X-b.X) < NodeWidth+margin &&
		math.Abs(a.Y-b.Y) < NodeHeight+margin
}

// ResolveOptions configures collision resolution.
type ResolveOptions struct {
	// Margin around the nominal node box. Zero uses DefaultMargin.
	Margin float64
	// MaxAttempts bounds the ring probe. Zero uses DefaultMaxAttempts.
	MaxAttempts int
	// SkipSnap leaves coordinates unsnapped (snapping is the default).
	SkipSnap bool
}

// Placement is the outcome of a placement request.
type Placement struct {
	Position schema.Position
	// HasCollision is set when every probe attempt collided and the
	// original position was returned unchanged.
	HasCollision bool
	// AdjustedFromOriginal is set when the returned position differs from
	// the preferred one.
	AdjustedFromOriginal bool
}

// ringOffsets are the 8 probe directions (cardinal + diagonal), scaled by
// the attempt number on each pass.
var ringOffsets = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
}

// ResolveCollisions returns the preferred position when it is clear,
// otherwise probes an expanding ring of 8 candidate offsets per attempt up
// to a fixed cap. When every candidate collides the original position comes
// back flagged HasCollision. The search always terminates within
// MaxAttempts*8 probes, even on a fully packed field.
func ResolveCollisions(preferred schema.Position, existing []schema.Node, opts ResolveOptions) Placement {
	margin := opts.Margin
	if margin == 0 {
		margin = DefaultMargin
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	finish := func(p schema.Position) schema.Position {
		if opts.SkipSnap {
			return p
		}
		return SnapToGrid(p)
	}

	if !collidesAny(preferred, existing, margin) {
		pos := finish(preferred)
		return Placement{Position: pos, AdjustedFromOriginal: pos != preferred}
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		scale := ringStep * float64(attempt)
		for _, off := range ringOffsets {
			candidate := schema.Position{
				X: preferred.X + off[0]*scale,
				Y: preferred.Y + off[1]*scale,
			}
			if !collidesAny(candidate, existing, margin) {
				return Placement{Position: finish(candidate), AdjustedFromOriginal: true}
			}
		}
	}

	return Placement{Position: preferred, HasCollision: true}
}

func collidesAny(p schema.Position, existing []schema.Node, margin float64) bool {
	for i := range existing {
		if WouldCollide(&p, &existing[i].Position, margin) {
			return true
		}
	}
	return false
}
