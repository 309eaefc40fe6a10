package layout

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rendis/regraph/pkg/schema"
)

// Spacing defaults.
const (
	// MinimumGap is the vertical clearance between consecutive nodes.
	MinimumGap = 50.0
	// DefaultDebounce coalesces bursts of change events into one pass.
	DefaultDebounce = 150 * time.Millisecond
)

// variantHeights estimates node heights by variant when no live
// measurement is configured.
var variantHeights = map[schema.Variant]float64{
	schema.VariantStep:   NodeHeight,
	schema.VariantBranch: 170,
	schema.VariantEnd:    80,
	schema.VariantJump:   NodeHeight,
}

// HeightFunc returns the live-measured height of a node, or a non-positive
// value to fall back to the variant estimate.
type HeightFunc func(schema.Node) float64

// SpacerOptions configures a Spacer.
type SpacerOptions struct {
	Gap      float64       // zero uses MinimumGap
	Debounce time.Duration // zero uses DefaultDebounce
	Measure  HeightFunc    // nil disables live measurement
	Logger   *slog.Logger  // nil discards logs
}

// reflowRequest is one coalesced recalculation request.
type reflowRequest struct {
	snap  schema.Snapshot
	apply func(nodes []schema.Node)
}

// Spacer recalculates vertical spacing below a node. The editor re-invokes
// positioning on every node-size change, so a pass could re-trigger itself;
// two guards prevent that feedback loop: a single debounce timer coalescing
// change bursts, and an in-flight node-id set checked on entry; scheduling
// a node already being processed is a no-op.
//
// The guard state is owned by the Spacer instance, one per editor session,
// and released by Close.
type Spacer struct {
	gap      float64
	debounce time.Duration
	measure  HeightFunc
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	pending  map[string]reflowRequest
	timer    *time.Timer
	closed   bool
}

// NewSpacer creates a Spacer.
func NewSpacer(opts SpacerOptions) *Spacer {
	gap := opts.Gap
	if gap <= 0 {
		gap = MinimumGap
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Spacer{
		gap:      gap,
		debounce: debounce,
		measure:  opts.Measure,
		logger:   logger,
		inflight: make(map[string]struct{}),
		pending:  make(map[string]reflowRequest),
	}
}

// EstimatedHeight returns the node's live-measured height when measurement
// is enabled and reports a positive value, otherwise the variant estimate.
func (s *Spacer) EstimatedHeight(n schema.Node) float64 {
	if s.measure != nil {
		if h := s.measure(n); h > 0 {
			return h
		}
	}
	if h, ok := variantHeights[n.Variant()]; ok {
		return h
	}
	return NodeHeight
}

// NextPosition computes where the node following prev belongs:
// same column, prev.Y + estimated height + gap, snapped to the grid.
func (s *Spacer) NextPosition(prev schema.Node) schema.Position {
	return SnapToGrid(schema.Position{
		X: prev.Position.X,
		Y: prev.Position.Y + s.EstimatedHeight(prev) + s.gap,
	})
}

// Schedule queues a spacing recalculation below nodeID and reports whether
// the request was accepted. A request for a node currently being processed
// is suppressed and returns false immediately, with no position changes.
// Accepted requests are coalesced until the debounce window elapses; apply
// then receives the repositioned node slice.
func (s *Spacer) Schedule(nodeID string, snap schema.Snapshot, apply func(nodes []schema.Node)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, busy := s.inflight[nodeID]; busy {
		s.logger.Debug("spacing re-entry suppressed", slog.String("node_id", nodeID))
		return false
	}

	s.pending[nodeID] = reflowRequest{snap: snap, apply: apply}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
	return true
}

// flush runs the coalesced recalculation passes.
func (s *Spacer) flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[string]reflowRequest)
	s.mu.Unlock()

	for nodeID, req := range batch {
		nodes, touched := s.ReflowBelow(nodeID, req.snap)
		processing := append([]string{nodeID}, touched...)

		s.mu.Lock()
		for _, id := range processing {
			s.inflight[id] = struct{}{}
		}
		s.mu.Unlock()

		if req.apply != nil {
			req.apply(nodes)
		}

		s.mu.Lock()
		for _, id := range processing {
			delete(s.inflight, id)
		}
		s.mu.Unlock()

		s.logger.Debug("spacing pass applied",
			slog.String("node_id", nodeID), slog.Int("touched", len(touched)))
	}
}

// ReflowBelow walks the primary outgoing chain starting at nodeID and
// restacks each follower at the previous node's next position. It returns a
// fresh node slice plus the IDs whose positions changed; the input snapshot
// is left untouched. Reconvergent or cyclic chains terminate at the first
// revisited node.
func (s *Spacer) ReflowBelow(nodeID string, snap schema.Snapshot) ([]schema.Node, []string) {
	nodes := make([]schema.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		nodes[i] = n.Clone()
	}

	byID := make(map[string]int, len(nodes))
	for i, n := range nodes {
		byID[n.ID] = i
	}
	firstOut := make(map[string]string, len(snap.Edges))
	for _, e := range snap.Edges {
		if _, ok := firstOut[e.Source]; !ok {
			firstOut[e.Source] = e.Target
		}
	}

	idx, ok := byID[nodeID]
	if !ok {
		return nodes, nil
	}

	var touched []string
	visited := map[string]bool{nodeID: true}
	prev := nodes[idx]

	for {
		nextID, ok := firstOut[prev.ID]
		if !ok || visited[nextID] {
			break
		}
		visited[nextID] = true

		i, ok := byID[nextID]
		if !ok {
			break
		}

		want := s.NextPosition(prev)
		if nodes[i].Position != want {
			nodes[i].Position = want
			touched = append(touched, nextID)
		}
		prev = nodes[i]
	}

	return nodes, touched
}

// Close stops the pending debounce timer and clears the guard set. The
// Spacer accepts no further work afterwards.
func (s *Spacer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.inflight = make(map[string]struct{})
	s.pending = make(map[string]reflowRequest)
}
