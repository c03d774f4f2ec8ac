package research

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// Snapshot is the persisted part of research state. Availability and effect
// state are always re-derived from it and the database, never stored.
type Snapshot struct {
	Researched []models.TechID `json:"researched"`
	Granted    []models.TechID `json:"granted,omitempty"`
	Current    models.TechID   `json:"current,omitempty"`
	Elapsed    float64         `json:"elapsed,omitempty"`
}

// Snapshot captures researched ids in completion order, granted ids in content
// order and the research in flight.
func (s *Scheduler) Snapshot() Snapshot {
	t := s.tree
	snap := Snapshot{Researched: make([]models.TechID, 0, len(t.order))}
	for _, n := range t.order {
		snap.Researched = append(snap.Researched, n.ID)
	}
	for _, n := range t.db.Nodes() {
		if t.granted[n.ID] {
			snap.Granted = append(snap.Granted, n.ID)
		}
	}
	if s.current != nil {
		snap.Current = s.current.ID
		snap.Elapsed = s.elapsed
	}
	return snap
}

// Restore replaces the research state with snap. Researched technologies are
// re-applied in order and their activation hooks replayed without Researched
// notifications; a resumed research is not charged again. Ids the database no
// longer knows or accepts are skipped and reported in the returned error; the
// rest of the snapshot is still applied.
func (s *Scheduler) Restore(snap Snapshot) error {
	t := s.tree
	var skipped []error
	skip := func(id models.TechID, reason error) {
		t.log.Warn("snapshot entry skipped", slog.String("tech", string(id)), slog.Any("err", reason))
		skipped = append(skipped, fmt.Errorf("%s: %w", id, reason))
	}

	before := t.available
	s.current = nil
	s.elapsed = 0

	t.quiet = true
	t.researched = make(map[models.TechID]bool)
	t.granted = make(map[models.TechID]bool)
	t.order = nil

	for _, id := range snap.Researched {
		n := t.db.Get(id)
		switch {
		case n == nil:
			skip(id, ErrUnknownTechnology)
			continue
		case !t.db.Valid(id):
			skip(id, t.db.Invalid(id))
			continue
		}
		t.markResearched(n)
	}
	for _, id := range snap.Granted {
		if t.db.Get(id) == nil {
			skip(id, ErrUnknownTechnology)
			continue
		}
		if !t.researched[id] {
			t.UnlockExternally(id)
		}
	}
	t.recompute()

	t.quiet = false
	t.available = before
	t.recompute()

	if snap.Current != "" {
		n := t.db.Get(snap.Current)
		switch {
		case n == nil:
			skip(snap.Current, ErrUnknownTechnology)
		case !t.IsAvailable(snap.Current):
			skip(snap.Current, ErrNotAvailable)
		default:
			s.current = n
			s.elapsed = math.Max(0, snap.Elapsed)
			if n.ResearchSeconds > 0 {
				s.elapsed = math.Min(s.elapsed, n.ResearchSeconds)
			}
			t.notify.Notify(Event{Type: EventProgressChanged, Node: n.ID, Progress: s.Progress()})
		}
	}

	t.log.Info("research restored",
		slog.Int("researched", len(t.order)), slog.Int("skipped", len(skipped)))
	return errors.Join(skipped...)
}
