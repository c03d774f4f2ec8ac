package research

import (
	"log/slog"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// RecomputeAvailable returns the ids eligible to start research given the
// researched and externally granted sets. A node is available iff it passed
// content validation, is not researched, has every prerequisite researched and
// is either Researchable or granted.
func RecomputeAvailable(db *models.Database, researched, granted map[models.TechID]bool) map[models.TechID]bool {
	available := make(map[models.TechID]bool)
	for _, n := range db.Nodes() {
		if eligible(db, n, researched, granted) {
			available[n.ID] = true
		}
	}
	return available
}

func eligible(db *models.Database, n *models.TechNode, researched, granted map[models.TechID]bool) bool {
	if researched[n.ID] || !db.Valid(n.ID) {
		return false
	}
	if !prerequisitesMet(n, researched) {
		return false
	}
	return n.Unlock == models.Researchable || granted[n.ID]
}

func prerequisitesMet(n *models.TechNode, researched map[models.TechID]bool) bool {
	for _, p := range n.Prerequisites {
		if !researched[p] {
			return false
		}
	}
	return true
}

// recompute refreshes the available set and reports every transition in
// content order.
func (t *Tree) recompute() {
	next := RecomputeAvailable(t.db, t.researched, t.granted)
	prev := t.available
	t.available = next
	if t.quiet {
		return
	}
	for _, n := range t.db.Nodes() {
		was, is := prev[n.ID], next[n.ID]
		if was == is {
			continue
		}
		t.log.Debug("availability changed", slog.String("tech", string(n.ID)), slog.Bool("available", is))
		t.notify.Notify(Event{Type: EventAvailabilityChanged, Node: n.ID, Available: is})
	}
}

// UnlockExternally grants an ExternallyGranted technology so it can enter the
// available set. It fails silently, logged, when the technology is unknown,
// invalid, already researched or still missing prerequisites.
func (t *Tree) UnlockExternally(id models.TechID) bool {
	n := t.db.Get(id)
	attrs := slog.String("tech", string(id))
	switch {
	case n == nil:
		t.log.Warn("grant ignored: unknown technology", attrs)
		return false
	case !t.db.Valid(id):
		t.log.Warn("grant ignored: invalid technology", attrs, slog.Any("err", t.db.Invalid(id)))
		return false
	case t.researched[id]:
		t.log.Info("grant ignored: already researched", attrs)
		return false
	case !prerequisitesMet(n, t.researched):
		t.log.Info("grant ignored: prerequisites not met", attrs)
		return false
	}

	if t.granted[id] {
		return true
	}
	t.granted[id] = true
	t.log.Info("technology granted", attrs)
	t.recompute()
	return true
}
