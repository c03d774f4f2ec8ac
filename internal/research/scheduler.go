package research

import (
	"log/slog"
	"math"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// Ledger is the resource store research costs are paid from. Both methods
// treat the cost list as a whole: Deduct either takes every entry or nothing.
type Ledger interface {
	Affordable(models.Costs) bool
	Deduct(models.Costs) bool
}

// Unlimited is a Ledger that can always pay
type Unlimited struct{}

func (Unlimited) Affordable(models.Costs) bool { return true }
func (Unlimited) Deduct(models.Costs) bool     { return true }

// Scheduler owns the single research in flight. Time only advances via Tick.
type Scheduler struct {
	tree    *Tree
	ledger  Ledger
	current *models.TechNode
	elapsed float64
}

// NewScheduler creates an idle scheduler. A nil ledger means research is free.
func NewScheduler(tree *Tree, ledger Ledger) *Scheduler {
	if ledger == nil {
		ledger = Unlimited{}
	}
	return &Scheduler{tree: tree, ledger: ledger}
}

// Tree returns the research status the scheduler drives
func (s *Scheduler) Tree() *Tree {
	return s.tree
}

// Current returns the technology being researched, or nil
func (s *Scheduler) Current() *models.TechNode {
	return s.current
}

// Busy reports whether a research is in flight
func (s *Scheduler) Busy() bool {
	return s.current != nil
}

// Elapsed returns the seconds accumulated on the current research
func (s *Scheduler) Elapsed() float64 {
	return s.elapsed
}

// Progress returns elapsed/duration clamped to [0,1], 0 when idle
func (s *Scheduler) Progress() float64 {
	if s.current == nil {
		return 0
	}
	d := s.current.ResearchSeconds
	if !(d > 0) {
		return 1
	}
	return math.Min(1, math.Max(0, s.elapsed/d))
}

// Remaining returns the seconds left on the current research, 0 when idle
func (s *Scheduler) Remaining() float64 {
	if s.current == nil || !(s.current.ResearchSeconds > 0) {
		return 0
	}
	return math.Max(0, s.current.ResearchSeconds-s.elapsed)
}

// StartResearch begins researching id and pays its full cost up front.
// Nothing changes when an error is returned.
func (s *Scheduler) StartResearch(id models.TechID) error {
	const op = "start research"
	log := s.tree.log.With(slog.String("tech", string(id)))

	if s.current != nil {
		log.Debug("start rejected", slog.String("current", string(s.current.ID)))
		return opError(op, id, ErrInvalidState)
	}
	n := s.tree.db.Get(id)
	if n == nil {
		return opError(op, id, ErrUnknownTechnology)
	}
	if s.tree.IsResearched(id) {
		return opError(op, id, ErrAlreadyResearched)
	}
	if !s.tree.IsAvailable(id) {
		return opError(op, id, ErrNotAvailable)
	}
	if !s.ledger.Affordable(n.Cost) || !s.ledger.Deduct(n.Cost) {
		log.Debug("start rejected: cannot pay", slog.String("cost", n.Cost.String()))
		return opError(op, id, ErrInsufficientResources)
	}

	s.current = n
	s.elapsed = 0
	log.Info("research started", slog.String("cost", n.Cost.String()), slog.Float64("seconds", n.ResearchSeconds))
	s.tree.notify.Notify(Event{Type: EventStartedResearch, Node: id})
	return nil
}

// Tick advances the current research by dt seconds and completes it once the
// duration is reached. Negative or NaN steps count as zero.
func (s *Scheduler) Tick(dt float64) {
	if s.current == nil {
		return
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	d := s.current.ResearchSeconds
	s.elapsed += dt
	if d > 0 && s.elapsed > d {
		s.elapsed = d
	}

	s.tree.notify.Notify(Event{Type: EventProgressChanged, Node: s.current.ID, Progress: s.Progress()})

	if !(d > 0) || s.elapsed >= d {
		// Cannot fail: current is set.
		_ = s.Complete()
	}
}

// Complete finishes the current research immediately: the technology is marked
// researched, its effects activate in order, and availability is recomputed
// before Researched is emitted.
func (s *Scheduler) Complete() error {
	n := s.current
	if n == nil {
		return opError("complete research", "", ErrNoActiveResearch)
	}

	s.tree.markResearched(n)
	s.current = nil
	s.elapsed = 0
	s.tree.recompute()

	s.tree.log.Info("research completed", slog.String("tech", string(n.ID)))
	s.tree.notify.Notify(Event{Type: EventResearched, Node: n.ID})
	return nil
}

// Cancel abandons the current research. Paid costs are not refunded.
func (s *Scheduler) Cancel() error {
	n := s.current
	if n == nil {
		return opError("cancel research", "", ErrNoActiveResearch)
	}

	s.current = nil
	s.elapsed = 0
	s.tree.log.Info("research cancelled", slog.String("tech", string(n.ID)))
	s.tree.notify.Notify(Event{Type: EventCancelled, Node: n.ID})
	return nil
}

// ResetAll forgets every researched and granted technology and any research
// in flight. Spent resources are not refunded.
func (s *Scheduler) ResetAll() {
	if s.current != nil {
		_ = s.Cancel()
	}
	s.tree.reset()
	s.tree.log.Info("research reset")
}
