package research

import (
	"testing"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/logging"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// fakeLedger is an all-or-nothing in-memory ledger for scheduler tests
type fakeLedger struct {
	amounts map[models.ResourceType]int
	deducts int
}

func newFakeLedger(amounts map[models.ResourceType]int) *fakeLedger {
	return &fakeLedger{amounts: amounts}
}

func (l *fakeLedger) Affordable(c models.Costs) bool {
	for _, entry := range c.Totals() {
		if l.amounts[entry.Resource] < entry.Amount {
			return false
		}
	}
	return true
}

func (l *fakeLedger) Deduct(c models.Costs) bool {
	if !l.Affordable(c) {
		return false
	}
	for _, entry := range c {
		l.amounts[entry.Resource] -= entry.Amount
	}
	l.deducts++
	return true
}

func tech(id models.TechID, seconds float64, cost models.Costs, prereqs ...models.TechID) *models.TechNode {
	return &models.TechNode{
		ID:              id,
		Name:            string(id),
		Tier:            1 + len(prereqs),
		Category:        models.CategoryProduction,
		Cost:            cost,
		ResearchSeconds: seconds,
		Prerequisites:   prereqs,
	}
}

func mustDatabase(t *testing.T, nodes ...*models.TechNode) *models.Database {
	t.Helper()
	db, err := models.NewDatabase(nodes)
	if err != nil {
		t.Fatalf("content errors: %v", err)
	}
	return db
}

// newTestScheduler builds a tree and scheduler that record every event
func newTestScheduler(t *testing.T, db *models.Database, ledger Ledger) (*Scheduler, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	tree := NewTree(db, WithNotifier(rec), WithLogger(logging.Discard()))
	return NewScheduler(tree, ledger), rec
}

func ids(nodes []*models.TechNode) []models.TechID {
	out := make([]models.TechID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}
