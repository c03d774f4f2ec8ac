package research

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

func TestExternallyGrantedScenario(t *testing.T) {
	z := tech("Z", 2, nil)
	z.Unlock = models.ExternallyGranted
	db := mustDatabase(t, z)
	s, rec := newTestScheduler(t, db, nil)
	tree := s.Tree()

	if tree.IsAvailable("Z") {
		t.Fatal("Z must not be available after load")
	}
	if !tree.UnlockExternally("Z") {
		t.Fatal("first grant should succeed")
	}
	if !tree.IsAvailable("Z") {
		t.Fatal("Z should be available after grant")
	}
	if got := rec.OfType(EventAvailabilityChanged); len(got) != 1 || !got[0].Available {
		t.Errorf("expected one AvailabilityChanged(true), got %v", got)
	}

	if err := s.StartResearch("Z"); err != nil {
		t.Fatal(err)
	}
	s.Tick(2)
	if !tree.IsResearched("Z") {
		t.Fatal("Z should be researched")
	}

	before := len(rec.Events)
	if tree.UnlockExternally("Z") {
		t.Error("grant of a researched technology should be a no-op")
	}
	if tree.IsAvailable("Z") {
		t.Error("Z must stay out of the available set")
	}
	if len(rec.Events) != before {
		t.Errorf("no-op grant emitted %v", rec.Events[before:])
	}
}

func TestUnlockExternallyRechecksPrerequisites(t *testing.T) {
	gated := tech("G", 1, nil, "P")
	gated.Unlock = models.ExternallyGranted
	db := mustDatabase(t, tech("P", 1, nil), gated)
	s, _ := newTestScheduler(t, db, nil)
	tree := s.Tree()

	if tree.UnlockExternally("G") {
		t.Error("grant with unmet prerequisites should fail")
	}
	if tree.UnlockExternally("nope") {
		t.Error("grant of unknown technology should fail")
	}

	if err := s.StartResearch("P"); err != nil {
		t.Fatal(err)
	}
	s.Tick(1)
	if tree.IsAvailable("G") {
		t.Error("externally granted node must not become available on prerequisites alone")
	}
	if !tree.UnlockExternally("G") || !tree.IsAvailable("G") {
		t.Error("grant after prerequisites should make G available")
	}
}

func TestGrantTechnologyEffect(t *testing.T) {
	ruins := tech("ruins", 1, nil)
	ruins.Unlock = models.ExternallyGranted
	survey := tech("survey", 1, nil)
	survey.Effects = []models.Effect{{Kind: models.EffectGrantTechnology, Target: "ruins"}}
	db := mustDatabase(t, survey, ruins)
	s, _ := newTestScheduler(t, db, nil)

	if err := s.StartResearch("survey"); err != nil {
		t.Fatal(err)
	}
	s.Tick(1)
	if !s.Tree().IsAvailable("ruins") {
		t.Error("completing survey should grant ruins")
	}
}

func TestInvalidNodesNeverAvailable(t *testing.T) {
	db, err := models.NewDatabase([]*models.TechNode{
		tech("ok", 1, nil),
		tech("loop1", 1, nil, "loop2"),
		tech("loop2", 1, nil, "loop1"),
		tech("broken", 0, nil),
	})
	if err == nil {
		t.Fatal("expected content errors")
	}
	tree := NewTree(db)
	for _, id := range []models.TechID{"loop1", "loop2", "broken"} {
		if tree.IsAvailable(id) {
			t.Errorf("%s should be excluded", id)
		}
		if tree.UnlockExternally(id) {
			t.Errorf("%s should not be grantable", id)
		}
	}
	if !tree.IsAvailable("ok") {
		t.Error("valid node should be available")
	}
}

// randomDatabase builds a DAG where every node may only depend on earlier nodes
func randomDatabase(r *rand.Rand, size int) *models.Database {
	nodes := make([]*models.TechNode, size)
	for i := range nodes {
		n := &models.TechNode{
			ID:              models.TechID(fmt.Sprintf("t%02d", i)),
			ResearchSeconds: 1,
		}
		for j := 0; j < i; j++ {
			if r.Intn(4) == 0 {
				n.Prerequisites = append(n.Prerequisites, nodes[j].ID)
			}
		}
		if r.Intn(5) == 0 {
			n.Unlock = models.ExternallyGranted
		}
		nodes[i] = n
	}
	db, _ := models.NewDatabase(nodes)
	return db
}

// FuzzAvailabilityRule checks the availability definition over random graphs
// and random researched/granted sets
func FuzzAvailabilityRule(f *testing.F) {
	f.Add(int64(1), 8)
	f.Add(int64(42), 20)
	f.Add(int64(7), 1)

	f.Fuzz(func(t *testing.T, seed int64, size int) {
		if size < 0 || size > 40 {
			return
		}
		r := rand.New(rand.NewSource(seed))
		db := randomDatabase(r, size)

		researched := map[models.TechID]bool{}
		granted := map[models.TechID]bool{}
		for _, n := range db.Nodes() {
			if r.Intn(2) == 0 {
				researched[n.ID] = true
			}
			if r.Intn(3) == 0 {
				granted[n.ID] = true
			}
		}

		available := RecomputeAvailable(db, researched, granted)
		for _, n := range db.Nodes() {
			want := !researched[n.ID] && (n.Unlock == models.Researchable || granted[n.ID])
			for _, p := range n.Prerequisites {
				want = want && researched[p]
			}
			if available[n.ID] != want {
				t.Fatalf("seed %d: %s available=%v, want %v", seed, n.ID, available[n.ID], want)
			}
		}
	})
}
