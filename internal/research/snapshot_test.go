package research

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

func snapshotDatabase(t *testing.T) *models.Database {
	t.Helper()
	survey := tech("survey", 1, nil)
	survey.Effects = []models.Effect{
		{Kind: models.EffectGrantTechnology, Target: "ruins"},
		{Kind: models.EffectUnlockFeature, Target: "Building_Camp"},
	}
	ruins := tech("ruins", 10, ironCost(5))
	ruins.Unlock = models.ExternallyGranted
	mining := tech("mining", 4, ironCost(3))
	mining.Effects = []models.Effect{{Kind: models.EffectResourceProduction, Scope: "Iron", Magnitude: 0.25}}
	return mustDatabase(t, survey, ruins, mining, tech("deep", 8, nil, "mining"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := snapshotDatabase(t)
	ledger := newFakeLedger(map[models.ResourceType]int{models.Iron: 100})
	s, _ := newTestScheduler(t, db, ledger)
	researchAll(t, s, "survey", "mining")
	if err := s.StartResearch("ruins"); err != nil {
		t.Fatal(err)
	}
	s.Tick(4)

	snap := s.Snapshot()
	want := Snapshot{
		Researched: []models.TechID{"survey", "mining"},
		Granted:    []models.TechID{"ruins"},
		Current:    "ruins",
		Elapsed:    4,
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	// A fresh session resumes without paying again.
	resumeLedger := newFakeLedger(map[models.ResourceType]int{})
	restored, rec := newTestScheduler(t, db, resumeLedger)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	tree := restored.Tree()

	if !tree.IsResearched("survey") || !tree.IsResearched("mining") {
		t.Error("researched set not restored")
	}
	if !tree.IsFeatureUnlocked("Building_Camp") {
		t.Error("one-shot activations should be replayed")
	}
	if abs(tree.GetModifier("ResourceProduction_Iron")-0.25) > 1e-9 {
		t.Errorf("modifier not re-derived: %v", tree.GetModifier("ResourceProduction_Iron"))
	}
	if restored.Current() == nil || restored.Current().ID != "ruins" || restored.Elapsed() != 4 {
		t.Errorf("current research not resumed: %v %v", restored.Current(), restored.Elapsed())
	}
	if resumeLedger.deducts != 0 {
		t.Error("resuming must not charge the ledger")
	}
	if len(rec.OfType(EventResearched)) != 0 {
		t.Error("restore must not emit Researched")
	}
	if diff := cmp.Diff([]models.TechID{"ruins", "deep"}, ids(tree.GetAvailableNodes())); diff != "" {
		t.Errorf("available mismatch (-want +got):\n%s", diff)
	}

	restored.Tick(6)
	if !tree.IsResearched("ruins") {
		t.Error("resumed research should complete after the remaining time")
	}
}

func TestRestoreSkipsUnknownContent(t *testing.T) {
	db := snapshotDatabase(t)
	s, _ := newTestScheduler(t, db, nil)

	err := s.Restore(Snapshot{
		Researched: []models.TechID{"mining", "removed_tech"},
		Current:    "also_removed",
		Elapsed:    3,
	})
	if !errors.Is(err, ErrUnknownTechnology) {
		t.Fatalf("Restore error = %v, want ErrUnknownTechnology", err)
	}
	if !s.Tree().IsResearched("mining") {
		t.Error("known ids should still be restored")
	}
	if s.Busy() {
		t.Error("unknown current research should be dropped")
	}
}

func TestRestoreEmitsAvailabilityDiff(t *testing.T) {
	db := snapshotDatabase(t)
	s, rec := newTestScheduler(t, db, nil)

	if err := s.Restore(Snapshot{Researched: []models.TechID{"mining"}}); err != nil {
		t.Fatal(err)
	}

	got := map[models.TechID]bool{}
	for _, e := range rec.OfType(EventAvailabilityChanged) {
		got[e.Node] = e.Available
	}
	want := map[models.TechID]bool{"mining": false, "deep": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("availability events mismatch (-want +got):\n%s", diff)
	}
}
