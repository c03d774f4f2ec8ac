package models

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func node(id TechID, prereqs ...TechID) *TechNode {
	return &TechNode{
		ID:              id,
		Tier:            1,
		Category:        CategoryProduction,
		ResearchSeconds: 10,
		Prerequisites:   prereqs,
	}
}

func TestNewDatabaseClean(t *testing.T) {
	db, err := NewDatabase([]*TechNode{node("a"), node("b", "a"), node("c", "a", "b")})
	if err != nil {
		t.Fatalf("unexpected content error: %v", err)
	}
	if db.Len() != 3 {
		t.Fatalf("Len = %d, want 3", db.Len())
	}
	for _, id := range []TechID{"a", "b", "c"} {
		if !db.Valid(id) {
			t.Errorf("%s should be valid", id)
		}
	}
	if got := db.Dependents("a"); len(got) != 2 {
		t.Errorf("Dependents(a) = %d nodes, want 2", len(got))
	}
}

func TestNewDatabaseContentErrors(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []*TechNode
		invalid TechID
		want    error
	}{
		{
			name:    "dangling prerequisite",
			nodes:   []*TechNode{node("a", "ghost")},
			invalid: "a",
			want:    ErrDanglingPrerequisite,
		},
		{
			name:    "zero duration",
			nodes:   []*TechNode{{ID: "a", ResearchSeconds: 0}},
			invalid: "a",
			want:    ErrInvalidDuration,
		},
		{
			name:    "NaN duration",
			nodes:   []*TechNode{{ID: "a", ResearchSeconds: math.NaN()}},
			invalid: "a",
			want:    ErrInvalidDuration,
		},
		{
			name:    "infinite duration",
			nodes:   []*TechNode{{ID: "a", ResearchSeconds: math.Inf(1)}},
			invalid: "a",
			want:    ErrInvalidDuration,
		},
		{
			name:    "negative cost",
			nodes:   []*TechNode{{ID: "a", ResearchSeconds: 1, Cost: Costs{{Iron, -1}}}},
			invalid: "a",
			want:    ErrNegativeCost,
		},
		{
			name:    "unknown effect",
			nodes:   []*TechNode{{ID: "a", ResearchSeconds: 1, Effects: []Effect{{Kind: "teleport"}}}},
			invalid: "a",
			want:    ErrUnknownEffectKind,
		},
		{
			name:    "self cycle",
			nodes:   []*TechNode{node("a", "a")},
			invalid: "a",
			want:    ErrPrerequisiteCycle,
		},
		{
			name:    "two node cycle",
			nodes:   []*TechNode{node("root"), node("a", "b"), node("b", "a")},
			invalid: "b",
			want:    ErrPrerequisiteCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := NewDatabase(tt.nodes)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if db.Valid(tt.invalid) {
				t.Errorf("%s should be invalid", tt.invalid)
			}
			var ce *ContentError
			if !errors.As(db.Invalid(tt.invalid), &ce) || ce.Node != tt.invalid {
				t.Errorf("Invalid(%s) = %v, want ContentError for node", tt.invalid, db.Invalid(tt.invalid))
			}
		})
	}
}

func TestCycleDoesNotTaintDownstream(t *testing.T) {
	db, err := NewDatabase([]*TechNode{node("a", "b"), node("b", "a"), node("c", "a"), node("d")})
	if !errors.Is(err, ErrPrerequisiteCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if db.Valid("a") || db.Valid("b") {
		t.Error("cycle members should be invalid")
	}
	if !db.Valid("c") || !db.Valid("d") {
		t.Error("nodes outside the cycle should stay valid")
	}
}

func TestDuplicateKeepsFirst(t *testing.T) {
	first := node("a")
	first.Name = "First"
	second := node("a")
	second.Name = "Second"

	db, err := NewDatabase([]*TechNode{first, second})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if db.Len() != 1 {
		t.Fatalf("Len = %d, want 1", db.Len())
	}
	if db.Get("a").Name != "First" {
		t.Errorf("Get(a).Name = %q, want First", db.Get("a").Name)
	}
	if !db.Valid("a") {
		t.Error("first definition should remain valid")
	}
}

func TestNodesByTierAndCategory(t *testing.T) {
	a := node("a")
	b := node("b", "a")
	b.Tier = 2
	b.Category = CategoryLogistics
	db, _ := NewDatabase([]*TechNode{a, b})

	if got := db.NodesByTier(2); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("NodesByTier(2) = %v", got)
	}
	if got := db.NodesByCategory(CategoryProduction); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("NodesByCategory(production) = %v", got)
	}
	if got := db.Tiers(); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("Tiers = %v, want [1 2]", got)
	}

	c := node("c")
	c.Tier = -1
	db, _ = NewDatabase([]*TechNode{a, b, c})
	if got := db.Tiers(); !slices.Equal(got, []int{-1, 1, 2}) {
		t.Errorf("Tiers = %v, want [-1 1 2]", got)
	}
}

func TestCostsTotals(t *testing.T) {
	c := Costs{{Iron, 10}, {Wood, 5}, {Iron, 3}}
	totals := c.Totals()
	if len(totals) != 2 || totals[0] != (Cost{Iron, 13}) || totals[1] != (Cost{Wood, 5}) {
		t.Errorf("Totals = %v", totals)
	}
	if c.Get(Iron) != 13 {
		t.Errorf("Get(Iron) = %d, want 13", c.Get(Iron))
	}
	if !(Costs{{Iron, 0}}).IsZero() {
		t.Error("zero amounts should be IsZero")
	}
}
