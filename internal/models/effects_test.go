package models

import (
	"math"
	"testing"
)

type recordingActivation struct {
	node     *TechNode
	features []string
	grants   []TechID
}

func (r *recordingActivation) Node() *TechNode           { return r.node }
func (r *recordingActivation) UnlockFeature(name string) { r.features = append(r.features, name) }
func (r *recordingActivation) GrantTechnology(id TechID) { r.grants = append(r.grants, id) }

func TestModifierEffectMatching(t *testing.T) {
	iron := Effect{Kind: EffectResourceProduction, Scope: "Iron", Magnitude: 0.25}
	global := Effect{Kind: EffectResourceProduction, Magnitude: 0.1}

	tests := []struct {
		name   string
		effect Effect
		key    string
		want   float64
	}{
		{"specific matches own scope", iron, "ResourceProduction_Iron", 0.25},
		{"specific ignores other scope", iron, "ResourceProduction_Wood", 0},
		{"specific ignores wildcard", iron, "ResourceProduction_All", 0},
		{"specific ignores other aspect", iron, "StorageCapacity_Iron", 0},
		{"global matches wildcard", global, "ResourceProduction_All", 0.1},
		{"global matches every scope", global, "ResourceProduction_Stone", 0.1},
		{"global matches bare aspect", global, "ResourceProduction", 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := ParseModifierKey(tt.key)
			got := tt.effect.Contribute(key)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Contribute(%s) = %v, want %v", tt.key, got, tt.want)
			}
			if provides := tt.effect.Provides(key); provides != (tt.want != 0) {
				t.Errorf("Provides(%s) = %v", tt.key, provides)
			}
		})
	}
}

func TestOneShotEffects(t *testing.T) {
	a := &recordingActivation{node: &TechNode{ID: "smelting"}}

	Effect{Kind: EffectUnlockFeature, Target: "Building_Smelter"}.OnActivate(a)
	Effect{Kind: EffectGrantTechnology, Target: "alloys"}.OnActivate(a)
	Effect{Kind: EffectResourceProduction, Scope: "Iron", Magnitude: 1}.OnActivate(a)

	if len(a.features) != 1 || a.features[0] != "Building_Smelter" {
		t.Errorf("features = %v", a.features)
	}
	if len(a.grants) != 1 || a.grants[0] != "alloys" {
		t.Errorf("grants = %v", a.grants)
	}

	unlock := Effect{Kind: EffectUnlockFeature, Target: "Building_Smelter"}
	if unlock.Provides(ParseModifierKey("ResourceProduction_All")) {
		t.Error("one-shot effects should not provide modifiers")
	}
}

type flatBonus struct{}

func (flatBonus) OnActivate(Effect, Activation) {}
func (flatBonus) Provides(_ Effect, key ModifierKey) bool {
	return key.Aspect == "Morale"
}
func (flatBonus) Contribute(e Effect, _ ModifierKey) float64 { return e.Magnitude * 2 }

func TestRegisterEffectKind(t *testing.T) {
	kind := EffectKind("test_morale")
	if !KnownEffectKind(kind) {
		if err := RegisterEffectKind(kind, flatBonus{}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := RegisterEffectKind(kind, flatBonus{}); err == nil {
		t.Error("second registration should fail")
	}
	if !KnownEffectKind(kind) {
		t.Error("kind should be known after registration")
	}

	e := Effect{Kind: kind, Magnitude: 0.5}
	if got := e.Contribute(ParseModifierKey("Morale_Colonists")); got != 1 {
		t.Errorf("Contribute = %v, want 1", got)
	}
	if got := (Effect{Kind: "never_registered", Magnitude: 3}).Contribute(ParseModifierKey("Morale")); got != 0 {
		t.Errorf("unknown kind contributed %v", got)
	}
}

func TestParseModifierKey(t *testing.T) {
	tests := []struct {
		in   string
		want ModifierKey
	}{
		{"ResourceProduction_Iron", ModifierKey{"ResourceProduction", "Iron"}},
		{"ResourceProduction_All", ModifierKey{"ResourceProduction", ScopeAll}},
		{"ResearchSpeed", ModifierKey{"ResearchSpeed", ScopeAll}},
		{"WorkerEfficiency_Iron_Miner", ModifierKey{"WorkerEfficiency", "Iron_Miner"}},
		{"StorageCapacity_", ModifierKey{"StorageCapacity", ScopeAll}},
	}
	for _, tt := range tests {
		if got := ParseModifierKey(tt.in); got != tt.want {
			t.Errorf("ParseModifierKey(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

// FuzzModifierKeyRoundTrip checks that parsing a formatted key is stable
func FuzzModifierKeyRoundTrip(f *testing.F) {
	f.Add("ResourceProduction_Iron")
	f.Add("ResearchSpeed")
	f.Add("_")
	f.Add("A_B_C")

	f.Fuzz(func(t *testing.T, s string) {
		k := ParseModifierKey(s)
		again := ParseModifierKey(k.String())
		if again != k {
			t.Errorf("round trip of %q: %+v != %+v", s, again, k)
		}
	})
}
