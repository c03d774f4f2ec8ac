package models

import "strings"

// ScopeAll is the scope qualifier that addresses every entity of an aspect
const ScopeAll = "All"

// Aspects used by the built-in effect kinds
const (
	AspectResourceProduction = "ResourceProduction"
	AspectWorkerEfficiency   = "WorkerEfficiency"
	AspectBuildingEfficiency = "BuildingEfficiency"
	AspectStorageCapacity    = "StorageCapacity"
	AspectResearchSpeed      = "ResearchSpeed"
)

// ModifierKey is the structured form of a "{Aspect}_{Scope}" modifier key
type ModifierKey struct {
	Aspect string
	Scope  string
}

// ParseModifierKey splits a key on its first underscore.
// A key without a scope qualifier addresses ScopeAll.
func ParseModifierKey(s string) ModifierKey {
	aspect, scope, found := strings.Cut(s, "_")
	if !found || scope == "" {
		return ModifierKey{Aspect: aspect, Scope: ScopeAll}
	}
	return ModifierKey{Aspect: aspect, Scope: scope}
}

// Key builds the string form for an aspect and scope
func Key(aspect, scope string) string {
	return ModifierKey{Aspect: aspect, Scope: scope}.String()
}

func (k ModifierKey) String() string {
	scope := k.Scope
	if scope == "" {
		scope = ScopeAll
	}
	return k.Aspect + "_" + scope
}

// IsWildcard reports whether the key addresses every scope of its aspect
func (k ModifierKey) IsWildcard() bool {
	return k.Scope == "" || k.Scope == ScopeAll
}
