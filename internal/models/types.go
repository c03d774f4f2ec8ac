package models

import (
	"fmt"
	"strings"
)

// ResourceType identifies a stockpiled resource. Content may introduce new kinds freely.
type ResourceType string

const (
	Wood   ResourceType = "Wood"
	Stone  ResourceType = "Stone"
	Iron   ResourceType = "Iron"
	Copper ResourceType = "Copper"
	Coal   ResourceType = "Coal"
	Food   ResourceType = "Food"
)

// AllResourceTypes returns the built-in resource types in deterministic order
func AllResourceTypes() []ResourceType {
	return []ResourceType{Wood, Stone, Iron, Copper, Coal, Food}
}

// TechID uniquely identifies a technology
type TechID string

// Category tags a technology for grouping in the UI
type Category string

const (
	CategoryProduction     Category = "production"
	CategoryInfrastructure Category = "infrastructure"
	CategoryWorkforce      Category = "workforce"
	CategoryLogistics      Category = "logistics"
	CategoryMilitary       Category = "military"
	CategoryScience        Category = "science"
)

// UnlockMethod controls how a technology enters the available set
type UnlockMethod int

const (
	// Researchable nodes become available once all prerequisites are researched.
	Researchable UnlockMethod = iota
	// ExternallyGranted nodes additionally need an explicit grant (quest, event, effect).
	ExternallyGranted
)

// String returns the content name of the unlock method
func (u UnlockMethod) String() string {
	switch u {
	case Researchable:
		return "researchable"
	case ExternallyGranted:
		return "externally_granted"
	default:
		return "unknown"
	}
}

// ParseUnlockMethod converts a content string into an UnlockMethod.
// An empty string means Researchable.
func ParseUnlockMethod(s string) (UnlockMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "researchable", "research":
		return Researchable, nil
	case "externally_granted", "external", "granted":
		return ExternallyGranted, nil
	}
	return Researchable, fmt.Errorf("unknown unlock method %q", s)
}

// Cost is a single (resource, amount) entry of a research cost
type Cost struct {
	Resource ResourceType
	Amount   int
}

// Costs is an ordered list of cost entries. The same resource may appear more than once.
type Costs []Cost

// Get returns the total amount of a resource across all entries
func (c Costs) Get(rt ResourceType) int {
	total := 0
	for _, entry := range c {
		if entry.Resource == rt {
			total += entry.Amount
		}
	}
	return total
}

// Totals merges duplicate entries, keeping first-seen order
func (c Costs) Totals() Costs {
	out := make(Costs, 0, len(c))
	index := make(map[ResourceType]int, len(c))
	for _, entry := range c {
		if i, ok := index[entry.Resource]; ok {
			out[i].Amount += entry.Amount
			continue
		}
		index[entry.Resource] = len(out)
		out = append(out, entry)
	}
	return out
}

// IsZero reports whether nothing has to be paid
func (c Costs) IsZero() bool {
	for _, entry := range c {
		if entry.Amount != 0 {
			return false
		}
	}
	return true
}

func (c Costs) String() string {
	if len(c) == 0 {
		return "free"
	}
	parts := make([]string, 0, len(c))
	for _, entry := range c {
		parts = append(parts, fmt.Sprintf("%s:%d", entry.Resource, entry.Amount))
	}
	return strings.Join(parts, " ")
}

// TechNode is the immutable descriptor of a researchable technology.
// Research status lives in the research package, keyed by ID.
type TechNode struct {
	ID              TechID
	Name            string
	Description     string
	Tier            int
	Category        Category
	Cost            Costs
	ResearchSeconds float64
	Prerequisites   []TechID
	Unlock          UnlockMethod
	Effects         []Effect
}

// DisplayName returns Name, falling back to the ID
func (n *TechNode) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return string(n.ID)
}

// Requires reports whether id is a direct prerequisite of n
func (n *TechNode) Requires(id TechID) bool {
	for _, p := range n.Prerequisites {
		if p == id {
			return true
		}
	}
	return false
}
