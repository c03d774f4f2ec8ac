// Package economy holds the colony-side consumers of research: a resource
// stockpile that pays research costs and producers whose output is scaled by
// researched modifiers.
package economy

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// ModifierSource answers modifier queries. research.Tree satisfies it.
type ModifierSource interface {
	GetTotalMultiplier(key string) float64
}

// Stockpile is a resource store safe for concurrent use. It implements
// research.Ledger: Deduct checks and applies a whole cost list under one lock.
type Stockpile struct {
	mu      sync.Mutex
	amounts map[models.ResourceType]float64
	caps    map[models.ResourceType]int
	mods    ModifierSource
}

// NewStockpile creates a stockpile holding the given amounts
func NewStockpile(initial map[models.ResourceType]float64) *Stockpile {
	s := &Stockpile{
		amounts: make(map[models.ResourceType]float64),
		caps:    make(map[models.ResourceType]int),
	}
	for rt, amount := range initial {
		s.amounts[rt] = math.Max(0, amount)
	}
	return s
}

// SetCapacity sets the base storage capacity of a resource. Zero removes the cap.
func (s *Stockpile) SetCapacity(rt models.ResourceType, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if capacity <= 0 {
		delete(s.caps, rt)
		return
	}
	s.caps[rt] = capacity
	s.clamp(rt)
}

// SetModifiers makes capacities scale with StorageCapacity_{Resource}
func (s *Stockpile) SetModifiers(src ModifierSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mods = src
}

// Capacity returns the effective capacity of a resource, 0 when uncapped
func (s *Stockpile) Capacity(rt models.ResourceType) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity(rt)
}

func (s *Stockpile) capacity(rt models.ResourceType) float64 {
	base, ok := s.caps[rt]
	if !ok {
		return 0
	}
	if s.mods == nil {
		return float64(base)
	}
	return float64(base) * s.mods.GetTotalMultiplier(models.Key(models.AspectStorageCapacity, string(rt)))
}

func (s *Stockpile) clamp(rt models.ResourceType) {
	if c := s.capacity(rt); c > 0 && s.amounts[rt] > c {
		s.amounts[rt] = c
	}
}

// Deposit adds amount of a resource, capped at storage, and returns what was
// actually stored.
func (s *Stockpile) Deposit(rt models.ResourceType, amount float64) float64 {
	if amount <= 0 || math.IsNaN(amount) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.amounts[rt]
	s.amounts[rt] = before + amount
	s.clamp(rt)
	return s.amounts[rt] - before
}

// Amount returns the stored amount of a resource
func (s *Stockpile) Amount(rt models.ResourceType) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amounts[rt]
}

// Amounts returns a copy of every stored amount
func (s *Stockpile) Amounts() map[models.ResourceType]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.ResourceType]float64, len(s.amounts))
	for rt, v := range s.amounts {
		out[rt] = v
	}
	return out
}

// Affordable reports whether every entry of c can be paid
func (s *Stockpile) Affordable(c models.Costs) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.affordable(c)
}

func (s *Stockpile) affordable(c models.Costs) bool {
	for _, entry := range c.Totals() {
		if s.amounts[entry.Resource] < float64(entry.Amount) {
			return false
		}
	}
	return true
}

// Deduct pays c in full or not at all
func (s *Stockpile) Deduct(c models.Costs) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.affordable(c) {
		return false
	}
	for _, entry := range c.Totals() {
		s.amounts[entry.Resource] -= float64(entry.Amount)
	}
	return true
}

// String renders amounts sorted by resource name
func (s *Stockpile) String() string {
	amounts := s.Amounts()
	keys := make([]string, 0, len(amounts))
	for rt := range amounts {
		keys = append(keys, string(rt))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%.1f", k, amounts[models.ResourceType(k)]))
	}
	return strings.Join(parts, " ")
}

// ParseStock parses "Iron=50" style entries into initial amounts
func ParseStock(entries []string) (map[models.ResourceType]float64, error) {
	out := make(map[models.ResourceType]float64, len(entries))
	for _, e := range entries {
		name, value, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid stock entry %q, expected Resource=amount", e)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in %q: %w", e, err)
		}
		if amount < 0 {
			return nil, fmt.Errorf("negative amount in %q", e)
		}
		out[models.ResourceType(name)] += amount
	}
	return out, nil
}
