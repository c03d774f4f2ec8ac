package models

import (
	"fmt"
	"sort"
	"sync"
)

// EffectKind tags the behaviour of an Effect
type EffectKind string

const (
	EffectResourceProduction EffectKind = "resource_production"
	EffectWorkerEfficiency   EffectKind = "worker_efficiency"
	EffectBuildingEfficiency EffectKind = "building_efficiency"
	EffectStorageCapacity    EffectKind = "storage_capacity"
	EffectResearchSpeed      EffectKind = "research_speed"
	EffectUnlockFeature      EffectKind = "unlock_feature"
	EffectGrantTechnology    EffectKind = "grant_technology"
)

// Effect is an immutable unit of gameplay modification attached to a TechNode.
// Scope "" or ScopeAll targets every entity of the aspect. Target names the
// feature or technology for one-shot kinds.
type Effect struct {
	Kind      EffectKind
	Scope     string
	Magnitude float64
	Target    string
}

// Global reports whether the effect is not restricted to a specific entity kind
func (e Effect) Global() bool {
	return e.Scope == "" || e.Scope == ScopeAll
}

// Provides reports whether the effect contributes to key
func (e Effect) Provides(key ModifierKey) bool {
	b, ok := behaviorFor(e.Kind)
	if !ok {
		return false
	}
	return b.Provides(e, key)
}

// Contribute returns the magnitude the effect adds for key, 0 if inapplicable
func (e Effect) Contribute(key ModifierKey) float64 {
	b, ok := behaviorFor(e.Kind)
	if !ok || !b.Provides(e, key) {
		return 0
	}
	return b.Contribute(e, key)
}

// OnActivate runs the one-shot side effect of the effect, if any
func (e Effect) OnActivate(a Activation) {
	if b, ok := behaviorFor(e.Kind); ok {
		b.OnActivate(e, a)
	}
}

func (e Effect) String() string {
	switch {
	case e.Target != "":
		return fmt.Sprintf("%s(%s)", e.Kind, e.Target)
	case e.Global():
		return fmt.Sprintf("%s %+.2f", e.Kind, e.Magnitude)
	default:
		return fmt.Sprintf("%s[%s] %+.2f", e.Kind, e.Scope, e.Magnitude)
	}
}

// Activation is what a completing technology may touch from OnActivate
type Activation interface {
	Node() *TechNode
	UnlockFeature(name string)
	GrantTechnology(id TechID)
}

// EffectBehavior implements one effect kind. Provides and Contribute must be pure.
type EffectBehavior interface {
	OnActivate(e Effect, a Activation)
	Provides(e Effect, key ModifierKey) bool
	Contribute(e Effect, key ModifierKey) float64
}

var (
	registryMu sync.RWMutex
	registry   = map[EffectKind]EffectBehavior{}
)

func init() {
	mustRegister(EffectResourceProduction, ModifierBehavior{Aspect: AspectResourceProduction})
	mustRegister(EffectWorkerEfficiency, ModifierBehavior{Aspect: AspectWorkerEfficiency})
	mustRegister(EffectBuildingEfficiency, ModifierBehavior{Aspect: AspectBuildingEfficiency})
	mustRegister(EffectStorageCapacity, ModifierBehavior{Aspect: AspectStorageCapacity})
	mustRegister(EffectResearchSpeed, ModifierBehavior{Aspect: AspectResearchSpeed})
	mustRegister(EffectUnlockFeature, unlockFeature{})
	mustRegister(EffectGrantTechnology, grantTechnology{})
}

// RegisterEffectKind plugs in a new effect kind
func RegisterEffectKind(kind EffectKind, b EffectBehavior) error {
	if kind == "" || b == nil {
		return fmt.Errorf("invalid effect kind registration %q", kind)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[kind]; exists {
		return fmt.Errorf("effect kind %q already registered", kind)
	}
	registry[kind] = b
	return nil
}

func mustRegister(kind EffectKind, b EffectBehavior) {
	if err := RegisterEffectKind(kind, b); err != nil {
		panic(err)
	}
}

// KnownEffectKind reports whether kind has a registered behaviour
func KnownEffectKind(kind EffectKind) bool {
	_, ok := behaviorFor(kind)
	return ok
}

// EffectKinds returns all registered kinds, sorted
func EffectKinds() []EffectKind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]EffectKind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func behaviorFor(kind EffectKind) (EffectBehavior, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[kind]
	return b, ok
}

// ModifierBehavior is a purely numeric effect on one aspect.
// Global effects also match every specific scope of the aspect.
type ModifierBehavior struct {
	Aspect string
}

func (ModifierBehavior) OnActivate(Effect, Activation) {}

func (m ModifierBehavior) Provides(e Effect, key ModifierKey) bool {
	if key.Aspect != m.Aspect {
		return false
	}
	return e.Global() || e.Scope == key.Scope
}

func (ModifierBehavior) Contribute(e Effect, _ ModifierKey) float64 {
	return e.Magnitude
}

type unlockFeature struct{}

func (unlockFeature) OnActivate(e Effect, a Activation) {
	if e.Target != "" {
		a.UnlockFeature(e.Target)
	}
}

func (unlockFeature) Provides(Effect, ModifierKey) bool     { return false }
func (unlockFeature) Contribute(Effect, ModifierKey) float64 { return 0 }

type grantTechnology struct{}

func (grantTechnology) OnActivate(e Effect, a Activation) {
	if e.Target != "" {
		a.GrantTechnology(TechID(e.Target))
	}
}

func (grantTechnology) Provides(Effect, ModifierKey) bool     { return false }
func (grantTechnology) Contribute(Effect, ModifierKey) float64 { return 0 }
