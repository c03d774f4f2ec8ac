package research

import "github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"

// GetModifier sums the contributions of every effect of every researched
// technology that provides key. Keys follow "{Aspect}_{Scope}"; effects
// without a scope also answer every specific scope of their aspect.
func (t *Tree) GetModifier(key string) float64 {
	k := models.ParseModifierKey(key)
	total := 0.0
	for _, n := range t.order {
		for _, e := range n.Effects {
			if e.Provides(k) {
				total += e.Contribute(k)
			}
		}
	}
	return total
}

// GetTotalMultiplier returns 1 + GetModifier(key), ready to multiply a base rate
func (t *Tree) GetTotalMultiplier(key string) float64 {
	return 1.0 + t.GetModifier(key)
}

// GetModifiers answers several keys while visiting each effect once
func (t *Tree) GetModifiers(keys ...string) map[string]float64 {
	out := make(map[string]float64, len(keys))
	unique := make([]string, 0, len(keys))
	parsed := make([]models.ModifierKey, 0, len(keys))
	for _, key := range keys {
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = 0
		unique = append(unique, key)
		parsed = append(parsed, models.ParseModifierKey(key))
	}

	for _, n := range t.order {
		for _, e := range n.Effects {
			for i, k := range parsed {
				if e.Provides(k) {
					out[unique[i]] += e.Contribute(k)
				}
			}
		}
	}
	return out
}

// ActiveEffects returns the effects of researched technologies in completion order
func (t *Tree) ActiveEffects() []models.Effect {
	var out []models.Effect
	for _, n := range t.order {
		out = append(out, n.Effects...)
	}
	return out
}
