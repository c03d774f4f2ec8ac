package models

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	ErrDuplicateID          = errors.New("duplicate technology id")
	ErrDanglingPrerequisite = errors.New("prerequisite does not exist")
	ErrInvalidDuration      = errors.New("research duration must be positive and finite")
	ErrPrerequisiteCycle    = errors.New("prerequisite cycle")
	ErrNegativeCost         = errors.New("negative cost amount")
	ErrUnknownEffectKind    = errors.New("unknown effect kind")
)

// ContentError describes a malformed technology. Only the offending node is affected.
type ContentError struct {
	Node   TechID
	Err    error
	Detail string
}

func (e *ContentError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("technology %s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("technology %s: %v: %s", e.Node, e.Err, e.Detail)
}

func (e *ContentError) Unwrap() error { return e.Err }

// Database is the static, ordered set of technologies loaded at startup.
// Nodes that failed validation stay listed but are marked invalid.
type Database struct {
	nodes   []*TechNode
	byID    map[TechID]*TechNode
	invalid map[TechID]error
}

// NewDatabase indexes nodes in order and validates them. The returned database is
// always usable; the error joins every ContentError found (nil when clean).
func NewDatabase(nodes []*TechNode) (*Database, error) {
	db := &Database{
		nodes:   make([]*TechNode, 0, len(nodes)),
		byID:    make(map[TechID]*TechNode, len(nodes)),
		invalid: make(map[TechID]error),
	}

	var problems []error
	report := func(id TechID, err error, detail string) {
		ce := &ContentError{Node: id, Err: err, Detail: detail}
		problems = append(problems, ce)
		if _, seen := db.invalid[id]; !seen {
			db.invalid[id] = ce
		}
	}

	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, exists := db.byID[n.ID]; exists {
			// First definition wins; later copies are dropped.
			problems = append(problems, &ContentError{Node: n.ID, Err: ErrDuplicateID})
			continue
		}
		db.byID[n.ID] = n
		db.nodes = append(db.nodes, n)
	}

	for _, n := range db.nodes {
		if !(n.ResearchSeconds > 0) || math.IsInf(n.ResearchSeconds, 1) {
			report(n.ID, ErrInvalidDuration, fmt.Sprintf("%gs", n.ResearchSeconds))
		}
		for _, c := range n.Cost {
			if c.Amount < 0 {
				report(n.ID, ErrNegativeCost, fmt.Sprintf("%s:%d", c.Resource, c.Amount))
			}
		}
		for _, p := range n.Prerequisites {
			if _, ok := db.byID[p]; !ok {
				report(n.ID, ErrDanglingPrerequisite, string(p))
			}
		}
		for _, e := range n.Effects {
			if !KnownEffectKind(e.Kind) {
				report(n.ID, ErrUnknownEffectKind, string(e.Kind))
			}
		}
	}

	for _, cycle := range db.cycles() {
		for _, id := range cycle {
			report(id, ErrPrerequisiteCycle, fmt.Sprint(cycle))
		}
	}

	return db, errors.Join(problems...)
}

// Nodes returns all indexed technologies in content order
func (db *Database) Nodes() []*TechNode {
	out := make([]*TechNode, len(db.nodes))
	copy(out, db.nodes)
	return out
}

// Len returns the number of indexed technologies
func (db *Database) Len() int {
	return len(db.nodes)
}

// Get returns a technology by id, or nil
func (db *Database) Get(id TechID) *TechNode {
	return db.byID[id]
}

// Valid reports whether id exists and passed validation
func (db *Database) Valid(id TechID) bool {
	if _, ok := db.byID[id]; !ok {
		return false
	}
	_, bad := db.invalid[id]
	return !bad
}

// Invalid returns the first content error recorded for id, or nil
func (db *Database) Invalid(id TechID) error {
	return db.invalid[id]
}

// NodesByTier returns technologies of a tier in content order
func (db *Database) NodesByTier(tier int) []*TechNode {
	var out []*TechNode
	for _, n := range db.nodes {
		if n.Tier == tier {
			out = append(out, n)
		}
	}
	return out
}

// NodesByCategory returns technologies of a category in content order
func (db *Database) NodesByCategory(c Category) []*TechNode {
	var out []*TechNode
	for _, n := range db.nodes {
		if n.Category == c {
			out = append(out, n)
		}
	}
	return out
}

// Tiers returns the distinct tiers present, ascending
func (db *Database) Tiers() []int {
	seen := make(map[int]bool)
	var out []int
	for _, n := range db.nodes {
		if !seen[n.Tier] {
			seen[n.Tier] = true
			out = append(out, n.Tier)
		}
	}
	slices.Sort(out)
	return out
}

// Dependents returns the technologies that list id as a direct prerequisite
func (db *Database) Dependents(id TechID) []*TechNode {
	var out []*TechNode
	for _, n := range db.nodes {
		if n.Requires(id) {
			out = append(out, n)
		}
	}
	return out
}

// cycles returns the strongly connected components that form prerequisite
// cycles (size > 1, or a node requiring itself), using Tarjan's algorithm.
func (db *Database) cycles() [][]TechID {
	var (
		index   = 0
		indices = make(map[TechID]int, len(db.nodes))
		lowlink = make(map[TechID]int, len(db.nodes))
		onStack = make(map[TechID]bool, len(db.nodes))
		stack   []TechID
		out     [][]TechID
	)

	var strongConnect func(n *TechNode)
	strongConnect = func(n *TechNode) {
		indices[n.ID] = index
		lowlink[n.ID] = index
		index++
		stack = append(stack, n.ID)
		onStack[n.ID] = true

		for _, p := range n.Prerequisites {
			dep, ok := db.byID[p]
			if !ok {
				continue
			}
			if _, visited := indices[p]; !visited {
				strongConnect(dep)
				lowlink[n.ID] = min(lowlink[n.ID], lowlink[p])
			} else if onStack[p] {
				lowlink[n.ID] = min(lowlink[n.ID], indices[p])
			}
		}

		if lowlink[n.ID] != indices[n.ID] {
			return
		}
		var scc []TechID
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			scc = append(scc, top)
			if top == n.ID {
				break
			}
		}
		if len(scc) > 1 || n.Requires(n.ID) {
			out = append(out, scc)
		}
	}

	for _, n := range db.nodes {
		if _, visited := indices[n.ID]; !visited {
			strongConnect(n)
		}
	}
	return out
}
