// Package research tracks which technologies are researched and available,
// answers modifier queries and schedules the single in-flight research.
//
// Tree and Scheduler are not safe for concurrent use; callers that share them
// across goroutines must serialize access.
package research

import (
	"log/slog"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/logging"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// Option configures a Tree
type Option func(*Tree)

// WithNotifier sets the sink for research events
func WithNotifier(n Notifier) Option {
	return func(t *Tree) {
		if n != nil {
			t.notify = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

// Tree is the mutable research status over a static Database
type Tree struct {
	db *models.Database

	researched map[models.TechID]bool
	order      []*models.TechNode // researched nodes in completion order
	granted    map[models.TechID]bool
	available  map[models.TechID]bool

	features     map[string]bool
	featureOrder []string

	notify Notifier
	log    *slog.Logger
	quiet  bool
}

// NewTree creates a tree with nothing researched. The initial available set is
// computed without emitting events.
func NewTree(db *models.Database, opts ...Option) *Tree {
	t := &Tree{
		db:         db,
		researched: make(map[models.TechID]bool),
		granted:    make(map[models.TechID]bool),
		available:  make(map[models.TechID]bool),
		features:   make(map[string]bool),
		notify:     discard{},
		log:        logging.New("research"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.quiet = true
	t.recompute()
	t.quiet = false
	return t
}

// Database returns the static technology database
func (t *Tree) Database() *models.Database {
	return t.db
}

// Node returns a technology by id, or nil
func (t *Tree) Node(id models.TechID) *models.TechNode {
	return t.db.Get(id)
}

// IsResearched reports whether research of id has completed
func (t *Tree) IsResearched(id models.TechID) bool {
	return t.researched[id]
}

// IsAvailable reports whether research of id may start now
func (t *Tree) IsAvailable(id models.TechID) bool {
	return t.available[id]
}

// IsGranted reports whether id received an external grant
func (t *Tree) IsGranted(id models.TechID) bool {
	return t.granted[id]
}

// GetResearchedNodes returns researched technologies in completion order
func (t *Tree) GetResearchedNodes() []*models.TechNode {
	out := make([]*models.TechNode, len(t.order))
	copy(out, t.order)
	return out
}

// GetAvailableNodes returns available technologies in content order
func (t *Tree) GetAvailableNodes() []*models.TechNode {
	var out []*models.TechNode
	for _, n := range t.db.Nodes() {
		if t.available[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func (t *Tree) GetNodesByTier(tier int) []*models.TechNode {
	return t.db.NodesByTier(tier)
}

func (t *Tree) GetNodesByCategory(c models.Category) []*models.TechNode {
	return t.db.NodesByCategory(c)
}

// IsFeatureUnlocked reports whether a completed technology unlocked the feature
func (t *Tree) IsFeatureUnlocked(name string) bool {
	return t.features[name]
}

// UnlockedFeatures returns unlocked feature names in unlock order
func (t *Tree) UnlockedFeatures() []string {
	out := make([]string, len(t.featureOrder))
	copy(out, t.featureOrder)
	return out
}

// markResearched records n as researched and runs its effects' activation
// hooks in list order.
func (t *Tree) markResearched(n *models.TechNode) {
	if t.researched[n.ID] {
		return
	}
	t.researched[n.ID] = true
	t.order = append(t.order, n)
	t.activate(n)
}

func (t *Tree) activate(n *models.TechNode) {
	a := activation{tree: t, node: n}
	for _, e := range n.Effects {
		e.OnActivate(a)
	}
}

// reset forgets researched and granted technologies. Unlocked features stay:
// activation is one-shot.
func (t *Tree) reset() {
	t.researched = make(map[models.TechID]bool)
	t.granted = make(map[models.TechID]bool)
	t.order = nil
	t.recompute()
}

func (t *Tree) unlockFeature(name string, by models.TechID) {
	if t.features[name] {
		return
	}
	t.features[name] = true
	t.featureOrder = append(t.featureOrder, name)
	t.log.Info("feature unlocked", slog.String("feature", name), slog.String("tech", string(by)))
}

type activation struct {
	tree *Tree
	node *models.TechNode
}

func (a activation) Node() *models.TechNode { return a.node }

func (a activation) UnlockFeature(name string) { a.tree.unlockFeature(name, a.node.ID) }

func (a activation) GrantTechnology(id models.TechID) { a.tree.UnlockExternally(id) }
