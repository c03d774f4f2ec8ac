package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/economy"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/hub"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/loader"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/logging"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/research"
)

// server exposes one colony's research over HTTP. Every access to the
// scheduler and tree goes through mu.
type server struct {
	mu     sync.Mutex
	sched  *research.Scheduler
	colony *economy.Colony
	hub    *hub.Hub
	log    *slog.Logger

	stalled bool
}

func newServer(db *models.Database, colonyFile *loader.ColonyFile, h *hub.Hub) *server {
	s := &server{hub: h, log: logging.New("server")}
	var notifier research.Notifier
	if h != nil {
		notifier = h
	}
	tree := research.NewTree(db, research.WithNotifier(notifier))
	s.colony = colonyFile.Colony(tree, nil)
	s.sched = research.NewScheduler(tree, s.colony.Stockpile)
	if h != nil {
		h.Greeting = func() hub.Message {
			s.mu.Lock()
			defer s.mu.Unlock()
			return hub.Message{Type: "ResearchState", Payload: s.researchState()}
		}
	}
	return s
}

// tick advances the colony and the research in flight by dt seconds
func (s *server) tick(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colony.Tick(dt)

	step := researchStep(s.sched.Tree(), dt)
	stalled := s.sched.Busy() && dt > 0 && !(step > 0)
	if stalled && !s.stalled {
		s.log.Warn("research stalled by research speed modifier",
			slog.String("tech", string(s.sched.Current().ID)), slog.Float64("step", step))
	}
	s.stalled = stalled
	s.sched.Tick(step)
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/techs", s.handleTechs).Methods("GET")
	r.HandleFunc("/api/techs/{id}/grant", s.handleGrant).Methods("POST")
	r.HandleFunc("/api/research", s.handleResearch).Methods("GET")
	r.HandleFunc("/api/research/start", s.handleStart).Methods("POST")
	r.HandleFunc("/api/research/cancel", s.handleCancel).Methods("POST")
	r.HandleFunc("/api/modifiers", s.handleModifiers).Methods("GET")
	r.HandleFunc("/api/stockpile", s.handleStockpile).Methods("GET")
	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.ServeWs)
	}
	return r
}

type techView struct {
	ID              models.TechID   `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Tier            int             `json:"tier"`
	Category        models.Category `json:"category"`
	Cost            map[string]int  `json:"cost"`
	ResearchSeconds float64         `json:"research_seconds"`
	Prerequisites   []models.TechID `json:"prerequisites"`
	Unlock          string          `json:"unlock"`
	Effects         []string        `json:"effects"`
	Status          string          `json:"status"`
}

type researchView struct {
	Current    models.TechID   `json:"current,omitempty"`
	Progress   float64         `json:"progress"`
	Remaining  float64         `json:"remaining"`
	Researched []models.TechID `json:"researched"`
	Available  []models.TechID `json:"available"`
	Features   []string        `json:"features"`
	Stalled    bool            `json:"stalled,omitempty"`
}

type modifierView struct {
	Modifier   float64 `json:"modifier"`
	Multiplier float64 `json:"multiplier"`
}

type stockpileView struct {
	Amounts  map[models.ResourceType]float64 `json:"amounts"`
	Capacity map[models.ResourceType]float64 `json:"capacity"`
	Rates    map[models.ResourceType]float64 `json:"rates"`
}

func (s *server) researchState() researchView {
	tree := s.sched.Tree()
	v := researchView{
		Progress:   s.sched.Progress(),
		Remaining:  s.sched.Remaining(),
		Researched: nodeIDs(tree.GetResearchedNodes()),
		Available:  nodeIDs(tree.GetAvailableNodes()),
		Features:   tree.UnlockedFeatures(),
		Stalled:    s.stalled && s.sched.Busy(),
	}
	if cur := s.sched.Current(); cur != nil {
		v.Current = cur.ID
	}
	return v
}

func nodeIDs(nodes []*models.TechNode) []models.TechID {
	out := make([]models.TechID, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func (s *server) handleTechs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree := s.sched.Tree()
	nodes := tree.Database().Nodes()
	views := make([]techView, 0, len(nodes))
	for _, n := range nodes {
		cost := make(map[string]int)
		for _, c := range n.Cost.Totals() {
			cost[string(c.Resource)] = c.Amount
		}
		effects := make([]string, 0, len(n.Effects))
		for _, e := range n.Effects {
			effects = append(effects, e.String())
		}
		prereqs := n.Prerequisites
		if prereqs == nil {
			prereqs = []models.TechID{}
		}
		views = append(views, techView{
			ID:              n.ID,
			Name:            n.DisplayName(),
			Description:     n.Description,
			Tier:            n.Tier,
			Category:        n.Category,
			Cost:            cost,
			ResearchSeconds: n.ResearchSeconds,
			Prerequisites:   prereqs,
			Unlock:          n.Unlock.String(),
			Effects:         effects,
			Status:          status(tree, n.ID),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) handleResearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.researchState())
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID models.TechID `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New(`expected {"id": "<technology>"}`))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sched.StartResearch(req.ID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.researchState())
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sched.Cancel(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.researchState())
}

func (s *server) handleGrant(w http.ResponseWriter, r *http.Request) {
	id := models.TechID(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()
	tree := s.sched.Tree()
	if tree.Node(id) == nil {
		writeError(w, http.StatusNotFound, research.ErrUnknownTechnology)
		return
	}
	granted := tree.UnlockExternally(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"granted":   granted,
		"available": tree.IsAvailable(id),
	})
}

func (s *server) handleModifiers(w http.ResponseWriter, r *http.Request) {
	keys := r.URL.Query()["key"]
	if len(keys) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("missing key parameter, e.g. ?key=ResourceProduction_Iron"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sums := s.sched.Tree().GetModifiers(keys...)
	out := make(map[string]modifierView, len(sums))
	for k, v := range sums {
		out[k] = modifierView{Modifier: v, Multiplier: 1 + v}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleStockpile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pile := s.colony.Stockpile
	v := stockpileView{
		Amounts:  pile.Amounts(),
		Capacity: make(map[models.ResourceType]float64),
		Rates:    s.colony.Rates(),
	}
	for rt := range v.Amounts {
		if c := pile.Capacity(rt); c > 0 {
			v.Capacity[rt] = c
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, research.ErrUnknownTechnology):
		return http.StatusNotFound
	case errors.Is(err, research.ErrInsufficientResources):
		return http.StatusPaymentRequired
	default:
		return http.StatusConflict
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
