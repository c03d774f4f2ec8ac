package economy

import (
	"log/slog"
	"math"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/logging"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// Producer is a building that turns workers into a resource
type Producer struct {
	Name       string              `yaml:"name" json:"name"`
	Building   string              `yaml:"building" json:"building"`
	Resource   models.ResourceType `yaml:"resource" json:"resource"`
	BaseRate   float64             `yaml:"base_rate" json:"base_rate"` // per worker per second
	Workers    int                 `yaml:"workers" json:"workers"`
	WorkerKind string              `yaml:"worker_kind" json:"worker_kind,omitempty"`
}

// Colony accrues producer output into a stockpile. It reads research state
// only through a ModifierSource and never drives research itself.
type Colony struct {
	Stockpile *Stockpile
	producers []Producer
	mods      ModifierSource
	log       *slog.Logger
}

type neutral struct{}

func (neutral) GetTotalMultiplier(string) float64 { return 1 }

// NewColony creates a colony over stock. A nil source applies no modifiers.
func NewColony(stock *Stockpile, mods ModifierSource, producers ...Producer) *Colony {
	if mods == nil {
		mods = neutral{}
	}
	return &Colony{
		Stockpile: stock,
		producers: producers,
		mods:      mods,
		log:       logging.New("economy"),
	}
}

// AddProducer appends a producer
func (c *Colony) AddProducer(p Producer) {
	c.producers = append(c.producers, p)
}

// Producers returns a copy of the producer list
func (c *Colony) Producers() []Producer {
	out := make([]Producer, len(c.producers))
	copy(out, c.producers)
	return out
}

// Multiplier returns the combined research multiplier applied to p
func (c *Colony) Multiplier(p Producer) float64 {
	m := c.mods.GetTotalMultiplier(models.Key(models.AspectResourceProduction, string(p.Resource)))
	if p.Building != "" {
		m *= c.mods.GetTotalMultiplier(models.Key(models.AspectBuildingEfficiency, p.Building))
	}
	if p.WorkerKind != "" {
		m *= c.mods.GetTotalMultiplier(models.Key(models.AspectWorkerEfficiency, p.WorkerKind))
	}
	return m
}

// Rate returns p's output per second. Unstaffed producers yield nothing.
func (c *Colony) Rate(p Producer) float64 {
	if p.Workers <= 0 || p.BaseRate <= 0 {
		return 0
	}
	return p.BaseRate * float64(p.Workers) * c.Multiplier(p)
}

// Rates returns the total output per second for each resource
func (c *Colony) Rates() map[models.ResourceType]float64 {
	rates := make(map[models.ResourceType]float64)
	for _, p := range c.producers {
		if r := c.Rate(p); r > 0 {
			rates[p.Resource] += r
		}
	}
	return rates
}

// Tick produces dt seconds of output into the stockpile and returns what was
// stored per resource.
func (c *Colony) Tick(dt float64) map[models.ResourceType]float64 {
	produced := make(map[models.ResourceType]float64)
	if dt <= 0 || math.IsNaN(dt) {
		return produced
	}
	for rt, rate := range c.Rates() {
		if stored := c.Stockpile.Deposit(rt, rate*dt); stored > 0 {
			produced[rt] = stored
		}
	}
	c.log.Debug("colony tick", slog.Float64("dt", dt), slog.Int("resources", len(produced)))
	return produced
}
