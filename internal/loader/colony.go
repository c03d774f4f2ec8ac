package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/economy"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// ColonyFile describes a starting colony: stock, storage and producers
type ColonyFile struct {
	Stock     map[models.ResourceType]float64 `yaml:"stock"`
	Capacity  map[models.ResourceType]int     `yaml:"capacity"`
	Producers []economy.Producer              `yaml:"producers"`
}

// LoadColony reads a colony description from a YAML file
func LoadColony(path string) (*ColonyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	var file ColonyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	for i, p := range file.Producers {
		if p.Resource == "" {
			return nil, fmt.Errorf("%s: producer %d (%s) has no resource", filepath.Base(path), i, p.Name)
		}
	}
	return &file, nil
}

// Colony builds a colony from the file. extra stock is added on top of the
// file's starting amounts.
func (f *ColonyFile) Colony(mods economy.ModifierSource, extra map[models.ResourceType]float64) *economy.Colony {
	stock := make(map[models.ResourceType]float64, len(f.Stock)+len(extra))
	for rt, v := range f.Stock {
		stock[rt] += v
	}
	for rt, v := range extra {
		stock[rt] += v
	}
	pile := economy.NewStockpile(stock)
	for rt, c := range f.Capacity {
		pile.SetCapacity(rt, c)
	}
	if mods != nil {
		pile.SetModifiers(mods)
	}
	return economy.NewColony(pile, mods, f.Producers...)
}
