package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/logging"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// Precompiled regex for HH:MM:SS research times
var timeFormatRegex = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

// TechnologyFile is the top-level structure of a technology database file
type TechnologyFile struct {
	Technologies []TechnologyDoc `yaml:"technologies" json:"technologies"`
}

// TechnologyDoc represents one technology as written in content files
type TechnologyDoc struct {
	ID              string      `yaml:"id" json:"id"`
	Name            string      `yaml:"name" json:"name"`
	Description     string      `yaml:"description,omitempty" json:"description,omitempty"`
	Tier            int         `yaml:"tier" json:"tier"`
	Category        string      `yaml:"category" json:"category"`
	Cost            CostList    `yaml:"cost,omitempty" json:"cost,omitempty"`
	ResearchSeconds float64     `yaml:"research_seconds,omitempty" json:"research_seconds,omitempty"`
	ResearchTime    string      `yaml:"research_time,omitempty" json:"research_time,omitempty"`
	Prerequisites   []string    `yaml:"prerequisites,omitempty" json:"prerequisites,omitempty"`
	Unlock          string      `yaml:"unlock,omitempty" json:"unlock,omitempty"`
	Effects         []EffectDoc `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// CostDoc is one (resource, amount) entry
type CostDoc struct {
	Resource string `yaml:"resource" json:"resource"`
	Amount   int    `yaml:"amount" json:"amount"`
}

// CostList keeps cost entries in authored order. In YAML it may be written
// either as a sequence of {resource, amount} or as a mapping resource: amount.
type CostList []CostDoc

// UnmarshalYAML accepts both the sequence and the ordered mapping form
func (c *CostList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var entries []CostDoc
		if err := value.Decode(&entries); err != nil {
			return err
		}
		*c = CostList(entries)
	case yaml.MappingNode:
		entries := make(CostList, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			var amount int
			if err := value.Content[i+1].Decode(&amount); err != nil {
				return fmt.Errorf("cost %s: %w", value.Content[i].Value, err)
			}
			entries = append(entries, CostDoc{Resource: value.Content[i].Value, Amount: amount})
		}
		*c = entries
	case yaml.ScalarNode:
		if value.Tag != "!!null" {
			return fmt.Errorf("line %d: cost must be a list or mapping", value.Line)
		}
		*c = nil
	default:
		return fmt.Errorf("line %d: cost must be a list or mapping", value.Line)
	}
	return nil
}

// EffectDoc represents one effect as written in content files
type EffectDoc struct {
	Kind      string  `yaml:"kind" json:"kind"`
	Scope     string  `yaml:"scope,omitempty" json:"scope,omitempty"`
	Magnitude float64 `yaml:"magnitude,omitempty" json:"magnitude,omitempty"`
	Target    string  `yaml:"target,omitempty" json:"target,omitempty"`
}

// Load reads a technology database from a YAML or JSON file, or from every
// such file of a directory in name order.
//
// A nil database means the content could not be read at all. A non-nil
// database with a non-nil error means some technologies were malformed; they
// are excluded or marked invalid and the rest stays usable.
func Load(path string) (*models.Database, error) {
	log := logging.New("loader")

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		files, err = contentFiles(path)
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{path}
	}

	var docs []TechnologyDoc
	for _, f := range files {
		parsed, err := parseFile(f)
		if err != nil {
			return nil, err
		}
		docs = append(docs, parsed...)
	}

	db, err := Build(docs)
	report(log, path, err)
	return db, err
}

// Parse decodes a single document. Format is "yaml" or "json".
func Parse(data []byte, format string) (*models.Database, error) {
	docs, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	db, err := Build(docs)
	report(logging.New("loader"), "<memory>", err)
	return db, err
}

// Build converts documents into a validated database. Documents that cannot be
// converted at all are dropped; every problem is joined into the returned error.
func Build(docs []TechnologyDoc) (*models.Database, error) {
	var problems []error
	nodes := make([]*models.TechNode, 0, len(docs))

	for i, doc := range docs {
		n, err := convert(doc)
		if err != nil {
			id := models.TechID(doc.ID)
			if id == "" {
				id = models.TechID("#" + strconv.Itoa(i))
			}
			problems = append(problems, &models.ContentError{Node: id, Err: err})
			continue
		}
		nodes = append(nodes, n)
	}

	db, err := models.NewDatabase(nodes)
	if err != nil {
		problems = append(problems, Problems(err)...)
	}
	return db, errors.Join(problems...)
}

// Problems flattens an error returned by Load or Build into individual problems
func Problems(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Problems(e)...)
		}
		return out
	}
	return []error{err}
}

var (
	errMissingID       = errors.New("missing id")
	errBadResearchTime = errors.New("research_time must be HH:MM:SS")
)

func convert(doc TechnologyDoc) (*models.TechNode, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return nil, errMissingID
	}

	unlock, err := models.ParseUnlockMethod(doc.Unlock)
	if err != nil {
		return nil, err
	}

	seconds := doc.ResearchSeconds
	if doc.ResearchTime != "" {
		parsed, err := parseResearchTime(doc.ResearchTime)
		if err != nil {
			return nil, err
		}
		seconds = parsed
	}

	n := &models.TechNode{
		ID:              models.TechID(doc.ID),
		Name:            doc.Name,
		Description:     doc.Description,
		Tier:            doc.Tier,
		Category:        models.Category(strings.ToLower(doc.Category)),
		ResearchSeconds: seconds,
		Unlock:          unlock,
	}

	for _, c := range doc.Cost {
		n.Cost = append(n.Cost, models.Cost{Resource: models.ResourceType(c.Resource), Amount: c.Amount})
	}
	for _, p := range doc.Prerequisites {
		n.Prerequisites = append(n.Prerequisites, models.TechID(p))
	}
	for _, e := range doc.Effects {
		n.Effects = append(n.Effects, models.Effect{
			Kind:      models.EffectKind(e.Kind),
			Scope:     e.Scope,
			Magnitude: e.Magnitude,
			Target:    e.Target,
		})
	}

	return n, nil
}

func parseResearchTime(s string) (float64, error) {
	if !timeFormatRegex.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", errBadResearchTime, s)
	}
	parts := strings.Split(s, ":")
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	return float64(hours*3600 + minutes*60 + seconds), nil
}

func parseFile(path string) ([]TechnologyDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	docs, err := decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return docs, nil
}

func decode(data []byte, format string) ([]TechnologyDoc, error) {
	var file TechnologyFile
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, err
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return file.Technologies, nil
}

func contentFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func report(log *slog.Logger, source string, err error) {
	problems := Problems(err)
	if len(problems) == 0 {
		return
	}
	for _, p := range problems {
		var ce *models.ContentError
		if errors.As(p, &ce) {
			log.Warn("content error", slog.String("tech", string(ce.Node)), slog.Any("err", ce.Err))
			continue
		}
		log.Warn("content error", slog.Any("err", p))
	}
	log.Warn("technology database loaded with errors",
		slog.String("source", source), slog.Int("problems", len(problems)))
}
