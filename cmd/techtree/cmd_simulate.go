package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/economy"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/loader"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/research"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/store"
)

var (
	simPlan    []string
	simStock   []string
	simStep    float64
	simMaxWait float64
	simDB      string
	simProfile string
	simResume  bool
	simQuiet   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Research a plan of technologies against a producing colony",
	Long: `Runs the research plan in order. Before each technology the colony produces
until the cost is affordable, then the research runs to completion in fixed time
steps. Progress can be saved to and resumed from a SQLite profile.`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringSliceVarP(&simPlan, "plan", "p", nil, "Technology ids to research, in order")
	simulateCmd.Flags().StringSliceVarP(&simStock, "stock", "s", nil, "Extra starting stock, e.g. Iron=50")
	simulateCmd.Flags().Float64Var(&simStep, "step", 1, "Simulation step in seconds")
	simulateCmd.Flags().Float64Var(&simMaxWait, "max-wait", 24*3600, "Give up waiting for resources after this many seconds")
	simulateCmd.Flags().StringVar(&simDB, "db", "", "SQLite file to save progress to")
	simulateCmd.Flags().StringVar(&simProfile, "profile", "default", "Save profile name")
	simulateCmd.Flags().BoolVar(&simResume, "resume", false, "Resume the saved profile before running the plan")
	simulateCmd.Flags().BoolVarP(&simQuiet, "quiet", "q", false, "Only print the summary")
}

// planStep is one researched technology on the simulated timeline
type planStep struct {
	node  *models.TechNode
	start float64
	end   float64
}

// simulation drives a scheduler and a colony on a shared clock
type simulation struct {
	sched   *research.Scheduler
	colony  *economy.Colony
	step    float64
	maxWait float64
	now     float64
}

func (s *simulation) advance() {
	s.colony.Tick(s.step)
	s.sched.Tick(researchStep(s.sched.Tree(), s.step))
	s.now += s.step
}

// researchStep scales wall time by the colony-wide research speed modifier
func researchStep(tree *research.Tree, dt float64) float64 {
	return dt * tree.GetTotalMultiplier(models.Key(models.AspectResearchSpeed, models.ScopeAll))
}

// errResearchStalled reports a research speed multiplier that stops progress
var errResearchStalled = errors.New("research speed multiplier stops progress")

// finish runs the research in flight to completion
func (s *simulation) finish() error {
	for s.sched.Busy() {
		if step := researchStep(s.sched.Tree(), s.step); !(step > 0) {
			return fmt.Errorf("%s: %w (%s = %g)", s.sched.Current().ID, errResearchStalled,
				models.Key(models.AspectResearchSpeed, models.ScopeAll), step/s.step)
		}
		s.advance()
	}
	return nil
}

// research waits for resources, starts id and runs it to completion
func (s *simulation) research(id models.TechID) (planStep, error) {
	tree := s.sched.Tree()
	n := tree.Node(id)
	if n == nil {
		return planStep{}, fmt.Errorf("%s: %w", id, research.ErrUnknownTechnology)
	}

	deadline := s.now + s.maxWait
	for !s.colony.Stockpile.Affordable(n.Cost) {
		if s.now >= deadline {
			return planStep{}, fmt.Errorf("%s: %w after waiting %s (have %s, need %s)",
				id, research.ErrInsufficientResources, formatTime(s.maxWait), s.colony.Stockpile, n.Cost)
		}
		s.colony.Tick(s.step)
		s.now += s.step
	}

	if err := s.sched.StartResearch(id); err != nil {
		return planStep{}, err
	}
	start := s.now
	if err := s.finish(); err != nil {
		return planStep{}, err
	}
	return planStep{node: n, start: start, end: s.now}, nil
}

// run researches plan in order. Already researched ids are skipped.
func (s *simulation) run(plan []models.TechID) ([]planStep, error) {
	var steps []planStep
	for _, id := range plan {
		if s.sched.Tree().IsResearched(id) {
			continue
		}
		st, err := s.research(id)
		if err != nil {
			return steps, err
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	infoColor := color.New(color.FgYellow)

	if simStep <= 0 || math.IsNaN(simStep) {
		return fmt.Errorf("--step must be positive, got %v", simStep)
	}
	if len(simPlan) == 0 && !simResume {
		return errors.New("nothing to do: pass --plan and/or --resume")
	}

	db, err := loadDatabase()
	if err != nil {
		return err
	}
	extra, err := economy.ParseStock(simStock)
	if err != nil {
		return err
	}
	colonyFile, err := loadColonyFile(cmd)
	if err != nil {
		return err
	}

	var st *store.Store
	if simDB != "" {
		if st, err = store.Open(simDB); err != nil {
			return err
		}
		defer st.Close()
	}

	var opts []research.Option
	if !simQuiet {
		opts = append(opts, research.WithNotifier(eventPrinter(out, db)))
	}
	tree := research.NewTree(db, opts...)

	var saved *store.Record
	if simResume {
		if st == nil {
			return errors.New("--resume needs --db")
		}
		rec, err := st.Load(ctx, simProfile)
		if err != nil {
			return err
		}
		saved = &rec
		colonyFile = &loader.ColonyFile{Stock: rec.Stock, Capacity: colonyFile.Capacity, Producers: colonyFile.Producers}
	}

	colony := colonyFile.Colony(tree, extra)
	sim := &simulation{
		sched:   research.NewScheduler(tree, colony.Stockpile),
		colony:  colony,
		step:    simStep,
		maxWait: simMaxWait,
	}

	var runErr error
	if saved != nil {
		if err := sim.sched.Restore(saved.Snapshot); err != nil {
			color.Yellow("⚠️  %v", err)
		}
		infoColor.Fprintf(out, "📂 Resumed profile %q: %d researched\n", simProfile, len(tree.GetResearchedNodes()))
		runErr = sim.finish()
	}

	plan := make([]models.TechID, 0, len(simPlan))
	for _, id := range simPlan {
		if id = strings.TrimSpace(id); id != "" {
			plan = append(plan, models.TechID(id))
		}
	}
	var steps []planStep
	if runErr == nil {
		steps, runErr = sim.run(plan)
	}

	printTimeline(out, steps)
	printSummary(out, sim)

	if st != nil {
		rec := store.Record{Snapshot: sim.sched.Snapshot(), Stock: colony.Stockpile.Amounts()}
		if err := st.Save(ctx, simProfile, rec); err != nil {
			return err
		}
		infoColor.Fprintf(out, "💾 Saved profile %q to %s\n", simProfile, simDB)
	}
	return runErr
}

// loadColonyFile reads --colony. A missing default file means an empty colony.
func loadColonyFile(cmd *cobra.Command) (*loader.ColonyFile, error) {
	file, err := loader.LoadColony(colonyPath)
	if err == nil {
		return file, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("colony") {
		return &loader.ColonyFile{}, nil
	}
	return nil, err
}

func eventPrinter(w io.Writer, db *models.Database) research.Notifier {
	successColor := color.New(color.FgGreen)
	dimColor := color.New(color.FgHiBlack)
	return research.NotifierFunc(func(e research.Event) {
		switch e.Type {
		case research.EventStartedResearch:
			fmt.Fprintf(w, "🔬 Started %s\n", db.Get(e.Node).DisplayName())
		case research.EventResearched:
			successColor.Fprintf(w, "✅ Researched %s\n", db.Get(e.Node).DisplayName())
		case research.EventAvailabilityChanged:
			if e.Available {
				dimColor.Fprintf(w, "   ↳ %s is now available\n", db.Get(e.Node).DisplayName())
			}
		case research.EventCancelled:
			color.New(color.FgRed).Fprintf(w, "✗ Cancelled %s\n", e.Node)
		}
	})
}

func printTimeline(w io.Writer, steps []planStep) {
	if len(steps) == 0 {
		return
	}
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"#", "Technology", "Start", "End", "Duration", "Cost"}),
	)
	for i, s := range steps {
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			s.node.DisplayName(),
			formatTime(s.start),
			formatTime(s.end),
			formatTime(s.end - s.start),
			s.node.Cost.String(),
		})
	}
	fmt.Fprintln(w)
	_ = table.Render()
}

func printSummary(w io.Writer, sim *simulation) {
	titleColor := color.New(color.FgCyan, color.Bold)
	tree := sim.sched.Tree()

	titleColor.Fprintf(w, "\n📊 After %s\n", formatTime(sim.now))
	fmt.Fprintf(w, "   • Researched: %d of %d\n", len(tree.GetResearchedNodes()), tree.Database().Len())

	resources := models.AllResourceTypes()
	for _, rt := range resources {
		if m := tree.GetModifier(models.Key(models.AspectResourceProduction, string(rt))); m != 0 {
			fmt.Fprintf(w, "   • %s production %s\n", rt, formatPercent(m))
		}
	}
	for _, rt := range resources {
		if m := tree.GetModifier(models.Key(models.AspectStorageCapacity, string(rt))); m != 0 {
			fmt.Fprintf(w, "   • %s storage %s\n", rt, formatPercent(m))
		}
	}
	if features := tree.UnlockedFeatures(); len(features) > 0 {
		names := make([]string, len(features))
		for i, f := range features {
			names[i] = formatName(f)
		}
		fmt.Fprintf(w, "   • Unlocked: %s\n", strings.Join(names, ", "))
	}

	rates := sim.colony.Rates()
	keys := make([]string, 0, len(rates))
	for rt := range rates {
		keys = append(keys, string(rt))
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "   • %s: %.2f/s\n", k, rates[models.ResourceType(k)])
	}
	fmt.Fprintf(w, "   • Stockpile: %s\n", sim.colony.Stockpile)
}
