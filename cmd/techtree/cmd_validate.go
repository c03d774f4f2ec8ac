package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/loader"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check technology content for errors",
	Long: `Loads the technology content and reports duplicate ids, dangling or cyclic
prerequisites, invalid durations, negative costs and unknown effect kinds.
Exits non-zero when any problem is found.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	errorColor := color.New(color.FgRed)
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgYellow)

	db, err := loader.Load(dataPath)
	if db == nil {
		return err
	}
	problems := loader.Problems(err)

	infoColor.Fprintf(out, "📦 Loaded %d technologies from %s\n", db.Len(), dataPath)
	for _, p := range problems {
		errorColor.Fprintf(out, "   ✗ %v\n", p)
	}

	var invalid int
	for _, n := range db.Nodes() {
		if !db.Valid(n.ID) {
			invalid++
		}
	}
	if len(problems) > 0 {
		errorColor.Fprintf(out, "\n%d problem(s), %d technologies disabled\n", len(problems), invalid)
		for _, kind := range []error{
			models.ErrDuplicateID, models.ErrDanglingPrerequisite, models.ErrPrerequisiteCycle,
			models.ErrInvalidDuration, models.ErrNegativeCost, models.ErrUnknownEffectKind,
		} {
			if n := countMatching(problems, kind); n > 0 {
				fmt.Fprintf(out, "   • %s: %d\n", kind, n)
			}
		}
		return errContent
	}

	successColor.Fprintf(out, "✅ Content is valid: %d technologies across %d tiers\n", db.Len(), len(db.Tiers()))
	return nil
}

func countMatching(errs []error, target error) int {
	n := 0
	for _, e := range errs {
		if errors.Is(e, target) {
			n++
		}
	}
	return n
}
