package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/research"
)

var treeCategory string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the technology tree grouped by tier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := loadDatabase()
		if err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), research.NewTree(db), models.Category(treeCategory))
		return nil
	},
}

func init() {
	treeCmd.Flags().StringVar(&treeCategory, "category", "", "Only show one category")
}

func printTree(w io.Writer, tree *research.Tree, category models.Category) {
	titleColor := color.New(color.FgCyan, color.Bold)
	db := tree.Database()

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Tier", "Technology", "Category", "Cost", "Time", "Requires", "Unlock", "Effects", "Status"}),
	)

	shown := 0
	for _, tier := range db.Tiers() {
		for _, n := range tree.GetNodesByTier(tier) {
			if category != "" && n.Category != category {
				continue
			}
			_ = table.Append([]string{
				fmt.Sprintf("%d", n.Tier),
				n.DisplayName(),
				string(n.Category),
				n.Cost.String(),
				formatTime(n.ResearchSeconds),
				formatIDs(n.Prerequisites),
				n.Unlock.String(),
				formatEffects(n.Effects),
				status(tree, n.ID),
			})
			shown++
		}
	}

	titleColor.Fprintf(w, "\n🌳 Technology tree (%d of %d)\n", shown, db.Len())
	_ = table.Render()
}

func status(tree *research.Tree, id models.TechID) string {
	db := tree.Database()
	switch {
	case !db.Valid(id):
		return "✗ invalid"
	case tree.IsResearched(id):
		return "✓ researched"
	case tree.IsAvailable(id):
		return "available"
	case tree.IsGranted(id):
		return "granted"
	default:
		return "locked"
	}
}
