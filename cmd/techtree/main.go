// techtree inspects, simulates and serves a colony technology tree.
//
// Usage:
//
//	techtree validate [--data FILE|DIR]
//	techtree tree [--data FILE|DIR] [--category NAME]
//	techtree simulate --plan a,b,c [--stock Iron=50] [--step 1] [--db FILE --profile NAME [--resume]]
//	techtree serve [--addr :8081] [--tick 1s]
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/loader"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/logging"
	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	dataPath   string
	colonyPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "techtree",
	Short: "Colony technology tree tools",
	Long: `Validate technology content, print the tree, simulate a research plan
against a producing colony, or serve research state over HTTP and WebSocket.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if logFormat != "text" && logFormat != "json" {
			return fmt.Errorf("unknown log format %q", logFormat)
		}
		logging.Init(level, logFormat, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "data/technologies.yaml", "Technology file or directory")
	rootCmd.PersistentFlags().StringVar(&colonyPath, "colony", "data/colony.yaml", "Colony description (stock, storage, producers)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadDatabase loads content and warns about content problems. Only failures
// that leave no usable database are returned.
func loadDatabase() (*models.Database, error) {
	db, err := loader.Load(dataPath)
	if db == nil {
		return nil, err
	}
	if problems := loader.Problems(err); len(problems) > 0 {
		color.Yellow("⚠️  %d content problem(s) in %s; affected technologies are disabled (run `techtree validate`)", len(problems), dataPath)
	}
	return db, nil
}

// errContent marks a validate run that found problems
var errContent = errors.New("content has problems")
