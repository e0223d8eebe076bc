// ProcLens - Process structuredness classification from event logs.
// Discovers temporal and existential dependencies between activities
// and classifies the overall process structure.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/proclens/proclens/pkg/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile  string
	outputFile string
	formatFlag string
	verbose    bool

	temporalThreshold    float64
	existentialThreshold float64
	showRatios           bool
	jsonOutput           bool

	// Tabular input flags
	caseIDColumn    string
	activityColumn  string
	timestampColumn string
	delimiterFlag   string

	configFile string
)

var cfg = config.Default()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "proclens",
	Short: "ProcLens - Classify process structuredness from event logs",
	Long: `ProcLens discovers temporal and existential dependencies between
activities in an event log and classifies the process as Structured,
Semi-Structured, Loosely Structured, Unstructured, or a mixed form.

Supported input formats: XES, CSV, XLSX, Parquet.`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default: ~/.proclens/config.yaml, .proclens.yaml)")
}

// loadConfig resolves the effective configuration before any command
// runs. Flag values are applied on top later, flags win.
func loadConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	}

	mgr := config.NewManager()
	if err := mgr.Load(); err != nil {
		return err
	}
	cfg = mgr.Config()
	return nil
}
