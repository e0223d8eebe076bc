package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/proclens/proclens/internal/model"
	"github.com/proclens/proclens/pkg/core"
	"github.com/proclens/proclens/pkg/export"
	"github.com/proclens/proclens/pkg/parser"
	"github.com/proclens/proclens/pkg/telemetry"
	"github.com/proclens/proclens/pkg/tui"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify the process structure of an event log",
	Long: `Discover the dependency matrix of an event log and classify the
overall process structure.

Examples:
  proclens classify -i events.xes
  proclens classify -i events.csv --case-id case --activity task
  proclens classify -i events.xes --temporal-threshold 0.9 --ratios
  proclens classify -i events.parquet -o report.xlsx
  proclens classify -i events.xes --json`,
	RunE: runClassify,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the active classification rule table as YAML",
	Long: `Print the classification rule table currently in effect. The output
can be saved, edited, and loaded back through the config file's rules
section.`,
	RunE: runRules,
}

func init() {
	classifyCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input event log path (required)")
	classifyCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write a report file (.json, .csv, or .xlsx)")
	classifyCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Input format (xes, csv, xlsx, parquet) - auto-detected if not specified")
	classifyCmd.Flags().Float64Var(&temporalThreshold, "temporal-threshold", 1.0, "Ratio of traces that must exhibit a temporal relation [0.0-1.0]")
	classifyCmd.Flags().Float64Var(&existentialThreshold, "existential-threshold", 1.0, "Ratio of traces that must exhibit an existential relation [0.0-1.0]")
	classifyCmd.Flags().BoolVar(&showRatios, "ratios", false, "Print the combined-relation ratio table")
	classifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON to stdout")

	classifyCmd.Flags().StringVar(&caseIDColumn, "case-id", "", "Case ID column name (tabular formats)")
	classifyCmd.Flags().StringVar(&activityColumn, "activity", "", "Activity column name (tabular formats)")
	classifyCmd.Flags().StringVar(&timestampColumn, "timestamp", "", "Timestamp column name (tabular formats)")
	classifyCmd.Flags().StringVar(&delimiterFlag, "delimiter", "", "CSV field delimiter")

	classifyCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := setupTelemetry(ctx)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	temporal, existential := effectiveThresholds(cmd)
	engine := core.NewEngine(core.WithRules(cfg.RuleSet()))

	start := time.Now()

	log, err := loadLog(ctx)
	if err != nil {
		return err
	}

	m, err := engine.BuildMatrix(ctx, log, temporal, existential)
	if err != nil {
		return err
	}

	ratios := m.Ratios()
	result := engine.Classify(ratios)
	elapsed := time.Since(start)

	if outputFile != "" {
		rep := export.Report{
			Source: inputFile,
			Matrix: m,
			Ratios: ratios,
			Result: &result,
		}
		if err := export.WriteFile(outputFile, rep); err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tui.PrintResult(inputFile, result, elapsed)
	if showRatios {
		tui.PrintRatios(ratios)
	}
	if verbose {
		fmt.Printf("  %d activities, %d pairs, %d traces\n", len(m.Alphabet()), m.Size(), len(log.Traces))
	}
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	rules := cfg.RuleSet()
	out, err := yaml.Marshal(rules)
	if err != nil {
		return err
	}
	os.Stdout.Write(out)
	return nil
}

// Files past this size get a progress bar during parsing.
const progressThreshold = 4 << 20

// loadLog parses the input file into an event log, honoring the
// explicit format flag when set.
func loadLog(ctx context.Context) (*model.EventLog, error) {
	pcfg := parserConfig()

	format := parser.DetectFormat(inputFile)
	if formatFlag != "" {
		format = parser.ParseFormat(formatFlag)
		if format == parser.FormatUnknown {
			return nil, fmt.Errorf("unknown format %q (want xes, csv, xlsx, or parquet)", formatFlag)
		}
	}
	if format == parser.FormatParquet {
		return parser.LoadParquet(ctx, inputFile, pcfg)
	}
	if format == parser.FormatUnknown {
		return parser.Load(ctx, inputFile, pcfg)
	}

	p, err := parser.New(format, pcfg)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(inputFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if info, err := f.Stat(); err == nil && info.Size() > progressThreshold && !jsonOutput {
		bar := tui.ShowProgress(info.Size(), "parsing "+filepath.Base(inputFile))
		defer bar.Finish()
		r = io.TeeReader(f, bar)
	}
	return parser.Collect(ctx, p, r)
}

// parserConfig merges config file column names with flag overrides.
func parserConfig() parser.Config {
	pcfg := parser.DefaultConfig()
	if cfg.Parser.CaseIDColumn != "" {
		pcfg.CaseIDColumn = cfg.Parser.CaseIDColumn
	}
	if cfg.Parser.ActivityColumn != "" {
		pcfg.ActivityColumn = cfg.Parser.ActivityColumn
	}
	if cfg.Parser.TimestampColumn != "" {
		pcfg.TimestampColumn = cfg.Parser.TimestampColumn
	}
	if cfg.Parser.Delimiter != "" {
		pcfg.Delimiter = rune(cfg.Parser.Delimiter[0])
	}

	if caseIDColumn != "" {
		pcfg.CaseIDColumn = caseIDColumn
	}
	if activityColumn != "" {
		pcfg.ActivityColumn = activityColumn
	}
	if timestampColumn != "" {
		pcfg.TimestampColumn = timestampColumn
	}
	if delimiterFlag != "" {
		pcfg.Delimiter = rune(delimiterFlag[0])
	}
	return pcfg
}

// effectiveThresholds applies flag overrides on top of config values.
func effectiveThresholds(cmd *cobra.Command) (temporal, existential float64) {
	temporal = cfg.Thresholds.Temporal
	existential = cfg.Thresholds.Existential
	if cmd.Flags().Changed("temporal-threshold") {
		temporal = temporalThreshold
	}
	if cmd.Flags().Changed("existential-threshold") {
		existential = existentialThreshold
	}
	return temporal, existential
}

// setupTelemetry initializes OTLP export when enabled, returning a
// no-op shutdown otherwise.
func setupTelemetry(ctx context.Context) (func(context.Context) error, error) {
	if !cfg.Telemetry.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	tcfg := telemetry.DefaultOTLPConfig("proclens")
	tcfg.ServiceVersion = version
	if cfg.Telemetry.Endpoint != "" {
		tcfg.Endpoint = cfg.Telemetry.Endpoint
	}
	return telemetry.InitOTLP(tcfg)
}
