package main

import (
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/voiceguard/internal/cache"
	"github.com/danielpatrickdp/voiceguard/internal/config"
	"github.com/danielpatrickdp/voiceguard/internal/evidence"
	"github.com/danielpatrickdp/voiceguard/internal/intent"
	"github.com/danielpatrickdp/voiceguard/internal/metrics"
	"github.com/danielpatrickdp/voiceguard/internal/readability"
	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/danielpatrickdp/voiceguard/internal/safety"
	"github.com/danielpatrickdp/voiceguard/internal/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1 // validation failed or replay mismatched
	exitUsage   = 2
	exitBlocked = 3 // safety gate routed to emergency or block
)

// #region flags

var (
	configPath  string
	verbose     bool
	jsonOut     bool
	strictFlag  bool
	showMetrics bool
	dbPath      string

	cfg config.Config
)

// #endregion flags

// #region root

var rootCmd = &cobra.Command{
	Use:   "voiceguard",
	Short: "Screen text for brand voice, readability and safety before it reaches a user",
	Long: `voiceguard validates text against brand wording rules, a target reading grade
and sensitive-domain safety patterns, and reports a trust score with suggested fixes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verbose)
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("strict") {
			loaded.Strict = strictFlag
		}
		if cmd.Flags().Changed("db") {
			loaded.DBPath = dbPath
		}
		cfg = loaded
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to a voiceguard YAML config file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "trace logging of every pipeline stage")
	pf.BoolVar(&jsonOut, "json", false, "output as JSON")
	pf.BoolVar(&strictFlag, "strict", false, "score in strict mode")
	pf.BoolVar(&showMetrics, "metrics", false, "print collected metrics on exit")
	pf.StringVar(&dbPath, "db", "", "evidence database path (overrides VOICEGUARD_DB)")

	rootCmd.AddCommand(checkCmd, safetyCmd, intentCmd, replayCmd, inspectCmd, replCmd, rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ec exitError
		if asExit(err, &ec) {
			os.Exit(ec.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitUsage)
	}
}

// #endregion root

// #region wiring

// pipeline is the wired service plus the collaborators commands report on.
type pipeline struct {
	svc      *validation.Service
	registry *prometheus.Registry
	store    *evidence.Store // nil unless evidence is persisted
}

func (p *pipeline) Close() {
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			log.Warn().Err(err).Msg("close evidence store")
		}
	}
	if showMetrics {
		printMetrics(rootCmd.ErrOrStderr(), p.registry)
	}
}

// newPipeline builds the service from cfg with the given scoring options.
// withStore opens the evidence database so finished ledgers are persisted.
func newPipeline(withStore bool, opts validation.Options) (*pipeline, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var src rules.Source = rules.BundledSource{}
	if cfg.RulesFile != "" {
		src = rules.FileSource{Path: cfg.RulesFile}
	}

	trackerOpts := []evidence.Option{}
	p := &pipeline{registry: reg}
	if withStore && cfg.DBPath != "" {
		store, err := evidence.NewStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open evidence store: %w", err)
		}
		p.store = store
		trackerOpts = append(trackerOpts, evidence.WithSink(store))
	}

	p.svc = validation.NewService(opts,
		validation.WithRules(rules.NewRepository(src)),
		validation.WithGate(safety.NewGate(safety.DefaultGateConfig(), safety.WithObserver(m))),
		validation.WithAnalyzer(readability.NewAnalyzer(cfg.ReadabilityConfig())),
		validation.WithClassifier(intent.NewClassifier()),
		validation.WithAnalysisCache(cache.New[string, readability.Analysis](cfg.CacheOptions("readability", m))),
		validation.WithRecorder(m),
		validation.WithTracker(evidence.NewTracker(trackerOpts...)),
	)
	return p, nil
}

// validateText runs the configured mode over text.
func validateText(svc *validation.Service, text, prompt string, useIntent bool) validation.Result {
	switch {
	case prompt != "" || useIntent:
		return svc.ValidateWithIntent(text, prompt)
	case cfg.Strict:
		c := intent.ConfigFor(intent.LevelStrict)
		return svc.ValidateWithConfig(text, c, "")
	default:
		return svc.Validate(text)
	}
}

// #endregion wiring

// #region logging

func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if verbose {
		// per-call pipeline logs are emitted at trace level
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}
}

// #endregion logging
