package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danielpatrickdp/voiceguard/internal/replay"
	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/danielpatrickdp/voiceguard/internal/safety"
	"github.com/danielpatrickdp/voiceguard/internal/validation"
	"github.com/spf13/cobra"
)

// exitError carries a non-zero exit code without an error message.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func asExit(err error, target *exitError) bool { return errors.As(err, target) }

// readInput joins args, or reads stdin when there are none or the only arg is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}

// #region check

var (
	checkPrompt    string
	checkUseIntent bool
	checkFix       bool
	checkMessageID string
)

var checkCmd = &cobra.Command{
	Use:   "check [text...]",
	Short: "Validate text and report violations, score and fixes",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkPrompt, "prompt", "", "originating prompt; selects checks by intent")
	checkCmd.Flags().BoolVar(&checkUseIntent, "intent", false, "select checks by the intent of the text itself")
	checkCmd.Flags().BoolVar(&checkFix, "fix", false, "apply auto-fixes and print the corrected text")
	checkCmd.Flags().StringVar(&checkMessageID, "message-id", "", "record evidence under this id")
}

func runCheck(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	p, err := newPipeline(checkMessageID != "", cfg.ValidationOptions())
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	var res validation.Result
	var lines []string
	var fixed *rules.FixOutcome
	if checkMessageID != "" {
		msg, err := p.svc.ValidateMessage(checkMessageID, text, checkPrompt)
		if err != nil {
			return err
		}
		res = msg.Result
		lines = summaryLines(msg.Evidence)
		if checkFix {
			fixed = &msg.Output
		}
	} else {
		res = validateText(p.svc, text, checkPrompt, checkUseIntent)
		if checkFix {
			o := p.svc.Rules().ApplyAllFixes(text)
			fixed = &o
		}
	}

	if jsonOut {
		if err := writeJSON(out, checkOutput{Result: res, Fixed: fixed, Evidence: lines}); err != nil {
			return err
		}
	} else {
		printResult(out, res)
		if fixed != nil {
			printFixOutcome(out, *fixed)
		}
		printEvidence(out, lines)
	}
	if !res.Passed {
		return exitError{exitFailed}
	}
	return nil
}

type checkOutput struct {
	Result   validation.Result `json:"result"`
	Fixed    *rules.FixOutcome `json:"fixed,omitempty"`
	Evidence []string          `json:"evidence,omitempty"`
}

// #endregion check

// #region safety

var safetyCmd = &cobra.Command{
	Use:   "safety [text...]",
	Short: "Classify text into safety domains and print the routing decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		p, err := newPipeline(false, cfg.ValidationOptions())
		if err != nil {
			return err
		}
		defer p.Close()

		res := p.svc.Gate().Classify(text)
		out := cmd.OutOrStdout()
		if jsonOut {
			if err := writeJSON(out, res); err != nil {
				return err
			}
		} else {
			printSafety(out, res)
		}
		if res.Routing == safety.RouteEmergencyResponse || res.Routing == safety.RouteBlockAndLog {
			return exitError{exitBlocked}
		}
		return nil
	},
}

// #endregion safety

// #region intent

var intentCmd = &cobra.Command{
	Use:   "intent [text...]",
	Short: "Detect the intent of a message and the validation level it maps to",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		p, err := newPipeline(false, cfg.ValidationOptions())
		if err != nil {
			return err
		}
		defer p.Close()

		cls := p.svc.DetectIntent(text)
		out := cmd.OutOrStdout()
		if jsonOut {
			return writeJSON(out, cls)
		}
		fmt.Fprintf(out, "intent=%s confidence=%.2f level=%s\n", cls.Intent, cls.Confidence, cls.Level)
		if len(cls.MatchedKeywords) > 0 {
			fmt.Fprintf(out, "matched: %s\n", strings.Join(cls.MatchedKeywords, ", "))
		}
		return nil
	},
}

// #endregion intent

// #region replay

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.json | dir>...",
	Short: "Replay JSON fixtures through the validator and compare verdicts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	var paths []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return fmt.Errorf("fixture %s: %w", a, err)
		}
		if !info.IsDir() {
			paths = append(paths, a)
			continue
		}
		found, err := replay.FixturePaths(a)
		if err != nil {
			return err
		}
		paths = append(paths, found...)
	}

	out := cmd.OutOrStdout()
	exitCode := exitOK
	for _, path := range paths {
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		// fixture thresholds override the configured ones
		opts := cfg.ValidationOptions()
		if f.Config.MinScore > 0 {
			opts.MinScore = f.Config.MinScore
		}
		if f.Config.StrictMinScore > 0 {
			opts.StrictMinScore = f.Config.StrictMinScore
		}
		p, err := newPipeline(false, opts)
		if err != nil {
			return err
		}

		results := replay.Replay(p.svc, f.Cases)
		summary := replay.Summarize(results)
		p.Close()

		if jsonOut {
			if err := writeJSON(out, replayOutput{Fixture: path, Summary: summary, Results: results}); err != nil {
				return err
			}
		} else {
			printReplay(out, path, f.Description, results, summary)
		}
		if !summary.OK() {
			exitCode = exitFailed
		}
	}
	if exitCode != exitOK {
		return exitError{exitCode}
	}
	return nil
}

type replayOutput struct {
	Fixture string              `json:"fixture"`
	Summary replay.Summary      `json:"summary"`
	Results []replay.CaseResult `json:"results"`
}

// #endregion replay

// #region rules

var rulesSync bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the loaded rule tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(false, cfg.ValidationOptions())
		if err != nil {
			return err
		}
		defer p.Close()

		if rulesSync {
			var syncer rules.Syncer = rules.NoopSyncer{}
			if err := syncer.Sync(context.Background()); err != nil {
				return fmt.Errorf("sync rules: %w", err)
			}
		}

		stats := p.svc.Rules().Stats()
		out := cmd.OutOrStdout()
		if jsonOut {
			return writeJSON(out, rulesOutput{Tables: stats, SafetyPatterns: p.svc.Gate().PatternCount()})
		}
		fmt.Fprintf(out, "source:          %s\n", stats.Source)
		fmt.Fprintf(out, "avoid terms:     %d\n", stats.Avoid)
		fmt.Fprintf(out, "preferred terms: %d\n", stats.Preferred)
		fmt.Fprintf(out, "auto-fixes:      %d\n", stats.AutoFixes)
		fmt.Fprintf(out, "safety patterns: %d\n", p.svc.Gate().PatternCount())
		for _, c := range rules.AvoidCategories() {
			fmt.Fprintf(out, "  %-13s %3d  %-7s %s\n", c, len(p.svc.Rules().AvoidTerms(c)), c.DefaultSeverity(), c.Description())
		}
		return nil
	},
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesSync, "sync", false, "refresh tables from the remote source first")
}

type rulesOutput struct {
	Tables         rules.TableStats `json:"tables"`
	SafetyPatterns int              `json:"safety_patterns"`
}

// #endregion rules
