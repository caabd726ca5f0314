package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/voiceguard/internal/rules"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// #region repl

var replPrompt string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Validate lines interactively, recording evidence per message",
	Long: `Reads one message per line and validates it. Lines starting with "prompt:"
set the originating prompt for the following messages. Type quit or exit to leave.`,
	RunE: runRepl,
}

func init() {
	replCmd.Flags().StringVar(&replPrompt, "prompt", "", "initial originating prompt")
}

func runRepl(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(true, cfg.ValidationOptions())
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	prompt := replPrompt
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprintln(out, "voiceguard ready. Type a message (quit to exit).")
	turnNum := 0

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if rest, ok := strings.CutPrefix(line, "prompt:"); ok {
			prompt = strings.TrimSpace(rest)
			fmt.Fprintf(out, "prompt set (%d chars)\n", len(prompt))
			continue
		}

		turnNum++
		messageID := uuid.NewString()
		msg, err := p.svc.ValidateMessage(messageID, line, prompt)
		if err != nil {
			log.Warn().Err(err).Str("message_id", messageID).Msg("evidence not recorded")
		}

		if jsonOut {
			var fixed *rules.FixOutcome
			if msg.Output.Changed() {
				fixed = &msg.Output
			}
			if err := writeJSON(out, checkOutput{Result: msg.Result, Fixed: fixed, Evidence: summaryLines(msg.Evidence)}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintf(out, "[turn-%d %s]\n", turnNum, messageID)
		printResult(out, msg.Result)
		if msg.Output.Changed() {
			printFixOutcome(out, msg.Output)
		}
		printEvidence(out, summaryLines(msg.Evidence))
		fmt.Fprintln(out)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// #endregion repl
