package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/voiceguard/internal/evidence"
	"github.com/spf13/cobra"
)

// #region inspect

var (
	inspectLast    int
	inspectMessage string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse evidence ledgers persisted by check --message-id and repl",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent ledgers")
	inspectCmd.Flags().StringVar(&inspectMessage, "message", "", "show a single ledger in detail")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if cfg.DBPath == "" {
		return errors.New("no evidence database: pass --db or set VOICEGUARD_DB")
	}
	store, err := evidence.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if inspectMessage != "" {
		return runDetailMode(out, store, inspectMessage)
	}
	return runListMode(out, store, inspectLast)
}

// #endregion inspect

// #region list-mode

type listOutput struct {
	Ledgers []evidence.LedgerRow  `json:"ledgers"`
	Kinds   map[evidence.Kind]int `json:"kinds"`
}

func runListMode(w io.Writer, store *evidence.Store, last int) error {
	rows, err := store.List(last)
	if err != nil {
		return err
	}
	kinds, err := store.KindCounts()
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, listOutput{Ledgers: rows, Kinds: kinds})
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no ledgers found")
		return nil
	}

	fmt.Fprintf(w, "%-38s  %-20s  %s\n", "MESSAGE", "FINISHED", "ENTRIES")
	for _, r := range rows {
		fmt.Fprintf(w, "%-38s  %-20s  %d\n", r.MessageID, r.FinishedAt.Format("2006-01-02T15:04:05Z"), r.EntryCount)
	}
	fmt.Fprintln(w)
	for _, k := range []evidence.Kind{
		evidence.KindKnowledge, evidence.KindLearning, evidence.KindSemanticMatch, evidence.KindAutoFix, evidence.KindSafety,
	} {
		fmt.Fprintf(w, "%-15s %d\n", k, kinds[k])
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Evidence evidence.GenerationEvidence `json:"evidence"`
	Summary  []string                    `json:"summary"`
}

func runDetailMode(w io.Writer, store *evidence.Store, messageID string) error {
	ev, err := store.Get(messageID)
	if err != nil {
		return err
	}
	lines, err := store.Summaries(messageID)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(w, detailOutput{Evidence: ev, Summary: lines})
	}
	fmt.Fprintf(w, "message:  %s\n", ev.MessageID)
	fmt.Fprintf(w, "started:  %s\n", ev.StartedAt.Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintf(w, "finished: %s (%s)\n", ev.FinishedAt.Format("2006-01-02T15:04:05.000Z"), ev.FinishedAt.Sub(ev.StartedAt))
	fmt.Fprintf(w, "entries:  %d\n", ev.EntryCount())
	printEvidence(w, lines)
	return nil
}

// #endregion detail-mode
