package evidence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS evidence_ledgers (
	message_id   TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL,
	entry_count  INTEGER NOT NULL,
	ledger_json  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evidence_entries (
	id           TEXT PRIMARY KEY,
	message_id   TEXT NOT NULL,
	kind         TEXT NOT NULL,
	summary      TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (message_id) REFERENCES evidence_ledgers(message_id)
);

CREATE INDEX IF NOT EXISTS idx_evidence_entries_message ON evidence_entries(message_id);
`

// #endregion schema

// #region store
// Store persists finished ledgers in SQLite. It implements Sink.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region save
// Save writes a finished ledger and one summary row per entry.
func (s *Store) Save(ev GenerationEvidence) error {
	if ev.MessageID == "" {
		return errors.New("save evidence: empty message id")
	}
	if ev.FinishedAt.IsZero() {
		ev.FinishedAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO evidence_ledgers (message_id, started_at, finished_at, entry_count, ledger_json)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.MessageID, ev.StartedAt.Format(time.RFC3339Nano), ev.FinishedAt.Format(time.RFC3339Nano),
		ev.EntryCount(), string(body),
	)
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}

	for _, row := range entryRows(ev) {
		_, err = tx.Exec(
			`INSERT INTO evidence_entries (id, message_id, kind, summary, created_at) VALUES (?, ?, ?, ?, ?)`,
			row.id, ev.MessageID, string(row.kind), row.summary, row.at.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	return tx.Commit()
}

type entryRow struct {
	id      string
	kind    Kind
	summary string
	at      time.Time
}

// entryRows pairs every entry with its summary line. Summary emits lines in
// the same kind order, so the two can be zipped.
func entryRows(ev GenerationEvidence) []entryRow {
	lines := Summary(ev)
	var rows []entryRow
	add := func(id string, kind Kind, at time.Time) {
		rows = append(rows, entryRow{id: id, kind: kind, summary: lines[len(rows)], at: at})
	}
	for _, e := range ev.Knowledge {
		add(e.ID, KindKnowledge, e.RecordedAt)
	}
	for _, e := range ev.Learnings {
		add(e.ID, KindLearning, e.RecordedAt)
	}
	for _, e := range ev.SemanticMatches {
		add(e.ID, KindSemanticMatch, e.RecordedAt)
	}
	for _, e := range ev.AutoFixes {
		add(e.ID, KindAutoFix, e.RecordedAt)
	}
	for _, e := range ev.SafetyChecks {
		add(e.ID, KindSafety, e.RecordedAt)
	}
	return rows
}

// #endregion save

// #region queries
// Get loads the ledger of messageID.
func (s *Store) Get(messageID string) (GenerationEvidence, error) {
	var body string
	err := s.db.QueryRow(`SELECT ledger_json FROM evidence_ledgers WHERE message_id = ?`, messageID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return GenerationEvidence{}, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err != nil {
		return GenerationEvidence{}, fmt.Errorf("get ledger %s: %w", messageID, err)
	}
	var ev GenerationEvidence
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return GenerationEvidence{}, fmt.Errorf("unmarshal ledger: %w", err)
	}
	return ev, nil
}

// LedgerRow is the listing view of a stored ledger.
type LedgerRow struct {
	MessageID  string
	StartedAt  time.Time
	FinishedAt time.Time
	EntryCount int
}

// List returns up to limit ledgers, most recently finished first.
func (s *Store) List(limit int) ([]LedgerRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT message_id, started_at, finished_at, entry_count
		 FROM evidence_ledgers ORDER BY finished_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var r LedgerRow
		var started, finished string
		if err := rows.Scan(&r.MessageID, &started, &finished, &r.EntryCount); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summaries returns the stored influence lines of messageID in entry order.
func (s *Store) Summaries(messageID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT summary FROM evidence_entries WHERE message_id = ? ORDER BY rowid`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// KindCounts returns how many entries of each kind are stored.
func (s *Store) KindCounts() (map[Kind]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM evidence_entries GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count kinds: %w", err)
	}
	defer rows.Close()

	out := make(map[Kind]int)
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		out[Kind(k)] = n
	}
	return out, rows.Err()
}

// #endregion queries
