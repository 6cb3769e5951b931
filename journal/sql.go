package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blockberries/dge/types"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and statement flavour of a SQLRecorder.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) valid() bool {
	return d == DialectSQLite || d == DialectPostgres
}

// rebind rewrites ? placeholders to $n for postgres.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) schema() []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d == DialectPostgres {
		id = "BIGSERIAL PRIMARY KEY"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS grant_transitions (
			id          ` + id + `,
			sequence    BIGINT NOT NULL,
			proposal_id TEXT NOT NULL,
			action      TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status   TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			recorded_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_proposal ON grant_transitions(proposal_id)`,
		`CREATE TABLE IF NOT EXISTS grant_events (
			id          ` + id + `,
			sequence    BIGINT NOT NULL,
			position    INTEGER NOT NULL,
			proposal_id TEXT NOT NULL,
			kind        TEXT NOT NULL,
			attributes  TEXT NOT NULL,
			recorded_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_proposal ON grant_events(proposal_id)`,
	}
}

// SQLRecorder appends journal entries to a SQL database: one row per
// transition and one row per emitted event.
type SQLRecorder struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

// OpenSQL opens (or creates) the journal database and runs migrations.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLRecorder, error) {
	if !dialect.valid() {
		return nil, fmt.Errorf("journal: unsupported dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection keeps in-memory databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	r, err := NewSQLRecorder(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewSQLRecorder wraps an open database and runs migrations.
func NewSQLRecorder(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLRecorder, error) {
	if !dialect.valid() {
		return nil, fmt.Errorf("journal: unsupported dialect %q", dialect)
	}
	r := &SQLRecorder{db: db, dialect: dialect}
	if err := r.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLRecorder) migrate(ctx context.Context) error {
	for _, s := range r.dialect.schema() {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLRecorder) Record(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback()

	at := e.At.UnixNano()
	_, err = tx.ExecContext(ctx, r.dialect.rebind(`INSERT INTO grant_transitions
		(sequence, proposal_id, action, from_status, to_status, fingerprint, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		int64(e.Sequence), e.ProposalID, e.Action.String(), e.From.String(), e.To.String(),
		e.Fingerprint.String(), at)
	if err != nil {
		return fmt.Errorf("journal: insert transition %s: %w", e.ProposalID, err)
	}

	insertEvent := r.dialect.rebind(`INSERT INTO grant_events
		(sequence, position, proposal_id, kind, attributes, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for i, ev := range e.Events {
		attrs, err := json.Marshal(ev.Attributes)
		if err != nil {
			return fmt.Errorf("journal: encode %s attributes: %w", ev.Kind, err)
		}
		if _, err := tx.ExecContext(ctx, insertEvent,
			int64(e.Sequence), i, e.ProposalID, ev.Kind, string(attrs), at); err != nil {
			return fmt.Errorf("journal: insert event %s: %w", ev.Kind, err)
		}
	}
	return tx.Commit()
}

// Events returns the journaled events of a proposal in emission order.
func (r *SQLRecorder) Events(ctx context.Context, proposalID string) ([]types.Event, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`SELECT kind, attributes FROM grant_events
		WHERE proposal_id = ? ORDER BY sequence, position`), proposalID)
	if err != nil {
		return nil, fmt.Errorf("journal: query events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var (
			ev    types.Event
			attrs string
		)
		if err := rows.Scan(&ev.Kind, &attrs); err != nil {
			return nil, fmt.Errorf("journal: scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(attrs), &ev.Attributes); err != nil {
			return nil, fmt.Errorf("journal: decode %s attributes: %w", ev.Kind, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Transitions returns the number of journaled transitions of a proposal.
func (r *SQLRecorder) Transitions(ctx context.Context, proposalID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(
		`SELECT COUNT(*) FROM grant_transitions WHERE proposal_id = ?`), proposalID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal: count transitions: %w", err)
	}
	return n, nil
}

func (r *SQLRecorder) Close() error {
	return r.db.Close()
}
