package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cardintel/cardintel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqldb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS card_sets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	series       TEXT NOT NULL DEFAULT '',
	total        INTEGER NOT NULL DEFAULT 0,
	release_date TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS price_history (
	id            TEXT PRIMARY KEY,
	card_id       TEXT NOT NULL,
	card_name     TEXT NOT NULL,
	price         REAL NOT NULL,
	currency      TEXT NOT NULL DEFAULT 'GBP',
	source        TEXT NOT NULL,
	confidence    TEXT NOT NULL,
	reference_url TEXT,
	observed_at   DATETIME NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_price_history_card ON price_history (card_id, observed_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) SavePriceObservation(ctx context.Context, obs model.PriceObservation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.Currency == "" {
		obs.Currency = "GBP"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO price_history (id, card_id, card_name, price, currency, source, confidence, reference_url, observed_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.CardID, obs.CardName, obs.Price, obs.Currency, obs.Source, obs.Confidence, obs.ReferenceURL, obs.ObservedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save observation for %s", obs.CardID)
	}
	return nil
}

func (s *SQLiteStore) ListPriceHistory(ctx context.Context, cardID string, limit int) ([]model.PriceObservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, card_id, card_name, price, currency, source, confidence, reference_url, observed_at FROM price_history WHERE card_id = ? ORDER BY observed_at DESC LIMIT ?`,
		cardID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list history for %s", cardID)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var obs model.PriceObservation
		var refURL sql.NullString
		if err := rows.Scan(&obs.ID, &obs.CardID, &obs.CardName, &obs.Price, &obs.Currency, &obs.Source, &obs.Confidence, &refURL, &obs.ObservedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		obs.ReferenceURL = refURL.String
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountObservations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM price_history`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count observations")
	}
	return n, nil
}

func (s *SQLiteStore) UpsertSets(ctx context.Context, sets []model.Set) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO card_sets (id, name, series, total, release_date) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, series = excluded.series, total = excluded.total, release_date = excluded.release_date`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	var n int64
	for _, set := range sets {
		if _, err := stmt.ExecContext(ctx, set.ID, set.Name, set.Series, set.Total, set.ReleaseDate); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert set %s", set.ID)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func (s *SQLiteStore) ListSets(ctx context.Context) ([]model.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, series, total, release_date FROM card_sets ORDER BY release_date, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sets")
	}
	defer rows.Close()

	var out []model.Set
	for rows.Next() {
		var set model.Set
		if err := rows.Scan(&set.ID, &set.Name, &set.Series, &set.Total, &set.ReleaseDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan set")
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
