package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cardintel/cardintel/internal/db"
	"github.com/cardintel/cardintel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot store operations.
var preparedStatements = map[string]string{
	"insert_observation": `INSERT INTO price_history (id, card_id, card_name, price, currency, source, confidence, reference_url, observed_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"list_history":       `SELECT id, card_id, card_name, price, currency, source, confidence, reference_url, observed_at FROM price_history WHERE card_id = $1 ORDER BY observed_at DESC LIMIT $2`,
	"count_observations": `SELECT count(*) FROM price_history`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. For tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS card_sets (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	series       TEXT NOT NULL DEFAULT '',
	total        INTEGER NOT NULL DEFAULT 0,
	release_date TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS price_history (
	id            UUID PRIMARY KEY,
	card_id       TEXT NOT NULL,
	card_name     TEXT NOT NULL,
	price         NUMERIC NOT NULL,
	currency      TEXT NOT NULL DEFAULT 'GBP',
	source        TEXT NOT NULL,
	confidence    TEXT NOT NULL,
	reference_url TEXT,
	observed_at   TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_price_history_card ON price_history (card_id, observed_at DESC);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) SavePriceObservation(ctx context.Context, obs model.PriceObservation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.Currency == "" {
		obs.Currency = "GBP"
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO price_history (id, card_id, card_name, price, currency, source, confidence, reference_url, observed_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		obs.ID, obs.CardID, obs.CardName, obs.Price, obs.Currency, obs.Source, obs.Confidence, obs.ReferenceURL, obs.ObservedAt, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save observation for %s", obs.CardID)
	}
	return nil
}

func (s *PostgresStore) ListPriceHistory(ctx context.Context, cardID string, limit int) ([]model.PriceObservation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, card_id, card_name, price, currency, source, confidence, reference_url, observed_at FROM price_history WHERE card_id = $1 ORDER BY observed_at DESC LIMIT $2`,
		cardID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list history for %s", cardID)
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		var obs model.PriceObservation
		var refURL *string
		if err := rows.Scan(&obs.ID, &obs.CardID, &obs.CardName, &obs.Price, &obs.Currency, &obs.Source, &obs.Confidence, &refURL, &obs.ObservedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		if refURL != nil {
			obs.ReferenceURL = *refURL
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountObservations(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM price_history`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count observations")
	}
	return n, nil
}

func (s *PostgresStore) UpsertSets(ctx context.Context, sets []model.Set) (int64, error) {
	rows := make([][]any, len(sets))
	for i, set := range sets {
		rows[i] = []any{set.ID, set.Name, set.Series, set.Total, set.ReleaseDate}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "card_sets",
		Columns:      []string{"id", "name", "series", "total", "release_date"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert sets")
	}
	return n, nil
}

func (s *PostgresStore) ListSets(ctx context.Context) ([]model.Set, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, series, total, release_date FROM card_sets ORDER BY release_date, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sets")
	}
	defer rows.Close()

	var out []model.Set
	for rows.Next() {
		var set model.Set
		if err := rows.Scan(&set.ID, &set.Name, &set.Series, &set.Total, &set.ReleaseDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan set")
		}
		out = append(out, set)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
