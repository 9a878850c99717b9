// Package store owns persistence and permission resolution for favorites
// lists, picks, access grants, and the cached voting-power scores.
package store

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
)

// ItemChecker answers whether a catalog item exists. It is a hard
// dependency of pick creation: a failure aborts the operation.
type ItemChecker interface {
	ItemExists(ctx context.Context, itemID string) (bool, error)
}

// ScoreProvider returns a user's current voting power. It is a soft
// dependency: a failure degrades to a conservative default.
type ScoreProvider interface {
	GetScore(ctx context.Context, address string) (int, error)
}

type PostgresStore struct {
	db     *sql.DB
	items  ItemChecker
	scores ScoreProvider
	log    zerolog.Logger
}

func NewPostgresStore(db *sql.DB, items ItemChecker, scores ScoreProvider, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, items: items, scores: scores, log: log}
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
