// Package postgres persists generated fitness events over a single exclusive connection.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/config"
	"github.com/Vencyderry/fitness-tracker-analytics/internal/domain"
)

const (
	tableFitnessEvents = "fitness_events"
	colUserID          = "user_id"
	colSteps           = "steps"
	colHeartRate       = "heart_rate"
	colCalories        = "calories"
	colActivityType    = "activity_type"
)

//go:embed schema.sql
var schemaSQL string

// ErrReleased is returned when the store is used after Close.
var ErrReleased = errors.New("postgres store already released")

// Store owns one pgx connection for the lifetime of the generator. No pooling.
type Store struct {
	conn    *pgx.Conn
	dialect goqu.DialectWrapper

	mu       sync.Mutex
	released bool
}

// Dial opens the connection described by cfg and verifies it with a ping.
func Dial(ctx context.Context, cfg config.Config) (*Store, error) {
	connCfg, err := pgx.ParseConfig(cfg.PostgresURL())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	return DialConfig(ctx, connCfg)
}

// DialConfig opens a connection from an already parsed pgx config.
func DialConfig(ctx context.Context, connCfg *pgx.ConnConfig) (*Store, error) {
	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return &Store{conn: conn, dialect: goqu.Dialect("postgres")}, nil
}

// EnsureSchema creates fitness_events when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Insert writes one event and commits it before returning.
func (s *Store) Insert(ctx context.Context, event domain.FitnessEvent) (err error) {
	if s.Released() {
		return ErrReleased
	}

	query, args, err := s.insertStatement(event)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) insertStatement(event domain.FitnessEvent) (string, []interface{}, error) {
	query, args, err := s.dialect.
		Insert(tableFitnessEvents).
		Prepared(true).
		Cols(colUserID, colSteps, colHeartRate, colCalories, colActivityType).
		Vals(goqu.Vals{event.UserID, event.Steps, event.HeartRate, event.Calories, event.ActivityType}).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("build insert query: %w", err)
	}
	return query, args, nil
}

// Close releases the connection. Calling it more than once is a no-op.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true
	return s.conn.Close(ctx)
}

// Released reports whether Close has run.
func (s *Store) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
