//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Vencyderry/fitness-tracker-analytics/internal/domain"
)

func TestStoreInsertCommitsEachEvent(t *testing.T) {
	ctx := context.Background()
	connStr := setupPostgres(t, ctx)
	runMigrations(t, ctx, connStr)

	connCfg, err := pgx.ParseConfig(connStr)
	require.NoError(t, err)
	store, err := DialConfig(ctx, connCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })

	event := domain.FitnessEvent{
		ID:           uuid.New(),
		UserID:       4,
		ActivityType: "cycling",
		Steps:        6,
		HeartRate:    117,
		Calories:     7.35,
		GeneratedAt:  time.Now(),
	}
	require.NoError(t, store.Insert(ctx, event))

	// A separate session sees the row, so it was committed rather than left in an open transaction.
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var (
		userID, steps, heartRate int
		calories                 float64
		activityType             string
		count                    int
	)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM fitness_events`).Scan(&count))
	require.Equal(t, 1, count)
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT user_id, steps, heart_rate, calories::float8, activity_type FROM fitness_events`).
		Scan(&userID, &steps, &heartRate, &calories, &activityType))
	require.Equal(t, event.UserID, userID)
	require.Equal(t, event.Steps, steps)
	require.Equal(t, event.HeartRate, heartRate)
	require.Equal(t, event.Calories, calories)
	require.Equal(t, event.ActivityType, activityType)
}

func TestStoreEnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	connStr := setupPostgres(t, ctx)

	connCfg, err := pgx.ParseConfig(connStr)
	require.NoError(t, err)
	store, err := DialConfig(ctx, connCfg)
	require.NoError(t, err)

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Insert(ctx, domain.FitnessEvent{UserID: 1, ActivityType: "sleeping", HeartRate: 55, Calories: 0.91}))

	require.NoError(t, store.Close(ctx))
	require.True(t, store.Released())
	require.NoError(t, store.Close(ctx))
	require.ErrorIs(t, store.Insert(ctx, domain.FitnessEvent{UserID: 1}), ErrReleased)
}

func setupPostgres(t *testing.T, ctx context.Context) string {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("fitness_db"),
		postgrescontainer.WithUsername("fitness"),
		postgrescontainer.WithPassword("fitness123"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))
	return connStr
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(resolvePath(t, "../../../db/postgres/migrations"), "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, file := range files {
		content, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(content))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}
