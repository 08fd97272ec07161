package db

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/config"
	"github.com/yigit/classroom/internal/pkg/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.DBName = "classroom"
	cfg.Database.MaxOpenConns = 8
	cfg.Database.MaxIdleConns = 2
	cfg.Database.ConnMaxLifetime = "1d"
	cfg.Database.SlowQueryThreshold = "250ms"
	return cfg
}

func TestPoolConfig(t *testing.T) {
	poolConfig, err := PoolConfig(testConfig())
	require.NoError(t, err)

	assert.EqualValues(t, 8, poolConfig.MaxConns)
	assert.EqualValues(t, 2, poolConfig.MinConns)
	assert.Equal(t, 24*time.Hour, poolConfig.MaxConnLifetime)
	assert.Equal(t, healthCheckPeriod, poolConfig.HealthCheckPeriod)
	assert.Equal(t, "classroom", poolConfig.ConnConfig.Database)

	tracer, ok := poolConfig.ConnConfig.Tracer.(*QueryTracer)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, tracer.SlowThreshold)
}

func TestPoolConfig_ClampsConnections(t *testing.T) {
	cfg := testConfig()
	cfg.Database.MaxOpenConns = 3
	cfg.Database.MaxIdleConns = 10

	poolConfig, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.EqualValues(t, 3, poolConfig.MaxConns)
	assert.EqualValues(t, 3, poolConfig.MinConns)
}

func TestPoolConfig_InvalidLifetime(t *testing.T) {
	cfg := testConfig()
	cfg.Database.ConnMaxLifetime = "forever"

	_, err := PoolConfig(cfg)
	assert.ErrorContains(t, err, "connection max lifetime")
}

func TestQueryTracer(t *testing.T) {
	run := func(elapsed time.Duration, queryErr error) string {
		var buf bytes.Buffer
		ctx := logger.WithContext(context.Background(), zerolog.New(&buf))

		now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
		tracer := &QueryTracer{SlowThreshold: 100 * time.Millisecond, now: func() time.Time { return now }}

		ctx = tracer.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
		now = now.Add(elapsed)
		tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1"), Err: queryErr})
		return buf.String()
	}

	out := run(150*time.Millisecond, nil)
	assert.Contains(t, out, "Slow query")
	assert.Contains(t, out, `"sql":"SELECT 1"`)
	assert.Contains(t, out, `"rows":1`)

	assert.Empty(t, run(10*time.Millisecond, nil))
	assert.Empty(t, run(150*time.Millisecond, context.Canceled))
}
