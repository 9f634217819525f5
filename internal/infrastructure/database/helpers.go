package database

import (
	"context"
	"fmt"
	"time"

	"themepark-backend/internal/infrastructure/metrics"
	"themepark-backend/pkg/logger"
)

// Ping checks the pool is initialised and the server answers within 5s.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the pool. Safe to call more than once.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	logger.Info("[DATABASE] Closing database connection pool...", nil)
	db.Pool.Close()
	db.Pool = nil

	return nil
}

// PoolStats is a snapshot of the connection pool.
type PoolStats struct {
	AcquiredConns        int32
	IdleConns            int32
	TotalConns           int32
	MaxConns             int32
	AcquireCount         int64
	AcquireDuration      time.Duration
	CanceledAcquireCount int64
	EmptyAcquireCount    int64
}

func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	return &PoolStats{
		AcquiredConns:        raw.AcquiredConns(),
		IdleConns:            raw.IdleConns(),
		TotalConns:           raw.TotalConns(),
		MaxConns:             raw.MaxConns(),
		AcquireCount:         raw.AcquireCount(),
		AcquireDuration:      raw.AcquireDuration(),
		CanceledAcquireCount: raw.CanceledAcquireCount(),
		EmptyAcquireCount:    raw.EmptyAcquireCount(),
	}, nil
}

func calculateAvgDuration(totalDuration time.Duration, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return totalDuration / time.Duration(count)
}

// MonitorPoolHealth exports pool gauges every interval and warns on high
// utilisation or slow acquires. Blocks until ctx is done.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				logger.Error("[MONITOR] Failed to get pool stats", err)
				continue
			}

			metrics.DBPoolConnections.WithLabelValues("acquired").Set(float64(stats.AcquiredConns))
			metrics.DBPoolConnections.WithLabelValues("idle").Set(float64(stats.IdleConns))
			metrics.DBPoolConnections.WithLabelValues("total").Set(float64(stats.TotalConns))

			if stats.MaxConns > 0 {
				utilizationPct := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
				if utilizationPct > 80 {
					logger.Warn("[MONITOR] High pool utilization", map[string]interface{}{
						"utilization_pct": utilizationPct,
						"acquired":        stats.AcquiredConns,
						"max":             stats.MaxConns,
					})
				}
			}

			if avg := calculateAvgDuration(stats.AcquireDuration, stats.AcquireCount); avg > 100*time.Millisecond {
				logger.Warn("[MONITOR] High acquire latency", map[string]interface{}{"avg": avg.String()})
			}

		case <-ctx.Done():
			return
		}
	}
}
