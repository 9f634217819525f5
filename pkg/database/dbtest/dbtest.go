// Package dbtest provides transaction helpers for service tests that run
// against in-memory repositories.
package dbtest

import (
	"context"
	"sync"

	"themepark-backend/pkg/database"
)

// SerialTxManager runs every transaction under one mutex and hands the
// callback a nil pgx.Tx. In-memory repositories ignore the tx, so the mutex
// stands in for row locks.
type SerialTxManager struct {
	mu sync.Mutex
}

var _ database.TxManager = (*SerialTxManager)(nil)

func NewSerialTxManager() *SerialTxManager {
	return &SerialTxManager{}
}

func (m *SerialTxManager) WithTx(ctx context.Context, fn database.TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}
