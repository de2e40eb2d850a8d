package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outerTx stands in for a transaction opened further up the call chain.
type outerTx struct {
	pgx.Tx
}

func TestWithinTx_NestedCallReusesOuterTransaction(t *testing.T) {
	outer := &outerTx{}
	ctx := context.WithValue(context.Background(), txKey{}, pgx.Tx(outer))
	// A nil pool panics if WithinTx tries to begin a second transaction.
	manager := NewTxManager(nil)

	var seen DBTX
	err := manager.WithinTx(ctx, func(ctx context.Context) error {
		seen = Conn(ctx, nil)
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, outer, seen)

	boom := errors.New("boom")
	err = manager.WithinTx(ctx, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
