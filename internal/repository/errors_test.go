package repository

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/deskflow/helpdesk/internal/domain"
)

func TestTranslate_UniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, translate(err), ErrDuplicate)

	other := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(other), translate(other))
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%\_off%`, likePattern(" 100%_off "))
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("7f1f7c5e-8b8a-4a4e-9b6d-1f0f4c9a2b3c"))
	assert.False(t, validID("TKT-000001"))
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, stringPtr[domain.ClientType](nil))
	ct := domain.ClientTypeInternal
	assert.Equal(t, "INTERNAL", *stringPtr(&ct))
}
