package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_PassesThroughWrapped(t *testing.T) {
	original := NewForbidden("nope")
	wrapped := fmt.Errorf("handler: %w", original)

	got := ToDomainError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "FORBIDDEN", got.Code)
	assert.Equal(t, http.StatusForbidden, got.HTTPStatus)
	assert.True(t, Is(wrapped, "FORBIDDEN"))
}

func TestToDomainError_MapsNoRowsAndUnknown(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusOf(pgx.ErrNoRows))

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", internal.Code)
	assert.Equal(t, "internal server error", internal.Message)
	assert.ErrorContains(t, internal, "boom")
}

func TestMapError_NilSafe(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.False(t, Is(nil, "NOT_FOUND"))
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{NewValidationCode("COMMENT_TICKET_MISMATCH", "bad", nil), "COMMENT_TICKET_MISMATCH", http.StatusBadRequest},
		{NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{NewUnauthorized("who"), "UNAUTHORIZED", http.StatusUnauthorized},
		{NewConflict("dup", nil), "CONFLICT", http.StatusConflict},
		{NewConflictCode("TICKET_NUMBER_TAKEN", "dup", nil), "TICKET_NUMBER_TAKEN", http.StatusConflict},
		{NewInternalError(nil), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			assert.True(t, Is(tc.err, tc.code))
			assert.Equal(t, tc.status, StatusOf(tc.err))
		})
	}
	assert.Equal(t, "ticket not found", NewNotFound("ticket", nil).Error())
}
