package service

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskflow/helpdesk/internal/policy"
	apperrors "github.com/deskflow/helpdesk/pkg/util/errorutil"
)

func requireCaller(caller policy.Caller) error {
	if caller.ID == "" {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// lookupErr maps a repository read failure onto NotFound or Internal.
func lookupErr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

// trimmedOrNil returns nil for a nil or blank value.
func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string {
	return &s
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
