package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewValidationError("body required", nil), "VALIDATION_FAILED", http.StatusBadRequest},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewNotFound("ticket", nil)), "NOT_FOUND", http.StatusNotFound},
		{"pgx no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"fiber error", fiber.NewError(http.StatusForbidden, "nope"), "FORBIDDEN", http.StatusForbidden},
		{"anything else", errors.New("disk on fire"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.Equal(t, tt.code, got.Code)
			require.Equal(t, tt.status, got.HTTPStatus)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	require.NoError(t, MapError(nil))
	require.Nil(t, ToDomainError(nil))
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewUnauthorized("invalid token"))
	require.True(t, IsCode(err, "UNAUTHORIZED"))
	require.False(t, IsCode(err, "NOT_FOUND"))
}
