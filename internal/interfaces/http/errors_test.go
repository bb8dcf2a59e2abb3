package http

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custodia-api/internal/domain"
)

func TestWriteError_MapeoDeEstados(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validación", domain.NewValidationError("items", "obligatorio"), fiber.StatusBadRequest},
		{"entrada inválida", fmt.Errorf("x: %w", domain.ErrInvalidInput), fiber.StatusBadRequest},
		{"duplicado", &domain.DuplicateMovementError{CatalogCode: "P1"}, fiber.StatusConflict},
		{"no encontrado", fmt.Errorf("albarán 1: %w", domain.ErrNotFound), fiber.StatusNotFound},
		{"numeración agotada", domain.ErrSequenceExhausted, fiber.StatusUnprocessableEntity},
		{"conflicto", domain.ErrConcurrencyConflict, fiber.StatusConflict},
		{"no autorizado", domain.ErrUnauthorized, fiber.StatusUnauthorized},
		{"interno", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return writeError(c, zerolog.Nop(), tc.err) })
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "items[0].catalog_code", fieldPath("CreateDocumentRequest.items[0].catalog_code"))
	assert.Equal(t, "code", fieldPath("code"))
}
