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

func TestFromStore(t *testing.T) {
	assert.NoError(t, FromStore("ticket", nil))

	notFound := ToDomainError(FromStore("ticket", fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, "ticket not found", notFound.Message)

	cause := errors.New("connection refused")
	unavailable := ToDomainError(FromStore("ticket", cause))
	assert.Equal(t, CodeStoreUnavailable, unavailable.Code)
	assert.Equal(t, http.StatusServiceUnavailable, unavailable.HTTPStatus)
	assert.ErrorIs(t, unavailable, cause)
	assert.NotContains(t, unavailable.Message, "refused")

	forbidden := NewForbidden("nope")
	assert.Same(t, forbidden, FromStore("ticket", forbidden))
}

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	internal := ToDomainError(errors.New("boom"))
	require.NotNil(t, internal)
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)

	validation := ToDomainError(NewValidationError("title required", map[string]any{"field": "title"}))
	assert.Equal(t, http.StatusBadRequest, validation.HTTPStatus)
	assert.Equal(t, "title", validation.Details["field"])
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewUnauthorized("missing token"))
	assert.True(t, HasCode(err, CodeUnauthorized))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeUnauthorized))
}
