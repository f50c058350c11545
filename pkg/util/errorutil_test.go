package util

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"wrapped cancelled", fmt.Errorf("store: %w", context.Canceled), false},
		{"no rows pgx", pgx.ErrNoRows, false},
		{"no rows sql", sql.ErrNoRows, false},
		{"client fault", NewValidationError("bad", nil), false},
		{"forbidden", NewForbidden("no"), false},
		{"invalid state", NewInvalidState("closed", nil), false},
		{"server fault", NewInternalError(errors.New("boom")), true},
		{"unavailable", NewUnavailable(errors.New("down")), true},
		{"raw driver error", errors.New("connection reset by peer"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

func TestToDomainErrorPassthrough(t *testing.T) {
	original := NewAttachmentRejected("too large", map[string]any{"size_bytes": int64(1)})
	mapped := ToDomainError(original)

	require.NotNil(t, mapped)
	assert.Equal(t, CodeAttachmentRejected, mapped.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, mapped.HTTPStatus)
}

func TestToDomainErrorMapsMissingRows(t *testing.T) {
	mapped := ToDomainError(fmt.Errorf("lookup: %w", pgx.ErrNoRows))

	require.NotNil(t, mapped)
	assert.Equal(t, CodeNotFound, mapped.Code)
	assert.Equal(t, http.StatusNotFound, mapped.HTTPStatus)
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")
	mapped := ToDomainError(cause)

	require.NotNil(t, mapped)
	assert.Equal(t, CodeInternal, mapped.Code)
	assert.ErrorIs(t, mapped, cause)
}

func TestDeliveryFailedKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDeliveryFailed(cause)

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeDeliveryFailed, domainErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, domainErr.HTTPStatus)
	assert.ErrorIs(t, err, cause)
}
